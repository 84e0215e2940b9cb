package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys maps each section to the keys valid inside it.
var knownKeys = map[string]map[string]bool{
	"graph": {
		"base_url": true, "client_id": true, "tenant": true, "token_path": true, "max_sites": true,
	},
	"browse": {
		"default_drive": true, "extensions": true, "mime_types": true,
	},
	"storage": {
		"enabled": true, "bucket": true, "prefix": true, "region": true,
		"endpoint": true, "path_style": true,
	},
	"transfer": {
		"workers": true, "max_file_size": true, "retry_attempts": true,
		"retry_base_delay": true, "file_timeout": true, "batch_timeout": true,
	},
	"logging": {
		"log_level": true, "log_format": true,
	},
	"network": {
		"connect_timeout": true, "data_timeout": true, "user_agent": true, "max_retries": true,
	},
	"server": {
		"listen": true, "shutdown_timeout": true,
	},
}

// knownSectionsList is the sorted section names for Levenshtein matching.
var knownSectionsList = sortedKeys(knownKeys)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	seen := make(map[string]bool)

	for _, key := range undecoded {
		err := buildKeyError(key)
		if err == nil || seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// buildKeyError describes one undecoded key. A key inside an unknown section
// is reported once as the section.
func buildKeyError(key toml.Key) error {
	if len(key) == 0 {
		return nil
	}

	section := key[0]

	fields, ok := knownKeys[section]
	if !ok {
		if suggestion := closestMatch(section, knownSectionsList); suggestion != "" {
			return fmt.Errorf("unknown config section [%s], did you mean [%s]?", section, suggestion)
		}

		if len(key) == 1 {
			return fmt.Errorf("unknown config key %q (settings belong in a section)", section)
		}

		return fmt.Errorf("unknown config section [%s]", section)
	}

	if len(key) < 2 {
		return fmt.Errorf("config key %q must be a section", section)
	}

	field := key[1]
	if fields[field] {
		return nil
	}

	qualified := strings.Join([]string{section, field}, ".")
	if suggestion := closestMatch(field, sortedKeys(fields)); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", qualified, section+"."+suggestion)
	}

	return fmt.Errorf("unknown config key %q", qualified)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
