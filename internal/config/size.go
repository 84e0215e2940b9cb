package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// maxSinglePut is the largest object S3 accepts in one PutObject call.
// Transfers are buffered and uploaded in a single request.
const maxSinglePut = 5 << 30

// ParseSize converts a human-readable size ("100MiB", "1.5GB", "2048") to
// bytes. SI and IEC suffixes are accepted in any case; a bare number is
// bytes. Empty and "0" are 0.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return int64(n), nil
}

// parseMaxFileSize checks transfer.max_file_size: positive and no larger
// than one PutObject may carry.
func parseMaxFileSize(s string) (int64, error) {
	n, err := ParseSize(s)

	switch {
	case err != nil:
		return 0, fmt.Errorf("transfer.max_file_size: %w", err)
	case n <= 0:
		return 0, fmt.Errorf("transfer.max_file_size: must be greater than 0, got %q", s)
	case n > maxSinglePut:
		return 0, fmt.Errorf("transfer.max_file_size: %q exceeds the %s single-upload limit",
			s, humanize.IBytes(maxSinglePut))
	}

	return n, nil
}
