// Package catalog defines the value types shared by the browse and transfer
// paths: hierarchy entries, browse results, transfer requests and reports.
// All of them are request/response values with no identity beyond the call
// that produced them.
package catalog

import (
	"fmt"
	"time"
)

// Kind tags every hierarchy entry with its level. Levels are carried
// explicitly from the remote store instead of being parsed out of paths.
type Kind int

// Hierarchy levels, outermost first.
const (
	KindSite Kind = iota + 1
	KindDrive
	KindFolder
	KindFile
)

var kindNames = map[Kind]string{
	KindSite:   "site",
	KindDrive:  "drive",
	KindFolder: "folder",
	KindFile:   "file",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("catalog: unknown kind %d", int(k))
	}

	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}

	return fmt.Errorf("catalog: unknown kind %q", text)
}

// Node is a directory-like entry: a site, a drive or a folder.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// File is a leaf entry. Size, modification time and MIME type are optional
// because the provider does not always report them.
type File struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Kind       Kind       `json:"kind"`
	SizeBytes  *int64     `json:"size_bytes,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
	MimeType   string     `json:"mime_type,omitempty"`
}

// BrowseResult is the answer to one navigation request. Folders holds the
// directory-like children (sites, drives or folders depending on the level);
// Files is only populated at the file-listing level. ParentPath is nil only
// at the absolute root.
type BrowseResult struct {
	Level       Kind    `json:"level"`
	Folders     []Node  `json:"folders"`
	Files       []File  `json:"files"`
	CurrentPath string  `json:"current_path"`
	ParentPath  *string `json:"parent_path"`
}
