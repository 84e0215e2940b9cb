package graph

import "time"

// Site is a SharePoint site, normalized from the Graph API response.
type Site struct {
	ID          string
	Name        string // displayName, falling back to name
	WebURL      string
	Description string
}

// Drive is a document library (or OneDrive) reachable by the caller.
type Drive struct {
	ID        string
	Name      string
	DriveType string // "documentLibrary", "business", "personal"
	WebURL    string
}

// Item represents a drive item (file, folder, or package).
// Fields are normalized from the Graph API response; callers never see raw API data.
type Item struct {
	ID          string
	Name        string
	DriveID     string
	ParentID    string
	Size        int64
	HasSize     bool
	IsFolder    bool
	IsFile      bool
	IsRoot      bool
	IsDeleted   bool
	IsPackage   bool // OneNote packages have neither a file nor a folder facet
	MimeType    string
	ModifiedAt  time.Time // zero when absent or unparseable
	ChildCount  int
	DownloadURL string // pre-authenticated, ephemeral; NEVER log
}
