package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// listChildrenPageSize is the $top value for ListChildren requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listChildrenPageSize = 200

// RootItemID addresses the root folder of a drive.
const RootItemID = "root"

// Timestamp validation bounds: timestamps outside this range are dropped.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported; callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 *int64           `json:"size"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	ParentReference      *parentRef       `json:"parentReference"`
	File                 *fileFacet       `json:"file"`
	Folder               *folderFacet     `json:"folder"`
	Root                 *json.RawMessage `json:"root"`
	Deleted              *json.RawMessage `json:"deleted"`
	Package              *json.RawMessage `json:"package"`
	DownloadURL          string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID      string `json:"id"`
	DriveID string `json:"driveId"`
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        normalizeName(d.Name),
		IsFolder:    d.Folder != nil,
		IsFile:      d.File != nil,
		IsRoot:      d.Root != nil,
		IsDeleted:   d.Deleted != nil,
		IsPackage:   d.Package != nil,
		DownloadURL: d.DownloadURL,
	}

	if d.Size != nil {
		item.Size = *d.Size
		item.HasSize = *d.Size >= 0
	}

	if d.ParentReference != nil {
		item.DriveID = d.ParentReference.DriveID
		item.ParentID = d.ParentReference.ID
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, d.ID, logger)

	return item
}

// parseTimestamp parses an RFC3339 timestamp and validates the year range.
// Invalid or out-of-range timestamps yield the zero time: the modification
// time is optional, so an unknown value is better than an invented one.
func parseTimestamp(raw, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, ignoring",
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, ignoring",
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t.UTC()
}

func itemPath(driveID, itemID string) string {
	return fmt.Sprintf("/drives/%s/items/%s", url.PathEscape(driveID), url.PathEscape(itemID))
}

// GetItem retrieves a single drive item by ID. The response includes the
// pre-authenticated download URL for files.
func (c *Client) GetItem(ctx context.Context, driveID, itemID string) (*Item, error) {
	c.logger.Debug("getting item",
		slog.String("drive_id", driveID),
		slog.String("item_id", itemID),
	)

	var dir driveItemResponse
	if err := decodeOne(ctx, c, itemPath(driveID, itemID), &dir); err != nil {
		return nil, err
	}

	item := dir.toItem(c.logger)
	if item.DriveID == "" {
		item.DriveID = driveID
	}

	return &item, nil
}

// ListChildren returns all children of a folder, handling pagination
// automatically. Use RootItemID for the drive root.
func (c *Client) ListChildren(ctx context.Context, driveID, parentID string) ([]Item, error) {
	c.logger.Info("listing children",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
	)

	raw, err := listAll[driveItemResponse](ctx, c,
		fmt.Sprintf("%s/children?$top=%d", itemPath(driveID, parentID), listChildrenPageSize), 0)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw))
	for i := range raw {
		items = append(items, raw[i].toItem(c.logger))
	}

	items = filterPackages(items, c.logger)

	c.logger.Info("listed children complete",
		slog.String("drive_id", driveID),
		slog.String("parent_id", parentID),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}
