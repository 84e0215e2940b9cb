package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// driveSelect limits drive payloads to the fields we normalize.
const driveSelect = "id,name,driveType,webUrl"

// driveResponse mirrors the Graph API drive JSON response.
// Unexported; callers use Drive via toDrive() normalization.
type driveResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

func (d *driveResponse) toDrive() Drive {
	return Drive{
		ID:        d.ID,
		Name:      normalizeName(d.Name),
		DriveType: d.DriveType,
		WebURL:    d.WebURL,
	}
}

// SiteDrives returns the document libraries of a site.
func (c *Client) SiteDrives(ctx context.Context, siteID string) ([]Drive, error) {
	c.logger.Info("listing site drives", slog.String("site_id", siteID))

	raw, err := listAll[driveResponse](ctx, c,
		fmt.Sprintf("/sites/%s/drives?$select=%s", url.PathEscape(siteID), driveSelect), 0)
	if err != nil {
		return nil, err
	}

	drives := make([]Drive, 0, len(raw))
	for i := range raw {
		drives = append(drives, raw[i].toDrive())
	}

	c.logger.Info("listed site drives",
		slog.String("site_id", siteID),
		slog.Int("count", len(drives)),
	)

	return drives, nil
}

// RootSiteDrive returns the default document library of the root site.
func (c *Client) RootSiteDrive(ctx context.Context) (*Drive, error) {
	c.logger.Debug("fetching root site default drive")

	var dr driveResponse
	if err := decodeOne(ctx, c, "/sites/root/drive?$select="+driveSelect, &dr); err != nil {
		return nil, err
	}

	drive := dr.toDrive()

	return &drive, nil
}

// Drive returns a specific drive by ID.
func (c *Client) Drive(ctx context.Context, driveID string) (*Drive, error) {
	c.logger.Debug("fetching drive", slog.String("drive_id", driveID))

	var dr driveResponse
	if err := decodeOne(ctx, c, fmt.Sprintf("/drives/%s?$select=%s", url.PathEscape(driveID), driveSelect), &dr); err != nil {
		return nil, err
	}

	drive := dr.toDrive()

	return &drive, nil
}
