package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// siteSelect limits site payloads to the fields we normalize.
const siteSelect = "id,displayName,name,webUrl,description"

// sitePageSize is the $top value for site collections.
const sitePageSize = 100

// siteResponse mirrors the Graph API site JSON.
// Unexported; callers use Site via toSite() normalization.
type siteResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
	WebURL      string `json:"webUrl"`
	Description string `json:"description"`
}

// toSite normalizes a Graph API site response. Team sites frequently have
// an empty displayName, in which case the URL name is used.
func (s *siteResponse) toSite() Site {
	name := s.DisplayName
	if name == "" {
		name = s.Name
	}

	return Site{
		ID:          s.ID,
		Name:        normalizeName(name),
		WebURL:      s.WebURL,
		Description: s.Description,
	}
}

// RootSite returns the tenant's root SharePoint site.
func (c *Client) RootSite(ctx context.Context) (*Site, error) {
	c.logger.Debug("fetching root site")

	var sr siteResponse
	if err := decodeOne(ctx, c, "/sites/root?$select="+siteSelect, &sr); err != nil {
		return nil, err
	}

	site := sr.toSite()

	return &site, nil
}

// Site returns a site by its composite id.
func (c *Client) Site(ctx context.Context, siteID string) (*Site, error) {
	c.logger.Debug("fetching site", slog.String("site_id", siteID))

	var sr siteResponse
	if err := decodeOne(ctx, c, fmt.Sprintf("/sites/%s?$select=%s", url.PathEscape(siteID), siteSelect), &sr); err != nil {
		return nil, err
	}

	site := sr.toSite()

	return &site, nil
}

// SearchSites returns sites matching query ("*" for every site the caller
// can see), following pagination up to limit results.
func (c *Client) SearchSites(ctx context.Context, query string, limit int) ([]Site, error) {
	c.logger.Info("searching sites", slog.String("query", query), slog.Int("limit", limit))

	path := fmt.Sprintf("/sites?search=%s&$top=%d&$select=%s", url.QueryEscape(query), sitePageSize, siteSelect)

	raw, err := listAll[siteResponse](ctx, c, path, limit)
	if err != nil {
		return nil, err
	}

	return toSites(raw), nil
}

// FollowedSites returns the sites the signed-in user follows.
func (c *Client) FollowedSites(ctx context.Context, limit int) ([]Site, error) {
	c.logger.Debug("listing followed sites")

	raw, err := listAll[siteResponse](ctx, c, fmt.Sprintf("/me/followedSites?$select=%s", siteSelect), limit)
	if err != nil {
		return nil, err
	}

	return toSites(raw), nil
}

func toSites(raw []siteResponse) []Site {
	sites := make([]Site, 0, len(raw))
	for i := range raw {
		if raw[i].ID == "" {
			continue
		}

		sites = append(sites, raw[i].toSite())
	}

	return sites
}
