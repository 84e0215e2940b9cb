package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// pageResponse is the OData collection envelope shared by every list endpoint.
type pageResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// listAll follows @odata.nextLink until the collection is exhausted or
// limit entries were collected (limit <= 0 means no limit).
func listAll[T any](ctx context.Context, c *Client, apiPath string, limit int) ([]T, error) {
	var out []T

	page := 1

	for apiPath != "" {
		values, next, err := fetchPage[T](ctx, c, apiPath)
		if err != nil {
			return nil, err
		}

		out = append(out, values...)

		c.logger.Debug("fetched page",
			slog.Int("page", page),
			slog.Int("count", len(values)),
		)

		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			break
		}

		apiPath = next
		page++
	}

	return out, nil
}

// fetchPage fetches a single page and returns its values and the next page
// path (empty if no more pages).
func fetchPage[T any](ctx context.Context, c *Client, apiPath string) ([]T, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var pr pageResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, "", classifyTransport(fmt.Errorf("graph: decoding page response: %w", err))
	}

	if pr.NextLink == "" {
		return pr.Value, "", nil
	}

	next, err := c.stripBaseURL(pr.NextLink)
	if err != nil {
		return nil, "", err
	}

	return pr.Value, next, nil
}

// decodeOne performs a GET and decodes a single JSON object into dst.
func decodeOne(ctx context.Context, c *Client, apiPath string, dst any) error {
	resp, err := c.Do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return classifyTransport(fmt.Errorf("graph: decoding response for %s: %w", apiPath, err))
	}

	return nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with Do().
// Returns an error if the URL doesn't start with the expected base.
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if !strings.HasPrefix(fullURL, c.baseURL) {
		return "", classifyTransport(fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL))
	}

	return fullURL[len(c.baseURL):], nil
}
