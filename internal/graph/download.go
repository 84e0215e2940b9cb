package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

// ErrNoDownloadURL is returned when a drive item has no pre-authenticated download URL.
// This can happen for folders, OneNote packages, or zero-byte files.
var ErrNoDownloadURL = errors.New("graph: item has no download URL")

// ErrNotAFile is returned by Open when the item is a folder or package.
var ErrNotAFile = errors.New("graph: item is not a file")

// ErrStreamInterrupted marks a content stream that failed after the
// response arrived. The request/response cycle is retried by the client;
// an interrupted body is left for the caller to re-fetch.
var ErrStreamInterrupted = errors.New("graph: download stream interrupted")

// Open fetches item metadata and opens a stream of its content. The caller
// must close the returned reader.
func (c *Client) Open(ctx context.Context, driveID, itemID string) (*Item, io.ReadCloser, error) {
	item, err := c.GetItem(ctx, driveID, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("graph: getting item for download: %w", err)
	}

	body, err := c.OpenItem(ctx, item)
	if err != nil {
		return item, nil, err
	}

	return item, body, nil
}

// OpenItem opens the content of an item fetched earlier, using the
// pre-authenticated download URL captured with its metadata. Zero-byte
// files have no download URL; they yield an empty reader.
func (c *Client) OpenItem(ctx context.Context, item *Item) (io.ReadCloser, error) {
	c.logger.Info("opening item", slog.String("item_id", item.ID))

	if !item.IsFile {
		return nil, fmt.Errorf("%w: %w", catalog.ErrInvalidRequest, ErrNotAFile)
	}

	if item.DownloadURL == "" {
		if item.HasSize && item.Size == 0 {
			return io.NopCloser(eofReader{}), nil
		}

		// Expected for some restricted items.
		c.logger.Warn("item has no download URL", slog.String("item_id", item.ID))

		return nil, fmt.Errorf("%w: %w", catalog.ErrPermissionDenied, ErrNoDownloadURL)
	}

	return c.openURL(ctx, item.DownloadURL)
}

// openURL opens a pre-authenticated download URL. The URL itself is never
// logged because it embeds an access token.
func (c *Client) openURL(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	resp, err := c.doPreAuth(ctx, "download", downloadURL)
	if err != nil {
		return nil, err
	}

	return &streamErrorBody{rc: resp.Body}, nil
}

// streamErrorBody tags mid-stream read failures as interrupted upstream
// streams.
type streamErrorBody struct {
	rc io.ReadCloser
}

func (s *streamErrorBody) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, classifyTransport(fmt.Errorf("%w: %w", ErrStreamInterrupted, err))
	}

	return n, err
}

func (s *streamErrorBody) Close() error {
	return s.rc.Close()
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
