// Package remote is the Remote Store Client consumed by the navigator and
// the transfer orchestrator. It adapts the Graph client to hierarchy entries
// tagged with an explicit catalog.Kind and guarantees every error carries a
// catalog taxonomy sentinel.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/graph"
	"github.com/tonimelisma/spbridge/internal/metrics"
)

// RootFolderID addresses a drive's root folder.
const RootFolderID = graph.RootItemID

// ErrInterrupted marks a content stream that broke after it was opened.
// Opening it again from fresh metadata may succeed.
var ErrInterrupted = graph.ErrStreamInterrupted

// defaultMaxSites caps the site search when no limit is configured.
const defaultMaxSites = 500

// GraphAPI is the subset of *graph.Client the store needs.
type GraphAPI interface {
	RootSite(ctx context.Context) (*graph.Site, error)
	SearchSites(ctx context.Context, query string, limit int) ([]graph.Site, error)
	FollowedSites(ctx context.Context, limit int) ([]graph.Site, error)
	SiteDrives(ctx context.Context, siteID string) ([]graph.Drive, error)
	RootSiteDrive(ctx context.Context) (*graph.Drive, error)
	Drive(ctx context.Context, driveID string) (*graph.Drive, error)
	GetItem(ctx context.Context, driveID, itemID string) (*graph.Item, error)
	ListChildren(ctx context.Context, driveID, parentID string) ([]graph.Item, error)
	OpenItem(ctx context.Context, item *graph.Item) (io.ReadCloser, error)
}

// Item is the metadata of one drive item. Kind is KindFolder or KindFile.
type Item struct {
	ID         string
	Name       string
	ParentID   string
	Kind       catalog.Kind
	IsRoot     bool
	Size       int64
	HasSize    bool
	ModifiedAt time.Time
	MimeType   string

	// src keeps the Graph metadata, including its short-lived download URL.
	src *graph.Item
}

// Store is the Remote Store Client.
type Store struct {
	api      GraphAPI
	maxSites int
	logger   *slog.Logger
}

// New returns a Store over api. maxSites <= 0 selects the default cap.
func New(api GraphAPI, maxSites int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	if maxSites <= 0 {
		maxSites = defaultMaxSites
	}

	return &Store{api: api, maxSites: maxSites, logger: logger}
}

// ListSites returns the root site, then every site found by search, then
// followed sites, without duplicates. Search and followed-site failures are
// tolerated as long as one source answered.
func (s *Store) ListSites(ctx context.Context) ([]catalog.Node, error) {
	var (
		nodes   = make([]catalog.Node, 0)
		seen    = make(map[string]bool)
		lastErr error
		okCount int
	)

	add := func(sites ...graph.Site) {
		for i := range sites {
			if seen[sites[i].ID] || len(nodes) >= s.maxSites {
				continue
			}

			seen[sites[i].ID] = true
			nodes = append(nodes, catalog.Node{ID: sites[i].ID, Name: sites[i].Name, Kind: catalog.KindSite})
		}
	}

	root, err := s.api.RootSite(ctx)
	if err != nil {
		lastErr = s.fail("root site", err)
	} else {
		okCount++
		add(*root)
	}

	searched, err := s.api.SearchSites(ctx, "*", s.maxSites)
	if err != nil {
		lastErr = s.fail("site search", err)
	} else {
		okCount++
		add(searched...)
	}

	followed, err := s.api.FollowedSites(ctx, s.maxSites)
	if err != nil {
		lastErr = s.fail("followed sites", err)
	} else {
		okCount++
		add(followed...)
	}

	if okCount == 0 {
		return nil, fmt.Errorf("remote: listing sites: %w", lastErr)
	}

	if ctx.Err() != nil {
		return nil, canceled(ctx)
	}

	s.logger.Info("listed sites", slog.Int("count", len(nodes)), slog.Int("sources", okCount))

	return nodes, nil
}

// DefaultDrive returns the root site's default document library. ok is false
// when the tenant exposes none the caller may read.
func (s *Store) DefaultDrive(ctx context.Context) (node catalog.Node, ok bool, err error) {
	d, err := s.api.RootSiteDrive(ctx)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrPermissionDenied) {
			s.logger.Info("no readable default drive", slog.String("error", err.Error()))
			return catalog.Node{}, false, nil
		}

		return catalog.Node{}, false, fmt.Errorf("remote: default drive: %w", s.fail("default drive", err))
	}

	return driveNode(*d), true, nil
}

// ListDrives returns the document libraries of a site.
func (s *Store) ListDrives(ctx context.Context, siteID string) ([]catalog.Node, error) {
	drives, err := s.api.SiteDrives(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("remote: listing drives of site %s: %w", siteID, s.fail("list drives", err))
	}

	nodes := make([]catalog.Node, 0, len(drives))
	for i := range drives {
		nodes = append(nodes, driveNode(drives[i]))
	}

	return nodes, nil
}

// Drive resolves a drive id to a drive node.
func (s *Store) Drive(ctx context.Context, driveID string) (catalog.Node, error) {
	d, err := s.api.Drive(ctx, driveID)
	if err != nil {
		return catalog.Node{}, fmt.Errorf("remote: drive %s: %w", driveID, s.fail("get drive", err))
	}

	return driveNode(*d), nil
}

// Ping checks that the drive is reachable with the current credentials.
func (s *Store) Ping(ctx context.Context, driveID string) error {
	_, err := s.Drive(ctx, driveID)
	return err
}

// ListChildren returns the folders and files directly under folderID
// (RootFolderID or "" for the drive root). Paths are left empty.
func (s *Store) ListChildren(ctx context.Context, driveID, folderID string) ([]catalog.Node, []catalog.File, error) {
	if folderID == "" {
		folderID = RootFolderID
	}

	items, err := s.api.ListChildren(ctx, driveID, folderID)
	if err != nil {
		return nil, nil, fmt.Errorf("remote: listing children of %s in drive %s: %w",
			folderID, driveID, s.fail("list children", err))
	}

	folders := make([]catalog.Node, 0, len(items))
	files := make([]catalog.File, 0, len(items))

	for i := range items {
		it := toItem(&items[i])

		switch it.Kind {
		case catalog.KindFolder:
			folders = append(folders, catalog.Node{ID: it.ID, Name: it.Name, Kind: catalog.KindFolder})
		case catalog.KindFile:
			files = append(files, it.File())
		}
	}

	return folders, files, nil
}

// Item fetches the metadata of one drive item. Items that are neither a
// folder nor a file are reported as not found.
func (s *Store) Item(ctx context.Context, driveID, itemID string) (*Item, error) {
	gi, err := s.api.GetItem(ctx, driveID, itemID)
	if err != nil {
		return nil, fmt.Errorf("remote: item %s in drive %s: %w", itemID, driveID, s.fail("get item", err))
	}

	it := toItem(gi)
	if it.Kind == 0 {
		return nil, fmt.Errorf("remote: item %s in drive %s is neither file nor folder: %w",
			itemID, driveID, catalog.ErrNotFound)
	}

	return it, nil
}

// OpenItem opens the content of a file returned by Item, reusing the
// download URL fetched with its metadata. Items built elsewhere are looked
// up first. The caller must close the reader.
func (s *Store) OpenItem(ctx context.Context, driveID string, it *Item) (io.ReadCloser, error) {
	gi := it.src
	if gi == nil {
		var err error
		if gi, err = s.api.GetItem(ctx, driveID, it.ID); err != nil {
			return nil, fmt.Errorf("remote: item %s in drive %s: %w", it.ID, driveID, s.fail("get item", err))
		}
	}

	body, err := s.api.OpenItem(ctx, gi)
	if err != nil {
		return nil, fmt.Errorf("remote: opening %s in drive %s: %w", it.ID, driveID, s.fail("open", err))
	}

	return body, nil
}

// fail records err against the upstream metric and makes sure it carries a
// taxonomy sentinel.
func (s *Store) fail(op string, err error) error {
	metrics.RecordUpstreamError(metrics.UpstreamGraph, catalog.KindLabel(err))

	s.logger.Warn("graph call failed",
		slog.String("op", op),
		slog.String("kind", catalog.KindLabel(err)),
		slog.String("error", err.Error()),
	)

	if catalog.KindOf(err) == catalog.ErrUpstreamUnavailable && !errors.Is(err, catalog.ErrUpstreamUnavailable) {
		return fmt.Errorf("%w: %w", catalog.ErrUpstreamUnavailable, err)
	}

	return err
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("remote: %w: %w", catalog.ErrUpstreamUnavailable, context.Cause(ctx))
}

func driveNode(d graph.Drive) catalog.Node {
	return catalog.Node{ID: d.ID, Name: d.Name, Kind: catalog.KindDrive}
}

func toItem(gi *graph.Item) *Item {
	it := &Item{
		ID:         gi.ID,
		Name:       gi.Name,
		ParentID:   gi.ParentID,
		IsRoot:     gi.IsRoot,
		Size:       gi.Size,
		HasSize:    gi.HasSize,
		ModifiedAt: gi.ModifiedAt,
		MimeType:   gi.MimeType,
		src:        gi,
	}

	switch {
	case gi.IsFolder || gi.IsRoot:
		it.Kind = catalog.KindFolder
	case gi.IsFile:
		it.Kind = catalog.KindFile
	}

	return it
}

// File converts a file item into a browse entry without a path.
func (it *Item) File() catalog.File {
	f := catalog.File{
		ID:       it.ID,
		Name:     it.Name,
		Kind:     catalog.KindFile,
		MimeType: it.MimeType,
	}

	if it.HasSize {
		size := it.Size
		f.SizeBytes = &size
	}

	if !it.ModifiedAt.IsZero() {
		mod := it.ModifiedAt
		f.ModifiedAt = &mod
	}

	return f
}
