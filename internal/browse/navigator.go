// Package browse implements the hierarchy navigator: it resolves optional
// site, drive and folder coordinates into one level of the
// site → drive → folder hierarchy and lists that level's children.
package browse

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/metrics"
	"github.com/tonimelisma/spbridge/internal/remote"
)

// maxFolderDepth bounds the parent-chain walk when resolving a folder path.
const maxFolderDepth = 64

// sitesPath is the absolute root of the hierarchy.
const sitesPath = "/sites"

// Store is the slice of the Remote Store Client the navigator reads from.
type Store interface {
	ListSites(ctx context.Context) ([]catalog.Node, error)
	DefaultDrive(ctx context.Context) (catalog.Node, bool, error)
	ListDrives(ctx context.Context, siteID string) ([]catalog.Node, error)
	ListChildren(ctx context.Context, driveID, folderID string) ([]catalog.Node, []catalog.File, error)
	Item(ctx context.Context, driveID, itemID string) (*remote.Item, error)
}

// Location holds the optional coordinates of a browse request.
type Location struct {
	SiteID   string `form:"site_id" json:"site_id,omitempty"`
	DriveID  string `form:"drive_id" json:"drive_id,omitempty"`
	FolderID string `form:"folder_id" json:"folder_id,omitempty"`
}

// Options tunes the navigator. A nil Filter selects DefaultFilter.
type Options struct {
	// DefaultDrive makes an empty Location descend into the root site's
	// default drive instead of listing sites.
	DefaultDrive bool
	Filter       *Filter
}

// Navigator resolves browse requests. It keeps no state between calls.
type Navigator struct {
	store  Store
	opts   atomic.Pointer[Options]
	logger *slog.Logger
}

// NewNavigator returns a Navigator reading from store.
func NewNavigator(store Store, opts Options, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}

	n := &Navigator{store: store, logger: logger}
	n.SetOptions(opts)

	return n
}

// SetOptions replaces the navigator options. Safe for concurrent use with
// Browse.
func (n *Navigator) SetOptions(opts Options) {
	if opts.Filter == nil {
		opts.Filter = DefaultFilter()
	}

	n.opts.Store(&opts)
}

// Browse resolves loc to a hierarchy level and returns its children.
func (n *Navigator) Browse(ctx context.Context, loc Location) (*catalog.BrowseResult, error) {
	loc = Location{
		SiteID:   strings.TrimSpace(loc.SiteID),
		DriveID:  strings.TrimSpace(loc.DriveID),
		FolderID: strings.TrimSpace(loc.FolderID),
	}

	res, err := n.resolve(ctx, loc)

	level := ""
	if res != nil {
		level = res.Level.String()
	}

	metrics.RecordBrowse(level, err == nil)

	if err != nil {
		n.logger.Warn("browse failed",
			slog.String("site_id", loc.SiteID),
			slog.String("drive_id", loc.DriveID),
			slog.String("folder_id", loc.FolderID),
			slog.String("kind", catalog.KindLabel(err)),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	n.logger.Info("browse resolved",
		slog.String("level", level),
		slog.String("current_path", res.CurrentPath),
		slog.Int("folders", len(res.Folders)),
		slog.Int("files", len(res.Files)),
	)

	return res, nil
}

func (n *Navigator) resolve(ctx context.Context, loc Location) (*catalog.BrowseResult, error) {
	opts := n.opts.Load()

	switch {
	case loc.FolderID != "" && loc.DriveID == "":
		return nil, fmt.Errorf("browse: folder_id requires drive_id: %w", catalog.ErrInvalidRequest)
	case loc.DriveID != "":
		return n.listFolder(ctx, loc, opts)
	case loc.SiteID != "":
		return n.listDrives(ctx, loc.SiteID)
	}

	if opts.DefaultDrive {
		drive, ok, err := n.store.DefaultDrive(ctx)
		if err != nil {
			return nil, err
		}

		if ok {
			n.logger.Debug("descending into default drive", slog.String("drive_id", drive.ID))
			return n.listFolder(ctx, Location{DriveID: drive.ID}, opts)
		}
	}

	return n.listSites(ctx)
}

func (n *Navigator) listSites(ctx context.Context) (*catalog.BrowseResult, error) {
	sites, err := n.store.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	if sites == nil {
		sites = []catalog.Node{}
	}

	for i := range sites {
		sites[i].Path = sitesPath + "/" + sites[i].ID
	}

	sortNodes(sites)

	return &catalog.BrowseResult{
		Level:       catalog.KindSite,
		Folders:     sites,
		Files:       []catalog.File{},
		CurrentPath: sitesPath,
	}, nil
}

func (n *Navigator) listDrives(ctx context.Context, siteID string) (*catalog.BrowseResult, error) {
	drives, err := n.store.ListDrives(ctx, siteID)
	if err != nil {
		return nil, err
	}

	current := drivesPath(siteID)
	for i := range drives {
		drives[i].Path = current + "/" + drives[i].ID
	}

	sortNodes(drives)

	return &catalog.BrowseResult{
		Level:       catalog.KindDrive,
		Folders:     drives,
		Files:       []catalog.File{},
		CurrentPath: current,
		ParentPath:  ptr(sitesPath),
	}, nil
}

func (n *Navigator) listFolder(ctx context.Context, loc Location, opts *Options) (*catalog.BrowseResult, error) {
	if loc.SiteID != "" {
		if err := n.checkDriveInSite(ctx, loc.SiteID, loc.DriveID); err != nil {
			return nil, err
		}
	}

	root := driveRootPath(loc.SiteID, loc.DriveID)

	chain, err := n.folderChain(ctx, loc.DriveID, loc.FolderID)
	if err != nil {
		return nil, err
	}

	current, parent := root, sitesPath
	if loc.SiteID != "" {
		parent = drivesPath(loc.SiteID)
	}

	folderID := remote.RootFolderID
	if len(chain) > 0 {
		current = root + "/items/" + strings.Join(chain, "/")
		parent = root
		if len(chain) > 1 {
			parent = root + "/items/" + strings.Join(chain[:len(chain)-1], "/")
		}

		folderID = chain[len(chain)-1]
	}

	folders, files, err := n.store.ListChildren(ctx, loc.DriveID, folderID)
	if err != nil {
		return nil, err
	}

	childBase := current + "/"
	if len(chain) == 0 {
		childBase = root + "/items/"
	}

	for i := range folders {
		folders[i].Kind = catalog.KindFolder
		folders[i].Path = childBase + folders[i].ID
	}

	kept := make([]catalog.File, 0, len(files))
	for i := range files {
		if !opts.Filter.Allowed(files[i].Name, files[i].MimeType) {
			continue
		}

		files[i].Kind = catalog.KindFile
		files[i].Path = childBase + files[i].ID
		kept = append(kept, files[i])
	}

	if dropped := len(files) - len(kept); dropped > 0 {
		n.logger.Debug("filtered non-document files",
			slog.String("drive_id", loc.DriveID),
			slog.Int("dropped", dropped),
		)
	}

	sortNodes(folders)
	slices.SortStableFunc(kept, func(a, b catalog.File) int {
		return compareNames(a.Name, a.ID, b.Name, b.ID)
	})

	return &catalog.BrowseResult{
		Level:       catalog.KindFolder,
		Folders:     folders,
		Files:       kept,
		CurrentPath: current,
		ParentPath:  &parent,
	}, nil
}

func (n *Navigator) checkDriveInSite(ctx context.Context, siteID, driveID string) error {
	drives, err := n.store.ListDrives(ctx, siteID)
	if err != nil {
		return err
	}

	for i := range drives {
		if drives[i].ID == driveID {
			return nil
		}
	}

	return fmt.Errorf("browse: drive %s is not part of site %s: %w", driveID, siteID, catalog.ErrNotFound)
}

// folderChain returns the folder ids from just below the drive root down to
// folderID. The drive root itself yields an empty chain.
func (n *Navigator) folderChain(ctx context.Context, driveID, folderID string) ([]string, error) {
	if folderID == "" || folderID == remote.RootFolderID {
		return nil, nil
	}

	item, err := n.store.Item(ctx, driveID, folderID)
	if err != nil {
		return nil, err
	}

	if item.Kind != catalog.KindFolder {
		return nil, fmt.Errorf("browse: %s is not a folder: %w", folderID, catalog.ErrNotFound)
	}

	if item.IsRoot {
		return nil, nil
	}

	chain := []string{item.ID}
	parentID := item.ParentID

	for parentID != "" {
		if len(chain) >= maxFolderDepth {
			return nil, fmt.Errorf("browse: folder %s is nested deeper than %d levels: %w",
				folderID, maxFolderDepth, catalog.ErrInvalidRequest)
		}

		parent, err := n.store.Item(ctx, driveID, parentID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("browse: parent %s of %s vanished: %w", parentID, folderID, err)
			}

			return nil, err
		}

		if parent.IsRoot {
			break
		}

		chain = append(chain, parent.ID)
		parentID = parent.ParentID
	}

	slices.Reverse(chain)

	return chain, nil
}

func drivesPath(siteID string) string {
	return sitesPath + "/" + siteID + "/drives"
}

func driveRootPath(siteID, driveID string) string {
	if siteID == "" {
		return "/drives/" + driveID
	}

	return drivesPath(siteID) + "/" + driveID
}

func sortNodes(nodes []catalog.Node) {
	slices.SortStableFunc(nodes, func(a, b catalog.Node) int {
		return compareNames(a.Name, a.ID, b.Name, b.ID)
	})
}

func compareNames(aName, aID, bName, bID string) int {
	if c := cmp.Compare(strings.ToLower(aName), strings.ToLower(bName)); c != 0 {
		return c
	}

	return cmp.Compare(aID, bID)
}

func ptr[T any](v T) *T { return &v }
