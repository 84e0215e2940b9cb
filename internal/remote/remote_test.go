package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/graph"
)

// fakeGraph implements GraphAPI with canned answers.
type fakeGraph struct {
	root        *graph.Site
	rootErr     error
	search      []graph.Site
	searchErr   error
	followed    []graph.Site
	followedErr error
	drives      map[string][]graph.Drive
	defDrive    *graph.Drive
	defDriveErr error
	items       map[string]*graph.Item
	children    map[string][]graph.Item
	content     map[string]string
	getItems    int
	opened      []string
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w: %w", what, graph.ErrNotFound, catalog.ErrNotFound)
}

func (f *fakeGraph) RootSite(context.Context) (*graph.Site, error) { return f.root, f.rootErr }

func (f *fakeGraph) SearchSites(_ context.Context, _ string, limit int) ([]graph.Site, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	if len(f.search) > limit {
		return f.search[:limit], nil
	}

	return f.search, nil
}

func (f *fakeGraph) FollowedSites(context.Context, int) ([]graph.Site, error) {
	return f.followed, f.followedErr
}

func (f *fakeGraph) SiteDrives(_ context.Context, siteID string) ([]graph.Drive, error) {
	d, ok := f.drives[siteID]
	if !ok {
		return nil, notFound("site " + siteID)
	}

	return d, nil
}

func (f *fakeGraph) RootSiteDrive(context.Context) (*graph.Drive, error) {
	return f.defDrive, f.defDriveErr
}

func (f *fakeGraph) Drive(_ context.Context, driveID string) (*graph.Drive, error) {
	for _, ds := range f.drives {
		for i := range ds {
			if ds[i].ID == driveID {
				return &ds[i], nil
			}
		}
	}

	return nil, notFound("drive " + driveID)
}

func (f *fakeGraph) GetItem(_ context.Context, _, itemID string) (*graph.Item, error) {
	f.getItems++

	it, ok := f.items[itemID]
	if !ok {
		return nil, notFound("item " + itemID)
	}

	return it, nil
}

func (f *fakeGraph) ListChildren(_ context.Context, _, parentID string) ([]graph.Item, error) {
	c, ok := f.children[parentID]
	if !ok {
		return nil, notFound("folder " + parentID)
	}

	return c, nil
}

func (f *fakeGraph) OpenItem(_ context.Context, item *graph.Item) (io.ReadCloser, error) {
	f.opened = append(f.opened, item.ID)
	return io.NopCloser(strings.NewReader(f.content[item.ID])), nil
}

func TestListSites_MergesAndDeduplicates(t *testing.T) {
	g := &fakeGraph{
		root:     &graph.Site{ID: "root", Name: "Home"},
		search:   []graph.Site{{ID: "a", Name: "A"}, {ID: "root", Name: "Home"}},
		followed: []graph.Site{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}},
	}

	sites, err := New(g, 0, nil).ListSites(context.Background())
	require.NoError(t, err)

	ids := make([]string, 0, len(sites))
	for _, s := range sites {
		ids = append(ids, s.ID)
		assert.Equal(t, catalog.KindSite, s.Kind)
	}

	assert.Equal(t, []string{"root", "a", "b"}, ids)
}

func TestListSites_ToleratesPartialFailure(t *testing.T) {
	g := &fakeGraph{
		root:        &graph.Site{ID: "root", Name: "Home"},
		searchErr:   fmt.Errorf("search: %w", catalog.ErrPermissionDenied),
		followedErr: errors.New("connection reset"),
	}

	sites, err := New(g, 0, nil).ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)
}

func TestListSites_AllSourcesFail(t *testing.T) {
	g := &fakeGraph{
		rootErr:     errors.New("dial tcp: refused"),
		searchErr:   errors.New("dial tcp: refused"),
		followedErr: errors.New("dial tcp: refused"),
	}

	_, err := New(g, 0, nil).ListSites(context.Background())
	require.ErrorIs(t, err, catalog.ErrUpstreamUnavailable)
}

func TestListSites_EmptyTenantIsEmptyList(t *testing.T) {
	g := &fakeGraph{rootErr: notFound("root site")}

	sites, err := New(g, 0, nil).ListSites(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sites)
	assert.Empty(t, sites)
}

func TestListSites_RespectsCap(t *testing.T) {
	g := &fakeGraph{
		root:   &graph.Site{ID: "root"},
		search: []graph.Site{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}

	sites, err := New(g, 2, nil).ListSites(context.Background())
	require.NoError(t, err)
	assert.Len(t, sites, 2)
}

func TestDefaultDrive(t *testing.T) {
	g := &fakeGraph{defDrive: &graph.Drive{ID: "b!d", Name: "Documents"}}
	node, ok, err := New(g, 0, nil).DefaultDrive(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, catalog.Node{ID: "b!d", Name: "Documents", Kind: catalog.KindDrive}, node)

	g = &fakeGraph{defDriveErr: notFound("drive")}
	_, ok, err = New(g, 0, nil).DefaultDrive(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	g = &fakeGraph{defDriveErr: errors.New("timeout")}
	_, _, err = New(g, 0, nil).DefaultDrive(context.Background())
	require.ErrorIs(t, err, catalog.ErrUpstreamUnavailable)
}

func TestListChildren_TagsKinds(t *testing.T) {
	mod := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	g := &fakeGraph{children: map[string][]graph.Item{
		RootFolderID: {
			{ID: "f1", Name: "Reports", IsFolder: true},
			{ID: "x1", Name: "a.pdf", IsFile: true, Size: 10, HasSize: true, ModifiedAt: mod, MimeType: "application/pdf"},
			{ID: "x2", Name: "b.txt", IsFile: true},
		},
	}}

	folders, files, err := New(g, 0, nil).ListChildren(context.Background(), "d", "")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	require.Len(t, files, 2)

	assert.Equal(t, catalog.KindFolder, folders[0].Kind)
	assert.Equal(t, catalog.KindFile, files[0].Kind)
	require.NotNil(t, files[0].SizeBytes)
	assert.Equal(t, int64(10), *files[0].SizeBytes)
	assert.Equal(t, mod, *files[0].ModifiedAt)
	assert.Nil(t, files[1].SizeBytes)
	assert.Nil(t, files[1].ModifiedAt)
}

func TestListChildren_EmptyFolder(t *testing.T) {
	g := &fakeGraph{children: map[string][]graph.Item{"empty": {}}}

	folders, files, err := New(g, 0, nil).ListChildren(context.Background(), "d", "empty")
	require.NoError(t, err)
	assert.Empty(t, folders)
	assert.Empty(t, files)
	assert.NotNil(t, folders)
	assert.NotNil(t, files)
}

func TestItem_NotFound(t *testing.T) {
	_, err := New(&fakeGraph{}, 0, nil).Item(context.Background(), "d", "nope")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestItem_RootIsFolder(t *testing.T) {
	g := &fakeGraph{items: map[string]*graph.Item{"root": {ID: "r0", IsRoot: true}}}

	it, err := New(g, 0, nil).Item(context.Background(), "d", "root")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindFolder, it.Kind)
	assert.True(t, it.IsRoot)
}

func TestPing(t *testing.T) {
	g := &fakeGraph{drives: map[string][]graph.Drive{"s": {{ID: "d"}}}}
	s := New(g, 0, nil)

	require.NoError(t, s.Ping(context.Background(), "d"))
	require.ErrorIs(t, s.Ping(context.Background(), "other"), catalog.ErrNotFound)
}

func TestOpenItem_ReusesFetchedMetadata(t *testing.T) {
	g := &fakeGraph{
		items:   map[string]*graph.Item{"x": {ID: "x", Name: "x.txt", IsFile: true}},
		content: map[string]string{"x": "hello"},
	}
	s := New(g, 0, nil)

	it, err := s.Item(context.Background(), "d", "x")
	require.NoError(t, err)
	assert.Equal(t, catalog.KindFile, it.Kind)

	body, err := s.OpenItem(context.Background(), "d", it)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, 1, g.getItems)
	assert.Equal(t, []string{"x"}, g.opened)
}

func TestOpenItem_LooksUpForeignItem(t *testing.T) {
	g := &fakeGraph{
		items:   map[string]*graph.Item{"x": {ID: "x", Name: "x.txt", IsFile: true}},
		content: map[string]string{"x": "hello"},
	}
	s := New(g, 0, nil)

	body, err := s.OpenItem(context.Background(), "d", &Item{ID: "x", Kind: catalog.KindFile})
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, 1, g.getItems)

	_, err = s.OpenItem(context.Background(), "d", &Item{ID: "gone", Kind: catalog.KindFile})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
