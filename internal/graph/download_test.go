package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

func TestOpen_Success(t *testing.T) {
	content := "Hello, this is the file content for download testing."

	downloadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(content))
	}))
	defer downloadSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/drives/d/items/item-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"item-1","name":"test.txt","size":%d,
			"file":{"mimeType":"text/plain"},
			"@microsoft.graph.downloadUrl":%q}`, len(content), downloadSrv.URL+"/dl")
	}))
	defer graphSrv.Close()

	item, body, err := newTestClient(t, graphSrv.URL).Open(context.Background(), "d", "item-1")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, "test.txt", item.Name)
}

func TestOpenItem_UsesCapturedDownloadURL(t *testing.T) {
	downloadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("abc"))
	}))
	defer downloadSrv.Close()

	var graphCalls atomic.Int32

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		graphCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer graphSrv.Close()

	item := &Item{ID: "i", IsFile: true, Size: 3, HasSize: true, DownloadURL: downloadSrv.URL}

	body, err := newTestClient(t, graphSrv.URL).OpenItem(context.Background(), item)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Zero(t, graphCalls.Load())
}

func TestOpenItem_StreamInterrupted(t *testing.T) {
	downloadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("partial"))
	}))
	defer downloadSrv.Close()

	item := &Item{ID: "i", IsFile: true, Size: 100, HasSize: true, DownloadURL: downloadSrv.URL}

	body, err := newTestClient(t, "http://unused.invalid").OpenItem(context.Background(), item)
	require.NoError(t, err)
	defer body.Close()

	_, err = io.ReadAll(body)
	require.ErrorIs(t, err, ErrStreamInterrupted)
	assert.ErrorIs(t, err, catalog.ErrUpstreamUnavailable)
}

func TestOpen_Folder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"f","name":"Docs","folder":{"childCount":1}}`)
	}))
	defer srv.Close()

	item, _, err := newTestClient(t, srv.URL).Open(context.Background(), "d", "f")
	require.ErrorIs(t, err, ErrNotAFile)
	require.ErrorIs(t, err, catalog.ErrInvalidRequest)
	assert.True(t, item.IsFolder)
}

func TestOpen_ZeroByteFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"e","name":"empty.txt","size":0,"file":{}}`)
	}))
	defer srv.Close()

	_, body, err := newTestClient(t, srv.URL).Open(context.Background(), "d", "e")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOpen_NoDownloadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","name":"locked.docx","size":10,"file":{}}`)
	}))
	defer srv.Close()

	_, _, err := newTestClient(t, srv.URL).Open(context.Background(), "d", "x")
	require.ErrorIs(t, err, ErrNoDownloadURL)
	assert.ErrorIs(t, err, catalog.ErrPermissionDenied)
}

func TestOpen_DownloadURLExpired(t *testing.T) {
	downloadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer downloadSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"i","name":"a.bin","size":4,"file":{},"@microsoft.graph.downloadUrl":%q}`, downloadSrv.URL)
	}))
	defer graphSrv.Close()

	_, _, err := newTestClient(t, graphSrv.URL).Open(context.Background(), "d", "i")
	require.ErrorIs(t, err, ErrUnauthorized)
}
