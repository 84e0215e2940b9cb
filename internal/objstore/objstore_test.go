package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/spbridge/internal/catalog"
)

func TestKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "collections/c1/blobs/f1"},
		{"outbound", "outbound/collections/c1/blobs/f1"},
		{"outbound/", "outbound/collections/c1/blobs/f1"},
		{"/a/b/", "a/b/collections/c1/blobs/f1"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.prefix, "c1", "f1"))
		})
	}
}

func TestStore_KeyIsStable(t *testing.T) {
	s := NewWithAPI(&fakeS3{}, "bucket", "p", nil)
	assert.Equal(t, s.Key("c", "f"), s.Key("c", "f"))
	assert.Equal(t, "s3://bucket/p/collections/c/blobs/f", s.URI(s.Key("c", "f")))
}

// fakeS3 records puts and returns canned errors.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	headErr error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}

	f.objects[aws.ToString(in.Key)] = data

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestPut_Overwrites(t *testing.T) {
	api := &fakeS3{}
	s := NewWithAPI(api, "b", "", nil)

	for _, content := range []string{"first", "second"} {
		require.NoError(t, s.Put(context.Background(), Object{
			Key:  "k",
			Body: strings.NewReader(content),
			Size: int64(len(content)),
		}))
	}

	assert.Equal(t, "second", string(api.objects["k"]))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such bucket", &smithy.GenericAPIError{Code: "NoSuchBucket"}, catalog.ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, catalog.ErrPermissionDenied},
		{"bad key", &smithy.GenericAPIError{Code: "KeyTooLongError"}, catalog.ErrInvalidRequest},
		{"slow down", &smithy.GenericAPIError{Code: "SlowDown"}, catalog.ErrUpstreamUnavailable},
		{"network", errors.New("connection reset by peer"), catalog.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.KindOf(classify(tt.err)))
		})
	}
}

func TestCheck_Denied(t *testing.T) {
	s := NewWithAPI(&fakeS3{headErr: &smithy.GenericAPIError{Code: "Forbidden"}}, "b", "", nil)
	require.ErrorIs(t, s.Check(context.Background()), catalog.ErrPermissionDenied)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Options{}, nil)
	require.ErrorIs(t, err, ErrNoBucket)
}

// newS3Server fakes the slice of the S3 REST protocol the store uses.
func newS3Server(t *testing.T, denyPut bool) (*httptest.Server, *sync.Map) {
	t.Helper()

	var stored sync.Map

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			if r.URL.Path != "/bucket" {
				w.WriteHeader(http.StatusNotFound)
				return
			}

			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			if denyPut {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)

				return
			}

			body, _ := io.ReadAll(r.Body)
			stored.Store(r.URL.Path, string(body))
			assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
			assert.Equal(t, "d1", r.Header.Get("X-Amz-Meta-Source-Drive-Id"))

			if name := r.Header.Get("X-Amz-Meta-Source-Name"); name != "" {
				stored.Store("source-name", name)
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &stored
}

func newTestStore(t *testing.T, endpoint, bucket string) *Store {
	t.Helper()

	s, err := New(context.Background(), Options{
		Bucket:          bucket,
		Prefix:          "outbound",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		PathStyle:       true,
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)

	return s
}

func TestS3Protocol_PutAndCheck(t *testing.T) {
	srv, stored := newS3Server(t, false)
	s := newTestStore(t, srv.URL, "bucket")

	require.NoError(t, s.Check(context.Background()))

	key := s.Key("c1", "f1")
	err := s.Put(context.Background(), Object{
		Key:         key,
		Body:        bytes.NewReader([]byte("%PDF-1.7")),
		Size:        8,
		ContentType: "application/pdf",
		Metadata:    map[string]string{"source-drive-id": "d1"},
	})
	require.NoError(t, err)

	got, ok := stored.Load("/bucket/outbound/collections/c1/blobs/f1")
	require.True(t, ok)
	assert.Equal(t, "%PDF-1.7", got)
}

func TestS3Protocol_NonASCIIMetadataIsEncoded(t *testing.T) {
	srv, stored := newS3Server(t, false)
	s := newTestStore(t, srv.URL, "bucket")

	err := s.Put(context.Background(), Object{
		Key:         s.Key("c1", "f1"),
		Body:        bytes.NewReader([]byte("%PDF-1.7")),
		Size:        8,
		ContentType: "application/pdf",
		Metadata:    map[string]string{"source-drive-id": "d1", "source-name": "Résumé 履歴書.pdf"},
	})
	require.NoError(t, err)

	raw, ok := stored.Load("source-name")
	require.True(t, ok)

	header := raw.(string)
	for _, r := range header {
		require.Less(t, r, rune(0x80), "metadata header %q is not ASCII", header)
	}

	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	require.NoError(t, err)
	assert.Equal(t, "Résumé 履歴書.pdf", decoded)
}

func TestEncodeMetadata(t *testing.T) {
	assert.Nil(t, encodeMetadata(nil))

	got := encodeMetadata(map[string]string{"plain": "report v2.pdf", "accented": "café.txt"})
	assert.Equal(t, "report v2.pdf", got["plain"])
	assert.Equal(t, "=?utf-8?q?caf=C3=A9.txt?=", got["accented"])
}

func TestS3Protocol_Errors(t *testing.T) {
	srv, _ := newS3Server(t, true)

	missing := newTestStore(t, srv.URL, "missing")
	require.ErrorIs(t, missing.Check(context.Background()), catalog.ErrNotFound)

	s := newTestStore(t, srv.URL, "bucket")
	err := s.Put(context.Background(), Object{
		Key:  "k",
		Body: bytes.NewReader([]byte("x")),
		Size: 1,
	})
	require.ErrorIs(t, err, catalog.ErrPermissionDenied)
}
