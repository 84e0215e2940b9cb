// Package objstore is the Object Store Client: it writes transferred files
// to an S3-compatible bucket with overwrite semantics and maps S3 failures
// into the catalog error taxonomy.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/metrics"
)

// ErrNoBucket is returned by New when no bucket is configured.
var ErrNoBucket = errors.New("objstore: no bucket configured")

// Options configures the S3 client. Empty credentials fall back to the AWS
// default chain (environment, shared config, instance role).
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // S3-compatible endpoint (MinIO, Ceph); empty for AWS
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	MaxRetries      int // SDK retries per call; 0 keeps the SDK default, negative disables
	HTTPClient      *http.Client
}

// S3API is the subset of *s3.Client the store needs.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Object describes one upload.
type Object struct {
	Key         string
	Body        io.ReadSeeker
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Store writes objects to one bucket.
type Store struct {
	api    S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// New builds a Store backed by the AWS SDK.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		)))
	}

	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(opts.HTTPClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}

		o.UsePathStyle = opts.PathStyle

		switch {
		case opts.MaxRetries < 0:
			o.RetryMaxAttempts = 1
		case opts.MaxRetries > 0:
			o.RetryMaxAttempts = opts.MaxRetries + 1
		}
	})

	return NewWithAPI(client, opts.Bucket, opts.Prefix, logger), nil
}

// NewWithAPI builds a Store over an existing S3 client.
func NewWithAPI(api S3API, bucket, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{api: api, bucket: bucket, prefix: prefix, logger: logger}
}

// Bucket returns the destination bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Key returns the destination key of a file within a collection. The file's
// provider id is the blob name, so retries overwrite the same object.
func (s *Store) Key(collectionID, fileID string) string {
	return Key(s.prefix, collectionID, fileID)
}

// Key joins prefix, collection and file id into
// {prefix}/collections/{collection}/blobs/{file}. An empty prefix is omitted.
func Key(prefix, collectionID, fileID string) string {
	parts := []string{"collections", collectionID, "blobs", fileID}

	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append([]string{p}, parts...)
	}

	return strings.Join(parts, "/")
}

// URI returns the s3:// URI of key in the store's bucket.
func (s *Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// Check verifies the bucket exists and the credentials can reach it.
func (s *Store) Check(ctx context.Context) error {
	start := time.Now()

	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return s.fail("head_bucket", start, fmt.Errorf("objstore: checking bucket %s: %w", s.bucket, classify(err)))
	}

	s.logger.Debug("bucket reachable",
		slog.String("bucket", s.bucket),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// Put writes obj, replacing any existing object at the same key.
func (s *Store) Put(ctx context.Context, obj Object) error {
	start := time.Now()

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          obj.Body,
		ContentLength: aws.Int64(obj.Size),
		Metadata:      encodeMetadata(obj.Metadata),
	}

	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return s.fail("put_object", start, fmt.Errorf("objstore: put %s: %w", obj.Key, classify(err)))
	}

	s.logger.Info("stored object",
		slog.String("bucket", s.bucket),
		slog.String("key", obj.Key),
		slog.Int64("size", obj.Size),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// encodeMetadata makes user metadata values safe for x-amz-meta-* headers,
// which S3 only accepts as US-ASCII. Non-ASCII values are sent as RFC 2047
// encoded words; ASCII values pass through unchanged.
func encodeMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return md
	}

	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = mime.QEncoding.Encode("utf-8", v)
	}

	return out
}

func (s *Store) fail(op string, start time.Time, err error) error {
	metrics.RecordUpstreamError(metrics.UpstreamS3, catalog.KindLabel(err))

	s.logger.Warn("s3 call failed",
		slog.String("op", op),
		slog.String("bucket", s.bucket),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("error", err.Error()),
	)

	return err
}

// classify tags an SDK error with the matching taxonomy sentinel.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %w", catalog.ErrNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
			return fmt.Errorf("%w: %w", catalog.ErrPermissionDenied, err)
		case "InvalidBucketName", "InvalidArgument", "KeyTooLongError", "EntityTooLarge", "MetadataTooLarge":
			return fmt.Errorf("%w: %w", catalog.ErrInvalidRequest, err)
		}
	}

	// HeadBucket has no body, so its errors only carry a status code.
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", catalog.ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", catalog.ErrPermissionDenied, err)
		}
	}

	return fmt.Errorf("%w: %w", catalog.ErrUpstreamUnavailable, err)
}
