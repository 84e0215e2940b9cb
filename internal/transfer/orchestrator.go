// Package transfer implements the selective transfer orchestrator: it
// copies a caller-chosen set of files from one drive into object storage,
// one independent attempt per file, and reports every outcome in request
// order.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/metrics"
	"github.com/tonimelisma/spbridge/internal/objstore"
	"github.com/tonimelisma/spbridge/internal/remote"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultWorkers        = 4
	DefaultMaxFileSize    = 100 << 20
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultFileTimeout    = 5 * time.Minute
	DefaultBatchTimeout   = 30 * time.Minute
	maxRetryDelay         = 30 * time.Second
)

// Object metadata keys recorded on every upload.
const (
	MetaSourceDrive = "source-drive-id"
	MetaSourceItem  = "source-item-id"
	MetaSourceName  = "source-name"
)

// Source is the slice of the Remote Store Client the orchestrator reads.
type Source interface {
	Ping(ctx context.Context, driveID string) error
	ListDrives(ctx context.Context, siteID string) ([]catalog.Node, error)
	Item(ctx context.Context, driveID, itemID string) (*remote.Item, error)
	OpenItem(ctx context.Context, driveID string, item *remote.Item) (io.ReadCloser, error)
}

// Sink is the slice of the Object Store Client the orchestrator writes to.
type Sink interface {
	Check(ctx context.Context) error
	Key(collectionID, fileID string) string
	URI(key string) string
	Put(ctx context.Context, obj objstore.Object) error
}

// Options bounds a batch. Zero values select the defaults.
type Options struct {
	Workers        int
	MaxFileSize    int64
	RetryAttempts  int // re-fetches after an interrupted download; negative disables
	RetryBaseDelay time.Duration
	FileTimeout    time.Duration
	BatchTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}

	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}

	if o.RetryAttempts == 0 {
		o.RetryAttempts = DefaultRetryAttempts
	} else if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}

	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}

	if o.FileTimeout <= 0 {
		o.FileTimeout = DefaultFileTimeout
	}

	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}

	return o
}

// Orchestrator runs transfer batches. It holds no per-batch state, so one
// instance serves concurrent calls.
type Orchestrator struct {
	source   Source
	sink     Sink
	validate *validator.Validate
	opts     atomic.Pointer[Options]
	logger   *slog.Logger

	// newBatchID is replaced in tests.
	newBatchID func() string
}

// New returns an Orchestrator moving files from source to sink.
func New(source Source, sink Sink, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		source:     source,
		sink:       sink,
		validate:   requestValidator,
		logger:     logger,
		newBatchID: func() string { return uuid.NewString() },
	}
	o.SetOptions(opts)

	return o
}

// SetOptions replaces the batch options used by subsequent calls.
func (o *Orchestrator) SetOptions(opts Options) {
	opts = opts.withDefaults()
	o.opts.Store(&opts)
}

// TransferSelected copies the requested files and returns one outcome per
// requested id, in request order. Only an invalid request fails the call;
// every other problem is recorded on the affected outcomes.
func (o *Orchestrator) TransferSelected(ctx context.Context, req catalog.TransferRequest) (*catalog.TransferReport, error) {
	if err := validateRequest(o.validate, &req); err != nil {
		return nil, err
	}

	opts := *o.opts.Load()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, opts.BatchTimeout)
	defer cancel()

	report := &catalog.TransferReport{
		BatchID: o.newBatchID(),
		Results: make([]catalog.TransferOutcome, len(req.FileIDs)),
	}

	logger := o.logger.With(
		slog.String("batch_id", report.BatchID),
		slog.String("drive_id", req.DriveID),
		slog.String("collection_id", req.CollectionID),
	)

	logger.Info("transfer batch started", slog.Int("requested", len(req.FileIDs)))

	pending := markDuplicates(req.FileIDs, report.Results)

	if err := o.preflight(ctx, req); err != nil {
		logger.Warn("transfer preflight failed", slog.String("error", err.Error()))

		for _, i := range pending {
			report.Results[i] = failed(req.FileIDs[i], "", "preflight: "+describe(ctx, err))
		}
	} else {
		o.runWorkers(ctx, req, opts, pending, report.Results, logger)
	}

	report.Tally()

	for i := range report.Results {
		metrics.RecordTransferFile(string(report.Results[i].Status), successBytes(&report.Results[i]))
	}

	metrics.RecordTransferBatch(time.Since(start))

	logger.Info("transfer batch finished",
		slog.Int("successful", report.Successful),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Int64("bytes", report.BytesTransferred),
		slog.Duration("elapsed", time.Since(start)),
	)

	return report, nil
}

// markDuplicates fills the outcome of every repeated id and returns the
// indexes that still need an attempt.
func markDuplicates(ids []string, results []catalog.TransferOutcome) []int {
	first := make(map[string]int, len(ids))
	pending := make([]int, 0, len(ids))

	for i, id := range ids {
		if j, seen := first[id]; seen {
			results[i] = catalog.TransferOutcome{
				FileID:      id,
				Status:      catalog.StatusSkipped,
				ErrorDetail: fmt.Sprintf("duplicate of file_ids[%d]", j),
			}

			continue
		}

		first[id] = i
		pending = append(pending, i)
	}

	return pending
}

// preflight confirms both upstreams answer before any file is attempted.
func (o *Orchestrator) preflight(ctx context.Context, req catalog.TransferRequest) error {
	if req.SiteID != "" {
		drives, err := o.source.ListDrives(ctx, req.SiteID)
		if err != nil {
			return fmt.Errorf("listing drives of site %s: %w", req.SiteID, err)
		}

		if !containsNode(drives, req.DriveID) {
			return fmt.Errorf("drive %s is not part of site %s: %w", req.DriveID, req.SiteID, catalog.ErrNotFound)
		}
	} else if err := o.source.Ping(ctx, req.DriveID); err != nil {
		return fmt.Errorf("reaching drive %s: %w", req.DriveID, err)
	}

	if err := o.sink.Check(ctx); err != nil {
		return fmt.Errorf("reaching object storage: %w", err)
	}

	return nil
}

// runWorkers processes pending indexes on a bounded pool. Each worker owns
// its result slot, so no locking is needed.
func (o *Orchestrator) runWorkers(
	ctx context.Context, req catalog.TransferRequest, opts Options,
	pending []int, results []catalog.TransferOutcome, logger *slog.Logger,
) {
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for _, i := range pending {
		fileID := req.FileIDs[i]

		if ctx.Err() != nil {
			results[i] = failed(fileID, "", "canceled: "+context.Cause(ctx).Error())
			continue
		}

		g.Go(func() error {
			results[i] = o.transferOne(ctx, req, opts, fileID, logger)
			return nil
		})
	}

	_ = g.Wait()
}

// transferOne moves one file: metadata, policy checks, content, upload.
func (o *Orchestrator) transferOne(
	ctx context.Context, req catalog.TransferRequest, opts Options, fileID string, logger *slog.Logger,
) catalog.TransferOutcome {
	if ctx.Err() != nil {
		return failed(fileID, "", "canceled: "+context.Cause(ctx).Error())
	}

	ctx, cancel := context.WithTimeout(ctx, opts.FileTimeout)
	defer cancel()

	logger = logger.With(slog.String("file_id", fileID))

	item, err := o.source.Item(ctx, req.DriveID, fileID)
	if err != nil {
		logger.Warn("fetching metadata failed", slog.String("error", err.Error()))
		return failed(fileID, "", "fetch: "+describe(ctx, err))
	}

	if reason := skipReason(item, opts.MaxFileSize); reason != "" {
		logger.Info("file skipped", slog.String("reason", reason))

		return catalog.TransferOutcome{
			FileID:      fileID,
			FileName:    item.Name,
			Status:      catalog.StatusSkipped,
			ErrorDetail: reason,
		}
	}

	data, err := o.fetch(ctx, req.DriveID, item, opts, logger)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return catalog.TransferOutcome{
				FileID:      fileID,
				FileName:    item.Name,
				Status:      catalog.StatusSkipped,
				ErrorDetail: fmt.Sprintf("exceeds max file size of %d bytes", opts.MaxFileSize),
			}
		}

		logger.Warn("fetching content failed", slog.String("error", err.Error()))

		return failed(fileID, item.Name, "fetch: "+describe(ctx, err))
	}

	key := o.sink.Key(req.CollectionID, fileID)

	contentType := item.MimeType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	err = o.sink.Put(ctx, objstore.Object{
		Key:         key,
		Body:        bytes.NewReader(data),
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			MetaSourceDrive: req.DriveID,
			MetaSourceItem:  fileID,
			MetaSourceName:  item.Name,
		},
	})
	if err != nil {
		logger.Warn("upload failed", slog.String("key", key), slog.String("error", err.Error()))
		return failed(fileID, item.Name, "upload: "+describe(ctx, err))
	}

	logger.Info("file transferred", slog.String("key", key), slog.Int("size", len(data)))

	return catalog.TransferOutcome{
		FileID:         fileID,
		FileName:       item.Name,
		Status:         catalog.StatusSuccess,
		DestinationKey: key,
		DestinationURI: o.sink.URI(key),
		SizeBytes:      int64(len(data)),
	}
}

var errTooLarge = errors.New("transfer: content exceeds max file size")

// fetch reads the whole file into memory so the upload has a known length
// and the SDK can replay it. Reads stop one byte past the limit. The first
// attempt reuses the download URL fetched with item; a retry after an
// interrupted stream starts from fresh metadata, since those URLs expire.
func (o *Orchestrator) fetch(
	ctx context.Context, driveID string, item *remote.Item, opts Options, logger *slog.Logger,
) ([]byte, error) {
	var (
		data    []byte
		attempt int
	)

	err := withRetry(ctx, opts, func(ctx context.Context) error {
		attempt++

		src := item
		if attempt > 1 {
			logger.Info("re-fetching interrupted download", slog.Int("attempt", attempt))

			fresh, err := o.source.Item(ctx, driveID, item.ID)
			if err != nil {
				return err
			}

			src = fresh
		}

		body, err := o.source.OpenItem(ctx, driveID, src)
		if err != nil {
			return err
		}
		defer body.Close()

		data, err = io.ReadAll(io.LimitReader(body, opts.MaxFileSize+1))
		if err != nil {
			return err
		}

		if int64(len(data)) > opts.MaxFileSize {
			return errTooLarge
		}

		return nil
	})

	return data, err
}

func skipReason(item *remote.Item, maxSize int64) string {
	switch {
	case item.Kind != catalog.KindFile:
		return "not a file"
	case item.HasSize && item.Size > maxSize:
		return fmt.Sprintf("exceeds max file size of %d bytes", maxSize)
	default:
		return ""
	}
}

// withRetry runs fn, re-running it after an interrupted download with
// jittered exponential backoff. Request-level failures arrive here already
// retried by the Graph client, so they are returned as they are.
func withRetry(ctx context.Context, opts Options, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(opts.RetryBaseDelay)
	b = retry.WithCappedDuration(maxRetryDelay, b)
	b = retry.WithJitterPercent(25, b)
	b = retry.WithMaxRetries(uint64(opts.RetryAttempts), b) //nolint:gosec // non-negative after withDefaults

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errors.Is(err, remote.ErrInterrupted) {
			return retry.RetryableError(err)
		}

		return err
	})
}

// describe renders err for an outcome, naming its taxonomy kind.
func describe(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled: " + err.Error()
	}

	return catalog.KindLabel(err) + ": " + err.Error()
}

func failed(fileID, name, detail string) catalog.TransferOutcome {
	return catalog.TransferOutcome{
		FileID:      fileID,
		FileName:    name,
		Status:      catalog.StatusFailed,
		ErrorDetail: detail,
	}
}

func successBytes(o *catalog.TransferOutcome) int64 {
	if o.Status != catalog.StatusSuccess {
		return 0
	}

	return o.SizeBytes
}

func containsNode(nodes []catalog.Node, id string) bool {
	for i := range nodes {
		if nodes[i].ID == id {
			return true
		}
	}

	return false
}
