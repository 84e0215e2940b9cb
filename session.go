package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/tonimelisma/spbridge/internal/browse"
	"github.com/tonimelisma/spbridge/internal/config"
	"github.com/tonimelisma/spbridge/internal/graph"
	"github.com/tonimelisma/spbridge/internal/objstore"
	"github.com/tonimelisma/spbridge/internal/remote"
	"github.com/tonimelisma/spbridge/internal/transfer"
)

// errDestinationDisabled is the CLI form of the destination gate.
var errDestinationDisabled = errors.New("object storage destination is disabled (set storage.enabled = true)")

// newHTTPClient builds the client used for Graph. Only connect and
// response-header time are bounded; a download body may stream for as long
// as the file needs.
func newHTTPClient(cfg *config.Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.Network.ConnectTimeoutDuration()}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = cfg.Network.ConnectTimeoutDuration()
	transport.ResponseHeaderTimeout = cfg.Network.DataTimeoutDuration()

	return &http.Client{Transport: transport}
}

// newTokenSource prefers a bearer token from the environment and otherwise
// loads the saved token file.
func newTokenSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (graph.TokenSource, error) {
	if cfg.AccessToken != "" {
		logger.Debug("using access token from environment", slog.String("env", config.EnvAccessToken))
		return graph.StaticToken(cfg.AccessToken), nil
	}

	ts, err := graph.TokenSourceFromPath(ctx, cfg.Graph.TokenPath, graph.AppRegistration{
		ClientID: cfg.Graph.ClientID,
		Tenant:   cfg.Graph.Tenant,
	}, logger)
	if err != nil {
		if errors.Is(err, graph.ErrNotLoggedIn) {
			return nil, fmt.Errorf("no Graph token at %s: write one there or set %s",
				cfg.Graph.TokenPath, config.EnvAccessToken)
		}

		return nil, err
	}

	return ts, nil
}

// newRemoteStore builds the Remote Store Client on top of Graph.
func newRemoteStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*remote.Store, error) {
	ts, err := newTokenSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := graph.NewClient(cfg.Graph.BaseURL, newHTTPClient(cfg), ts, logger, graphOptions(cfg))

	return remote.New(client, cfg.Graph.MaxSites, logger), nil
}

// newObjectStore builds the S3 destination.
func newObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*objstore.Store, error) {
	return objstore.New(ctx, objstoreOptions(cfg), logger)
}

func graphOptions(cfg *config.Config) graph.Options {
	return graph.Options{
		MaxRetries: zeroMeansNone(cfg.Network.MaxRetries),
		UserAgent:  cfg.Network.UserAgent,
	}
}

func objstoreOptions(cfg *config.Config) objstore.Options {
	return objstore.Options{
		Bucket:          cfg.Storage.Bucket,
		Prefix:          cfg.Storage.Prefix,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		PathStyle:       cfg.Storage.PathStyle,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
		SessionToken:    cfg.S3SessionToken,
		MaxRetries:      zeroMeansNone(cfg.Network.MaxRetries),
	}
}

func navigatorOptions(cfg *config.Config) browse.Options {
	opts := browse.Options{DefaultDrive: cfg.Browse.DefaultDrive}

	if len(cfg.Browse.Extensions) > 0 || len(cfg.Browse.MimeTypes) > 0 {
		exts, mimes := cfg.Browse.Extensions, cfg.Browse.MimeTypes
		if len(exts) == 0 {
			exts = browse.DefaultExtensions
		}

		if len(mimes) == 0 {
			mimes = browse.DefaultMimeTypes
		}

		opts.Filter = browse.NewFilter(exts, mimes)
	}

	return opts
}

func transferOptions(cfg *config.Config) transfer.Options {
	return transfer.Options{
		Workers:        cfg.Transfer.Workers,
		MaxFileSize:    cfg.Transfer.MaxFileSizeBytes(),
		RetryAttempts:  zeroMeansNone(cfg.Transfer.RetryAttempts),
		RetryBaseDelay: cfg.Transfer.RetryBaseDelayDuration(),
		FileTimeout:    cfg.Transfer.FileTimeoutDuration(),
		BatchTimeout:   cfg.Transfer.BatchTimeoutDuration(),
	}
}

// zeroMeansNone maps a configured retry count of 0 to the negative value the
// clients read as "no retries" (their zero value selects a default).
func zeroMeansNone(n int) int {
	if n == 0 {
		return -1
	}

	return n
}
