package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/spbridge/internal/browse"
	"github.com/tonimelisma/spbridge/internal/catalog"
	"github.com/tonimelisma/spbridge/internal/config"
	"github.com/tonimelisma/spbridge/internal/objstore"
	"github.com/tonimelisma/spbridge/internal/server"
	"github.com/tonimelisma/spbridge/internal/transfer"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browse and transfer HTTP API",
		Long: `Serve GET /v1/browse and POST /v1/transfers, plus /healthz and /metrics.

The config file is watched and re-read on SIGHUP; edits to browse, transfer
and storage.enabled apply without a restart. Bucket and Graph connection
settings are read once.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := resolvedCfg
	logger := buildLogger(cfg)

	if !flagVerbose {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := shutdownContext(cmd.Context(), logger)
	defer cancel()

	// Token refresh is bound to this context and must keep working while
	// in-flight requests drain.
	store, err := newRemoteStore(context.WithoutCancel(ctx), cfg, logger)
	if err != nil {
		return err
	}

	nav := browse.NewNavigator(store, navigatorOptions(cfg), logger)

	var enabled atomic.Bool

	var transferrer server.Transferrer = disabledTransferrer{}

	orch, err := newOrchestrator(ctx, cfg, store, logger)
	if err != nil {
		logger.Warn("object storage unavailable, transfers disabled",
			slog.String("error", err.Error()),
		)
	} else {
		transferrer = orch
	}

	enabled.Store(cfg.Storage.Enabled && orch != nil)

	holder := config.NewHolder(cfg, resolvedCfgPath)

	apply := func(next *config.Config) {
		nav.SetOptions(navigatorOptions(next))
		enabled.Store(next.Storage.Enabled && orch != nil)

		if orch != nil {
			orch.SetOptions(transferOptions(next))
		}
	}

	onHangup(ctx, logger, func() {
		next, err := holder.Reload()
		if err != nil {
			logger.Warn("config reload failed, keeping current config", slog.String("error", err.Error()))
			return
		}

		apply(next)
	})

	go func() {
		if watchErr := holder.Watch(ctx, logger, apply); watchErr != nil {
			logger.Warn("config watch stopped", slog.String("error", watchErr.Error()))
		}
	}()

	srv := server.New(nav, transferrer, server.Options{DestinationEnabled: enabled.Load}, logger)

	return srv.Run(ctx, cfg.Server.Listen, cfg.Server.ShutdownTimeoutDuration())
}

// newOrchestrator builds the transfer pipeline when the bucket is configured.
func newOrchestrator(ctx context.Context, cfg *config.Config, source transfer.Source, logger *slog.Logger) (*transfer.Orchestrator, error) {
	sink, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return transfer.New(source, sink, transferOptions(cfg), logger), nil
}

// disabledTransferrer stands in when no bucket is configured. The
// destination gate rejects requests before it is reached.
type disabledTransferrer struct{}

func (disabledTransferrer) TransferSelected(context.Context, catalog.TransferRequest) (*catalog.TransferReport, error) {
	return nil, errors.Join(catalog.ErrInvalidRequest, objstore.ErrNoBucket)
}
