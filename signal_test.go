package main

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOnHangup_CallsReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)

	onHangup(ctx, testLogger(), func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not called after SIGHUP")
	}
}

func TestShutdownContext_CancelReleases(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, cancel := shutdownContext(parent, testLogger())
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled")
	}

	require.NoError(t, parent.Err())
}
