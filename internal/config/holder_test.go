package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ConfigAndUpdate(t *testing.T) {
	cfg := DefaultConfig()
	h := NewHolder(cfg, "/etc/spbridge.toml")

	assert.Same(t, cfg, h.Config())
	assert.Equal(t, "/etc/spbridge.toml", h.Path())

	next := DefaultConfig()
	next.Transfer.Workers = 9
	h.Update(next)

	assert.Equal(t, 9, h.Config().Transfer.Workers)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder(DefaultConfig(), "")

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			_ = h.Config()
		}()

		go func() {
			defer wg.Done()

			cfg := DefaultConfig()
			cfg.Transfer.Workers = i%64 + 1
			h.Update(cfg)
		}()
	}

	wg.Wait()
	assert.NotNil(t, h.Config())
}

func TestHolder_ReloadKeepsCurrentOnError(t *testing.T) {
	path := writeTestConfig(t, "[transfer]\nworkers = 0\n")
	h := NewHolder(DefaultConfig(), path)

	_, err := h.Reload()
	require.Error(t, err)
	assert.Equal(t, defaultWorkers, h.Config().Transfer.Workers)
}

func TestHolder_WatchAppliesEdits(t *testing.T) {
	path := writeTestConfig(t, "[transfer]\nworkers = 2\n")

	initial, err := Load(path)
	require.NoError(t, err)

	h := NewHolder(initial, path)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	changed := make(chan *Config, 4)
	done := make(chan error, 1)

	go func() {
		done <- h.Watch(ctx, nil, func(c *Config) { changed <- c })
	}()

	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)

	// An invalid edit is ignored.
	require.NoError(t, os.WriteFile(path, []byte("[transfer]\nworkers = 500\n"), 0o600))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, 2, h.Config().Transfer.Workers)

	require.NoError(t, os.WriteFile(path, []byte("[transfer]\nworkers = 7\n"), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, 7, c.Transfer.Workers)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	assert.Equal(t, 7, h.Config().Transfer.Workers)

	cancel()
	require.NoError(t, <-done)
}
