package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gokaycavdar/go-vpnsense/pkg/config"
	"github.com/gokaycavdar/go-vpnsense/pkg/storage"
)

func TestOpenHistory(t *testing.T) {
	cfg := config.Default()

	cfg.History.Backend = config.HistoryNone
	store, release, err := openHistory(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, store)
	release()

	cfg.History.Backend = config.HistoryMemory
	cfg.History.Capacity = 5
	store, release, err = openHistory(context.Background(), cfg)
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &storage.MemoryStore{}, store)
}

func TestOpenProxyList(t *testing.T) {
	cfg := config.Default()
	l, err := openProxyList(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, l)

	path := filepath.Join(t.TempDir(), "ipsum.txt")
	require.NoError(t, os.WriteFile(path, []byte("# ipsum\n198.51.100.9\t4\n"), 0o644))
	cfg.Reputation.ProxyList = path

	l, err = openProxyList(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, l.Contains("198.51.100.77"))

	cfg.Reputation.ProxyList = filepath.Join(t.TempDir(), "missing.txt")
	_, err = openProxyList(cfg, zap.NewNop())
	assert.Error(t, err)
}
