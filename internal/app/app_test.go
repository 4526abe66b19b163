package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/litepos/internal/config"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, remote string) *config.Config {
	t.Helper()
	var c config.Config
	c.LoadDefaults()
	dir := t.TempDir()
	c.DatabasePath = filepath.Join(dir, "pos.db")
	c.PrintSpoolDir = filepath.Join(dir, "spool")
	c.RemoteBaseURL = remote
	c.ListenAddr = "127.0.0.1:0"
	c.LogLevel = "error"
	return &c
}

func TestNewApp_WiresComponents(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	a, err := NewApp(testConfig(t, remote.URL))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	ctx := context.Background()
	assert.False(t, a.Outbox().Online())
	assert.True(t, a.Probe(ctx))
	assert.True(t, a.Outbox().Online())

	jobs, err := a.Printer().Jobs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, jobs)

	list, err := a.Orders().List(ctx, models.OrderPending)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewApp_RejectsRelativeRemote(t *testing.T) {
	_, err := NewApp(testConfig(t, "/api"))
	require.Error(t, err)
}

func TestProbe_UnreachableRemote(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := remote.URL
	remote.Close()

	a, err := NewApp(testConfig(t, url))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	assert.False(t, a.Probe(context.Background()))
	assert.False(t, a.Outbox().Online())
}

func TestRun_StopsOnCancel(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	a, err := NewApp(testConfig(t, remote.URL))
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, a.Outbox().Online, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
