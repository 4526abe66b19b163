package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/litepos/internal/app"
	"github.com/dmitrijs2005/litepos/internal/config"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remote struct {
	*httptest.Server
	pushes atomic.Int32
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	r := &remote{}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		case req.Method == http.MethodPut:
			r.pushes.Add(1)
			w.WriteHeader(http.StatusOK)
		case req.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(r.Close)
	return r
}

func deadRemote(t *testing.T) string {
	t.Helper()
	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()
	return url
}

type env struct {
	dir    string
	db     string
	remote string
}

func newEnv(t *testing.T, remoteURL string) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{dir: dir, db: filepath.Join(dir, "pos.db"), remote: remoteURL}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"-d", e.db, "-r", e.remote, "-p", filepath.Join(e.dir, "spool"), "-v", "error"}
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), err
}

// placeOrder writes one order while offline so it stays in the outbox.
func (e *env) placeOrder(t *testing.T) {
	t.Helper()
	var c config.Config
	c.LoadDefaults()
	c.DatabasePath = e.db
	c.RemoteBaseURL = e.remote
	c.PrintSpoolDir = filepath.Join(e.dir, "spool")
	c.LogLevel = "error"

	a, err := app.NewApp(&c)
	require.NoError(t, err)
	_, err = a.Orders().Place(context.Background(), []models.OrderItem{
		{ProductID: "p1", Name: "Burger", Price: decimal.NewFromInt(100), Qty: 1},
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "posctl", cmd.Use)

	for _, name := range []string{"outbox", "jobs", "sync", "cursors", "flush", "print-test", "seed"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for long, short := range map[string]string{"config": "c", "db": "d", "remote": "r", "spool": "p", "log-level": "v"} {
		f := cmd.PersistentFlags().Lookup(long)
		require.NotNil(t, f, long)
		assert.Equal(t, short, f.Shorthand)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}

func TestConfigArgs(t *testing.T) {
	o := &RootOptions{Database: "x.db", Remote: "http://r", LogLevel: "debug"}
	assert.Equal(t, []string{"-d", "x.db", "-r", "http://r", "-v", "debug"}, o.configArgs())

	cfg, err := o.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "x.db", cfg.DatabasePath)
	assert.Equal(t, "http://r", cfg.RemoteBaseURL)
}

func TestLoadConfig_BadFileIsAnError(t *testing.T) {
	o := &RootOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.json")}

	_, err := o.loadConfig()
	require.Error(t, err)
}

func TestOutbox_ListsPendingEntries(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	out, err := e.run(t, "outbox")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	e.placeOrder(t)
	out, err = e.run(t, "outbox")
	require.NoError(t, err)

	var entries []models.OutboxEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.CollectionOrders, entries[0].Store)
	assert.Equal(t, http.MethodPut, entries[0].Method)
}

func TestFlush(t *testing.T) {
	t.Run("offline leaves entries", func(t *testing.T) {
		e := newEnv(t, deadRemote(t))
		e.placeOrder(t)

		out, err := e.run(t, "flush")
		require.NoError(t, err)
		var left []models.OutboxEntry
		require.NoError(t, json.Unmarshal([]byte(out), &left))
		assert.Len(t, left, 1)
	})

	t.Run("online drains the outbox", func(t *testing.T) {
		r := newRemote(t)
		e := newEnv(t, r.URL)
		e.placeOrder(t)

		out, err := e.run(t, "flush")
		require.NoError(t, err)
		var left []models.OutboxEntry
		require.NoError(t, json.Unmarshal([]byte(out), &left))
		assert.Empty(t, left)
		assert.GreaterOrEqual(t, r.pushes.Load(), int32(1))
	})
}

func TestSync(t *testing.T) {
	r := newRemote(t)
	e := newEnv(t, r.URL)
	e.placeOrder(t)

	out, err := e.run(t, "sync")
	require.NoError(t, err)

	var rep syncReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Online)
	assert.Equal(t, "idle", rep.State)
	assert.Empty(t, rep.Error)

	assert.GreaterOrEqual(t, r.pushes.Load(), int32(1))
	out, err = e.run(t, "outbox")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out), "sync delivers what it queued before exiting")
}

func TestSync_OfflineIsIdle(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	out, err := e.run(t, "sync")
	require.NoError(t, err)

	var rep syncReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.False(t, rep.Online)
	assert.Equal(t, "idle", rep.State)
}

func TestCursors(t *testing.T) {
	r := newRemote(t)
	e := newEnv(t, r.URL)

	out, err := e.run(t, "cursors")
	require.NoError(t, err)
	var cursors map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &cursors))
	assert.Equal(t, map[string]int64{models.CollectionProducts: 0, models.CollectionOrders: 0}, cursors)

	_, err = e.run(t, "sync")
	require.NoError(t, err)

	out, err = e.run(t, "cursors")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &cursors))
	assert.Positive(t, cursors[models.CollectionProducts])
	assert.Positive(t, cursors[models.CollectionOrders])

	out, err = e.run(t, "cursors", "--reset", models.CollectionProducts)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &cursors))
	assert.Zero(t, cursors[models.CollectionProducts])
	assert.Positive(t, cursors[models.CollectionOrders])
}

func TestCursors_ResetUnknownCollection(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	_, err := e.run(t, "cursors", "--reset", models.CollectionOutbox)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJobs_InvalidStatus(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	_, err := e.run(t, "jobs", "--status", "lost")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPrintTest_PrintsToSpool(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	out, err := e.run(t, "print-test")
	require.NoError(t, err)

	var job models.PrintJob
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, models.PrintDone, job.Status)
	assert.Equal(t, models.DestReceipt, job.Dest)

	files, err := os.ReadDir(filepath.Join(e.dir, "spool"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Name(), "receipt")

	out, err = e.run(t, "jobs", "--status", "done")
	require.NoError(t, err)
	var jobs []models.PrintJob
	require.NoError(t, json.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestSeed(t *testing.T) {
	e := newEnv(t, deadRemote(t))

	out, err := e.run(t, "seed", "--count", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"written":10}`, out)

	out, err = e.run(t, "seed", "--count", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"written":0}`, out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", errors.New("x"))))

	e := WrapExitError(ExitFailure, "sync failed", errors.New("timeout"))
	assert.Equal(t, "sync failed: timeout", e.Error())
}

func TestOutput_TableWhenNotJSON(t *testing.T) {
	var buf bytes.Buffer
	o := &output{w: &buf}

	err := o.print(nil, []string{"ID", "STATUS"}, func(add func(...any)) {
		add("j1", "done")
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "done")
}

func TestLoadConfig_ZeroIntervalIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("online_check_interval: 0s\n"), 0o600))
	o := &RootOptions{ConfigPath: path}

	_, err := o.loadConfig()
	require.Error(t, err)
}
