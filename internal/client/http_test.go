package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/litepos/internal/common"
	"github.com/dmitrijs2005/litepos/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

func newServer(t *testing.T, status int, respBody string) (*HTTPClient, *[]recorded) {
	t.Helper()
	var calls []recorded
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(b)})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(ts.Close)

	c, err := NewHTTPClient(ts.URL+"/api/", time.Second)
	require.NoError(t, err)
	return c, &calls
}

func TestNewHTTPClient_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewHTTPClient("/api", time.Second)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	c, err := NewHTTPClient("http://pos.local/api", time.Second)
	require.NoError(t, err)

	assert.Equal(t, "http://pos.local/api/orders/o1", c.Resolve("/orders/o1"))
	assert.Equal(t, "http://pos.local/api/orders/o1", c.Resolve("orders/o1"))
	assert.Equal(t, "https://other/x", c.Resolve("https://other/x"))
}

func TestPush_UpsertSendsPayload(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, "")

	err := c.Push(context.Background(), models.OutboxEntry{
		Op: models.OpUpsert, RemoteURL: "/orders/o1", Payload: json.RawMessage(`{"id":"o1"}`),
	})
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/orders/o1", got.path)
	assert.JSONEq(t, `{"id":"o1"}`, got.body)
}

func TestPush_DeleteSendsNoBody(t *testing.T) {
	c, calls := newServer(t, http.StatusNoContent, "")

	err := c.Push(context.Background(), models.OutboxEntry{
		Op: models.OpDelete, RemoteURL: "/orders/o1", Payload: json.RawMessage(`{"id":"o1"}`),
	})
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodDelete, (*calls)[0].method)
	assert.Empty(t, (*calls)[0].body)
}

func TestPush_ExplicitMethodWins(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, "")

	require.NoError(t, c.Push(context.Background(), models.OutboxEntry{
		Op: models.OpUpsert, RemoteURL: "/orders", Method: http.MethodPost, Payload: json.RawMessage(`{}`),
	}))
	assert.Equal(t, http.MethodPost, (*calls)[0].method)
}

func TestPush_EmptyRemoteURLIsNoop(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, "")

	require.NoError(t, c.Push(context.Background(), models.OutboxEntry{Op: models.OpUpsert}))
	assert.Empty(t, *calls)
}

func TestPush_Non2xxIsPushError(t *testing.T) {
	c, _ := newServer(t, http.StatusServiceUnavailable, "")

	err := c.Push(context.Background(), models.OutboxEntry{Op: models.OpUpsert, RemoteURL: "/orders/o1"})
	var pe *common.PushError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.Status)
	assert.Equal(t, http.MethodPut, pe.Method)
}

func TestPush_TransportFailureIsOffline(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	c, err := NewHTTPClient(ts.URL, time.Second)
	require.NoError(t, err)
	ts.Close()

	err = c.Push(context.Background(), models.OutboxEntry{Op: models.OpUpsert, RemoteURL: "/x"})
	assert.ErrorIs(t, err, common.ErrOffline)
}

func TestPush_CanceledContextIsNotOffline(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Push(ctx, models.OutboxEntry{Op: models.OpUpsert, RemoteURL: "/x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrOffline)
}

func TestPull_BuildsQueryAndDecodesItems(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `{"items":[{"id":"p1"},{"id":"p2"}]}`)

	items, err := c.Pull(context.Background(), "products", 1700, 200, 400)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"id":"p1"}`, string(items[0]))

	got := (*calls)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/products", got.path)
	assert.Equal(t, "limit=200&offset=400&since=1700", got.query)
}

func TestPull_MissingItemsIsEmptyPage(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{}`)

	items, err := c.Pull(context.Background(), "orders", 0, 200, 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPull_Non2xxIsRejected(t *testing.T) {
	c, _ := newServer(t, http.StatusInternalServerError, "")

	_, err := c.Pull(context.Background(), "orders", 0, 200, 0)
	assert.ErrorIs(t, err, ErrPullRejected)
}

func TestPull_BadJSON(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `not json`)

	_, err := c.Pull(context.Background(), "orders", 0, 200, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPullRejected)
}

func TestPing(t *testing.T) {
	ok, calls := newServer(t, http.StatusOK, "")
	require.NoError(t, ok.Ping(context.Background()))
	assert.Equal(t, "/api/health", (*calls)[0].path)

	down, _ := newServer(t, http.StatusBadGateway, "")
	assert.ErrorIs(t, down.Ping(context.Background()), ErrUnavailable)
}
