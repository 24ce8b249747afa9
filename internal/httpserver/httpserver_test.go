package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvpd/kvpd/internal/config"
	"github.com/kvpd/kvpd/internal/facade"
	"github.com/kvpd/kvpd/internal/httpserver"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	store, err := facade.New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Disconnect(context.Background()) })

	srv, err := httpserver.New(store, zap.NewNop())
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// The status mapping is GET -> 404/200, POST -> 409/201, PUT -> 404/200
// and DELETE -> 200 always.
func TestStatusMapping(t *testing.T) {
	h := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/kv/devin", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "PUT", "/kv/devin", `{"value":"20"}`).Code)
	assert.Equal(t, http.StatusOK, do(h, "DELETE", "/kv/devin", "").Code)

	assert.Equal(t, http.StatusCreated, do(h, "POST", "/kv", `{"key":"devin","value":"20"}`).Code)
	assert.Equal(t, http.StatusConflict, do(h, "POST", "/kv", `{"key":"devin","value":"99"}`).Code)

	assert.Equal(t, http.StatusOK, do(h, "GET", "/kv/devin", "").Code)
	assert.Equal(t, http.StatusOK, do(h, "PUT", "/kv/devin", `{"value":"22"}`).Code)

	assert.Equal(t, http.StatusOK, do(h, "DELETE", "/kv/devin", "").Code)
	// delete is idempotent, the second one is still a 200
	assert.Equal(t, http.StatusOK, do(h, "DELETE", "/kv/devin", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/kv/devin", "").Code)
}

func TestReadBody(t *testing.T) {
	h := newTestServer(t)

	require.Equal(t, http.StatusCreated, do(h, "POST", "/kv", `{"key":"devin","value":"20"}`).Code)

	w := do(h, "GET", "/kv/devin", "")
	require.Equal(t, http.StatusOK, w.Code)

	var pair struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pair))
	assert.Equal(t, "devin", pair.Key)
	assert.Equal(t, "20", pair.Value)
}

func TestKeys(t *testing.T) {
	h := newTestServer(t)

	w := do(h, "GET", "/kv", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Keys []string `json:"keys"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Empty(t, list.Keys)

	do(h, "POST", "/kv", `{"key":"b","value":"2"}`)
	do(h, "POST", "/kv", `{"key":"a","value":"1"}`)

	w = do(h, "GET", "/kv", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, []string{"a", "b"}, list.Keys)
}

func TestConfigEndpoint(t *testing.T) {
	h := newTestServer(t)

	w := do(h, "GET", "/config", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		Backend string `json:"backend"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, config.BackendMemory, info.Backend)
}

func TestMalformedBodyIs400(t *testing.T) {
	h := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(h, "POST", "/kv", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "PUT", "/kv/devin", `{not json`).Code)
}

func TestDisconnectedIs503(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	store, err := facade.New(cfg, zap.NewNop())
	require.NoError(t, err)
	// never connected

	srv, err := httpserver.New(store, zap.NewNop())
	require.NoError(t, err)

	w := do(srv.Handler(), "GET", "/kv/devin", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
