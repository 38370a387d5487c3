package lexcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/longbridgeapp/assert"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyp3rd/lexcache/pkg/cache"
	"github.com/hyp3rd/lexcache/pkg/metrics"
	"github.com/hyp3rd/lexcache/pkg/registry"
)

func newManagedRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	r, err := registry.New()
	assert.NoError(t, err)

	assert.NoError(t, registry.Define[string, int](r, "users", cache.Policy{Capacity: 64}))
	assert.NoError(t, registry.Define[string, int](r, "orders", cache.Policy{}))

	users, err := registry.Resolve[string, int](r, "users")
	assert.NoError(t, err)

	users.Add("a", 1)
	users.Add("b", 2)

	return r
}

func doRequest(t *testing.T, s *ManagementHTTPServer, method, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := s.app.Test(httptest.NewRequest(method, target, nil))
	assert.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	_ = resp.Body.Close()

	return resp, body
}

func TestManagementHTTP_Collections(t *testing.T) {
	r := newManagedRegistry(t)
	s := NewManagementHTTPServer("127.0.0.1:0")
	s.mountRoutes(r)

	resp, body := doRequest(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, body = doRequest(t, s, http.MethodGet, "/collections")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []collectionView
	assert.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, len(list))
	assert.Equal(t, "orders", list[0].Name)
	assert.False(t, list[0].Live)
	assert.Equal(t, "users", list[1].Name)
	assert.True(t, list[1].Live)
	assert.Equal(t, 2, list[1].Info.Count)
	assert.Equal(t, 64, list[1].Info.Capacity)

	resp, body = doRequest(t, s, http.MethodGet, "/collections/users")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var one collectionView
	assert.NoError(t, json.Unmarshal(body, &one))
	assert.Equal(t, 64, one.Policy.Capacity)
	assert.Equal(t, int64(2), one.Info.Stats["adds"].Sum)

	resp, _ = doRequest(t, s, http.MethodGet, "/collections/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestManagementHTTP_Clear(t *testing.T) {
	r := newManagedRegistry(t)
	s := NewManagementHTTPServer("127.0.0.1:0")
	s.mountRoutes(r)

	resp, body := doRequest(t, s, http.MethodPost, "/collections/users/clear")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"cleared":2`))

	inspector, ok := r.Lookup("users")
	assert.True(t, ok)
	assert.Equal(t, 0, inspector.Info().Count)

	resp, body = doRequest(t, s, http.MethodPost, "/collections/orders/clear")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"cleared":0`))

	resp, _ = doRequest(t, s, http.MethodPost, "/collections/missing/clear")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestManagementHTTP_Auth(t *testing.T) {
	s := NewManagementHTTPServer("127.0.0.1:0", WithMgmtAuth(func(c fiber.Ctx) error {
		if c.Get("Authorization") != "Bearer secret" {
			return fiber.ErrUnauthorized
		}

		return nil
	}))
	s.mountRoutes(newManagedRegistry(t))

	resp, _ := doRequest(t, s, http.MethodGet, "/collections")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := s.app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestManagementHTTP_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	exporter, err := metrics.NewExporter(reg)
	assert.NoError(t, err)

	r, err := registry.New(registry.WithStatsFactory(exporter.Collector))
	assert.NoError(t, err)
	assert.NoError(t, reg.Register(metrics.NewSizeCollector(r)))

	assert.NoError(t, registry.Define[string, int](r, "users", cache.Policy{}))

	users, err := registry.Resolve[string, int](r, "users")
	assert.NoError(t, err)

	users.TryGet("missing")
	users.Add("a", 1)

	s := NewManagementHTTPServer("127.0.0.1:0", WithMgmtMetrics(reg))
	s.mountRoutes(r)

	resp, body := doRequest(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `lexcache_cache_events_total{cache="users",event="miss"} 1`))
	assert.True(t, strings.Contains(string(body), `lexcache_cache_entries{cache="users"} 1`))
}

func TestManagementHTTP_StartAndShutdown(t *testing.T) {
	s := NewManagementHTTPServer("127.0.0.1:0", WithMgmtReadTimeout(time.Second), WithMgmtWriteTimeout(time.Second))
	assert.Equal(t, "", s.Address())

	ctx := context.Background()
	assert.NoError(t, s.Start(ctx, newManagedRegistry(t)))
	assert.NoError(t, s.Start(ctx, nil))

	addr := s.Address()
	assert.True(t, addr != "")

	// wait briefly for listener
	time.Sleep(30 * time.Millisecond)

	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get("http://" + addr + "/health")
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	assert.NoError(t, s.Shutdown(shutdownCtx))
}

func TestManagementHTTP_ShutdownNotStarted(t *testing.T) {
	s := NewManagementHTTPServer("127.0.0.1:0")
	assert.NoError(t, s.Shutdown(context.Background()))
}
