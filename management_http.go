package lexcache

import (
	"context"
	"net"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/hyp3rd/ewrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/lexcache/internal/sentinel"
	"github.com/hyp3rd/lexcache/pkg/cache"
)

// ManagementHTTPOption configures the management HTTP server.
type ManagementHTTPOption func(*ManagementHTTPServer)

// ManagementHTTPServer holds Fiber app and settings.
type ManagementHTTPServer struct {
	addr         string
	app          *fiber.App
	readTimeout  time.Duration
	writeTimeout time.Duration
	authFunc     func(fiber.Ctx) error
	gatherer     prometheus.Gatherer
	logger       zerolog.Logger
	ln           net.Listener
	started      bool
}

// Collections is what the management server inspects: a registry of named caches.
type Collections interface {
	Names() []string
	Lookup(name string) (cache.Inspector, bool)
	Policy(name string) (cache.Policy, bool)
}

// WithMgmtAuth sets an auth function (return error to block).
func WithMgmtAuth(fn func(fiber.Ctx) error) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.authFunc = fn }
}

// WithMgmtReadTimeout sets read timeout.
func WithMgmtReadTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.readTimeout = d }
}

// WithMgmtWriteTimeout sets write timeout.
func WithMgmtWriteTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.writeTimeout = d }
}

// WithMgmtMetrics serves the metrics gathered by g on /metrics.
func WithMgmtMetrics(g prometheus.Gatherer) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.gatherer = g }
}

// WithMgmtLogger sets the logger reporting server errors.
func WithMgmtLogger(logger zerolog.Logger) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.logger = logger }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// NewManagementHTTPServer builds an HTTP server holder (lazy start).
func NewManagementHTTPServer(addr string, opts ...ManagementHTTPOption) *ManagementHTTPServer {
	srv := &ManagementHTTPServer{
		addr:         addr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts { // apply options
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return srv
}

// Start mounts the routes over collections and launches the listener (idempotent).
func (s *ManagementHTTPServer) Start(ctx context.Context, collections Collections) error {
	if s.started { // idempotent
		return nil
	}

	s.mountRoutes(collections)

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "mgmt listen")
	}

	s.ln = ln

	go func() {
		serveErr := s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
		if serveErr != nil {
			s.logger.Error().Err(serveErr).Str("addr", s.addr).Msg("management server stopped")
		}
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *ManagementHTTPServer) Address() string {
	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *ManagementHTTPServer) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrMgmtHTTPShutdownTimeout
	case err := <-ch:
		return err
	}
}

// collectionView is the JSON shape of a collection.
type collectionView struct {
	Name   string       `json:"name"`
	Live   bool         `json:"live"`
	Policy cache.Policy `json:"policy"`
	Info   *cache.Info  `json:"info,omitempty"`
}

func view(collections Collections, name string) (collectionView, bool) {
	policy, defined := collections.Policy(name)
	if !defined {
		return collectionView{}, false
	}

	v := collectionView{Name: name, Policy: policy}

	if inspector, ok := collections.Lookup(name); ok {
		info := inspector.Info()
		v.Live = true
		v.Info = &info
	}

	return v, true
}

// mountRoutes registers endpoints onto the Fiber app.
func (s *ManagementHTTPServer) mountRoutes(collections Collections) {
	useAuth := s.wrapAuth

	s.app.Get("/health", useAuth(func(fiberCtx fiber.Ctx) error { return fiberCtx.SendString("ok") }))

	s.app.Get("/collections", useAuth(func(fiberCtx fiber.Ctx) error {
		names := collections.Names()
		out := make([]collectionView, 0, len(names))

		for _, name := range names {
			if v, ok := view(collections, name); ok {
				out = append(out, v)
			}
		}

		return fiberCtx.JSON(out)
	}))

	s.app.Get("/collections/:name", useAuth(func(fiberCtx fiber.Ctx) error {
		v, ok := view(collections, fiberCtx.Params("name"))
		if !ok {
			return fiberCtx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "collection not defined"})
		}

		return fiberCtx.JSON(v)
	}))

	s.app.Post("/collections/:name/clear", useAuth(func(fiberCtx fiber.Ctx) error {
		name := fiberCtx.Params("name")
		if _, defined := collections.Policy(name); !defined {
			return fiberCtx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "collection not defined"})
		}

		cleared := 0

		if inspector, ok := collections.Lookup(name); ok {
			cleared = inspector.Info().Count
			inspector.Clear()
		}

		return fiberCtx.JSON(fiber.Map{"name": name, "cleared": cleared})
	}))

	if s.gatherer != nil {
		s.app.Get("/metrics", useAuth(adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))))
	}
}

// wrapAuth returns an auth-wrapped handler if authFunc provided.
func (s *ManagementHTTPServer) wrapAuth(handler fiber.Handler) fiber.Handler { //nolint:ireturn
	if s.authFunc == nil {
		return handler
	}

	return func(fiberCtx fiber.Ctx) error {
		authErr := s.authFunc(fiberCtx)
		if authErr != nil {
			return authErr
		}

		return handler(fiberCtx)
	}
}
