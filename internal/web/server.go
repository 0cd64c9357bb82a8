// Package web serves the string analyzer over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/logger"
	"github.com/hpungsan/sift/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// NewServer creates and configures the HTTP server.
func NewServer(s *store.Store, cfg *config.Config, log *zap.Logger, version string) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewHandler(s, cfg, log, NewMetrics(), version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed and wrapped handler. It is separate from
// NewServer so tests can drive it with httptest.
func NewHandler(s *store.Store, cfg *config.Config, log *zap.Logger, m *Metrics, version string) http.Handler {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}

	renderer := NewRenderer(templateSub, version, log)
	h := &Handlers{
		store:    s,
		renderer: renderer,
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax; the literal search path wins
	// over the {value} wildcard.
	mux.HandleFunc("POST /strings", h.HandleCreate)
	mux.HandleFunc("GET /strings", h.HandleList)
	mux.HandleFunc("GET /strings/filter-by-natural-language", h.HandleSearch)
	mux.HandleFunc("GET /strings/{value}", h.HandleGet)
	mux.HandleFunc("GET /strings/{value}/report", h.HandleReport)
	mux.HandleFunc("DELETE /strings/{value}", h.HandleDelete)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", m.Handler())

	var limiter *rate.Limiter
	if cfg.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), max(cfg.RateLimitBurst, 1))
	}

	var handler http.Handler = mux
	handler = rateLimit(limiter, renderer, handler)
	handler = observe(log, m, handler)
	handler = requestID(handler)
	handler = securityHeaders(handler)
	return handler
}

// Run serves srv until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log = log.With(zap.String(logger.FieldComponent, "web"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", zap.String(logger.FieldAddress, srv.Addr))
		if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
			log.Warn("server is binding to all interfaces and may be accessible from the network")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
