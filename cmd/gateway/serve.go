package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artmarket-gateway/middleware/ratelimit"
	"artmarket-gateway/middleware/ratelimit/config"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reverse proxy with the configured rate limit policies",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.UpstreamURL == "" {
			return fmt.Errorf("%w: UPSTREAM_URL (upstream_url) is required", config.ErrInvalid)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		reg, closeRedis, err := openRegistry(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeRedis()
		reg.Start(ctx)

		h, err := buildHandler(cfg, reg)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       90 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("gateway listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("upstream", cfg.UpstreamURL),
			zap.String("backend", cfg.Backend.Kind),
			zap.Int("max_keys", cfg.Backend.MaxKeys),
			zap.Int("policies", len(cfg.Policies)),
			zap.Int("routes", len(cfg.Routes)),
			zap.Bool("stats", cfg.Stats.Enabled),
			zap.Int("concurrency_max", cfg.Concurrency.Max))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildHandler: request id -> recovery -> access log -> concurrency global -> rotas com políticas -> proxy.
func buildHandler(cfg config.Config, reg *ratelimit.Registry) (http.Handler, error) {
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	router := mux.NewRouter()
	if err := reg.Mount(router, proxy); err != nil {
		return nil, err
	}

	h := http.Handler(router)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Name:           "gateway",
		Max:            cfg.Concurrency.Max,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.Concurrency.Timeout,
		Logger:         logger,
	})(h)
	h = handlers.CombinedLoggingHandler(os.Stdout, h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(verbose))(h)
	if !cfg.TrustUserHeader {
		h = stripHeader(cfg.UserHeader, h)
	}
	return requestID(h), nil
}

// stripHeader remove um header vindo do cliente antes do limiter e do upstream.
func stripHeader(name string, next http.Handler) http.Handler {
	if name == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(name)
		next.ServeHTTP(w, r)
	})
}

// requestID propaga X-Request-Id para o upstream, gerando um quando falta.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}
