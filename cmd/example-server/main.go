package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artmarket-gateway/middleware/ratelimit"
	"artmarket-gateway/middleware/ratelimit/config"
	"artmarket-gateway/middleware/ratelimit/infra"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	// Exemplo: middleware embutido direto na API do marketplace (sem proxy)
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))
	reg, err := ratelimit.NewRegistry(cfg, nil, ratelimit.WithStats(stats), ratelimit.WithLogger(logger))
	if err != nil {
		logger.Fatal("rate limit registry", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	reg.Start(ctx)

	h, err := newMarketplaceAPI(reg, stats)
	if err != nil {
		logger.Fatal("routes", zap.Error(err))
	}

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers.LoggingHandler(os.Stdout, h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example marketplace listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

// newMarketplaceAPI registra handlers fictícios do marketplace atrás das políticas.
func newMarketplaceAPI(reg *ratelimit.Registry, stats *infra.MemoryStatsStore) (http.Handler, error) {
	api := mux.NewRouter()
	api.HandleFunc("/api/auth/login", accepted("signed in")).Methods(http.MethodPost)
	api.HandleFunc("/api/auth/register", accepted("account created")).Methods(http.MethodPost)
	api.HandleFunc("/api/auth/forgot-password", accepted("if the email exists, a reset link was sent")).Methods(http.MethodPost)
	api.HandleFunc("/api/auth/reset-password", accepted("password updated")).Methods(http.MethodPost)
	api.HandleFunc("/api/contact", accepted("message sent")).Methods(http.MethodPost)
	api.HandleFunc("/api/upload", accepted("upload url issued")).Methods(http.MethodPost)
	api.HandleFunc("/api/artworks", accepted("artworks")).Methods(http.MethodGet)

	root := mux.NewRouter()
	root.HandleFunc("/debug/ratelimit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"total":     stats.Total(),
			"by_policy": stats.ByPolicy(),
			"by_route":  stats.ByRoute(),
		})
	}).Methods(http.MethodGet)
	if err := reg.Mount(root, api); err != nil {
		return nil, err
	}
	return root, nil
}

func accepted(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
