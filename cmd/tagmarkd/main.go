package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tagmark/tagmark/internal/fetcher"
	"github.com/tagmark/tagmark/internal/logger"
	"github.com/tagmark/tagmark/internal/server"
	"github.com/tagmark/tagmark/internal/store"
	"github.com/tagmark/tagmark/internal/tagger"
)

func main() {
	_ = godotenv.Load()

	mode := envOr("LOG_MODE", "development")
	log, err := logger.New(mode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.Open(envOr("DB_PATH", "tagmark.db"))
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer st.Close()

	tg, err := tagger.NewClient(os.Getenv("ANTHROPIC_API_KEY"))
	if err != nil {
		log.Fatal("failed to create tagger", "error", err)
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		log.Warn("API_KEY not set, authentication disabled")
	}

	srv := server.New(server.Params{
		Store:   st,
		Fetcher: fetcher.New(),
		Tagger:  tg,
		APIKey:  apiKey,
		Log:     log,
	})

	port := envOr("PORT", "8787")
	httpSrv := &http.Server{
		Addr:    ":" + port,
		Handler: srv.Router(),
	}

	go func() {
		log.Info("server listening", "port", port, "db", st.Path())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
