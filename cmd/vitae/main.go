package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vitaehq/vitae/internal/adapter/affinda"
	"github.com/vitaehq/vitae/internal/adapter/blob"
	httpAdapter "github.com/vitaehq/vitae/internal/adapter/http"
	"github.com/vitaehq/vitae/internal/adapter/indeed"
	"github.com/vitaehq/vitae/internal/adapter/postgres"
	"github.com/vitaehq/vitae/internal/adapter/redisstore"
	"github.com/vitaehq/vitae/internal/adapter/sqlite"
	"github.com/vitaehq/vitae/internal/config"
	"github.com/vitaehq/vitae/internal/domain"
	"github.com/vitaehq/vitae/internal/logging"
)

// store is the combined persistence surface every backend provides.
type store interface {
	domain.FingerprintStore
	domain.SectionHeaderStore
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	log.Info("starting vitae", "port", cfg.Port, "store", cfg.StoreBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("store init failed", "backend", cfg.StoreBackend, "error", err)
	}
	defer closeRepo()

	contentBaseURL := cfg.ContentBaseURL
	if contentBaseURL == "" {
		contentBaseURL = fmt.Sprintf("http://localhost:%d/blobs", cfg.Port)
	}
	blobs, err := blob.NewLocalFS(cfg.BlobDir, contentBaseURL)
	if err != nil {
		log.Fatal("blob store init failed", "dir", cfg.BlobDir, "error", err)
	}

	parser, err := affinda.NewClient(affinda.Config{
		BaseURL: cfg.AffindaBaseURL,
		APIKey:  cfg.AffindaAPIKey,
	})
	if err != nil {
		log.Fatal("parser client init failed", "error", err)
	}

	crawler := indeed.NewCrawler(indeed.Config{
		BaseURL:     cfg.IndeedBaseURL,
		LinkBaseURL: cfg.IndeedLinkBaseURL,
	})

	svc := domain.NewParseService(repo, blobs, parser, repo, log)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := httpAdapter.NewServer(svc, crawler, blobs, addr, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	sig := <-sigCh
	log.Info("shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		s, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		r, err := postgres.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		r, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}
}
