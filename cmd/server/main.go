package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/contact-webhook/internal/api"
	"github.com/ignite/contact-webhook/internal/archive"
	"github.com/ignite/contact-webhook/internal/config"
	"github.com/ignite/contact-webhook/internal/metrics"
	"github.com/ignite/contact-webhook/internal/pkg/logger"
	"github.com/ignite/contact-webhook/internal/repository/postgres"
	"github.com/ignite/contact-webhook/internal/service/contact"
	"github.com/ignite/contact-webhook/internal/statscache"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from a stale process occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	if cfg.Database.URL == "" {
		log.Fatal("database URL is required (set DATABASE_URL or database.url in config)")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database at %s: %v", extractHost(cfg.Database.URL), err)
	}
	logger.Info("database connected", "host", extractHost(cfg.Database.URL))

	repo := postgres.NewContactRepo(db)
	svc := contact.NewService(repo, repo)
	m := metrics.New()

	var cache *statscache.Cache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, stats cache disabled", "addr", cfg.Redis.Addr, "error", err.Error())
		} else {
			cache = statscache.New(client, cfg.Redis.StatsTTL())
			logger.Info("stats cache enabled", "addr", cfg.Redis.Addr)
		}
	}

	var archiver *archive.S3Archiver
	if cfg.Archive.Enabled && cfg.Archive.S3Bucket != "" {
		archiver, err = archive.NewS3Archiver(context.Background(), archive.Config{
			Bucket:   cfg.Archive.S3Bucket,
			Prefix:   cfg.Archive.Prefix,
			Region:   cfg.Archive.S3Region,
			Compress: cfg.Archive.Compress,
		})
		if err != nil {
			logger.Warn("export archiving disabled", "error", err.Error())
			archiver = nil
		} else {
			logger.Info("export archiving enabled", "bucket", cfg.Archive.S3Bucket)
		}
	}

	server := api.NewServer(cfg.Webhook, svc, m, cache, archiver)

	addr := fmt.Sprintf("%s:%d", host, port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}
