// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/leseb/jsondemux/pkg/adapters/http"
	"github.com/leseb/jsondemux/pkg/archive"
	"github.com/leseb/jsondemux/pkg/core/config"
	"github.com/leseb/jsondemux/pkg/demux"
	"github.com/leseb/jsondemux/pkg/observability/logging"
	"github.com/leseb/jsondemux/pkg/session"

	// Blank imports register provider implementations via init().
	// Remove any of these to exclude the backend from the binary.
	_ "github.com/leseb/jsondemux/pkg/archive/filesystem"
	_ "github.com/leseb/jsondemux/pkg/archive/memory"
	_ "github.com/leseb/jsondemux/pkg/archive/s3"
	_ "github.com/leseb/jsondemux/pkg/session/memory"
	_ "github.com/leseb/jsondemux/pkg/session/postgres"
	_ "github.com/leseb/jsondemux/pkg/session/sqlite"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("jsondemux server\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := logging.New(logging.Config{
		Level:  "info",
		Format: "json",
	})
	logger.Info("starting jsondemux server",
		"version", Version,
		"build_time", BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}

	initCtx := context.Background()

	sessionStore, err := session.Providers.New(initCtx, cfg.SessionStore.Type, map[string]string{
		"dsn": cfg.SessionStore.DSN,
	})
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	if closer, ok := sessionStore.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("initialized session store", "type", cfg.SessionStore.Type)

	archiveStore, err := archive.Providers.New(initCtx, cfg.Archive.Type, map[string]string{
		"base_dir": cfg.Archive.BaseDir,
		"bucket":   cfg.Archive.S3Bucket,
		"region":   cfg.Archive.S3Region,
		"prefix":   cfg.Archive.S3Prefix,
		"endpoint": cfg.Archive.S3Endpoint,
	})
	if err != nil {
		logger.Error("failed to initialize archive store", "error", err)
		os.Exit(1)
	}
	defer archiveStore.Close(context.Background())
	logger.Info("initialized archive store", "type", cfg.Archive.Type)

	schemas := registerSchemas()
	logger.Info("registered schemas", "count", len(schemas))

	unknownMode := demux.UnknownFieldStrict
	if cfg.Demux.UnknownFieldMode == "ignore" {
		unknownMode = demux.UnknownFieldIgnore
	}

	handler := httpAdapter.New(logger, schemas, sessionStore, archiveStore, unknownMode)
	logger.Info("initialized http adapter")

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", "address", httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("server stopped gracefully")
}

// registerSchemas builds the fixed set of schemas a session can be created
// from. A production deployment would load these from a config directory;
// here a single example schema stands in for that.
func registerSchemas() map[string]*demux.Schema {
	return map[string]*demux.Schema{
		"chat_response": demux.NewSchema(
			demux.Field{Name: "answer", Sink: demux.Stream, Value: demux.KindString},
			demux.Field{Name: "confidence", Sink: demux.Single, Value: demux.KindFloat},
			demux.Field{Name: "sentiment", Sink: demux.Single, Value: demux.KindEnumerated,
				Members: []string{"positive", "neutral", "negative"}},
		),
	}
}
