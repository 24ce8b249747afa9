package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kvpd/kvpd/internal/config"
	"github.com/kvpd/kvpd/internal/facade"
	"github.com/kvpd/kvpd/internal/httpserver"
	"github.com/kvpd/kvpd/internal/respserver"
)

func Run(ctx context.Context, rawArgs []string) error {
	// flag parsing
	fs := flag.NewFlagSet("kvpd", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "kvpd.yaml", "path to the config file")
		backend    = fs.String("backend", "", "backend override: memory, bolt, sqlite or mongo")
		addr       = fs.String("addr", "", "RESP server address override")
		httpAddr   = fs.String("http-addr", "", "HTTP server address override")
		debug      = fs.Bool("debug", false, "enable debug logging")
	)
	if err := fs.Parse(rawArgs); err != nil {
		return err
	}

	logLvl := slog.LevelInfo
	if *debug {
		logLvl = slog.LevelDebug
	}
	slog.SetLogLoggerLevel(logLvl)

	cfg, err := config.Load(*configPath)
	if err != nil {
		// a missing default config file is fine, flags and defaults cover it
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		slog.Info("Config file not found, using defaults", "path", *configPath)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(*debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	store, err := facade.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Connect(connectCtx); err != nil {
		return fmt.Errorf("failed to connect to %s backend: %w", cfg.Backend, err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Disconnect(disconnectCtx); err != nil {
			slog.Error("failed to disconnect backend", "err", err)
		}
	}()

	httpSrv, err := httpserver.New(store, logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	slog.Info("Starting HTTP server", "addr", cfg.HTTPAddr)
	go func() {
		if err := httpSrv.Run(ctx, cfg.HTTPAddr); err != nil {
			slog.Error("http server failed", "err", err)
		}
	}()

	respSrv, err := respserver.New(store)
	if err != nil {
		return fmt.Errorf("failed to create RESP server: %w", err)
	}
	slog.Info("Starting RESP server", "addr", cfg.Addr)
	return respSrv.Run(ctx, cfg.Addr, 5*time.Second)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
