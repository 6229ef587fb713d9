// Package main is the entry point for the reperaged daemon.
// reperaged stores repérage conversations in SQLite and serves them over HTTP
// to the chat clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tOgg1/reperage/internal/config"
	"github.com/tOgg1/reperage/internal/logging"
	"github.com/tOgg1/reperage/internal/server"
	"github.com/tOgg1/reperage/internal/store"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	addr := flag.String("addr", "", "listen address (default from server.addr)")
	dbPath := flag.String("db", "", "SQLite database path (default from server.database_path)")
	configFile := flag.String("config", "", "config file (default is $HOME/.config/reperage/config.yaml)")
	logLevel := flag.String("log-level", "", "override logging level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "override logging format (json, console)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reperaged %s (%s, %s)\n", version, commit, date)
		return
	}

	loader := config.NewLoader()
	if *configFile != "" {
		loader.SetConfigFile(*configFile)
	}
	overrides := map[string]string{
		"logging.level":        *logLevel,
		"logging.format":       *logFormat,
		"server.addr":          *addr,
		"server.database_path": *dbPath,
	}
	for key, value := range overrides {
		if value != "" {
			loader.Set(key, value)
		}
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logger := logging.Component("reperaged")

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn().Err(err).Msg("failed to create directories")
	}
	if cfgUsed := loader.ConfigFileUsed(); cfgUsed != "" {
		logger.Debug().Str("config_file", cfgUsed).Msg("loaded config file")
	}

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("reperaged starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Server.DatabasePath, store.Options{BusyTimeoutMs: cfg.Server.BusyTimeoutMs})
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		os.Exit(1)
	}
	defer st.Close()

	if err := server.New(st).Serve(ctx, cfg.Server.Addr); err != nil {
		logger.Error().Err(err).Msg("server failed")
		stop()
		st.Close()
		os.Exit(1)
	}
	logger.Info().Msg("reperaged stopped")
}
