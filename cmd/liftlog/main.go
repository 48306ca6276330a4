package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/liftlog/internal/backend"
	"github.com/claude/liftlog/internal/client"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	migrateOnly := flag.Bool("migrate-only", false, "run postgres migrations and exit")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	remote := flag.String("remote", "", "with -mcp, read from a running liftlog server at this URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol in stdio mode
	logOut := os.Stdout
	if *mcpMode {
		logOut = os.Stderr
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("liftlog starting", "version", Version, "storage", cfg.Storage.Driver)

	if *migrateOnly {
		if cfg.Storage.Driver != config.DriverPostgres {
			log.Info("migrate-only: nothing to do", "driver", cfg.Storage.Driver)
			return
		}
		if err := storage.RunMigrations(cfg.Storage.Database.DSN(), cfg.Storage.MigrationsDir); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied, exiting")
		return
	}

	if *mcpMode && *remote != "" {
		c := client.New(*remote, cfg.Auth.APIKey)
		if err := mcpserver.ServeStdio(mcp.New(c, Version, log)); err != nil {
			log.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	tr := tracker.New(store, tracker.Options{
		Logger:              log,
		Metrics:             m,
		TickInterval:        cfg.Timers.TickInterval,
		DefaultSetRest:      cfg.Timers.DefaultSetRest,
		DefaultExerciseRest: cfg.Timers.DefaultExerciseRest,
		OnSessionComplete: func(v models.SessionView) {
			if v.Active != nil {
				log.Info("all sets complete", "template", v.Active.TemplateID, "elapsed", v.Timing.ElapsedSeconds)
			}
		},
	})
	tr.Load(ctx)
	defer func() {
		tr.Close()
		if err := store.Close(); err != nil {
			log.Error("closing store", "error", err)
		}
	}()

	if *mcpMode {
		if err := mcpserver.ServeStdio(mcp.New(tr, Version, log)); err != nil {
			log.Error("mcp server error", "error", err)
		}
		return
	}

	srv := server.New(tr, m, cfg.Auth.APIKey, log)
	if cfg.Auth.APIKey == "" {
		log.Warn("auth.api_key is empty, mutating routes are open")
	}

	addr := cfg.Server.Addr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen failed", "addr", addr, "error", err)
		os.Exit(1)
	}
	log.Info("server starting", "addr", addr)

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
