package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"

	"github.com/meltforce/trainergpt/internal/agent"
	"github.com/meltforce/trainergpt/internal/cache"
	"github.com/meltforce/trainergpt/internal/coach"
	"github.com/meltforce/trainergpt/internal/config"
	"github.com/meltforce/trainergpt/internal/ingest"
	"github.com/meltforce/trainergpt/internal/mcp"
	"github.com/meltforce/trainergpt/internal/server"
	"github.com/meltforce/trainergpt/internal/storage"
	"github.com/meltforce/trainergpt/internal/tools"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	stdio := flag.Bool("stdio", false, "serve the MCP tools over stdio instead of HTTP")
	remote := flag.String("remote", "", "with -stdio, proxy tool calls to a running server at this URL")
	user := flag.String("user", "", "with -stdio, the login whose data the tools use")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol in stdio mode.
	logOut := os.Stdout
	if *stdio {
		logOut = os.Stderr
	}
	log := cfg.Log.NewLogger(logOut)
	log.Info("TrainerGPT starting", "version", Version)

	policy, err := coach.Load(cfg.Agent.PolicyFile)
	if err != nil {
		log.Error("failed to load coaching policy", "error", err)
		os.Exit(1)
	}

	if *stdio && *remote != "" {
		if err := serveRemoteStdio(*remote, cfg.Auth.APIKey, *user, policy, log); err != nil {
			log.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	c, closeCache, err := cache.Open(cfg.Cache, cfg.Redis, cfg.Features.Cache, log)
	if err != nil {
		log.Error("failed to open cache", "error", err)
		os.Exit(1)
	}

	catalogueFor := func(userID int) *tools.Catalogue {
		backend := tools.NewStoreBackend(db, c, userID, log.With("user_id", userID),
			tools.WithDeloadAdvice(cfg.Features.DeloadAdvice))
		return tools.New(backend, log)
	}
	mcpSrv := mcp.New(func(userID int) mcp.Executor { return catalogueFor(userID) }, policy, Version, log)

	if *stdio {
		userID := 1
		if *user != "" {
			if userID, err = db.GetOrCreateUser(ctx, *user, *user); err != nil {
				log.Error("resolving user", "login", *user, "error", err)
				os.Exit(1)
			}
		}
		err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
			return mcp.WithUserID(ctx, userID)
		}))
		if err = multierr.Append(err, closeCache()); err != nil {
			log.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.ValidateServe(); err != nil {
		log.Error("invalid server config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateLLM(); err != nil {
		log.Error("invalid llm config", "error", err)
		os.Exit(1)
	}

	importLoc, err := cfg.Server.ImportLocation()
	if err != nil {
		log.Error("invalid server config", "error", err)
		os.Exit(1)
	}

	chat := agent.NewRateLimited(agent.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL), cfg.LLM.RequestsPerSecond)
	srv := server.New(server.Config{
		Store:        db,
		CatalogueFor: catalogueFor,
		Chat:         chat,
		Model:        cfg.LLM.Model,
		AgentOptions: []agent.Option{
			agent.WithMaxSteps(cfg.Agent.MaxSteps),
			agent.WithTemperature(cfg.LLM.Temperature),
			agent.WithParallelTools(cfg.Agent.ParallelTools),
		},
		Policy:   policy,
		APIKey:   cfg.Auth.APIKey,
		Importer: ingest.NewImporter(db, c, importLoc, log),
		Profiles: db,
		Cache:    c,
		MCP:      mcpserver.NewStreamableHTTPServer(mcpSrv),
	}, log)

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

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
	err = httpSrv.Shutdown(shutdownCtx)
	err = multierr.Append(err, closeCache())
	if err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// serveRemoteStdio serves MCP over stdio, forwarding every tool call to a
// running TrainerGPT server.
func serveRemoteStdio(baseURL, apiKey, user, policy string, log *slog.Logger) error {
	client := mcp.NewHTTPClient(baseURL, apiKey, user)
	srv := mcp.New(func(int) mcp.Executor { return client }, policy, Version, log)
	log.Info("proxying MCP tools", "remote", baseURL, "user", user)
	return mcpserver.ServeStdio(srv)
}
