// Package app encapsulates the server components and lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"memoryecho/internal/retention"
	"memoryecho/pkg/api"
	"memoryecho/pkg/chat"
	"memoryecho/pkg/config"
	"memoryecho/pkg/knowledge"
	"memoryecho/pkg/logger"
	"memoryecho/pkg/progressor"
	"memoryecho/pkg/prompt"
	"memoryecho/pkg/responder"
	"memoryecho/pkg/roles"
	"memoryecho/pkg/store"
	"memoryecho/pkg/threads"
	"memoryecho/pkg/voice"
)

// App holds the wired components and the running HTTP server.
type App struct {
	eff     config.EffectiveConfigResult
	version string

	deps api.Deps
	srv  *http.Server
}

// New validates the config, opens the store and loads every collection.
// It does not start the HTTP server; call Run to start and block until
// shutdown.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	// Run pending migrations before any collection is loaded into memory.
	if _, err := progressor.Run(context.Background(), version); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	rr, err := roles.Load()
	if err != nil {
		return nil, err
	}
	ks, err := knowledge.Load()
	if err != nil {
		return nil, err
	}
	ts, err := threads.Load()
	if err != nil {
		return nil, err
	}

	rcfg := eff.Config.Responder
	asm := prompt.New(ks, int(rcfg.MaxContextBytes.Int64()))
	orch := chat.New(ts, asm, buildResponder(rcfg), rcfg.Timeout.Duration())

	return &App{
		eff:     eff,
		version: version,
		deps:    api.Deps{Roles: rr, Knowledge: ks, Threads: ts, Chat: orch, Voice: voice.Unconfigured{}},
	}, nil
}

// buildResponder selects the generation backend. The scripted backend is
// the default so the engine works without credentials.
func buildResponder(rcfg config.ResponderConfig) responder.Responder {
	switch rcfg.Provider {
	case "anthropic":
		logger.Info("responder_selected", "provider", "anthropic", "model", rcfg.Model)
		return responder.NewAnthropic(rcfg.Model, rcfg.MaxTokens)
	default:
		latency := rcfg.ScriptedLatency.Duration()
		logger.Info("responder_selected", "provider", "scripted", "latency", latency)
		return &responder.Scripted{Latency: latency}
	}
}

// validateConfig fails fast on settings that would only break later.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	switch p := eff.Config.Responder.Provider; p {
	case "", "scripted", "anthropic":
	default:
		return fmt.Errorf("unknown responder provider: %q", p)
	}
	return nil
}

// Run starts the retention sweeper (if enabled) and the HTTP server, and
// blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	retCancel, err := retention.Start(ctx, a.eff.Config.Retention, retention.Stores{
		Roles:     a.deps.Roles,
		Knowledge: a.deps.Knowledge,
		Threads:   a.deps.Threads,
	})
	if err != nil {
		return err
	}
	defer retCancel()

	a.buildServer()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http_listening", "addr", a.eff.Addr)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.srv.Shutdown(sctx)
	})
	err = g.Wait()

	if cerr := store.Close(); cerr != nil {
		logger.Error("store_close_failed", "error", cerr)
	}
	return err
}
