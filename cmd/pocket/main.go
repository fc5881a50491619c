// Command pocket is an offline-first CRM companion: a local SQLite cache
// of contacts, interactions, tickets and orders that syncs opportunistically
// with a remote system of record.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rnistala/pocket-sync/internal/attach"
	"github.com/rnistala/pocket-sync/internal/config"
	"github.com/rnistala/pocket-sync/internal/geo"
	"github.com/rnistala/pocket-sync/internal/remote"
	"github.com/rnistala/pocket-sync/internal/store"
	"github.com/rnistala/pocket-sync/internal/sync"
	"github.com/rnistala/pocket-sync/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pocket",
	Short: "Offline-first CRM sync engine",
	Long: `pocket keeps a local cache of your CRM data (contacts, interactions,
tickets, orders) and syncs it with the remote system of record whenever
connectivity allows.

All writes land locally first and are marked dirty; upload happens
immediately when online, or on the next sync pass when not. The local
cache is always usable offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		ui.Plain()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: pocket.yaml in . or .pocket)")
}

// engine bundles the wired collaborators a command needs.
type engine struct {
	cfg    config.Config
	store  *store.DB
	orch   sync.Orchestrator
	logger *log.Logger
}

// openEngine loads config, opens the store (applying the identity-switch
// wipe rule), and wires the orchestrator. Callers must Close.
func openEngine(ctx context.Context) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	wiped, err := db.EnsureIdentity(ctx, cfg.Identity.UserID, cfg.API.Root)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger := log.New(os.Stderr, "[pocket] ", log.LstdFlags)
	if wiped {
		logger.Printf("Identity or endpoint changed; local cache was reset")
	}

	opts := sync.Options{
		Store:  db,
		Remote: remote.New(cfg.API.Root, logger),
		Config: cfg,
		Logger: logger,
	}
	if cfg.GeoURL != "" {
		opts.Enrich = geo.HTTPEnricher(cfg.GeoURL, logger)
	}
	if cfg.AttachURL != "" {
		opts.Attach = attach.NewHTTPUploader(cfg.AttachURL, logger)
	}

	orch, err := sync.New(opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &engine{cfg: cfg, store: db, orch: orch, logger: logger}, nil
}

// Close releases the engine's store.
func (e *engine) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Printf("WARNING: failed to close store: %v", err)
	}
}
