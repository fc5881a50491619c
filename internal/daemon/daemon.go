// Package daemon runs the engine's passive sync machinery: a periodic
// flush of dirty records, a full sync on every offline-to-online
// transition, and a watch on the config file so endpoint or identity
// edits take effect without a restart.
//
// The daemon:
//  1. Performs an initial full sync
//  2. Flushes dirty interactions on a fixed interval while online
//  3. Re-runs the dirty flush and a full sync when connectivity returns
//  4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rnistala/pocket-sync/internal/netwatch"
	"github.com/rnistala/pocket-sync/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// FlushInterval is how often dirty records are re-scanned while
	// online. Fixed interval, no backoff: a down server just makes each
	// pass fail fast and stay dirty.
	FlushInterval time.Duration

	// FullSyncInterval is how often a complete sync of all entity types
	// runs, independent of the dirty flush.
	FullSyncInterval time.Duration

	// ConfigPath is the config file to watch. Empty disables watching.
	ConfigPath string

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FlushInterval:    2 * time.Second,
		FullSyncInterval: 5 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon drives the orchestrator from timers and connectivity events.
type Daemon struct {
	engine  sync.Orchestrator
	watcher *netwatch.Watcher
	config  *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a Daemon. The orchestrator and network watcher are
// required; config may be nil for defaults.
func New(engine sync.Orchestrator, watcher *netwatch.Watcher, config *Config) (*Daemon, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if watcher == nil {
		return nil, fmt.Errorf("watcher cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 2 * time.Second
	}
	if config.FullSyncInterval <= 0 {
		config.FullSyncInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		engine:  engine,
		watcher: watcher,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation and blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	// The sole event-driven trigger besides the timers: connectivity
	// restored re-runs the dirty flush unconditionally, then a full sync.
	d.watcher.OnOnline(func() {
		d.runFlush("online transition")
		d.runFullSync("online transition")
	})
	d.watcher.Start(d.ctx)

	// Initial sync. Failure is not fatal; the engine degrades to
	// local-only until connectivity allows.
	d.runFullSync("startup")

	d.wg.Add(2)
	go d.flushLoop()
	go d.fullSyncLoop()

	if d.config.ConfigPath != "" {
		if err := d.watchConfig(); err != nil {
			d.config.Logger.Printf("WARNING: config watch disabled: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")
	d.cancel()
	d.wg.Wait()
	d.watcher.Wait()
	d.config.Logger.Println("Daemon stopped")
	return nil
}

// flushLoop re-scans for dirty interactions on a fixed interval while
// online.
func (d *Daemon) flushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if !d.watcher.Online() {
				continue
			}
			d.runFlush("timer")
		}
	}
}

// fullSyncLoop runs a complete sync of all entity types periodically.
func (d *Daemon) fullSyncLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if !d.watcher.Online() {
				continue
			}
			d.runFullSync("timer")
		}
	}
}

func (d *Daemon) runFlush(trigger string) {
	err := d.engine.FlushInteractions(d.ctx)
	switch {
	case errors.Is(err, sync.ErrSyncInFlight):
		// Overlapping trigger dropped; the next tick retries.
	case err != nil:
		d.config.Logger.Printf("WARNING: dirty flush (%s) failed: %v", trigger, err)
	}
}

func (d *Daemon) runFullSync(trigger string) {
	err := d.engine.FullSync(d.ctx)
	switch {
	case errors.Is(err, sync.ErrSyncInFlight):
		d.config.Logger.Printf("Full sync (%s) skipped: pass already running", trigger)
	case err != nil:
		d.config.Logger.Printf("WARNING: full sync (%s) failed: %v", trigger, err)
	}
}

// watchConfig watches the config file for writes. The daemon only logs
// the change; the identity-switch wipe rule runs when the store is next
// loaded with the new values.
func (d *Daemon) watchConfig() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: editors replace files rather than write in
	// place, which would silently drop a watch on the file itself.
	dir := filepath.Dir(d.config.ConfigPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(d.config.ConfigPath)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer watcher.Close()

		for {
			select {
			case <-d.ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				d.config.Logger.Printf("Config file changed (%s); endpoint or identity changes apply at next start",
					strings.ToLower(event.Op.String()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.config.Logger.Printf("WARNING: config watch error: %v", err)
			}
		}
	}()

	d.config.Logger.Printf("Watching config: %s", d.config.ConfigPath)
	return nil
}
