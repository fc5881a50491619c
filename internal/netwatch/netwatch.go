// Package netwatch observes connectivity to the remote endpoint.
//
// Connectivity is derived from a periodic reachability probe. The watcher
// tracks the current state and fires registered callbacks on the
// transition to online; there is no offline callback — the engine simply
// stops attempting network work and lets in-flight requests fail
// naturally.
package netwatch

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Config configures the watcher.
type Config struct {
	// ProbeURL is the endpoint checked for reachability, normally the
	// API root.
	ProbeURL string

	// ProbeInterval is how often to check (default: 5s).
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single check (default: 3s).
	ProbeTimeout time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults for the given probe URL.
func DefaultConfig(probeURL string) *Config {
	return &Config{
		ProbeURL:      probeURL,
		ProbeInterval: 5 * time.Second,
		ProbeTimeout:  3 * time.Second,
		Logger:        log.New(os.Stderr, "[netwatch] ", log.LstdFlags),
	}
}

// Watcher polls the probe URL and reports connectivity transitions.
type Watcher struct {
	config *Config
	httpc  *http.Client

	mu       sync.Mutex
	online   bool
	known    bool // false until the first probe completes
	onOnline []func()
	running  bool

	wg sync.WaitGroup
}

// New creates a Watcher. Start() must be called before transitions fire.
func New(config *Config) *Watcher {
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[netwatch] ", log.LstdFlags)
	}
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = 5 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 3 * time.Second
	}
	return &Watcher{
		config: config,
		httpc:  &http.Client{Timeout: config.ProbeTimeout},
	}
}

// OnOnline registers a callback fired on every offline-to-online
// transition. Callbacks run on the watcher's goroutine, sequentially.
func (w *Watcher) OnOnline(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onOnline = append(w.onOnline, fn)
}

// Online reports the last observed connectivity state. Before the first
// probe completes it optimistically reports true so startup work is not
// suppressed.
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.known {
		return true
	}
	return w.online
}

// Start begins probing until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.probeOnce(ctx)

		ticker := time.NewTicker(w.config.ProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.probeOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the probe loop has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Check performs a single synchronous reachability probe, updating the
// watcher's state. Used for one-shot connectivity queries outside the
// probe loop.
func (w *Watcher) Check(ctx context.Context) bool {
	w.probeOnce(ctx)
	return w.Online()
}

// probeOnce checks reachability and fires callbacks on an
// offline-to-online transition.
func (w *Watcher) probeOnce(ctx context.Context) {
	nowOnline := w.probe(ctx)

	w.mu.Lock()
	wasKnown := w.known
	wasOnline := w.online
	w.known = true
	w.online = nowOnline
	callbacks := make([]func(), len(w.onOnline))
	copy(callbacks, w.onOnline)
	w.mu.Unlock()

	if nowOnline && wasKnown && !wasOnline {
		w.config.Logger.Printf("connectivity restored")
		for _, fn := range callbacks {
			fn()
		}
	}
	if !nowOnline && (!wasKnown || wasOnline) {
		w.config.Logger.Printf("connectivity lost")
	}
}

func (w *Watcher) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.config.ProbeURL, nil)
	if err != nil {
		return false
	}
	resp, err := w.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	// Any response at all means the endpoint is reachable.
	return true
}
