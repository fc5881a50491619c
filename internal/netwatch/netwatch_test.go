package netwatch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func quietConfig(url string) *Config {
	c := DefaultConfig(url)
	c.ProbeInterval = 10 * time.Millisecond
	c.ProbeTimeout = 500 * time.Millisecond
	c.Logger = log.New(io.Discard, "", 0)
	return c
}

func TestOnlineOptimisticBeforeFirstProbe(t *testing.T) {
	w := New(quietConfig("http://127.0.0.1:1"))
	if !w.Online() {
		t.Error("Online() = false before first probe, want optimistic true")
	}
}

func TestCheckReflectsReachability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	w := New(quietConfig(srv.URL))
	if !w.Check(context.Background()) {
		t.Error("Check() = false against a live server")
	}

	srv.Close()
	if w.Check(context.Background()) {
		t.Error("Check() = true against a closed server")
	}
	if w.Online() {
		t.Error("Online() = true after a failed probe")
	}
}

func TestOnOnlineFiresOnTransition(t *testing.T) {
	var reachable atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reachable.Load() {
			// Hijack and drop to simulate an unreachable endpoint.
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
	}))
	defer srv.Close()

	w := New(quietConfig(srv.URL))
	var fired atomic.Int32
	w.OnOnline(func() { fired.Add(1) })

	ctx := context.Background()

	// First probe offline: no callback (there was no known-online state
	// to transition from).
	w.Check(ctx)
	if got := fired.Load(); got != 0 {
		t.Fatalf("callbacks after initial offline probe = %d, want 0", got)
	}

	// Recovery fires exactly once.
	reachable.Store(true)
	w.Check(ctx)
	if got := fired.Load(); got != 1 {
		t.Fatalf("callbacks after recovery = %d, want 1", got)
	}

	// Staying online must not re-fire.
	w.Check(ctx)
	if got := fired.Load(); got != 1 {
		t.Errorf("callbacks while staying online = %d, want still 1", got)
	}

	// A second outage and recovery fires again.
	reachable.Store(false)
	w.Check(ctx)
	reachable.Store(true)
	w.Check(ctx)
	if got := fired.Load(); got != 2 {
		t.Errorf("callbacks after second recovery = %d, want 2", got)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	w := New(quietConfig(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	// The initial probe marks us online.
	deadline := time.After(time.Second)
	for !w.Online() {
		select {
		case <-deadline:
			t.Fatal("watcher never observed the live server")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancel")
	}
}
