package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rnistala/pocket-sync/internal/dashboard"
	"github.com/rnistala/pocket-sync/internal/netwatch"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the WebSocket sync-state dashboard",
	Long: `Start a WebSocket server broadcasting the engine's sync state in
real time: record counts, dirty/pending backlogs, connectivity, and sync
completions.

  pocket dashboard               # default port 8080
  pocket dashboard --port 9000

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().Int("port", 8080, "port to listen on")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	port, _ := cmd.Flags().GetInt("port")
	logger := log.New(os.Stderr, "[dashboard] ", log.LstdFlags)

	server := dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start dashboard: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := netwatch.New(probeConfig(eng.cfg, logger))
	watcher.Start(ctx)

	handler := dashboard.NewHandler(server, eng.orch, watcher.Online, logger)
	watcher.OnOnline(func() { handler.OnConnectivity(true) })
	go handler.Run(ctx, 2*time.Second)

	fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
	fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
	fmt.Println("\nPress Ctrl+C to stop...")

	<-ctx.Done()
	watcher.Wait()
	return server.Stop()
}
