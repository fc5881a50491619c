package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rnistala/pocket-sync/internal/config"
	"github.com/rnistala/pocket-sync/internal/daemon"
	"github.com/rnistala/pocket-sync/internal/netwatch"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground.

The daemon performs an initial full sync, flushes dirty records on a
fixed interval while online, re-syncs whenever connectivity returns, and
watches the config file for changes. Logs rotate via the configured log
path.

  pocket daemon
  pocket daemon --log-to-file`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().Bool("log-to-file", false, "log to the rotating file at log_path instead of stderr")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	logger := log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	if toFile, _ := cmd.Flags().GetBool("log-to-file"); toFile && eng.cfg.LogPath != "" {
		logger = log.New(&lumberjack.Logger{
			Filename:   eng.cfg.LogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}, "[daemon] ", log.LstdFlags)
	}

	watcher := netwatch.New(probeConfig(eng.cfg, logger))

	dcfg := daemon.DefaultConfig()
	dcfg.FlushInterval = eng.cfg.Sync.FlushInterval
	dcfg.ConfigPath = config.UsedFile(configPath)
	dcfg.Logger = logger

	d, err := daemon.New(eng.orch, watcher, dcfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return d.Start(ctx)
}

// probeConfig translates the net section into a watcher config. An empty
// probe URL falls back to probing the API endpoint itself.
func probeConfig(cfg config.Config, logger *log.Logger) *netwatch.Config {
	url := cfg.Net.ProbeURL
	if url == "" {
		url = cfg.API.Root
	}
	nc := netwatch.DefaultConfig(url)
	if cfg.Net.ProbeInterval > 0 {
		nc.ProbeInterval = cfg.Net.ProbeInterval
	}
	if cfg.Net.ProbeTimeout > 0 {
		nc.ProbeTimeout = cfg.Net.ProbeTimeout
	}
	nc.Logger = logger
	return nc
}
