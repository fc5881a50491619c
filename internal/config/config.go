// Package config loads engine configuration from pocket.yaml and the
// POCKET_* environment, backed by viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Identity describes who the engine is syncing for. A restricted identity
// only sees records scoped to its own company.
type Identity struct {
	UserID     string `mapstructure:"user_id"`
	Company    string `mapstructure:"company"`
	City       string `mapstructure:"city"`
	Email      string `mapstructure:"email"`
	Restricted bool   `mapstructure:"restricted"`
}

// Active reports whether an identity has been configured at all. Most
// sync operations are silent no-ops without one.
func (id Identity) Active() bool {
	return id.UserID != ""
}

// API locates the remote system-of-record.
type API struct {
	Root string `mapstructure:"root"`
	// Numeric view ids for the paginated read endpoint.
	ContactsView     int `mapstructure:"contacts_view"`
	InteractionsView int `mapstructure:"interactions_view"`
	TicketsView      int `mapstructure:"tickets_view"`
	OrdersView       int `mapstructure:"orders_view"`
}

// Sync tunes the orchestrator.
type Sync struct {
	PageSize      int           `mapstructure:"page_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	FollowupDelay time.Duration `mapstructure:"followup_delay"`
}

// Net tunes the connectivity watcher.
type Net struct {
	ProbeURL      string        `mapstructure:"probe_url"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
}

// Config is the root configuration for the engine and CLI.
type Config struct {
	Identity  Identity `mapstructure:"identity"`
	API       API      `mapstructure:"api"`
	Sync      Sync     `mapstructure:"sync"`
	Net       Net      `mapstructure:"net"`
	StorePath string   `mapstructure:"store_path"`
	LogPath   string   `mapstructure:"log_path"`
	GeoURL    string   `mapstructure:"geo_url"`
	AttachURL string   `mapstructure:"attach_url"`
	NotifyURL string   `mapstructure:"notify_url"`
}

// Default returns the built-in configuration, used when no config file is
// present and as the base the file overrides.
func Default() Config {
	return Config{
		API: API{
			ContactsView:     1,
			InteractionsView: 2,
			TicketsView:      3,
			OrdersView:       4,
		},
		Sync: Sync{
			PageSize:      1000,
			FlushInterval: 2 * time.Second,
			FollowupDelay: 3 * time.Second,
		},
		Net: Net{
			ProbeInterval: 5 * time.Second,
			ProbeTimeout:  3 * time.Second,
		},
		StorePath: ".pocket/pocket.db",
		LogPath:   ".pocket/pocket.log",
	}
}

// Load reads configuration from the given file (or the default search
// path when empty), layered over Default() and the POCKET_* environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pocket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(".pocket")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine: defaults plus environment apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// UsedFile returns the config file path viper resolved, for the daemon's
// file watcher. Empty when running on defaults only.
func UsedFile(path string) string {
	if path != "" {
		return path
	}
	v := viper.New()
	v.SetConfigName("pocket")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(".pocket")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("api.contacts_view", def.API.ContactsView)
	v.SetDefault("api.interactions_view", def.API.InteractionsView)
	v.SetDefault("api.tickets_view", def.API.TicketsView)
	v.SetDefault("api.orders_view", def.API.OrdersView)
	v.SetDefault("sync.page_size", def.Sync.PageSize)
	v.SetDefault("sync.flush_interval", def.Sync.FlushInterval)
	v.SetDefault("sync.followup_delay", def.Sync.FollowupDelay)
	v.SetDefault("net.probe_interval", def.Net.ProbeInterval)
	v.SetDefault("net.probe_timeout", def.Net.ProbeTimeout)
	v.SetDefault("store_path", def.StorePath)
	v.SetDefault("log_path", def.LogPath)
}
