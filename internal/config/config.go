// Package config loads application configuration from an optional TOML file
// layered under environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tempbox/internal/domain/model"
)

// Config holds the application configuration. Environment variables override
// values from the config file; both override the built-in defaults.
type Config struct {
	Provider        model.ProviderKind `toml:"provider"`
	MailTMBaseURL   string             `toml:"mailtm_base_url"`
	RelayURL        string             `toml:"relay_url"`
	RelayKey        string             `toml:"relay_key"`
	YopmailProxyURL string             `toml:"yopmail_proxy_url"`
	AddressTTL      time.Duration      `toml:"-"`
	RefreshPeriod   time.Duration      `toml:"-"`
	ListenAddr      string             `toml:"listen_addr"`
	DBPath          string             `toml:"db_path"`
	AllowedOrigins  []string           `toml:"allowed_origins"`

	// Duration fields arrive as strings from TOML and get parsed in Load.
	AddressTTLRaw    string `toml:"address_ttl"`
	RefreshPeriodRaw string `toml:"refresh_period"`
}

// HasRelayCredentials returns true when both the relay endpoint and API key
// are configured. The relay variant refuses to start without them.
func (c *Config) HasRelayCredentials() bool {
	return c.RelayURL != "" && c.RelayKey != ""
}

// Load builds the configuration: defaults, then the TOML file named by
// TEMPBOX_CONFIG_FILE (if set), then TEMPBOX_* environment variables.
// Optional variables with defaults: TEMPBOX_PROVIDER (mailtm),
// TEMPBOX_ADDRESS_TTL (60m), TEMPBOX_REFRESH_PERIOD (30s),
// TEMPBOX_LISTEN_ADDR (127.0.0.1:8080), TEMPBOX_DB_PATH (tempbox.db).
func Load() (*Config, error) {
	cfg := &Config{
		Provider:      model.ProviderMailTM,
		MailTMBaseURL: "https://api.mail.tm",
		AddressTTL:    60 * time.Minute,
		RefreshPeriod: 30 * time.Second,
		ListenAddr:    "127.0.0.1:8080",
		DBPath:        "tempbox.db",
	}

	if path, ok := os.LookupEnv("TEMPBOX_CONFIG_FILE"); ok && path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if cfg.AddressTTLRaw != "" {
			d, err := time.ParseDuration(cfg.AddressTTLRaw)
			if err != nil {
				return nil, fmt.Errorf("config file address_ttl has invalid duration %q: %w", cfg.AddressTTLRaw, err)
			}
			cfg.AddressTTL = d
		}
		if cfg.RefreshPeriodRaw != "" {
			d, err := time.ParseDuration(cfg.RefreshPeriodRaw)
			if err != nil {
				return nil, fmt.Errorf("config file refresh_period has invalid duration %q: %w", cfg.RefreshPeriodRaw, err)
			}
			cfg.RefreshPeriod = d
		}
	}

	if v, ok := os.LookupEnv("TEMPBOX_PROVIDER"); ok && v != "" {
		cfg.Provider = model.ProviderKind(v)
	}
	if v, ok := os.LookupEnv("TEMPBOX_MAILTM_BASE_URL"); ok && v != "" {
		cfg.MailTMBaseURL = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_RELAY_URL"); ok {
		cfg.RelayURL = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_RELAY_KEY"); ok {
		cfg.RelayKey = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_YOPMAIL_PROXY_URL"); ok {
		cfg.YopmailProxyURL = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_ADDRESS_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TEMPBOX_ADDRESS_TTL has invalid duration %q: %w", v, err)
		}
		cfg.AddressTTL = d
	}
	if v, ok := os.LookupEnv("TEMPBOX_REFRESH_PERIOD"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TEMPBOX_REFRESH_PERIOD has invalid duration %q: %w", v, err)
		}
		cfg.RefreshPeriod = d
	}
	if v, ok := os.LookupEnv("TEMPBOX_LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_DB_PATH"); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("TEMPBOX_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"*"}
	}

	if !cfg.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.RefreshPeriod < time.Second {
		return nil, fmt.Errorf("refresh period %s is below the 1s minimum", cfg.RefreshPeriod)
	}
	if cfg.Provider == model.ProviderRelay && !cfg.HasRelayCredentials() {
		return nil, fmt.Errorf("provider %q requires TEMPBOX_RELAY_URL and TEMPBOX_RELAY_KEY", cfg.Provider)
	}

	return cfg, nil
}
