// Package config loads the client configuration from YAML with
// environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/multiformats/go-multiaddr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Endpoint is the authority endpoint as a multiaddr, e.g.
	// /dns4/node.example.org/tcp/57291.
	Endpoint       string
	StorePath      string
	KeystoreDir    string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	// ResyncRateLimit caps authority calls per second. Zero disables
	// the limiter.
	ResyncRateLimit float64
}

type fileConfig struct {
	Client clientFileConfig `yaml:"client"`
}

type clientFileConfig struct {
	Endpoint        string   `yaml:"endpoint"`
	StorePath       string   `yaml:"storePath"`
	KeystoreDir     string   `yaml:"keystoreDir"`
	PollInterval    string   `yaml:"pollInterval"`
	RequestTimeout  string   `yaml:"requestTimeout"`
	ResyncRateLimit *float64 `yaml:"resyncRateLimit"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint:       "/dns4/localhost/tcp/57291",
		StorePath:      "weft-store/state.weft",
		KeystoreDir:    "weft-store/keys",
		PollInterval:   2 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// LoadFromPath reads the config file when one exists, merges it over the
// defaults and applies environment overrides. A missing or unreadable
// file falls back to defaults, matching how the daemon treats optional
// config.
func LoadFromPath(configPath string) (Config, error) {
	cfg := DefaultConfig()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"configs/weft.yaml",
			"weft.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		Merge(&cfg, parsed.Client)
		break
	}

	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src clientFileConfig) {
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.StorePath != "" {
		dst.StorePath = src.StorePath
	}
	if src.KeystoreDir != "" {
		dst.KeystoreDir = src.KeystoreDir
	}
	if src.PollInterval != "" {
		if d, err := time.ParseDuration(src.PollInterval); err == nil {
			dst.PollInterval = d
		}
	}
	if src.RequestTimeout != "" {
		if d, err := time.ParseDuration(src.RequestTimeout); err == nil {
			dst.RequestTimeout = d
		}
	}
	if src.ResyncRateLimit != nil {
		dst.ResyncRateLimit = *src.ResyncRateLimit
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("WEFT_ENDPOINT")); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("WEFT_STORE_PATH")); v != "" {
		cfg.StorePath = v
	}
	if v := strings.TrimSpace(os.Getenv("WEFT_KEYSTORE_DIR")); v != "" {
		cfg.KeystoreDir = v
	}
	if v := strings.TrimSpace(os.Getenv("WEFT_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("WEFT_RESYNC_RATE_LIMIT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ResyncRateLimit = f
		}
	}
}

func (c Config) Validate() error {
	if _, err := multiaddr.NewMultiaddr(c.Endpoint); err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
	}
	if c.StorePath == "" || c.KeystoreDir == "" {
		return fmt.Errorf("store path and keystore dir must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}
