// Runtime configuration: defaults, optional JSON file, env overrides.
package config

import (
	"encoding/json"
	"os"

	"github.com/chatrelay/server/internal/logger"
)

// Config holds the server settings.
type Config struct {
	Addr    string           `json:"addr"`
	NatsURL string           `json:"nats_url"`
	Log     logger.LogConfig `json:"log"`
}

func Default() Config {
	return Config{
		Addr:    ":8080",
		NatsURL: "", // empty means use NATS_URL env or the client default
		Log:     logger.DefaultLogConfig(),
	}
}

// Load reads configuration from the given JSON file, then applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(filePath string) (Config, error) {
	cfg := Default()

	file, err := os.Open(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else {
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return Default(), err
		}
	}

	applyEnv(&cfg)
	sanitize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.NatsURL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func sanitize(cfg *Config) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
