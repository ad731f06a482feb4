// Package config loads the ServerConfig the acceptor runs with from a
// YAML file, decoding it and then filling in any zero-valued field
// with its default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig carries every tunable the core consumes at startup.
type ServerConfig struct {
	ListenPort int    `yaml:"listen_port"`
	CertPath   string `yaml:"cert_path"`
	KeyPath    string `yaml:"key_path"`
	CAPath     string `yaml:"ca_path"` // optional; empty disables mTLS

	HeartbeatTimeoutS int `yaml:"heartbeat_timeout_s"`
	ReadTimeoutS      int `yaml:"read_timeout_s"`
	RateMax           int `yaml:"rate_max"`
	RateWindowS       int `yaml:"rate_window_s"`
}

// Defaults applied when a field is left unset in the config file.
const (
	DefaultListenPort        = 8888
	DefaultHeartbeatTimeoutS = 30
	DefaultReadTimeoutS      = 5
	DefaultRateMax           = 5
	DefaultRateWindowS       = 1
)

// Load reads and decodes path, then fills in any zero-valued field
// with its default.
func Load(path string) (ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg ServerConfig
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *ServerConfig) {
	if cfg.ListenPort == 0 {
		cfg.ListenPort = DefaultListenPort
	}
	if cfg.HeartbeatTimeoutS == 0 {
		cfg.HeartbeatTimeoutS = DefaultHeartbeatTimeoutS
	}
	if cfg.ReadTimeoutS == 0 {
		cfg.ReadTimeoutS = DefaultReadTimeoutS
	}
	if cfg.RateMax == 0 {
		cfg.RateMax = DefaultRateMax
	}
	if cfg.RateWindowS == 0 {
		cfg.RateWindowS = DefaultRateWindowS
	}
}
