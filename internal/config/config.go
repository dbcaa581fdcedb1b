// Package config loads the YAML server configuration file, grounded in
// original_source's config.rs ServerConfig.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds every setting the server and its engine need at
// startup. Fields map directly onto YAML keys.
type ServerConfig struct {
	DataDir        string   `yaml:"data_dir"`
	WALDir         string   `yaml:"wal_dir"`
	LogFileMaxSize int64    `yaml:"log_file_max_size"`
	Addr           string   `yaml:"addr"`
	PeerAddrs      []string `yaml:"peer_addrs"`
}

// Default values applied to any field left unset in the YAML file.
const (
	DefaultDataDir        = "./data"
	DefaultWALDir         = "./data/wal"
	DefaultLogFileMaxSize = 4 * 1024 * 1024
	DefaultAddr           = "127.0.0.1:4000"
)

// Load reads and parses a YAML config file at path, filling in
// defaults for anything left unset.
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &ServerConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.WALDir == "" {
		c.WALDir = DefaultWALDir
	}
	if c.LogFileMaxSize == 0 {
		c.LogFileMaxSize = DefaultLogFileMaxSize
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
}
