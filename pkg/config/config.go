package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EffectiveConfigResult is the resolved configuration after merging the
// YAML file, environment overrides and command-line flags (flags win).
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "env" or "config"
}

// Addr returns the listen address, applying defaults.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Load parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadEnvOverrides applies MEMORYECHO_* environment variables onto cfg and
// reports whether any were present.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	if v := os.Getenv("MEMORYECHO_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("MEMORYECHO_DB_PATH"); v != "" {
		used = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("MEMORYECHO_RESPONDER_PROVIDER"); v != "" {
		used = true
		cfg.Responder.Provider = v
	}
	if v := os.Getenv("MEMORYECHO_RESPONDER_MODEL"); v != "" {
		used = true
		cfg.Responder.Model = v
	}
	if v := os.Getenv("MEMORYECHO_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEMORYECHO_API_KEYS"); v != "" {
		used = true
		cfg.Security.APIKeys = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.Security.APIKeys = append(cfg.Security.APIKeys, k)
			}
		}
	}
	return used
}

// LoadEffective resolves the final configuration: file (when present),
// then env overrides, then explicit flags.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfg := &Config{}
	source := "flags"

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	if cfgPath != "" {
		loaded, err := Load(cfgPath)
		if err == nil {
			cfg = loaded
			source = "config"
		} else if !os.IsNotExist(err) || flags.Set["config"] {
			return EffectiveConfigResult{}, err
		}
	}

	if LoadEnvOverrides(cfg) && source != "config" {
		source = "env"
	}

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := cfg.Server.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}, nil
}
