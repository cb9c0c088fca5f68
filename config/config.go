package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port          int    `toml:"port"`
	DBPath        string `toml:"db_path"`
	WriteTimeout  int    `toml:"write_timeout_seconds"`
	MetricsPort   int    `toml:"metrics_port"`
	ControlSocket string `toml:"control_socket"`
}

func Default() *Config {
	return &Config{
		Port:          1234,
		DBPath:        "linechat.db",
		WriteTimeout:  30,
		MetricsPort:   9180,
		ControlSocket: "/tmp/linechat.sock",
	}
}

// Load reads the TOML config at path, falling back to defaults when the
// file does not exist, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if portStr := os.Getenv("LINECHAT_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = port
		}
	}

	if dbPath := os.Getenv("LINECHAT_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	if timeoutStr := os.Getenv("LINECHAT_WRITE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	if portStr := os.Getenv("LINECHAT_METRICS_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.MetricsPort = port
		}
	}

	if sock := os.Getenv("LINECHAT_CONTROL_SOCKET"); sock != "" {
		cfg.ControlSocket = sock
	}

	return cfg, nil
}
