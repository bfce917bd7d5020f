package pylon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the ambient configuration surface for a Server: pool sizing,
// timeouts, and middleware toggles, loaded the way air.Air.Serve loads
// ConfigFile — JSON/TOML/YAML decoded through an intermediate
// map[string]interface{} and then into this struct via mapstructure, so
// callers can keep using whichever file format they already have.
type Config struct {
	AppName string `mapstructure:"app_name"`
	Address string `mapstructure:"address"`

	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	BlockingPoolSize int `mapstructure:"blocking_pool_size"`
	CPUPoolSize      int `mapstructure:"cpu_pool_size"`
	TaskQueueSize    int `mapstructure:"task_queue_size"`

	PageWorkerCount  int           `mapstructure:"page_worker_count"`
	PageQueueSize    int           `mapstructure:"page_queue_size"`
	PageIdleTimeout  time.Duration `mapstructure:"page_idle_timeout"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	LoggerEnabled bool `mapstructure:"logger_enabled"`
}

// DefaultConfig returns a Config with conservative defaults, mirroring the
// shape (if not the exact values) of air.Air's zero-value field defaults.
func DefaultConfig() Config {
	return Config{
		AppName:          "pylon",
		Address:          ":8080",
		MaxBodyBytes:     10 << 20,
		BlockingPoolSize: 32,
		CPUPoolSize:      0,
		TaskQueueSize:     64,
		PageWorkerCount:  1,
		PageQueueSize:    256,
		PageIdleTimeout:  10 * time.Minute,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		LoggerEnabled:    true,
	}
}

// LoadConfigFile reads path (json/toml/yaml/yml by extension) into an
// intermediate map and decodes it onto cfg via mapstructure, exactly as
// air.Air.Serve's ConfigFile handling does.
func LoadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m := map[string]interface{}{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &m); err != nil {
			return err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return err
		}
	default:
		return fmt.Errorf("pylon: unsupported config file extension %q", ext)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(m)
}
