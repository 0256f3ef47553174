package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	loggercfg "github.com/axonbase/extcore/logging/logger/config"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	config *Config
	path   string
	mu     sync.Mutex
	v      = viper.New()
)

// Config is the root configuration for the extension management service.
type Config struct {
	AppName string `json:"app_name" yaml:"app_name"`
	RunMode string `json:"run_mode" yaml:"run_mode"`

	Logger    *loggercfg.Config `json:"logger" yaml:"logger"`
	Store     *Store            `json:"store" yaml:"store"`
	Metrics   *Metrics          `json:"metrics" yaml:"metrics"`
	Events    *Events           `json:"events" yaml:"events"`
	Extension *Extension        `json:"extension" yaml:"extension"`

	Viper *viper.Viper `json:"-" yaml:"-"`
}

// LoadConfig loads the configuration from the given file, or from the
// standard search paths when the path is empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath("/etc/extcore")
		v.AddConfigPath("$HOME/.extcore")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(ex))
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		AppName:   v.GetString("app_name"),
		RunMode:   v.GetString("run_mode"),
		Logger:    loggercfg.GetConfig(v),
		Store:     getStoreConfig(v),
		Metrics:   getMetricsConfig(v),
		Events:    getEventsConfig(v),
		Extension: getExtensionConfig(v),
		Viper:     v,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	config = cfg
	path = configPath
	mu.Unlock()
	return cfg, nil
}

// Validate checks structural constraints across the whole configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Store != nil {
		if err := c.Store.Validate(); err != nil {
			return err
		}
	}
	if c.Extension != nil {
		if err := c.Extension.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.Lock()
	defer mu.Unlock()

	newConfig, err := LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	config = newConfig
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if err := Reload(); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}
		callback(config)
	})
}
