package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BASKI"

const reloadDebounce = 100 * time.Millisecond

// Config holds the current settings and reloads them when the file changes.
type Config struct {
	v      *viper.Viper
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
	// all is the raw tree of the last accepted load
	all map[string]any
}

// Load reads path (optional: an empty or missing path means environment and
// defaults only), unmarshals and validates the result.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{v: v, logger: logger}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			c.path = path
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	s, err := c.decode()
	if err != nil {
		return nil, err
	}
	c.settings = s
	c.all = v.AllSettings()
	return c, nil
}

// Get returns the current settings.
func (c *Config) Get() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// Path returns the file the settings were read from, if any.
func (c *Config) Path() string {
	return c.path
}

// Watch reloads the file on every change until ctx ends. onChange is called
// with the previous and the new settings when a reload produced valid,
// different settings. Invalid reloads are logged and ignored.
func (c *Config) Watch(ctx context.Context, onChange func(old, new Settings)) {
	if c.path == "" {
		return
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	c.v.OnConfigChange(func(fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() { c.reload(ctx, onChange) })
	})
	c.v.WatchConfig()
}

func (c *Config) reload(ctx context.Context, onChange func(old, new Settings)) {
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	if err := c.v.ReadInConfig(); err != nil {
		c.mu.Unlock()
		c.logger.Warn("config reload failed", "path", c.path, "error", err)
		return
	}
	s, err := c.decode()
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("config reload rejected", "path", c.path, "error", err)
		return
	}
	old := c.settings
	c.settings = s
	c.all = c.v.AllSettings()
	c.mu.Unlock()

	if reflect.DeepEqual(old, s) {
		return
	}
	c.logger.Info("config reloaded", "path", c.path)
	if onChange != nil {
		onChange(old, s)
	}
}

func (c *Config) decode() (Settings, error) {
	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// AllSettings returns the merged key/value tree behind Get, for display.
// A rejected reload leaves it untouched.
func (c *Config) AllSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all
}
