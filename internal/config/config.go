package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"narrative-cli/internal/features"
)

// Config is the only persisted config file schema.
type Config struct {
	EventsFile       string          `toml:"events_file"`
	SessionDir       string          `toml:"session_dir"`
	Theme            string          `toml:"theme"`
	StalePolicy      string          `toml:"stale_policy"`
	FollowThreshold  int             `toml:"follow_threshold"`
	HistoryThreshold int             `toml:"history_threshold"`
	HistoryPageSize  int             `toml:"history_page_size"`
	Features         map[string]bool `toml:"features"`
	Source           string          `toml:"-"`
}

func Default() Config {
	return Config{
		Theme:            "dark",
		StalePolicy:      "interacted",
		FollowThreshold:  3,
		HistoryThreshold: 1,
		HistoryPageSize:  100,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".narrative", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("NARRATIVE_EVENTS")); env != "" {
		cfg.EventsFile = env
	}
	if env := strings.TrimSpace(os.Getenv("NARRATIVE_THEME")); env != "" {
		cfg.Theme = env
	}
	return cfg
}

// FeatureEnabled 优先使用配置中的显式取值，否则回落到功能默认值。
func (c Config) FeatureEnabled(key string) bool {
	if v, ok := c.Features[key]; ok {
		return v
	}
	return features.DefaultEnabled(key)
}
