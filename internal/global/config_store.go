package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	configTOMLFileName = "config.toml"
)

type UpstreamConfig struct {
	BaseURL string `json:"base_url" toml:"base_url"`
	Token   string `json:"token" toml:"token"`
}

type TimelineConfig struct {
	RetentionDays   int    `json:"retention_days" toml:"retention_days"`
	MaxItemsPerPane int    `json:"max_items_per_pane" toml:"max_items_per_pane"`
	DefaultRange    string `json:"default_range" toml:"default_range"`
}

type GlobalConfig struct {
	LocalPort int            `json:"local_port" toml:"local_port"`
	Upstream  UpstreamConfig `json:"upstream" toml:"upstream"`
	Timeline  TimelineConfig `json:"timeline" toml:"timeline"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	if cfg.LocalPort <= 0 {
		cfg.LocalPort = 4632
	}
	cfg.Upstream.BaseURL = strings.TrimSpace(cfg.Upstream.BaseURL)
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "http://127.0.0.1:8787"
	}
	cfg.Upstream.Token = strings.TrimSpace(cfg.Upstream.Token)
	if cfg.Timeline.RetentionDays <= 0 {
		cfg.Timeline.RetentionDays = 7
	}
	if cfg.Timeline.MaxItemsPerPane <= 0 {
		cfg.Timeline.MaxItemsPerPane = 1000
	}
	cfg.Timeline.DefaultRange = normalizeRangeTag(cfg.Timeline.DefaultRange)
	return cfg
}

func normalizeRangeTag(tag string) string {
	switch strings.TrimSpace(tag) {
	case "15m", "1h", "3h", "6h", "24h", "3d", "7d":
		return strings.TrimSpace(tag)
	default:
		return "1h"
	}
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
