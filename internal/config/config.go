package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	UpstreamBaseURL    string
	UpstreamToken      string
	ListenLogLevel     string
	LocalHost          string
	LocalPort          int
	APIToken           string
	DBPath             string
	SnapshotIntervalMS int
	PollIntervalMS     int
	RetentionDays      int
	MaxItemsPerPane    int
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	base := os.Getenv("VDE_MONITOR_UPSTREAM_BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8787"
	}
	token := os.Getenv("VDE_MONITOR_UPSTREAM_TOKEN")

	level := os.Getenv("VDE_MONITOR_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	localHost := os.Getenv("VDE_MONITOR_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	localPort := atoiOrDefault(os.Getenv("VDE_MONITOR_LOCAL_PORT"), 4632)

	apiToken := os.Getenv("VDE_MONITOR_API_TOKEN")

	dbPath := os.Getenv("VDE_MONITOR_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	snapshotIntervalMS := atoiOrDefault(os.Getenv("VDE_MONITOR_SNAPSHOT_INTERVAL_MS"), 30_000)
	pollIntervalMS := atoiOrDefault(os.Getenv("VDE_MONITOR_POLL_INTERVAL_MS"), 1000)
	retentionDays := atoiOrDefault(os.Getenv("VDE_MONITOR_RETENTION_DAYS"), 7)
	maxItemsPerPane := atoiOrDefault(os.Getenv("VDE_MONITOR_MAX_ITEMS_PER_PANE"), 1000)

	return Config{
		UpstreamBaseURL:    base,
		UpstreamToken:      token,
		ListenLogLevel:     level,
		LocalHost:          localHost,
		LocalPort:          localPort,
		APIToken:           apiToken,
		DBPath:             dbPath,
		SnapshotIntervalMS: snapshotIntervalMS,
		PollIntervalMS:     pollIntervalMS,
		RetentionDays:      retentionDays,
		MaxItemsPerPane:    maxItemsPerPane,
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Clean("vde-monitor.db")
	}
	return filepath.Join(home, ".local", "share", "vde-monitor", "timeline.db")
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
