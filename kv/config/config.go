package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	StoreAddr string `toml:"store-addr"`
	LogLevel  string `toml:"log-level"`

	// Directory to store the data in. Should exist and be writable.
	DBPath string `toml:"db-path"`

	Engine Engine `toml:"engine"`
	Retry  Retry  `toml:"retry"`

	// Buffered events per subscriber channel before the hub starts
	// dropping for that subscriber.
	EventBuffer int `toml:"event-buffer"`
}

// Engine holds badger tuning knobs for the standalone storage.
type Engine struct {
	ValueThreshold   int   `toml:"value-threshold"`
	MaxTableSize     int64 `toml:"max-table-size"`
	NumMemTables     int   `toml:"num-mem-tables"`
	NumL0Tables      int   `toml:"num-L0-tables"`
	NumL0TablesStall int   `toml:"num-L0-tables-stall"`
	NumCompactors    int   `toml:"num-compactors"`
	VlogFileSize     int64 `toml:"vlog-file-size"`
	SyncWrites       bool  `toml:"sync-write"`
}

// Retry configures the optimistic commit loop. MaxRetries 0 retries
// forever. Backoff values are in milliseconds.
type Retry struct {
	MaxRetries    int   `toml:"max-retries"`
	BaseBackoffMs int64 `toml:"base-backoff-ms"`
	MaxBackoffMs  int64 `toml:"max-backoff-ms"`
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db-path must not be empty")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	if c.Retry.BaseBackoffMs > c.Retry.MaxBackoffMs && c.Retry.MaxBackoffMs != 0 {
		return fmt.Errorf("base-backoff-ms must not exceed max-backoff-ms")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event-buffer must be positive")
	}
	return nil
}

const (
	KB uint64 = 1024
	MB uint64 = 1024 * 1024
)

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		StoreAddr:   "127.0.0.1:20165",
		LogLevel:    getLogLevel(),
		DBPath:      "/tmp/feedkv",
		Engine:      defaultEngine(),
		Retry:       Retry{MaxRetries: 0, BaseBackoffMs: 2, MaxBackoffMs: 500},
		EventBuffer: 128,
	}
}

func NewTestConfig() *Config {
	return &Config{
		LogLevel:    getLogLevel(),
		DBPath:      "/tmp/feedkv_test",
		Engine:      defaultEngine(),
		Retry:       Retry{MaxRetries: 64, BaseBackoffMs: 1, MaxBackoffMs: 20},
		EventBuffer: 16,
	}
}

func defaultEngine() Engine {
	return Engine{
		ValueThreshold:   256,
		MaxTableSize:     8 * int64(MB),
		NumMemTables:     3,
		NumL0Tables:      4,
		NumL0TablesStall: 8,
		NumCompactors:    1,
		VlogFileSize:     64 * int64(MB),
		SyncWrites:       true,
	}
}

// Load reads a TOML config file over the defaults.
func Load(path string) (*Config, error) {
	conf := NewDefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, conf); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
