package modelcache

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GiB and MiB name common byte-size units used by Config's defaults.
const (
	GiB = 1 << 30
	MiB = 1 << 20
)

// Default configuration values: roughly enough host RAM to hold a handful
// of fp16 models at once, a thin advisory VRAM budget, and a ten-minute
// device reservation wait.
const (
	DefaultMaxCacheBytes      = int64(6 * GiB)
	DefaultMaxVRAMBytes       = int64(0.25 * GiB)
	DefaultStorageDevice      = DeviceID("host")
	DefaultPrecision          = FP16
	DefaultReservationTimeout = 10 * time.Minute
)

// Config carries the recognized options of the cache: host-memory and
// device-memory budgets, the storage device identifier, reconstruction
// precision, a device reservation wait, and whether to capture the
// advisory memory-snapshot diagnostics of the residency engine.
// ReservationTimeout is carried as configuration only: Cache.ReserveDevice
// waits for the timeout its caller passes and does not read this field.
type Config struct {
	MaxCacheBytes      int64         `yaml:"max_cache_bytes"`
	MaxVRAMBytes       int64         `yaml:"max_vram_bytes"`
	StorageDevice      DeviceID      `yaml:"storage_device"`
	Precision          Precision     `yaml:"precision"`
	ReservationTimeout time.Duration `yaml:"reservation_timeout"`
	LogMemoryUsage     bool          `yaml:"log_memory_usage"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		MaxCacheBytes:      DefaultMaxCacheBytes,
		MaxVRAMBytes:       DefaultMaxVRAMBytes,
		StorageDevice:      DefaultStorageDevice,
		Precision:          DefaultPrecision,
		ReservationTimeout: DefaultReservationTimeout,
	}
}

// applyDefaults fills any zero-valued field of c with the package default.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxCacheBytes == 0 {
		c.MaxCacheBytes = d.MaxCacheBytes
	}
	if c.MaxVRAMBytes == 0 {
		c.MaxVRAMBytes = d.MaxVRAMBytes
	}
	if c.StorageDevice == "" {
		c.StorageDevice = d.StorageDevice
	}
	if c.Precision == "" {
		c.Precision = d.Precision
	}
	if c.ReservationTimeout == 0 {
		c.ReservationTimeout = d.ReservationTimeout
	}
}

// LoadConfigFile reads a YAML config file and applies defaults to any
// field it leaves unset.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
