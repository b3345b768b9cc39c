// Package config loads device paths and pool sizes through
// spf13/viper (environment variables plus an optional YAML/TOML file),
// the same pattern go-apfs's cmd/config.go and internal/disk/dmg.go use
// for locating and sizing a device.
package config

import (
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/ziqian2000/PintOS/limits"
)

// Config is the process-wide set of tunables for one simulated device.
type Config struct {
	// DeviceID identifies the simulated device, mirroring how go-apfs
	// tags output by container/volume UUID. Only `mkfs` prints it; log
	// lines and the `stats` table do not carry it. Load generates a
	// fresh one on every call unless device_id is set.
	DeviceID uuid.UUID

	FilesysImage string
	SwapImage    string

	CacheMax           int
	StackGrowthLimit   int64
	FlushIntervalMs    int
	ReadaheadEnabled   bool
}

// Load reads configuration from viper's merged sources (defaults, an
// optional config file, then PINTOS_-prefixed environment variables),
// generating a fresh DeviceID if one wasn't supplied.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("PINTOS")
	v.AutomaticEnv()

	v.SetDefault("filesys_image", "filesys.dsk")
	v.SetDefault("swap_image", "swap.dsk")
	v.SetDefault("cache_max", limits.CacheMax)
	v.SetDefault("stack_growth_limit", limits.StackGrowthLimit)
	v.SetDefault("flush_interval_ms", 1000)
	v.SetDefault("readahead_enabled", false)
	v.SetDefault("device_id", "")

	id := v.GetString("device_id")
	var deviceID uuid.UUID
	if id == "" {
		deviceID = uuid.New()
	} else {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		deviceID = parsed
	}

	return &Config{
		DeviceID:         deviceID,
		FilesysImage:     v.GetString("filesys_image"),
		SwapImage:        v.GetString("swap_image"),
		CacheMax:         v.GetInt("cache_max"),
		StackGrowthLimit: v.GetInt64("stack_growth_limit"),
		FlushIntervalMs:  v.GetInt("flush_interval_ms"),
		ReadaheadEnabled: v.GetBool("readahead_enabled"),
	}, nil
}
