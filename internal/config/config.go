// Package config loads the service configuration from a TOML file.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds everything the server needs at startup.
type Config struct {
	ListenAddr   string   `toml:"listen_addr"`
	DBPath       string   `toml:"db_path"`
	FeeBps       uint64   `toml:"fee_bps"`
	SlotDur      duration `toml:"slot_duration"`
	BeaconSecret string   `toml:"beacon_secret"`
	DevMode      bool     `toml:"dev_mode"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "raffle.db",
		FeeBps:     500,
		SlotDur:    duration{2 * time.Second},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SlotDuration returns the configured slot length.
func (c Config) SlotDuration() time.Duration {
	return c.SlotDur.Duration
}
