package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the wallet engine needs to run.
type Config struct {
	EngineBin      string
	DataDir        string
	DBPath         string
	JournalDir     string
	FastInterval   time.Duration
	SlowInterval   time.Duration
	MinFastGap     time.Duration
	SettleDelay    time.Duration
	CommandTimeout time.Duration
	SyncTimeout    time.Duration
	HeightTTL      time.Duration
	StallThreshold time.Duration
}

// FileConfig is the YAML-facing shape of Config; the setup wizard writes it.
// Durations are strings in time.ParseDuration form ("5s", "1m30s").
type FileConfig struct {
	EngineBin      string `yaml:"engine_bin"`
	DataDir        string `yaml:"data_dir"`
	DBPath         string `yaml:"db_path,omitempty"`
	JournalDir     string `yaml:"journal_dir,omitempty"`
	FastInterval   string `yaml:"fast_interval,omitempty"`
	SlowInterval   string `yaml:"slow_interval,omitempty"`
	MinFastGap     string `yaml:"min_fast_gap,omitempty"`
	SettleDelay    string `yaml:"settle_delay,omitempty"`
	CommandTimeout string `yaml:"command_timeout,omitempty"`
	SyncTimeout    string `yaml:"sync_timeout,omitempty"`
	HeightTTL      string `yaml:"height_ttl,omitempty"`
	StallThreshold string `yaml:"stall_threshold,omitempty"`
}

// Get loads configuration from the --config YAML file when given, otherwise
// from CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	engineBin := flag.String("engine", "", "path to the native wallet engine binary")
	dataDir := flag.String("datadir", defaultDataDir(), "wallet data directory")
	fastInterval := flag.Duration("fastinterval", 5*time.Second, "change-detection poll interval")
	slowInterval := flag.Duration("slowinterval", 60*time.Second, "full sync-and-save interval")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	conf := Config{
		EngineBin:    *engineBin,
		DataDir:      *dataDir,
		FastInterval: *fastInterval,
		SlowInterval: *slowInterval,
	}

	return finalize(conf)
}

// Load reads a YAML config from path without touching CLI flags; the setup
// wizard and tests use it.
func Load(path string) (Config, error) {
	return getYaml(path)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp FileConfig
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}

	conf := Config{
		EngineBin:  tmp.EngineBin,
		DataDir:    tmp.DataDir,
		DBPath:     tmp.DBPath,
		JournalDir: tmp.JournalDir,
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"fast_interval", tmp.FastInterval, &conf.FastInterval},
		{"slow_interval", tmp.SlowInterval, &conf.SlowInterval},
		{"min_fast_gap", tmp.MinFastGap, &conf.MinFastGap},
		{"settle_delay", tmp.SettleDelay, &conf.SettleDelay},
		{"command_timeout", tmp.CommandTimeout, &conf.CommandTimeout},
		{"sync_timeout", tmp.SyncTimeout, &conf.SyncTimeout},
		{"height_ttl", tmp.HeightTTL, &conf.HeightTTL},
		{"stall_threshold", tmp.StallThreshold, &conf.StallThreshold},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return finalize(conf)
}

func finalize(conf Config) (Config, error) {
	if conf.EngineBin == "" {
		return Config{}, fmt.Errorf("engine binary path is required ('engine_bin' in yaml or --engine)")
	}
	if conf.DataDir == "" {
		conf.DataDir = defaultDataDir()
	}
	if conf.DBPath == "" {
		conf.DBPath = filepath.Join(conf.DataDir, "transactions.db")
	}
	if conf.JournalDir == "" {
		conf.JournalDir = filepath.Join(conf.DataDir, "wal", "balance")
	}
	if conf.FastInterval <= 0 {
		conf.FastInterval = 5 * time.Second
	}
	if conf.SlowInterval <= 0 {
		conf.SlowInterval = 60 * time.Second
	}
	if conf.MinFastGap <= 0 {
		conf.MinFastGap = 2 * time.Second
	}
	if conf.SettleDelay <= 0 {
		conf.SettleDelay = 2 * time.Second
	}
	if conf.CommandTimeout <= 0 {
		conf.CommandTimeout = 10 * time.Second
	}
	if conf.SyncTimeout <= 0 {
		conf.SyncTimeout = 5 * time.Minute
	}
	if conf.HeightTTL <= 0 {
		conf.HeightTTL = 15 * time.Second
	}
	if conf.StallThreshold <= 0 {
		conf.StallThreshold = 30 * time.Second
	}

	if conf.SlowInterval <= conf.FastInterval {
		return Config{}, fmt.Errorf("slow interval (%s) must exceed fast interval (%s)",
			conf.SlowInterval, conf.FastInterval)
	}

	return conf, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./blackamber"
	}
	return filepath.Join(home, ".blackamber")
}
