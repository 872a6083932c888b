package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine_bin: /usr/local/bin/wallet-engine
data_dir: /var/lib/wallet
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/wallet-engine", conf.EngineBin)
	assert.Equal(t, filepath.Join("/var/lib/wallet", "transactions.db"), conf.DBPath)
	assert.Equal(t, filepath.Join("/var/lib/wallet", "wal", "balance"), conf.JournalDir)
	assert.Equal(t, 5*time.Second, conf.FastInterval)
	assert.Equal(t, 60*time.Second, conf.SlowInterval)
	assert.Equal(t, 10*time.Second, conf.CommandTimeout)
	assert.Equal(t, 5*time.Minute, conf.SyncTimeout)
	assert.Equal(t, 15*time.Second, conf.HeightTTL)
	assert.Equal(t, 30*time.Second, conf.StallThreshold)
}

func TestLoadHonorsOverrides(t *testing.T) {
	path := writeConfig(t, `
engine_bin: /opt/engine
data_dir: /tmp/wallet
fast_interval: 3s
slow_interval: 90s
command_timeout: 20s
stall_threshold: 45s
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, conf.FastInterval)
	assert.Equal(t, 90*time.Second, conf.SlowInterval)
	assert.Equal(t, 20*time.Second, conf.CommandTimeout)
	assert.Equal(t, 45*time.Second, conf.StallThreshold)
}

func TestLoadRequiresEngineBin(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/wallet
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedIntervals(t *testing.T) {
	path := writeConfig(t, `
engine_bin: /opt/engine
fast_interval: 2m
slow_interval: 1m
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
