package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":2501", cfg.HTTPAddr)
	assert.True(t, cfg.Datasource.HopOn)
	assert.Equal(t, 5.0, cfg.Datasource.HopRate)
}

func TestLoad_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kismet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("httpd_port: \":9999\"\ndatasource:\n  hop_rate: 10\n"), 0644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 10.0, cfg.Datasource.HopRate)
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("KISMET_HTTPD_PORT", ":7000")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
}

func TestLoad_OverrideFlag(t *testing.T) {
	cfg, err := Load([]string{"--override", "httpd_port=:6000"})
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.HTTPAddr)
}

func TestLoad_DebugFlag(t *testing.T) {
	cfg, err := Load([]string{"--debug"})
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
}

func TestLoad_KeysAndGPSOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kismet.yaml")
	contents := "gps:\n  enabled: true\n  latitude: 40.1\n  longitude: -105.2\n  altitude: 1600\n" +
		"keys:\n  - bssid: \"aa:bb:cc:dd:ee:ff\"\n    wep_key_hex: \"1122334455\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.True(t, cfg.GPS.Enabled)
	assert.Equal(t, 40.1, cfg.GPS.Latitude)
	require.Len(t, cfg.Keys, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", cfg.Keys[0].BSSID)
	assert.Equal(t, "1122334455", cfg.Keys[0].WEPKeyHex)
}
