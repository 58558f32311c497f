package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/require"
)

// clearEnv shields a test from exporter variables leaking in from the host
// environment. t.Setenv also registers the restore.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, field := range []string{"COMPOSE_CONFIGS_GLOB", "PORT", "ADDRESS", "COMMAND_TIMEOUT"} {
		t.Setenv(EnvPrefix+field, "")
		os.Unsetenv(EnvPrefix + field)
	}
}

// missingSources points both file layers at paths that do not exist.
func missingSources(t *testing.T) Sources {
	t.Helper()
	dir := t.TempDir()
	return Sources{
		UserFile:   filepath.Join(dir, "user.yaml"),
		SystemFile: filepath.Join(dir, "system.yaml"),
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Resolve(missingSources(t), Layer{})
	require.NoError(t, err)

	require.Equal(t, []string{DefaultGlob}, cfg.ComposeConfigsGlob)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, netip.MustParseAddr(DefaultAddress), cfg.Address)
	require.Equal(t, DefaultCommandTimeout, cfg.CommandTimeout)
}

func TestUserFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	srcs := missingSources(t)
	srcs.UserFile = writeYAML(t, "port: 9000\n")

	cfg, err := Resolve(srcs, Layer{})
	require.NoError(t, err)
	require.Equal(t, uint16(9000), cfg.Port)
}

func TestExplicitCLIOverridesUserFile(t *testing.T) {
	clearEnv(t)
	srcs := missingSources(t)
	srcs.UserFile = writeYAML(t, "port: 9000\n")

	port := uint16(8000)
	cfg, err := Resolve(srcs, Layer{Port: &port})
	require.NoError(t, err)
	require.Equal(t, uint16(8000), cfg.Port)
}

func TestSystemFileOverridesUserFile(t *testing.T) {
	clearEnv(t)
	srcs := Sources{
		UserFile:   writeYAML(t, "port: 9000\naddress: 0.0.0.0\n"),
		SystemFile: writeYAML(t, "port: 9100\n"),
	}

	cfg, err := Resolve(srcs, Layer{})
	require.NoError(t, err)
	require.Equal(t, uint16(9100), cfg.Port)
	// Fields the higher layer does not set still come from the lower one.
	require.Equal(t, netip.MustParseAddr("0.0.0.0"), cfg.Address)
}

func TestEnvOverridesFiles(t *testing.T) {
	clearEnv(t)
	srcs := missingSources(t)
	srcs.UserFile = writeYAML(t, "port: 9000\n")
	t.Setenv(EnvPrefix+"PORT", "9500")

	cfg, err := Resolve(srcs, Layer{})
	require.NoError(t, err)
	require.Equal(t, uint16(9500), cfg.Port)
}

func TestFileLayerParsesAllFields(t *testing.T) {
	clearEnv(t)
	srcs := missingSources(t)
	srcs.SystemFile = writeYAML(t, `
compose_configs_glob:
  - /srv/apps/*
  - /opt/extra/docker-compose.yml
address: "::1"
command_timeout: 10s
`)

	cfg, err := Resolve(srcs, Layer{})
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/apps/*", "/opt/extra/docker-compose.yml"}, cfg.ComposeConfigsGlob)
	require.Equal(t, netip.MustParseAddr("::1"), cfg.Address)
	require.Equal(t, 10*time.Second, cfg.CommandTimeout)
	require.Equal(t, DefaultPort, cfg.Port)
}

func TestUnknownFileFieldIsFatal(t *testing.T) {
	clearEnv(t)
	srcs := missingSources(t)
	srcs.UserFile = writeYAML(t, "prot: 9000\n")

	_, err := Resolve(srcs, Layer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), srcs.UserFile)
}

func TestInvalidAddressIsFatal(t *testing.T) {
	clearEnv(t)
	addr := "not-an-ip"
	_, err := Resolve(missingSources(t), Layer{Address: &addr})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not-an-ip")
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		EnvPrefix + "COMPOSE_CONFIGS_GLOB": "/srv/a/*, /srv/b/*",
		EnvPrefix + "PORT":                 "1234",
		EnvPrefix + "ADDRESS":              "10.0.0.1",
		EnvPrefix + "COMMAND_TIMEOUT":      "5s",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	layer, err := FromEnv(lookup)
	require.NoError(t, err)
	require.Equal(t, []string{"/srv/a/*", "/srv/b/*"}, layer.ComposeConfigsGlob)
	require.Equal(t, uint16(1234), *layer.Port)
	require.Equal(t, "10.0.0.1", *layer.Address)
	require.Equal(t, model.Duration(5*time.Second), *layer.CommandTimeout)
}

func TestFromEnvBadPort(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == EnvPrefix+"PORT" {
			return "nine thousand", true
		}
		return "", false
	}
	_, err := FromEnv(lookup)
	require.Error(t, err)
}

func TestListenAddr(t *testing.T) {
	v4 := Resolved{Address: netip.MustParseAddr("127.0.0.1"), Port: 9179}
	require.Equal(t, "127.0.0.1:9179", v4.ListenAddr())

	v6 := Resolved{Address: netip.MustParseAddr("::1"), Port: 9179}
	require.Equal(t, "[::1]:9179", v6.ListenAddr())
}
