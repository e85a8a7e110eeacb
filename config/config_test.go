package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[Log]
Level = "debug"

[Database]
Cache = 16

[Callback]
BufferSize = 128
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, Defaults.Log.MaxSizeMB, cfg.Log.MaxSizeMB)
	require.Equal(t, 16, cfg.Database.Cache)
	require.Equal(t, Defaults.Database.Namespace, cfg.Database.Namespace)
	require.Equal(t, 128, cfg.Callback.BufferSize)
}

func TestLoadUnknownField(t *testing.T) {
	path := writeConfig(t, "[Database]\nCaches = 1\n")
	_, err := Load(path)
	require.Error(t, err)
	if !strings.HasPrefix(err.Error(), path) {
		t.Fatalf("error should carry the file name, got %v", err)
	}
	require.Contains(t, err.Error(), "Caches")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	cfg := Defaults
	require.NoError(t, cfg.Validate())

	bad := Defaults
	bad.Log.Level = "chatty"
	require.Error(t, bad.Validate())

	bad = Defaults
	bad.Callback.BufferSize = 0
	require.Error(t, bad.Validate())

	bad = Defaults
	bad.Database.Cache = -1
	require.Error(t, bad.Validate())

	bad = Defaults
	bad.Log.File = "bridge.log"
	bad.Log.MaxSizeMB = 0
	require.Error(t, bad.Validate())

	_, err := Load(writeConfig(t, "[Log]\nLevel = \"loud\"\n"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"trace", log.LevelTrace},
		{"debug", log.LevelDebug},
		{"INFO", log.LevelInfo},
		{" warn ", log.LevelWarn},
		{"warning", log.LevelWarn},
		{"error", log.LevelError},
		{"crit", log.LevelCrit},
		{"3", log.LevelInfo},
		{"5", log.LevelTrace},
		{"0", log.LevelCrit},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%q: got %v, want %v", tt.name, got, tt.want)
		}
	}
	for _, bad := range []string{"", "chatty", "6", "-1"} {
		if _, err := ParseLevel(bad); err == nil {
			t.Fatalf("%q: expected an error", bad)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Defaults
	cfg.Log.File = "/tmp/bridge.log"

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	require.Contains(t, buf.String(), "BufferSize = 65536")

	loaded, err := Load(writeConfig(t, buf.String()))
	require.NoError(t, err)
	require.Equal(t, cfg, *loaded)
}
