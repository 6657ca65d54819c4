package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "/var/run/libvirt/libvirt-sock", cfg.Connection.Socket)
	assert.Equal(t, "default", cfg.Install.DefaultPool)
	assert.Empty(t, cfg.OSDict.Path)
	assert.Equal(t, "/var/lib/guestforge/seeds", cfg.Install.SeedDir)

	timeout, err := cfg.ConnectTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel())
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[connection]
socket = /run/libvirt/virtqemud-sock
timeout = 30s

[install]
seed-dir = /scratch/seeds
default-pool = guests
poll-interval = 500ms

[osdict]
path = /etc/guestforge/osdict.yaml

[log]
level = debug
`)
	require.NoError(t, err)

	assert.Equal(t, "/run/libvirt/virtqemud-sock", cfg.Connection.Socket)
	timeout, err := cfg.ConnectTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	assert.Equal(t, "/scratch/seeds", cfg.Install.SeedDir)
	assert.Equal(t, "guests", cfg.Install.DefaultPool)
	poll, err := cfg.InstallPollInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, poll)

	assert.Equal(t, "/etc/guestforge/osdict.yaml", cfg.OSDict.Path)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"unknown section", "[hypervisor]\nname = kvm\n", "failed to parse config"},
		{"bad timeout", "[connection]\ntimeout = soon\n", "connection.timeout"},
		{"negative timeout", "[connection]\ntimeout = -1s\n", "must be positive"},
		{"bad level", "[log]\nlevel = chatty\n", "log.level"},
		{"bad poll interval", "[install]\npoll-interval = 0s\n", "install.poll-interval must be positive"},
		{"relative seed dir", "[install]\nseed-dir = seeds\n", "install.seed-dir must be an absolute path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestforge.conf")
	require.NoError(t, os.WriteFile(path, []byte("[install]\ndefault-pool = fast\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fast", cfg.Install.DefaultPool)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestforge.conf")
	require.NoError(t, os.WriteFile(path, []byte("[connection\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
