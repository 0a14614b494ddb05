package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

func TestBuiltinMikonProfile(t *testing.T) {
	profile, err := lookupProfile("", "mikon-207")
	require.NoError(t, err)
	require.Equal(t, "mikon-207", profile.Name)
	require.Equal(t, "mikon", profile.LogPrefix)

	cfg, err := profile.Config()
	require.NoError(t, err)
	require.Equal(t, "COM11", cfg.DevicePort)
	require.Equal(t, 57600, cfg.BaudRate)
	require.Equal(t, 8, cfg.DataBits)
	require.Equal(t, serial.ParityMark, cfg.Parity)
	require.Equal(t, serial.Stop1, cfg.StopBits)
	require.Equal(t, 10*time.Millisecond, cfg.ReadTimeout)
	require.True(t, cfg.RTSCTS)
	require.True(t, cfg.DSRDTR)
	require.Equal(t, serial.LineAssert, cfg.DTR)
	require.Equal(t, serial.LineClear, cfg.RTS)
}

func TestLoadProfiles_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  gps:
    description: NMEA receiver
    baud_rate: 4800
    stop_bits: "2"
    read_timeout: 250ms
`), 0o644))

	profiles, err := loadProfiles(path)
	require.NoError(t, err)
	require.Contains(t, profiles, "mikon-207")
	require.Contains(t, profiles, "gps")

	cfg, err := profiles["gps"].Config()
	require.NoError(t, err)
	require.Equal(t, 4800, cfg.BaudRate)
	require.Equal(t, serial.Stop2, cfg.StopBits)
	require.Equal(t, 250*time.Millisecond, cfg.ReadTimeout)
	require.Equal(t, serial.ParityNone, cfg.Parity)
	require.False(t, cfg.RTSCTS)
}

func TestLookupProfile_Unknown(t *testing.T) {
	_, err := lookupProfile("", "does-not-exist")
	require.ErrorContains(t, err, "unknown profile")
}

func TestProfileConfig_RejectsBadParity(t *testing.T) {
	_, err := Profile{Name: "broken", Parity: "Q"}.Config()
	require.ErrorIs(t, err, serial.ErrConfiguration)
}
