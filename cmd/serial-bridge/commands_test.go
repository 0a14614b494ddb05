package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

func TestRun_Dispatch(t *testing.T) {
	require.NoError(t, run([]string{"version"}))
	require.ErrorContains(t, run(nil), "command required")
	require.ErrorContains(t, run([]string{"frobnicate"}), "unknown command")
	require.ErrorContains(t, run([]string{"release"}), "usage")
	require.ErrorContains(t, run([]string{"list-ports", "extra"}), "no arguments")
}

func TestPrintBanner(t *testing.T) {
	opts, err := parseMikonArgs([]string{"-v", "/dev/pts/9", "-l", "logs/test.log"})
	require.NoError(t, err)

	var out bytes.Buffer
	printBanner(&out, opts)
	banner := out.String()
	require.Contains(t, banner, "MIKON-207 Serial Bridge")
	require.Contains(t, banner, "COM11")
	require.Contains(t, banner, "/dev/pts/9")
	require.Contains(t, banner, "57600")
	require.Contains(t, banner, "Mark parity")
	require.Contains(t, banner, "assert")
	require.Contains(t, banner, "logs/test.log")
}

func TestPrintBanner_OmitsUnsetLines(t *testing.T) {
	opts, err := parseBridgeArgs([]string{"-r", "/dev/ttyUSB0", "-v", "/dev/pts/3"})
	require.NoError(t, err)

	var out bytes.Buffer
	printBanner(&out, opts)
	require.NotContains(t, out.String(), "DTR")
	require.NotContains(t, out.String(), "RTS")
}

func TestPortTable(t *testing.T) {
	rendered := portTable([]serial.PortInfo{
		{Device: "/dev/ttyS0", Description: "n/a", HardwareID: "n/a"},
		{Device: "/dev/ttyUSB0", Description: "FT232R USB UART", HardwareID: "USB VID:PID=0403:6001 SER=A50285BI"},
	}).String()

	for _, want := range []string{"Index", "Port", "Description", "Hardware ID", "/dev/ttyUSB0", "FT232R USB UART", "0403:6001"} {
		require.Contains(t, rendered, want)
	}
}

func TestRunBridge_ConnectFailureIsNotReportedAsRunning(t *testing.T) {
	opts, err := parseBridgeArgs([]string{
		"-r", "/dev/serial-bridge-missing-real",
		"-v", "/dev/serial-bridge-missing-virtual",
		"-l", filepath.Join(t.TempDir(), "bridge.log"),
		"--no-auto-release",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	err = runBridge(&out, opts)
	require.ErrorIs(t, err, serial.ErrConnection)
	require.Contains(t, out.String(), "/dev/serial-bridge-missing-real")
	require.NotContains(t, out.String(), "Bridge running")
}
