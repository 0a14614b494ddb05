package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestDescribePort(t *testing.T) {
	usb := describePort(&enumerator.PortDetails{
		Name:         "/dev/ttyUSB0",
		IsUSB:        true,
		VID:          "0403",
		PID:          "6001",
		SerialNumber: "A50285BI",
		Product:      "FT232R USB UART",
	})
	require.Equal(t, PortInfo{
		Device:      "/dev/ttyUSB0",
		Description: "FT232R USB UART",
		HardwareID:  "USB VID:PID=0403:6001 SER=A50285BI",
	}, usb)

	onboard := describePort(&enumerator.PortDetails{Name: "/dev/ttyS0"})
	require.Equal(t, PortInfo{Device: "/dev/ttyS0", Description: "n/a", HardwareID: "n/a"}, onboard)
}
