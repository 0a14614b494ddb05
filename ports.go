package serial

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port present on the system.
type PortInfo struct {
	Device      string
	Description string
	HardwareID  string
}

// ListPorts returns the serial ports on this system, sorted by device name.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, detail := range details {
		ports = append(ports, describePort(detail))
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Device < ports[j].Device })
	return ports, nil
}

func describePort(detail *enumerator.PortDetails) PortInfo {
	info := PortInfo{
		Device:      detail.Name,
		Description: "n/a",
		HardwareID:  "n/a",
	}
	if detail.Product != "" {
		info.Description = detail.Product
	}
	if detail.IsUSB {
		hwid := fmt.Sprintf("USB VID:PID=%s:%s", strings.ToUpper(detail.VID), strings.ToUpper(detail.PID))
		if detail.SerialNumber != "" {
			hwid += " SER=" + detail.SerialNumber
		}
		info.HardwareID = hwid
	}
	return info
}

// Release opens device with default settings and closes it straight away,
// which clears a stale lock left by a crashed process on some platforms.
func Release(device string) error {
	cfg := DefaultConfig()
	port, err := Open(PortConfig{
		Device:      device,
		BaudRate:    cfg.BaudRate,
		DataBits:    cfg.DataBits,
		Parity:      cfg.Parity,
		StopBits:    cfg.StopBits,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return fmt.Errorf("release %s: %w", device, err)
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("release %s: %w", device, err)
	}
	return nil
}
