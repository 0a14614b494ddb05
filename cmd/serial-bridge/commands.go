package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func bridgeCommand(args []string) error {
	opts, err := parseBridgeArgs(args)
	if isHelp(err) {
		printFlags(os.Stdout, "serial-bridge bridge -r REAL -v VIRTUAL [flags]", bridgeFlags())
		return nil
	}
	if err != nil {
		return err
	}
	return runBridge(os.Stdout, opts)
}

func mikonCommand(args []string) error {
	opts, err := parseMikonArgs(args)
	if isHelp(err) {
		printFlags(os.Stdout, "serial-bridge mikon -v VIRTUAL [flags]", mikonFlags())
		return nil
	}
	if err != nil {
		return err
	}
	return runBridge(os.Stdout, opts)
}

// runBridge relays until SIGINT or SIGTERM.
func runBridge(out io.Writer, opts runOptions) error {
	logger := newLogger(opts.Verbose)

	if opts.AutoRelease {
		for _, device := range []string{opts.Config.DevicePort, opts.Config.AppPort} {
			releasePort(logger, device)
		}
	}

	printBanner(out, opts)

	traffic, err := serial.OpenTrafficLog(opts.LogPath)
	if err != nil {
		return err
	}
	defer traffic.Close()

	bridge, err := serial.NewBridge(opts.Config, traffic, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bridge.Connect(); err != nil {
		return err
	}
	if err := bridge.Start(); err != nil {
		bridge.Stop()
		return err
	}
	fmt.Fprintln(out, okStyle.Render("Bridge running. Press Ctrl+C to stop."))

	<-ctx.Done()
	if err := bridge.Stop(); err != nil {
		return err
	}

	stats := bridge.Stats()
	fmt.Fprintf(out, "Relayed %d bytes to the device and %d bytes to the application.\n",
		stats.ToDevice.Bytes, stats.ToApplication.Bytes)
	return nil
}

func releasePort(logger *slog.Logger, device string) {
	if err := serial.Release(device); err != nil {
		logger.Warn("could not release port", "port", device, "error", err)
		return
	}
	logger.Debug("port released", "port", device)
}

func printBanner(w io.Writer, opts runOptions) {
	cfg := opts.Config
	rows := [][2]string{
		{"Real port", cfg.DevicePort},
		{"Virtual port", cfg.AppPort},
		{"Baud rate", strconv.Itoa(cfg.BaudRate)},
		{"Framing", fmt.Sprintf("%d data bits, %s parity, %s stop", cfg.DataBits, cfg.Parity, cfg.StopBits)},
		{"Flow control", strconv.FormatBool(cfg.RTSCTS || cfg.DSRDTR)},
	}
	if cfg.DTR != serial.LineUnset {
		rows = append(rows, [2]string{"DTR", cfg.DTR.String()})
	}
	if cfg.RTS != serial.LineUnset {
		rows = append(rows, [2]string{"RTS", cfg.RTS.String()})
	}
	rows = append(rows, [2]string{"Log file", opts.LogPath})

	fmt.Fprintln(w, titleStyle.Render(opts.Title))
	for _, row := range rows {
		fmt.Fprintln(w, labelStyle.Render(row[0])+row[1])
	}
	fmt.Fprintln(w)
}

func listPortsCommand(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("list-ports takes no arguments")
	}
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println(warnStyle.Render("No serial ports found on this system."))
		return nil
	}
	fmt.Println(titleStyle.Render("Available Serial Ports"))
	fmt.Println(portTable(ports))
	return nil
}

func portTable(ports []serial.PortInfo) *table.Table {
	columnStyles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Index", "Port", "Description", "Hardware ID").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := columnStyles[col].Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style
		})
	for i, port := range ports {
		t.Row(strconv.Itoa(i+1), port.Device, port.Description, port.HardwareID)
	}
	return t
}

func releaseCommand(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: serial-bridge release PORT")
	}
	if err := serial.Release(args[0]); err != nil {
		fmt.Println(errStyle.Render("Failed to release " + args[0]))
		return err
	}
	fmt.Println(okStyle.Render("Released " + args[0]))
	return nil
}
