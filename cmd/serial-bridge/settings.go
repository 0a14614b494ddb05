package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

const envPrefix = "SERIAL_BRIDGE"

// runOptions is everything a bridge run needs once flags, environment,
// config file and profile have been resolved.
type runOptions struct {
	Title       string
	Config      serial.Config
	LogPath     string
	AutoRelease bool
	Verbose     bool
}

// newSettings layers the parsed flags over SERIAL_BRIDGE_* environment
// variables and an optional config file. Explicitly set flags win.
func newSettings(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return v, nil
}

func commonFlags(flags *pflag.FlagSet, baudRate int) {
	flags.StringP("virtual-port", "v", "", "virtual serial port the application opens")
	flags.IntP("baud-rate", "b", baudRate, "baud rate")
	flags.StringP("log-file", "l", "", "traffic log file (default logs/<prefix>-<timestamp>.log)")
	flags.Bool("no-auto-release", false, "do not release the ports before connecting")
	flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("profiles", "", "YAML file with additional device profiles")
	flags.Bool("verbose", false, "enable debug logging")
}

func bridgeFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	flags.StringP("real-port", "r", "", "real serial port the device is attached to")
	commonFlags(flags, 9600)
	flags.IntP("data-bits", "d", 8, "data bits (5-8)")
	flags.StringP("parity", "p", "N", "parity: N, E, O, M or S")
	flags.StringP("stop-bits", "s", "1", "stop bits: 1, 1.5 or 2")
	flags.Duration("read-timeout", 100*time.Millisecond, "read timeout on the real port")
	flags.Bool("flow-control", false, "enable RTS/CTS and DSR/DTR flow control on the real port")
	flags.String("dtr", "", "set DTR on connect: --dtr asserts, --dtr=clear clears")
	flags.Lookup("dtr").NoOptDefVal = "assert"
	flags.Bool("no-dtr", false, "clear DTR on connect")
	flags.String("rts", "", "set RTS on connect: --rts asserts, --rts=clear clears")
	flags.Lookup("rts").NoOptDefVal = "assert"
	flags.Bool("no-rts", false, "clear RTS on connect")
	flags.String("profile", "", "start from a named device profile")
	return flags
}

func mikonFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("mikon", pflag.ContinueOnError)
	flags.StringP("port", "p", "", "real serial port of the MIKON-207 (default from profile)")
	commonFlags(flags, 57600)
	return flags
}

// parseBridgeArgs resolves the generic bridge command line.
func parseBridgeArgs(args []string) (runOptions, error) {
	flags := bridgeFlags()
	if err := flags.Parse(args); err != nil {
		return runOptions{}, err
	}
	if flags.NArg() > 0 {
		return runOptions{}, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	v, err := newSettings(flags)
	if err != nil {
		return runOptions{}, err
	}

	prefix := "bridge"
	title := "Serial Bridge"
	if name := v.GetString("profile"); name != "" {
		profile, err := lookupProfile(v.GetString("profiles"), name)
		if err != nil {
			return runOptions{}, err
		}
		profileDefaults(v, profile)
		if profile.LogPrefix != "" {
			prefix = profile.LogPrefix
		}
		if profile.Description != "" {
			title = profile.Description + " Bridge"
		}
	}

	cfg := serial.DefaultConfig()
	cfg.DevicePort = v.GetString("real-port")
	cfg.AppPort = v.GetString("virtual-port")
	cfg.BaudRate = v.GetInt("baud-rate")
	cfg.DataBits = v.GetInt("data-bits")
	cfg.ReadTimeout = v.GetDuration("read-timeout")
	if cfg.Parity, err = serial.ParseParity(v.GetString("parity")); err != nil {
		return runOptions{}, err
	}
	if cfg.StopBits, err = serial.ParseStopBits(v.GetString("stop-bits")); err != nil {
		return runOptions{}, err
	}
	flow := v.GetBool("flow-control")
	cfg.RTSCTS, cfg.DSRDTR = flow, flow
	if cfg.DTR, err = lineOverride(v, "dtr"); err != nil {
		return runOptions{}, err
	}
	if cfg.RTS, err = lineOverride(v, "rts"); err != nil {
		return runOptions{}, err
	}

	return finishOptions(v, title, prefix, cfg)
}

// parseMikonArgs resolves the MIKON-207 shortcut: framing comes from the
// mikon-207 profile, only ports, baud rate and logging are adjustable.
func parseMikonArgs(args []string) (runOptions, error) {
	flags := mikonFlags()
	if err := flags.Parse(args); err != nil {
		return runOptions{}, err
	}
	if flags.NArg() > 0 {
		return runOptions{}, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	v, err := newSettings(flags)
	if err != nil {
		return runOptions{}, err
	}

	profile, err := lookupProfile(v.GetString("profiles"), "mikon-207")
	if err != nil {
		return runOptions{}, err
	}
	cfg, err := profile.Config()
	if err != nil {
		return runOptions{}, err
	}
	v.SetDefault("port", profile.DevicePort)

	cfg.DevicePort = v.GetString("port")
	cfg.AppPort = v.GetString("virtual-port")
	cfg.BaudRate = v.GetInt("baud-rate")
	return finishOptions(v, "MIKON-207 Serial Bridge", profile.LogPrefix, cfg)
}

func finishOptions(v *viper.Viper, title, prefix string, cfg serial.Config) (runOptions, error) {
	if err := cfg.Validate(); err != nil {
		return runOptions{}, err
	}
	logPath := v.GetString("log-file")
	if logPath == "" {
		logPath = defaultLogPath(prefix, time.Now())
	}
	cfg.LogPath = logPath
	return runOptions{
		Title:       title,
		Config:      cfg,
		LogPath:     logPath,
		AutoRelease: !v.GetBool("no-auto-release"),
		Verbose:     v.GetBool("verbose"),
	}, nil
}

// profileDefaults installs profile values beneath flags, environment and
// config file but above the flag defaults.
func profileDefaults(v *viper.Viper, p Profile) {
	if p.DevicePort != "" {
		v.SetDefault("real-port", p.DevicePort)
	}
	if p.BaudRate != 0 {
		v.SetDefault("baud-rate", p.BaudRate)
	}
	if p.DataBits != 0 {
		v.SetDefault("data-bits", p.DataBits)
	}
	if p.Parity != "" {
		v.SetDefault("parity", p.Parity)
	}
	if p.StopBits != "" {
		v.SetDefault("stop-bits", p.StopBits)
	}
	if p.ReadTimeout != 0 {
		v.SetDefault("read-timeout", p.ReadTimeout)
	}
	if p.FlowControl {
		v.SetDefault("flow-control", true)
	}
	if p.DTR != "" {
		v.SetDefault("dtr", p.DTR)
	}
	if p.RTS != "" {
		v.SetDefault("rts", p.RTS)
	}
}

func lineOverride(v *viper.Viper, line string) (serial.LineState, error) {
	if v.GetBool("no-" + line) {
		return serial.LineClear, nil
	}
	state, err := serial.ParseLineState(v.GetString(line))
	if err != nil {
		return serial.LineUnset, fmt.Errorf("--%s: %w", line, err)
	}
	return state, nil
}

func defaultLogPath(prefix string, now time.Time) string {
	return filepath.Join("logs", fmt.Sprintf("%s-%s.log", prefix, now.Format("20060102-150405")))
}

// isHelp reports whether a flag parse stopped because help was requested.
func isHelp(err error) bool {
	return errors.Is(err, pflag.ErrHelp)
}
