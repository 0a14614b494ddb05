package main

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

//go:embed profiles.yaml
var builtinProfiles []byte

// Profile is a preset of framing and line settings for a specific device.
type Profile struct {
	Name        string        `yaml:"-"`
	Description string        `yaml:"description"`
	DevicePort  string        `yaml:"device_port"`
	BaudRate    int           `yaml:"baud_rate"`
	DataBits    int           `yaml:"data_bits"`
	Parity      string        `yaml:"parity"`
	StopBits    string        `yaml:"stop_bits"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	FlowControl bool          `yaml:"flow_control"`
	DTR         string        `yaml:"dtr"`
	RTS         string        `yaml:"rts"`
	LogPrefix   string        `yaml:"log_prefix"`
}

type profileCatalogue struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// loadProfiles returns the built-in profiles, overlaid with those in path
// when path is not empty.
func loadProfiles(path string) (map[string]Profile, error) {
	profiles, err := decodeProfiles(builtinProfiles)
	if err != nil {
		return nil, fmt.Errorf("built-in profiles: %w", err)
	}
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles: %w", err)
	}
	extra, err := decodeProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profiles %s: %w", path, err)
	}
	for name, profile := range extra {
		profiles[name] = profile
	}
	return profiles, nil
}

func decodeProfiles(data []byte) (map[string]Profile, error) {
	var catalogue profileCatalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, err
	}
	profiles := make(map[string]Profile, len(catalogue.Profiles))
	for name, profile := range catalogue.Profiles {
		profile.Name = name
		profiles[name] = profile
	}
	return profiles, nil
}

func lookupProfile(path, name string) (Profile, error) {
	profiles, err := loadProfiles(path)
	if err != nil {
		return Profile{}, err
	}
	profile, ok := profiles[name]
	if !ok {
		names := make([]string, 0, len(profiles))
		for known := range profiles {
			names = append(names, known)
		}
		sort.Strings(names)
		return Profile{}, fmt.Errorf("unknown profile %q (known: %v)", name, names)
	}
	return profile, nil
}

// Config builds a bridge configuration from the profile. Ports are left for
// the caller except the profile's default real port.
func (p Profile) Config() (serial.Config, error) {
	cfg := serial.DefaultConfig()
	cfg.DevicePort = p.DevicePort
	if p.BaudRate != 0 {
		cfg.BaudRate = p.BaudRate
	}
	if p.DataBits != 0 {
		cfg.DataBits = p.DataBits
	}
	if p.ReadTimeout != 0 {
		cfg.ReadTimeout = p.ReadTimeout
	}
	if p.Parity != "" {
		parity, err := serial.ParseParity(p.Parity)
		if err != nil {
			return cfg, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		cfg.Parity = parity
	}
	if p.StopBits != "" {
		stopBits, err := serial.ParseStopBits(p.StopBits)
		if err != nil {
			return cfg, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		cfg.StopBits = stopBits
	}
	cfg.RTSCTS = p.FlowControl
	cfg.DSRDTR = p.FlowControl

	var err error
	if cfg.DTR, err = serial.ParseLineState(p.DTR); err != nil {
		return cfg, fmt.Errorf("profile %s: dtr: %w", p.Name, err)
	}
	if cfg.RTS, err = serial.ParseLineState(p.RTS); err != nil {
		return cfg, fmt.Errorf("profile %s: rts: %w", p.Name, err)
	}
	return cfg, nil
}
