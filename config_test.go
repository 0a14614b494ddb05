package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseParity(t *testing.T) {
	for input, want := range map[string]Parity{
		"N": ParityNone, "n": ParityNone, "none": ParityNone,
		"E": ParityEven, "O": ParityOdd, "M": ParityMark, "S": ParitySpace,
		"mark": ParityMark,
	} {
		got, err := ParseParity(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseParity("X")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestParseStopBits(t *testing.T) {
	for input, want := range map[string]StopBits{"1": Stop1, "1.5": Stop1Half, "2": Stop2} {
		got, err := ParseStopBits(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, input, got.String())
	}

	_, err := ParseStopBits("3")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestParseLineState(t *testing.T) {
	for input, want := range map[string]LineState{
		"": LineUnset, "assert": LineAssert, "true": LineAssert, "clear": LineClear, "false": LineClear,
	} {
		got, err := ParseLineState(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseLineState("maybe")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	valid.DevicePort = "/dev/ttyUSB0"
	valid.AppPort = "/dev/pts/4"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing real port", func(c *Config) { c.DevicePort = "" }},
		{"missing virtual port", func(c *Config) { c.AppPort = "" }},
		{"same port twice", func(c *Config) { c.AppPort = c.DevicePort }},
		{"zero baud", func(c *Config) { c.BaudRate = 0 }},
		{"four data bits", func(c *Config) { c.DataBits = 4 }},
		{"nine data bits", func(c *Config) { c.DataBits = 9 }},
		{"unknown parity", func(c *Config) { c.Parity = 'X' }},
		{"unknown stop bits", func(c *Config) { c.StopBits = 3 }},
		{"negative timeout", func(c *Config) { c.ReadTimeout = -time.Second }},
		{"unknown dtr state", func(c *Config) { c.DTR = LineState(5) }},
		{"unknown rts state", func(c *Config) { c.RTS = LineState(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}
}

func TestConfig_AppPortConfigDropsLineControl(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DevicePort = "COM11"
	cfg.AppPort = "COM12"
	cfg.BaudRate = 57600
	cfg.Parity = ParityMark
	cfg.RTSCTS = true
	cfg.DSRDTR = true
	cfg.DTR = LineAssert
	cfg.RTS = LineClear

	device := cfg.DevicePortConfig()
	require.Equal(t, "COM11", device.Device)
	require.True(t, device.RTSCTS)
	require.True(t, device.DSRDTR)
	require.Equal(t, LineAssert, device.DTR)
	require.Equal(t, LineClear, device.RTS)

	app := cfg.AppPortConfig()
	require.Equal(t, PortConfig{
		Device:      "COM12",
		BaudRate:    57600,
		DataBits:    8,
		Parity:      ParityMark,
		StopBits:    Stop1,
		ReadTimeout: 100 * time.Millisecond,
	}, app)
}
