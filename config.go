package serial

import (
	"fmt"
	"strings"
	"time"
)

// Parity is the parity mode of a serial line.
type Parity byte

const (
	ParityNone  Parity = 'N'
	ParityEven  Parity = 'E'
	ParityOdd   Parity = 'O'
	ParityMark  Parity = 'M'
	ParitySpace Parity = 'S'
)

// ParseParity accepts a parity letter (N, E, O, M, S) or its full name,
// case-insensitively.
func ParseParity(s string) (Parity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NONE":
		return ParityNone, nil
	case "E", "EVEN":
		return ParityEven, nil
	case "O", "ODD":
		return ParityOdd, nil
	case "M", "MARK":
		return ParityMark, nil
	case "S", "SPACE":
		return ParitySpace, nil
	}
	return 0, fmt.Errorf("%w: parity %q (want N, E, O, M or S)", ErrConfiguration, s)
}

func (p Parity) valid() bool {
	switch p {
	case ParityNone, ParityEven, ParityOdd, ParityMark, ParitySpace:
		return true
	}
	return false
}

// String returns the human-readable name, e.g. "Mark".
func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "None"
	case ParityEven:
		return "Even"
	case ParityOdd:
		return "Odd"
	case ParityMark:
		return "Mark"
	case ParitySpace:
		return "Space"
	}
	return fmt.Sprintf("Parity(%d)", byte(p))
}

// StopBits is the number of stop bits. Stop1Half is one and a half.
type StopBits byte

const (
	Stop1     StopBits = 1
	Stop1Half StopBits = 15
	Stop2     StopBits = 2
)

// ParseStopBits accepts "1", "1.5" or "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return Stop1, nil
	case "1.5":
		return Stop1Half, nil
	case "2":
		return Stop2, nil
	}
	return 0, fmt.Errorf("%w: stop bits %q (want 1, 1.5 or 2)", ErrConfiguration, s)
}

func (s StopBits) valid() bool {
	return s == Stop1 || s == Stop1Half || s == Stop2
}

// String returns "1", "1.5" or "2".
func (s StopBits) String() string {
	switch s {
	case Stop1:
		return "1"
	case Stop1Half:
		return "1.5"
	case Stop2:
		return "2"
	}
	return fmt.Sprintf("StopBits(%d)", byte(s))
}

// LineState is an optional override for a modem control line (DTR or RTS).
// The zero value leaves the line as the driver opened it.
type LineState int

const (
	LineUnset LineState = iota
	LineAssert
	LineClear
)

// ParseLineState accepts "", "unset", "assert"/"set"/"true"/"on"/"1" and
// "clear"/"false"/"off"/"0".
func ParseLineState(s string) (LineState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unset":
		return LineUnset, nil
	case "assert", "set", "true", "on", "1":
		return LineAssert, nil
	case "clear", "false", "off", "0":
		return LineClear, nil
	}
	return LineUnset, fmt.Errorf("%w: line state %q (want assert or clear)", ErrConfiguration, s)
}

func (l LineState) valid() bool {
	return l == LineUnset || l == LineAssert || l == LineClear
}

// String returns "unset", "assert" or "clear".
func (l LineState) String() string {
	switch l {
	case LineAssert:
		return "assert"
	case LineClear:
		return "clear"
	}
	return "unset"
}

// PortConfig holds the parameters Open uses for a single port.
type PortConfig struct {
	Device      string
	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration

	// RTSCTS and DSRDTR request hardware flow control.
	RTSCTS bool
	DSRDTR bool

	// DTR and RTS are applied immediately after the port opens.
	DTR LineState
	RTS LineState
}

// Validate rejects values outside the enumerated framing sets.
func (c PortConfig) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("%w: device is required", ErrConfiguration)
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d must be positive", ErrConfiguration, c.BaudRate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits %d (want 5-8)", ErrConfiguration, c.DataBits)
	}
	if !c.Parity.valid() {
		return fmt.Errorf("%w: parity %q", ErrConfiguration, byte(c.Parity))
	}
	if !c.StopBits.valid() {
		return fmt.Errorf("%w: stop bits %d", ErrConfiguration, byte(c.StopBits))
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("%w: read timeout %s is negative", ErrConfiguration, c.ReadTimeout)
	}
	if !c.DTR.valid() {
		return fmt.Errorf("%w: DTR line state %d", ErrConfiguration, int(c.DTR))
	}
	if !c.RTS.valid() {
		return fmt.Errorf("%w: RTS line state %d", ErrConfiguration, int(c.RTS))
	}
	return nil
}

// Config is the parameter set of one bridge between a real (device-facing)
// port and a virtual (application-facing) port. It is treated as immutable
// once handed to NewBridge.
type Config struct {
	DevicePort string
	AppPort    string
	LogPath    string

	BaudRate    int
	DataBits    int
	Parity      Parity
	StopBits    StopBits
	ReadTimeout time.Duration

	RTSCTS bool
	DSRDTR bool

	// DTR and RTS overrides only ever apply to the device port.
	DTR LineState
	RTS LineState
}

// DefaultConfig returns 9600 8N1 with a 100ms read timeout.
func DefaultConfig() Config {
	return Config{
		BaudRate:    9600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    Stop1,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks that both ports are named and distinct and that the
// device-side parameters are in range.
func (c Config) Validate() error {
	if c.AppPort == "" {
		return fmt.Errorf("%w: virtual port is required", ErrConfiguration)
	}
	if c.DevicePort == c.AppPort {
		return fmt.Errorf("%w: real and virtual port are both %s", ErrConfiguration, c.DevicePort)
	}
	if err := c.DevicePortConfig().Validate(); err != nil {
		return err
	}
	return nil
}

// DevicePortConfig is the configuration of the real port, including flow
// control and line overrides.
func (c Config) DevicePortConfig() PortConfig {
	return PortConfig{
		Device:      c.DevicePort,
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		Parity:      c.Parity,
		StopBits:    c.StopBits,
		ReadTimeout: c.ReadTimeout,
		RTSCTS:      c.RTSCTS,
		DSRDTR:      c.DSRDTR,
		DTR:         c.DTR,
		RTS:         c.RTS,
	}
}

// AppPortConfig shares the framing of the real port but never carries flow
// control or line overrides; virtual ports have no physical lines.
func (c Config) AppPortConfig() PortConfig {
	return PortConfig{
		Device:      c.AppPort,
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		Parity:      c.Parity,
		StopBits:    c.StopBits,
		ReadTimeout: c.ReadTimeout,
	}
}
