package serial

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

type modemLine int

const (
	lineDTR modemLine = iota
	lineRTS
)

func (l modemLine) String() string {
	if l == lineDTR {
		return "DTR"
	}
	return "RTS"
}

// Port is one open serial connection together with the configuration that
// produced it.
//
// BytesAvailable/ReadAvailable and Write may run on different goroutines.
// Close is idempotent but must not race an in-flight read or write.
type Port struct {
	config      PortConfig
	handle      *handle
	unsupported []string
	closeOnce   sync.Once
	closed      atomic.Bool
}

// Open opens cfg.Device with the requested framing and flow control, then
// applies any DTR/RTS override. On failure nothing is left open.
func Open(cfg PortConfig) (*Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h, unsupported, err := openHandle(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, cfg.Device, err)
	}

	for _, override := range []struct {
		line  modemLine
		state LineState
	}{
		{lineDTR, cfg.DTR},
		{lineRTS, cfg.RTS},
	} {
		if override.state == LineUnset {
			continue
		}
		if err := h.setModemLine(override.line, override.state == LineAssert); err != nil {
			h.close()
			return nil, fmt.Errorf("%w: %s %s on %s: %w", ErrConnection, override.state, override.line, cfg.Device, err)
		}
	}

	return &Port{
		config:      cfg,
		handle:      h,
		unsupported: unsupported,
	}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.config.Device
}

// Config returns the configuration the port was opened with.
func (p *Port) Config() PortConfig {
	return p.config
}

// Unsupported lists requested features this platform could not apply, such
// as DSR/DTR handshaking on Linux.
func (p *Port) Unsupported() []string {
	return p.unsupported
}

// IsOpen reports whether Close has not yet been called.
func (p *Port) IsOpen() bool {
	return !p.closed.Load()
}

// BytesAvailable returns how many bytes are buffered for reading. Zero means
// try again later.
func (p *Port) BytesAvailable() (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.handle.available()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: input queue: %w", ErrIO, p.config.Device, err)
	}
	return n, nil
}

// ReadAvailable reads the bytes currently buffered. It may return fewer than
// BytesAvailable reported, or none at all.
func (p *Port) ReadAvailable() ([]byte, error) {
	n, err := p.BytesAvailable()
	if err != nil || n == 0 {
		return nil, err
	}
	chunk, err := p.handle.read(n, p.config.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read: %w", ErrIO, p.config.Device, err)
	}
	return chunk, nil
}

// Write sends all of b, retrying partial writes.
func (p *Port) Write(b []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	for len(b) > 0 {
		n, err := p.handle.write(b)
		if err != nil {
			return fmt.Errorf("%w: %s: write: %w", ErrIO, p.config.Device, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s: write: %w", ErrIO, p.config.Device, io.ErrShortWrite)
		}
		b = b[n:]
	}
	return nil
}

// Close releases the port. Subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		err = p.handle.close()
	})
	return err
}
