//go:build !linux

package serial

import (
	"time"

	bugst "go.bug.st/serial"
)

// handle on non-Linux platforms has no input-queue query, so available
// performs a read bounded by the port's read timeout and keeps the result
// pending until read collects it.
type handle struct {
	port    bugst.Port
	buf     []byte
	pending []byte
}

var parities = map[Parity]bugst.Parity{
	ParityNone:  bugst.NoParity,
	ParityEven:  bugst.EvenParity,
	ParityOdd:   bugst.OddParity,
	ParityMark:  bugst.MarkParity,
	ParitySpace: bugst.SpaceParity,
}

var stopBits = map[StopBits]bugst.StopBits{
	Stop1:     bugst.OneStopBit,
	Stop1Half: bugst.OnePointFiveStopBits,
	Stop2:     bugst.TwoStopBits,
}

func openHandle(cfg PortConfig) (*handle, []string, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   parities[cfg.Parity],
		StopBits: stopBits[cfg.StopBits],
	}
	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, nil, err
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, nil, err
	}

	var unsupported []string
	if cfg.RTSCTS {
		unsupported = append(unsupported, "rts/cts flow control")
	}
	if cfg.DSRDTR {
		unsupported = append(unsupported, "dsr/dtr flow control")
	}
	return &handle{port: port, buf: make([]byte, 4096)}, unsupported, nil
}

func (h *handle) available() (int, error) {
	if len(h.pending) > 0 {
		return len(h.pending), nil
	}
	n, err := h.port.Read(h.buf)
	if err != nil {
		return 0, err
	}
	h.pending = append(h.pending, h.buf[:n]...)
	return len(h.pending), nil
}

func (h *handle) read(n int, _ time.Duration) ([]byte, error) {
	if n > len(h.pending) {
		n = len(h.pending)
	}
	chunk := make([]byte, n)
	copy(chunk, h.pending)
	h.pending = h.pending[n:]
	return chunk, nil
}

func (h *handle) write(b []byte) (int, error) {
	return h.port.Write(b)
}

func (h *handle) setModemLine(line modemLine, assert bool) error {
	if line == lineDTR {
		return h.port.SetDTR(assert)
	}
	return h.port.SetRTS(assert)
}

func (h *handle) close() error {
	return h.port.Close()
}
