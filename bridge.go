package serial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is the view the bridge has of an open port. *Port implements it.
type Conn interface {
	Name() string
	BytesAvailable() (int, error)
	ReadAvailable() ([]byte, error)
	Write(b []byte) error
	Close() error
}

// Opener opens one side of a bridge.
type Opener func(PortConfig) (Conn, error)

// OpenConn is the default Opener.
func OpenConn(cfg PortConfig) (Conn, error) {
	port, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// State is the lifecycle state of a Bridge.
type State int

const (
	// StateIdle: no ports open. A failed Connect returns here.
	StateIdle State = iota
	// StateConnecting: Connect is opening the ports.
	StateConnecting
	// StateConnected: both ports open, workers not started.
	StateConnected
	// StateRunning: the four workers are relaying.
	StateRunning
	// StateStopping: Stop is waiting for the workers.
	StateStopping
	// StateStopped: ports closed. Terminal.
	StateStopped
)

// String returns the lowercase state name used in log records.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Worker timing used unless overridden with the matching Option.
const (
	DefaultPollInterval = 2 * time.Millisecond
	DefaultPopTimeout   = 100 * time.Millisecond
	DefaultJoinTimeout  = 2 * time.Second
)

// Option adjusts a Bridge at construction.
type Option func(*Bridge)

// WithOpener replaces how ports are opened, e.g. with test doubles.
func WithOpener(open Opener) Option {
	return func(b *Bridge) { b.open = open }
}

// WithPollInterval sets how long a reader sleeps when no input is queued.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) { b.pollInterval = d }
}

// WithPopTimeout sets how long a writer waits for a chunk before rechecking
// whether the bridge is still running.
func WithPopTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.popTimeout = d }
}

// WithJoinTimeout bounds how long Stop waits for the workers.
func WithJoinTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.joinTimeout = d }
}

// DirectionStats counts traffic in one direction.
type DirectionStats struct {
	Chunks  uint64
	Bytes   uint64
	Dropped uint64
}

// Stats is a snapshot of bridge counters.
type Stats struct {
	ToDevice      DirectionStats
	ToApplication DirectionStats
	IOErrors      uint64
	LogFailures   uint64
}

type directionCounters struct {
	chunks  atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64
}

func (c *directionCounters) snapshot() DirectionStats {
	return DirectionStats{
		Chunks:  c.chunks.Load(),
		Bytes:   c.bytes.Load(),
		Dropped: c.dropped.Load(),
	}
}

// Bridge relays bytes between a real port and a virtual port. Four workers
// run while the bridge is started: a reader and a writer for each port,
// joined by two pipes. Every chunk read is handed to the Recorder.
type Bridge struct {
	config   Config
	recorder Recorder
	logger   *slog.Logger
	open     Opener

	pollInterval time.Duration
	popTimeout   time.Duration
	joinTimeout  time.Duration

	mu       sync.Mutex
	state    State
	device   Conn
	app      Conn
	toApp    *Pipe
	toDevice *Pipe
	running  atomic.Bool
	workers  sync.WaitGroup
	done     chan struct{}

	toDeviceStats directionCounters
	toAppStats    directionCounters
	ioErrors      atomic.Uint64
	logFailures   atomic.Uint64
}

// NewBridge validates cfg and returns an idle bridge. recorder may be nil to
// disable traffic logging; logger may be nil to use slog.Default().
func NewBridge(cfg Config, recorder Recorder, logger *slog.Logger, options ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = discardRecorder{}
	}
	b := &Bridge{
		config:       cfg,
		recorder:     recorder,
		logger:       logger,
		open:         OpenConn,
		pollInterval: DefaultPollInterval,
		popTimeout:   DefaultPopTimeout,
		joinTimeout:  DefaultJoinTimeout,
		toApp:        NewPipe(),
		toDevice:     NewPipe(),
	}
	for _, option := range options {
		option(b)
	}
	return b, nil
}

// Config returns the configuration the bridge was built with.
func (b *Bridge) Config() Config {
	return b.config
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a snapshot of the relay counters. Safe to call at any time.
func (b *Bridge) Stats() Stats {
	return Stats{
		ToDevice:      b.toDeviceStats.snapshot(),
		ToApplication: b.toAppStats.snapshot(),
		IOErrors:      b.ioErrors.Load(),
		LogFailures:   b.logFailures.Load(),
	}
}

// Connect opens the real port, then the virtual port. If either fails,
// whatever was opened is closed again and the bridge returns to idle.
// Connect does not retry.
func (b *Bridge) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateIdle {
		return fmt.Errorf("%w: connect while %s", ErrInvalidState, b.state)
	}
	b.state = StateConnecting

	device, err := b.open(b.config.DevicePortConfig())
	if err != nil {
		b.state = StateIdle
		return fmt.Errorf("real port %s: %w", b.config.DevicePort, connectionError(err))
	}
	app, err := b.open(b.config.AppPortConfig())
	if err != nil {
		if closeErr := device.Close(); closeErr != nil {
			b.logger.Warn("closing real port after failed connect", "port", b.config.DevicePort, "error", closeErr)
		}
		b.state = StateIdle
		return fmt.Errorf("virtual port %s: %w", b.config.AppPort, connectionError(err))
	}

	if port, ok := device.(interface{ Unsupported() []string }); ok {
		for _, feature := range port.Unsupported() {
			b.logger.Warn("requested feature not supported on this platform",
				"port", b.config.DevicePort,
				"feature", feature,
			)
		}
	}

	b.device, b.app = device, app
	b.state = StateConnected
	b.logger.Info("bridge connected",
		"device_port", b.config.DevicePort,
		"app_port", b.config.AppPort,
		"baud_rate", b.config.BaudRate,
		"data_bits", b.config.DataBits,
		"parity", b.config.Parity.String(),
		"stop_bits", b.config.StopBits.String(),
		"rtscts", b.config.RTSCTS,
		"dsrdtr", b.config.DSRDTR,
		"dtr", b.config.DTR.String(),
		"rts", b.config.RTS.String(),
	)
	return nil
}

func connectionError(err error) error {
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// Start launches the four relay workers. Connect must have succeeded.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateConnected {
		return fmt.Errorf("%w: start while %s", ErrNotConnected, b.state)
	}

	b.running.Store(true)
	b.done = make(chan struct{})

	b.workers.Add(4)
	go b.worker(func() { b.readLoop("device_reader", b.device, b.toApp, ToApplication) })
	go b.worker(func() { b.readLoop("app_reader", b.app, b.toDevice, ToDevice) })
	go b.worker(func() { b.writeLoop("device_writer", b.toDevice, b.device, &b.toDeviceStats) })
	go b.worker(func() { b.writeLoop("app_writer", b.toApp, b.app, &b.toAppStats) })

	done := b.done
	go func() {
		b.workers.Wait()
		close(done)
	}()

	b.state = StateRunning
	b.logger.Info("bridge started",
		"device_port", b.config.DevicePort,
		"app_port", b.config.AppPort,
	)
	return nil
}

// Stop signals the workers, waits for them up to the join timeout, then
// closes both ports whether or not every worker exited. Stopping a stopped
// bridge is a no-op.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateStopped:
		return nil
	case StateIdle:
		b.state = StateStopped
		return nil
	case StateRunning:
		b.state = StateStopping
		b.running.Store(false)

		timer := time.NewTimer(b.joinTimeout)
		select {
		case <-b.done:
		case <-timer.C:
			b.logger.Warn("relay workers did not exit before timeout; closing ports anyway",
				"timeout", b.joinTimeout,
			)
		}
		timer.Stop()
	}

	err := b.closePorts()
	b.state = StateStopped

	stats := b.Stats()
	b.logger.Info("bridge stopped",
		"to_device_bytes", stats.ToDevice.Bytes,
		"to_application_bytes", stats.ToApplication.Bytes,
		"io_errors", stats.IOErrors,
		"log_failures", stats.LogFailures,
	)
	return err
}

// Run connects, starts, and relays until ctx is done, then stops.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Connect(); err != nil {
		return err
	}
	if err := b.Start(); err != nil {
		b.Stop()
		return err
	}
	<-ctx.Done()
	return b.Stop()
}

func (b *Bridge) closePorts() error {
	var errs []error
	for _, conn := range []Conn{b.device, b.app} {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", conn.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) worker(loop func()) {
	defer b.workers.Done()
	loop()
}

func (b *Bridge) readLoop(name string, from Conn, to *Pipe, dir Direction) {
	logger := b.logger.With("worker", name, "port", from.Name())
	for b.running.Load() {
		n, err := from.BytesAvailable()
		if err != nil {
			b.ioError(logger, "polling port failed", err)
			time.Sleep(b.pollInterval)
			continue
		}
		if n == 0 {
			time.Sleep(b.pollInterval)
			continue
		}

		chunk, err := from.ReadAvailable()
		if err != nil {
			b.ioError(logger, "read failed", err)
			time.Sleep(b.pollInterval)
			continue
		}
		if len(chunk) == 0 {
			continue
		}

		to.Push(chunk)
		logger.Debug("chunk read", "direction", dir.String(), "bytes", len(chunk))

		if err := b.recorder.Record(dir, chunk); err != nil {
			b.logFailures.Add(1)
			logger.Warn("traffic log write failed", "direction", dir.String(), "error", err)
		}
	}
}

func (b *Bridge) writeLoop(name string, from *Pipe, to Conn, counters *directionCounters) {
	logger := b.logger.With("worker", name, "port", to.Name())
	for b.running.Load() {
		chunk, ok := from.Pop(b.popTimeout)
		if !ok {
			continue
		}
		if err := to.Write(chunk); err != nil {
			counters.dropped.Add(1)
			b.ioError(logger, "write failed; chunk dropped", err, "bytes", len(chunk))
			continue
		}
		counters.chunks.Add(1)
		counters.bytes.Add(uint64(len(chunk)))
	}
}

func (b *Bridge) ioError(logger *slog.Logger, msg string, err error, attrs ...any) {
	b.ioErrors.Add(1)
	logger.Warn(msg, append(attrs, "error", err)...)
}

type discardRecorder struct{}

func (discardRecorder) Record(Direction, []byte) error { return nil }
