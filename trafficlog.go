package serial

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Direction tags which way a chunk crossed the bridge.
type Direction int

const (
	// ToDevice is traffic read from the virtual port and sent to the device.
	ToDevice Direction = iota
	// ToApplication is traffic read from the device and sent to the application.
	ToApplication
)

// Tag is the record prefix written to the traffic log.
func (d Direction) Tag() string {
	if d == ToDevice {
		return "request:"
	}
	return "response:"
}

// String returns the direction as a log attribute value.
func (d Direction) String() string {
	if d == ToDevice {
		return "to_device"
	}
	return "to_application"
}

// Recorder receives every chunk the bridge relays.
type Recorder interface {
	Record(dir Direction, chunk []byte) error
}

// TrafficLog appends direction-tagged chunks to a file. Each record is the
// direction tag immediately followed by the raw chunk. The file is never
// truncated. Record is safe for concurrent use.
type TrafficLog struct {
	path string

	mu     sync.Mutex
	file   *os.File
	closed bool
}

// OpenTrafficLog creates path and its directory if needed and opens it for
// appending.
func OpenTrafficLog(path string) (*TrafficLog, error) {
	log := &TrafficLog{path: path}
	if err := log.open(); err != nil {
		return nil, err
	}
	return log, nil
}

// Path returns the file the log appends to.
func (l *TrafficLog) Path() string {
	return l.path
}

// Record writes one record in a single write call. After a failed write the
// file is reopened on the next call.
func (l *TrafficLog) Record(dir Direction, chunk []byte) error {
	record := make([]byte, 0, len(dir.Tag())+len(chunk))
	record = append(record, dir.Tag()...)
	record = append(record, chunk...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("%w: %s: log closed", ErrLogging, l.path)
	}
	if l.file == nil {
		if err := l.open(); err != nil {
			return err
		}
	}
	if _, err := l.file.Write(record); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("%w: %s: %w", ErrLogging, l.path, err)
	}
	return nil
}

// Close closes the file. Later calls to Record fail with ErrLogging instead
// of reopening it.
func (l *TrafficLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// open must be called with mu held or before the log is shared.
func (l *TrafficLog) open() error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create directory %s: %w", ErrLogging, dir, err)
		}
	}
	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogging, err)
	}
	l.file = file
	return nil
}
