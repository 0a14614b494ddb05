// Package serial relays a byte stream between a real serial port, wired to
// a device, and a virtual serial port that an application opens instead of
// the device. Every chunk crossing the relay is appended to a traffic log
// tagged with its direction.
//
// Features:
//   - Raw termios I/O on Linux (golang.org/x/sys), go.bug.st/serial elsewhere
//   - Baud, data bits, parity (including mark/space), stop bits, RTS/CTS
//   - DTR/RTS line overrides applied to the real port right after opening
//   - Four independent workers; FIFO order within each direction
//   - Traffic log safe for concurrent writers; log failures never stop traffic
//   - Bounded, idempotent shutdown
//   - PTY-based tests
//
// Example usage:
//
//	cfg := serial.DefaultConfig()
//	cfg.DevicePort = "/dev/ttyUSB0"
//	cfg.AppPort = "/dev/pts/3"
//	cfg.BaudRate = 57600
//	cfg.Parity = serial.ParityMark
//
//	traffic, err := serial.OpenTrafficLog("logs/bridge.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer traffic.Close()
//
//	bridge, err := serial.NewBridge(cfg, traffic, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := bridge.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := bridge.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... relay runs in the background until
//	bridge.Stop()
//
// The traffic log format is the tag "request:" (application to device) or
// "response:" (device to application) immediately followed by the raw chunk.
package serial
