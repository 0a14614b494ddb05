//go:build linux

package serial

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

type handle struct {
	fd int
}

var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

var dataBits = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

func openHandle(cfg PortConfig) (*handle, []string, error) {
	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}
	h := &handle{fd: fd}

	if err := h.configure(cfg); err != nil {
		unix.Close(fd)
		return nil, nil, err
	}

	// Non-blocking was only needed so open would not wait for carrier.
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, nil, err
	}

	var unsupported []string
	if cfg.DSRDTR {
		// The Linux tty layer has no DSR/DTR handshake.
		unsupported = append(unsupported, "dsr/dtr flow control")
	}
	return h, unsupported, nil
}

func (h *handle) configure(cfg PortConfig) error {
	termios, err := unix.IoctlGetTermios(h.fd, unix.TCGETS)
	if err != nil {
		return err
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL |
		unix.IXON | unix.IXOFF | unix.IXANY | unix.INPCK
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CMSPAR | unix.CSTOPB | unix.CRTSCTS
	termios.Cflag |= unix.CREAD | unix.CLOCAL | dataBits[cfg.DataBits]

	switch cfg.Parity {
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.CMSPAR | unix.PARODD
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}
	// INPCK stays off: with it the line discipline turns bytes with a
	// parity error into NUL, and the relay must pass bytes unchanged.

	// There is no 1.5 setting; CSTOPB gives 1.5 stop bits with 5 data bits.
	if cfg.StopBits == Stop2 || cfg.StopBits == Stop1Half {
		termios.Cflag |= unix.CSTOPB
	}

	if cfg.RTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	termios.Cflag &^= unix.CBAUD
	if speed, ok := baudRates[cfg.BaudRate]; ok {
		termios.Cflag |= speed
		return unix.IoctlSetTermios(h.fd, unix.TCSETS, termios)
	}

	// Non-standard rate.
	termios.Cflag |= unix.BOTHER
	termios.Ispeed = uint32(cfg.BaudRate)
	termios.Ospeed = uint32(cfg.BaudRate)
	return unix.IoctlSetTermios(h.fd, unix.TCSETS2, termios)
}

func (h *handle) available() (int, error) {
	return unix.IoctlGetInt(h.fd, unix.TIOCINQ)
}

// read waits at most timeout for input, then reads up to n bytes.
func (h *handle) read(n int, timeout time.Duration) ([]byte, error) {
	pfd := []unix.PollFd{{Fd: int32(h.fd), Events: unix.POLLIN}}
	for {
		ready, err := unix.Poll(pfd, int(timeout.Milliseconds()))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ready == 0 {
			return nil, nil
		}
		break
	}
	if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 && pfd[0].Revents&unix.POLLIN == 0 {
		return nil, unix.EIO
	}

	buf := make([]byte, n)
	for {
		got, err := unix.Read(h.fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return buf[:got], nil
	}
}

func (h *handle) write(b []byte) (int, error) {
	for {
		n, err := unix.Write(h.fd, b)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

func (h *handle) setModemLine(line modemLine, assert bool) error {
	bit := unix.TIOCM_DTR
	if line == lineRTS {
		bit = unix.TIOCM_RTS
	}
	request := uint(unix.TIOCMBIS)
	if !assert {
		request = unix.TIOCMBIC
	}
	return unix.IoctlSetPointerInt(h.fd, request, bit)
}

func (h *handle) close() error {
	return unix.Close(h.fd)
}
