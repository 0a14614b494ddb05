package serial

import (
	"sync"
	"time"
)

// Pipe is an unbounded FIFO of byte chunks between one reader goroutine and
// one writer goroutine.
type Pipe struct {
	mu     sync.Mutex
	chunks [][]byte
	ready  chan struct{}
}

// NewPipe returns an empty pipe.
func NewPipe() *Pipe {
	return &Pipe{ready: make(chan struct{}, 1)}
}

// Push appends chunk. It never blocks. Empty chunks are dropped.
func (p *Pipe) Push(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	p.mu.Lock()
	p.chunks = append(p.chunks, chunk)
	p.mu.Unlock()

	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// Pop returns the oldest chunk, waiting up to timeout for one to arrive.
// ok is false if the wait timed out.
func (p *Pipe) Pop(timeout time.Duration) (chunk []byte, ok bool) {
	if chunk, ok := p.take(); ok {
		return chunk, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-p.ready:
			if chunk, ok := p.take(); ok {
				return chunk, true
			}
		case <-timer.C:
			return p.take()
		}
	}
}

// Len returns the number of queued chunks.
func (p *Pipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.chunks)
}

func (p *Pipe) take() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chunks) == 0 {
		return nil, false
	}
	chunk := p.chunks[0]
	p.chunks[0] = nil
	p.chunks = p.chunks[1:]
	if len(p.chunks) > 0 {
		// Leave a wakeup behind for the next Pop.
		select {
		case p.ready <- struct{}{}:
		default:
		}
	}
	return chunk, true
}
