package transport

import (
	"bytes"
	"io"
	"sync"
)

// Pipe returns two connected in-memory Conns, one per end of the link.
// Writes on the host end surface as reads on the radio end and vice
// versa. Each direction is buffered the way a serial driver's kernel
// buffer is, so a write never waits on the peer's read. Used by tests
// so the framing path runs unchanged against an in-memory link instead
// of a serial handle.
func Pipe() (host, radio Conn) {
	ab := newBuffer()
	ba := newBuffer()
	return &pipeConn{r: ba, w: ab}, &pipeConn{r: ab, w: ba}
}

type pipeConn struct {
	r *buffer
	w *buffer
}

func (c *pipeConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *pipeConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *pipeConn) ResetInput() error           { return nil }

func (c *pipeConn) Close() error {
	c.w.close()
	c.r.close()
	return nil
}

// buffer is one direction of the link: unbounded, blocking reads,
// non-blocking writes.
type buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   bytes.Buffer
	closed bool
}

func newBuffer() *buffer {
	b := &buffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := b.data.Write(p)
	b.cond.Broadcast()
	return n, nil
}

func (b *buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.data.Len() == 0 {
		if b.closed {
			return 0, io.EOF
		}
		b.cond.Wait()
	}
	return b.data.Read(p)
}

func (b *buffer) close() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}
