package connection

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

var errFakeClosed = errors.New("fake: connection closed")

// fakeDialer hands out in-memory connections. fail decides, per 1-based dial
// number, whether the dial errors. gate, when set, blocks every dial until a
// value is received or the context ends.
type fakeDialer struct {
	fail func(n int) error
	gate chan struct{}

	// autoPong makes every conn reply to probe with reply.
	probe, reply []byte

	mu        sync.Mutex
	conns     []*fakeConn
	dials     int
	protocols []string
}

func (d *fakeDialer) Dial(ctx context.Context, url string, protocols []string) (Conn, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.protocols = protocols
	if d.fail != nil {
		if err := d.fail(d.dials); err != nil {
			return nil, err
		}
	}
	c := newFakeConn()
	c.probe, c.reply = d.probe, d.reply
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// conn returns the i-th successful connection (0-based).
func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

type fakeConn struct {
	inbound chan Message
	peer    chan *CloseError
	done    chan struct{}

	probe, reply []byte

	mu          sync.Mutex
	written     []Message
	writeErr    error
	closed      bool
	closeCode   int
	closeReason string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan Message, 64),
		peer:    make(chan *CloseError, 1),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case ce := <-c.peer:
		return Message{}, ce
	case <-c.done:
		return Message{}, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	if c.closed {
		return errFakeClosed
	}
	c.written = append(c.written, msg)
	if c.probe != nil && bytes.Equal(msg.Data, c.probe) {
		c.inbound <- Message{Type: msg.Type, Data: c.reply}
	}
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errFakeClosed
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.done)
	return nil
}

func (c *fakeConn) Subprotocol() string {
	return "fake.v1"
}

// deliver simulates an inbound frame from the peer.
func (c *fakeConn) deliver(msg Message) {
	c.inbound <- msg
}

// closeFromPeer simulates a close frame from the peer.
func (c *fakeConn) closeFromPeer(code int, reason string) {
	c.peer <- &CloseError{Code: code, Reason: reason}
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) writtenTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, m := range c.written {
		out = append(out, m.Text())
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// recorder collects callback invocations.
type recorder struct {
	mu           sync.Mutex
	connected    []SessionInfo
	disconnected []CloseEvent
	errs         []error
	messages     []string
	reconnecting []int
	reconnected  int
	failed       int
}

func (r *recorder) options() []Option {
	return []Option{
		WithOnConnected(func(info SessionInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connected = append(r.connected, info)
		}),
		WithOnDisconnected(func(_ SessionInfo, ev CloseEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.disconnected = append(r.disconnected, ev)
		}),
		WithOnError(func(_ SessionInfo, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		}),
		WithOnMessage(func(_ SessionInfo, msg Message) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, msg.Text())
		}),
		WithOnReconnecting(func(n int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reconnecting = append(r.reconnecting, n)
		}),
		WithOnReconnected(func(SessionInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reconnected++
		}),
	}
}

func (r *recorder) onFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed++
}

func (r *recorder) connectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connected)
}

func (r *recorder) disconnects() []CloseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CloseEvent(nil), r.disconnected...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) messageTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *recorder) reconnectingCounts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.reconnecting...)
}

func (r *recorder) reconnectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reconnected
}

func (r *recorder) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

const (
	waitFor = 2 * time.Second
	tick    = 2 * time.Millisecond
)
