package nsqgo

import (
	"bufio"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var connIDSeq uint64

func newConnectionID() uint64 { return atomic.AddUint64(&connIDSeq, 1) }

// Timeouts bundles the three durations spec section 6 recognises as
// constructor-level configuration.
type Timeouts struct {
	Connect   time.Duration
	ReadWrite time.Duration
	ReadWait  time.Duration
}

// Connection owns one TCP socket to one nsqd broker (spec section 4.2).
// Publisher connections run in blocking request/response style; Subscriber
// connections are driven by one dedicated read goroutine per connection
// (see subscriber.dispatchLoop) rather than OS-level readiness
// multiplexing — the substitute spec section 5 explicitly sanctions for a
// language with native threads, as long as the RDY-1 discipline keeps
// exactly one message in flight.
//
// id stands in for the source's raw socket handle for pool lookups (spec
// section 9, open question b): a handle can be reused after close, a
// monotonic id cannot.
type Connection struct {
	id        uint64
	addr      string
	blocking  bool
	timeouts  Timeouts
	onConnect func(*Connection) error

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader

	closed int32
}

// NewConnection constructs a Connection. onConnect fires synchronously
// after every successful dial (including reconnects) and is where a caller
// hangs MAGIC, and for subscribe connections, IDENTIFY.
func NewConnection(addr string, blocking bool, timeouts Timeouts, onConnect func(*Connection) error) *Connection {
	return &Connection{
		id:        newConnectionID(),
		addr:      addr,
		blocking:  blocking,
		timeouts:  timeouts,
		onConnect: onConnect,
	}
}

// Address returns the connection's "host:port" identity, used for pool
// lookup and equality.
func (c *Connection) Address() string { return c.addr }

// String returns the address, for logging.
func (c *Connection) String() string { return c.addr }

// GetSocket returns a stable identity suitable for event-loop / pool
// lookup by handle.
func (c *Connection) GetSocket() uint64 { return c.id }

func (c *Connection) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	return c.dialLocked()
}

func (c *Connection) dialLocked() error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeouts.Connect)
	if err != nil {
		return wrapSocketErr(c.addr, "connect", err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	atomic.StoreInt32(&c.closed, 0)
	if c.onConnect != nil {
		// The hook writes through c.Write, which takes c.mu itself, so the
		// lock is released while the hook runs.
		c.mu.Unlock()
		err := c.onConnect(c)
		c.mu.Lock()
		if err != nil {
			conn.Close()
			c.conn = nil
			c.r = nil
			return err
		}
	}
	return nil
}

// Reconnect tears down any existing socket and re-establishes the TCP
// session, re-running the on-connect hook (MAGIC, and for subscribe
// connections IDENTIFY) unconditionally.
func (c *Connection) Reconnect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.r = nil
	}
	err := c.dialLocked()
	c.mu.Unlock()
	return err
}

// readWriteDeadline picks the governing duration for this connection's
// mode: the short request/response timeout for blocking (publish)
// connections, the longer wait timeout (which must comfortably exceed the
// broker heartbeat interval) for non-blocking (subscribe) connections.
func (c *Connection) readWriteDeadline() time.Duration {
	if c.blocking {
		return c.timeouts.ReadWrite
	}
	return c.timeouts.ReadWait
}

// Write sends all of b or fails with a SocketError.
func (c *Connection) Write(b []byte) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return wrapSocketErr(c.addr, "write", errNotConnected)
	}
	if d := c.readWriteDeadline(); d > 0 {
		conn.SetWriteDeadline(time.Now().Add(d))
	}
	n, err := conn.Write(b)
	if err != nil {
		return wrapSocketErr(c.addr, "write", err)
	}
	if n != len(b) {
		return wrapSocketErr(c.addr, "write", io.ErrShortWrite)
	}
	return nil
}

// ReadFrame returns the next complete frame, blocking until one arrives or
// the connection's read-wait/read-write timeout elapses.
func (c *Connection) ReadFrame() (*Frame, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	conn := c.conn
	r := c.r
	c.mu.Unlock()
	if conn == nil {
		return nil, wrapSocketErr(c.addr, "read", errNotConnected)
	}
	if d := c.readWriteDeadline(); d > 0 {
		conn.SetReadDeadline(time.Now().Add(d))
	}
	frame, err := ReadFrame(r)
	if err != nil {
		if err == errMalformedFrameSize || err == errMalformedMessageFrame {
			return nil, &ProtocolError{Err: err}
		}
		return nil, wrapSocketErr(c.addr, "read", err)
	}
	return frame, nil
}

// Close tears down the underlying socket without sending CLS. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	atomic.StoreInt32(&c.closed, 1)
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}

// IsClosed reports whether Close has torn down the socket.
func (c *Connection) IsClosed() bool { return atomic.LoadInt32(&c.closed) == 1 }
