package nsqgo

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readPublisherCommand parses one line-oriented publisher command off r:
// "NOP\n" or "PUB <topic>\n" followed by a 4-byte length and body.
func readPublisherCommand(r *bufio.Reader) (cmd string, body []byte, err error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	if line == "NOP" {
		return "NOP", nil, nil
	}
	if strings.HasPrefix(line, "PUB ") {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return "", nil, err
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(r, body); err != nil {
				return "", nil, err
			}
		}
		return "PUB", body, nil
	}
	return line, nil, nil
}

// scriptedPubBroker accepts connections on ln and, for each PUB it
// receives (counted per-connection, i.e. reset on every reconnect), writes
// the frames framesForAttempt(attempt) returns.
func scriptedPubBroker(t *testing.T, ln net.Listener, framesForAttempt func(attempt int) []*Frame) {
	t.Helper()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				magic := make([]byte, 4)
				if _, err := io.ReadFull(r, magic); err != nil {
					return
				}
				attempt := 0
				for {
					cmd, _, err := readPublisherCommand(r)
					if err != nil {
						return
					}
					if cmd != "PUB" {
						continue
					}
					attempt++
					for _, f := range framesForAttempt(attempt) {
						if err := WriteFrame(c, f); err != nil {
							return
						}
					}
				}
			}(conn)
		}
	}()
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	return newPublisher(NewConnectionPool(), shortTimeouts(), noopLogger{})
}

// Scenario 1: one node, first attempt OK.
func TestPublishOneNodeFirstAttemptOK(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	scriptedPubBroker(t, ln, func(attempt int) []*Frame {
		return []*Frame{NewResponseFrame("OK")}
	})

	p := newTestPublisher(t)
	require.NoError(t, p.publishTo(ln.Addr().String(), ConsistencyOne))
	require.NoError(t, p.Publish("t", []byte("hello")))
}

// Scenario 2: QUORUM with 3 nodes, one fails every retry, two succeed.
func TestPublishQuorumWithOneBadNode(t *testing.T) {
	lns := []net.Listener{listen(t), listen(t), listen(t)}
	defer func() {
		for _, ln := range lns {
			ln.Close()
		}
	}()

	scriptedPubBroker(t, lns[0], func(attempt int) []*Frame { return []*Frame{NewResponseFrame("OK")} })
	scriptedPubBroker(t, lns[1], func(attempt int) []*Frame { return []*Frame{NewResponseFrame("OK")} })
	scriptedPubBroker(t, lns[2], func(attempt int) []*Frame { return []*Frame{NewErrorFrame("E_BAD")} })

	addrs := make([]string, len(lns))
	for i, ln := range lns {
		addrs[i] = ln.Addr().String()
	}

	p := newTestPublisher(t)
	require.NoError(t, p.publishTo(addrs, ConsistencyQuorum))
	assert.Equal(t, 2, p.required) // 3/2+1 == 2 (integer division)

	require.NoError(t, p.Publish("t", []byte("hello")))
}

// Scenario 3: required TWO, all 3 nodes fail.
func TestPublishTwoAllNodesFail(t *testing.T) {
	lns := []net.Listener{listen(t), listen(t), listen(t)}
	defer func() {
		for _, ln := range lns {
			ln.Close()
		}
	}()
	for _, ln := range lns {
		scriptedPubBroker(t, ln, func(attempt int) []*Frame { return []*Frame{NewErrorFrame("E_BAD")} })
	}

	addrs := make([]string, len(lns))
	for i, ln := range lns {
		addrs[i] = ln.Addr().String()
	}

	p := newTestPublisher(t)
	require.NoError(t, p.publishTo(addrs, ConsistencyTwo))

	err := p.Publish("t", []byte("hello"))
	require.Error(t, err)
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, 2, pubErr.Required)
	assert.Equal(t, 0, pubErr.Achieved)
	assert.Len(t, pubErr.Errs.Errors, 3)
}

// Scenario 4: heartbeat during publish, then OK.
func TestPublishHeartbeatThenOK(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	scriptedPubBroker(t, ln, func(attempt int) []*Frame {
		return []*Frame{NewHeartbeatFrame(), NewResponseFrame("OK")}
	})

	p := newTestPublisher(t)
	require.NoError(t, p.publishTo(ln.Addr().String(), ConsistencyOne))
	require.NoError(t, p.Publish("t", []byte("hello")))
}

func TestPublishToInvalidConsistencyLevel(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	p := newTestPublisher(t)
	err := p.publishTo(ln.Addr().String(), ConsistencyLevel(99))
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestPublishToUnachievableConsistency(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	p := newTestPublisher(t)
	err := p.publishTo(ln.Addr().String(), ConsistencyTwo)
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseHostsDefaultsPort(t *testing.T) {
	hosts, err := parseHosts("a, b:5150 ,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:4150", "b:5150", "c:4150"}, hosts)

	hosts, err = parseHosts([]string{"x", "y:1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x:4150", "y:1"}, hosts)
}

func TestTryFuncReconnectsBetweenFailuresAndSucceedsWithinBudget(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	scriptedPubBroker(t, ln, func(attempt int) []*Frame {
		if attempt < 1 {
			return []*Frame{NewErrorFrame("E_TRANSIENT")}
		}
		return []*Frame{NewResponseFrame("OK")}
	})

	conn := NewConnection(ln.Addr().String(), true, shortTimeouts(), sendMagicOnConnect)
	calls := 0
	err := tryFunc(conn, 2, func(c *Connection) error {
		calls++
		if calls < 2 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTryFuncExhaustsBudgetAndReturnsLastError(t *testing.T) {
	ln := listen(t)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			io.Copy(io.Discard, c)
		}
	}()

	conn := NewConnection(ln.Addr().String(), true, shortTimeouts(), nil)
	calls := 0
	err := tryFunc(conn, 2, func(c *Connection) error {
		calls++
		return assert.AnError
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // tries+1 == 3 total attempts
}
