package nsqgo

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

const defaultNSQDPort = "4150"

func sendMagicOnConnect(c *Connection) error {
	return c.Write(magicBytes())
}

// parseHosts accepts either a single comma-separated string or a []string
// of "host" / "host:port" entries, defaulting a missing port to 4150.
func parseHosts(hosts interface{}) ([]string, error) {
	var raw []string
	switch v := hosts.(type) {
	case string:
		for _, h := range strings.Split(v, ",") {
			h = strings.TrimSpace(h)
			if h != "" {
				raw = append(raw, h)
			}
		}
	case []string:
		raw = append(raw, v...)
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("publishTo: unsupported host list type %T", hosts)}
	}
	if len(raw) == 0 {
		return nil, &ConfigurationError{Reason: "publishTo: no hosts given"}
	}
	out := make([]string, 0, len(raw))
	for _, h := range raw {
		if !strings.Contains(h, ":") {
			h = h + ":" + defaultNSQDPort
		}
		out = append(out, h)
	}
	return out, nil
}

func requiredForConsistency(level ConsistencyLevel, n int) (int, error) {
	switch level {
	case ConsistencyOne:
		return 1, nil
	case ConsistencyTwo:
		return 2, nil
	case ConsistencyQuorum:
		return n/2 + 1, nil
	default:
		return 0, &ConfigurationError{Reason: fmt.Sprintf("invalid consistency level %v", level)}
	}
}

// Publisher fans a published message out to a plan of broker nodes and
// stops as soon as enough of them have confirmed receipt (spec section
// 4.4).
type Publisher struct {
	pool     *ConnectionPool
	timeouts Timeouts
	logger   Logger
	required int
}

func newPublisher(pool *ConnectionPool, timeouts Timeouts, logger Logger) *Publisher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{pool: pool, timeouts: timeouts, logger: logger}
}

// publishTo parses hosts, ensures every address has a blocking Connection
// in the pool, and resolves the required success count for level against
// the pool's resulting size.
func (p *Publisher) publishTo(hosts interface{}, level ConsistencyLevel) error {
	addrs, err := parseHosts(hosts)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		if _, ok := p.pool.Find(addr); ok {
			continue
		}
		conn := NewConnection(addr, true, p.timeouts, sendMagicOnConnect)
		p.pool.Add(conn)
	}

	n := p.pool.Count()
	required, err := requiredForConsistency(level, n)
	if err != nil {
		return err
	}
	if required > n {
		return &ConfigurationError{Reason: fmt.Sprintf("cannot achieve desired consistency with %d nodes", n)}
	}
	p.required = required
	p.logger.Debugf("nsqgo: publishTo resolved %d required of %d nodes", required, n)
	return nil
}

// Publish writes topic/message to every node in the plan (in shuffled
// order), retrying each under tryFunc, and stops as soon as the success
// floor is met.
func (p *Publisher) Publish(topic string, message []byte) error {
	if p.required == 0 {
		return &ConfigurationError{Reason: "publish called before publishTo"}
	}
	p.pool.Shuffle()

	success := 0
	var errs *multierror.Error
	p.pool.Each(func(conn *Connection) bool {
		err := tryFunc(conn, 2, func(c *Connection) error {
			return p.publishOnce(c, topic, message)
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", conn.Address(), err))
			p.logger.Warnf("nsqgo: publish to %s failed: %s", conn.Address(), err)
		} else {
			success++
		}
		return success < p.required
	})

	if success < p.required {
		return &PublishError{Required: p.required, Achieved: success, Errs: errs}
	}
	return nil
}

// publishOnce writes one PUB command and reads frames until OK, replying
// NOP to any heartbeats along the way.
func (p *Publisher) publishOnce(conn *Connection, topic string, body []byte) error {
	if err := conn.Write(pubCommand(topic, body)); err != nil {
		return err
	}
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return err
		}
		if frame.IsHeartbeat() {
			if err := conn.Write(nopCommand()); err != nil {
				return err
			}
			continue
		}
		if frame.IsOK() {
			return nil
		}
		if frame.IsError() {
			return fmt.Errorf("PUB error: %s", string(frame.Body))
		}
		return &ProtocolError{Frame: frame, Err: errUnexpectedFrame}
	}
}

// tryFunc invokes f(conn) at most tries+1 times. On any failure it
// reconnects unconditionally before the next attempt — recovering from
// half-open TCP state as well as application-level errors — and returns
// on first success, or re-raises the last error once the budget is spent.
func tryFunc(conn *Connection, tries int, f func(*Connection) error) error {
	var lastErr error
	for attempt := 0; attempt <= tries; attempt++ {
		if attempt > 0 {
			if err := conn.Reconnect(); err != nil {
				lastErr = err
				continue
			}
		}
		if err := f(conn); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
