package nsqgo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var topicChannelRe = regexp.MustCompile(`^[.a-zA-Z0-9_-]{2,32}$`)

func validateTopicChannel(topic, channel string) error {
	if !topicChannelRe.MatchString(topic) {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid topic name %q", topic)}
	}
	if !topicChannelRe.MatchString(channel) {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid channel name %q", channel)}
	}
	return nil
}

type subscription struct {
	topic    string
	channel  string
	callback Callback
}

// subscriber owns the subscribe-side connection pool and one dispatch
// goroutine per discovered broker connection. A single RDY credit per
// connection (see dispatchLoop) keeps exactly one message in flight at a
// time, the Go-idiomatic stand-in spec section 5 sanctions in place of the
// source's single-threaded readiness-multiplexing event loop.
type subscriber struct {
	cfg  *cfg
	pool *ConnectionPool

	wg     sync.WaitGroup
	cancel context.CancelFunc
	ctx    context.Context

	errOnce sync.Once
	loopErr error
}

func newSubscriber(c *cfg) *subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &subscriber{
		cfg:    c,
		pool:   NewConnectionPool(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *subscriber) subscribe(topic, channel string, callback Callback, params map[string]interface{}) error {
	if s.cfg.lookup == nil {
		return &ConfigurationError{Reason: "subscribe requires a configured LookupService"}
	}
	if callback == nil {
		return &ConfigurationError{Reason: "subscribe requires a non-nil callback"}
	}
	if err := validateTopicChannel(topic, channel); err != nil {
		return err
	}

	hosts, err := s.cfg.lookup.LookupHosts(s.ctx, topic)
	if err != nil {
		return &LookupError{Topic: topic, Err: err}
	}

	sub := &subscription{topic: topic, channel: channel, callback: callback}

	grp, gctx := errgroup.WithContext(s.ctx)
	for _, addr := range hosts {
		addr := addr
		grp.Go(func() error {
			return s.connectAndRegister(gctx, addr, sub, params)
		})
	}
	return grp.Wait()
}

func (s *subscriber) connectAndRegister(_ context.Context, addr string, sub *subscription, params map[string]interface{}) error {
	conn := NewConnection(addr, false, Timeouts{
		Connect:   s.cfg.connectionTimeout,
		ReadWrite: s.cfg.readWriteTimeout,
		ReadWait:  s.cfg.readWaitTimeout,
	}, func(c *Connection) error {
		if err := c.Write(magicBytes()); err != nil {
			return err
		}
		if params != nil {
			cmd, err := identifyCommand(params)
			if err != nil {
				return err
			}
			if err := c.Write(cmd); err != nil {
				return err
			}
		}
		return nil
	})

	// Reconnect forces the dial (and on-connect hook: MAGIC, optionally
	// IDENTIFY) now rather than lazily on first Write/ReadFrame, so a
	// connect failure fails Subscribe synchronously.
	if err := conn.Reconnect(); err != nil {
		return err
	}

	s.pool.Add(conn)

	if params != nil {
		frame, err := conn.ReadFrame()
		if err != nil {
			return err
		}
		if _, err := decodeIdentifyResponse(frame); err != nil {
			return err
		}
	}

	if err := conn.Write(subCommand(sub.topic, sub.channel)); err != nil {
		return err
	}
	if err := conn.Write(rdyCommand(1)); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.dispatchLoop(conn, sub)
	return nil
}

// dispatchLoop reads exactly one frame at a time from conn and dispatches
// by kind, in the order documented in spec section 4.5. It exits when the
// subscriber's context is cancelled (Stop) or on any protocol/socket
// failure, which it surfaces via fail so Run can report it.
func (s *subscriber) dispatchLoop(conn *Connection, sub *subscription) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		frame, err := conn.ReadFrame()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.fail(err)
			return
		}

		switch {
		case frame.IsHeartbeat():
			if err := conn.Write(nopCommand()); err != nil {
				s.fail(err)
				return
			}

		case frame.IsOK():
			s.cfg.logger.Debugf("nsqgo: %s acked SUB/IDENTIFY", conn.Address())

		case frame.IsMessage():
			if err := s.handleMessage(conn, sub, frame); err != nil {
				s.fail(err)
				return
			}

		default:
			s.fail(&ProtocolError{Frame: frame, Err: errUnexpectedFrame})
			return
		}
	}
}

// handleMessage runs the dedupe -> callback -> ack/requeue pipeline (spec
// section 4.5) for one decoded MESSAGE frame.
func (s *subscriber) handleMessage(conn *Connection, sub *subscription, frame *Frame) error {
	msg, err := newMessageFromFrame(frame)
	if err != nil {
		return err
	}

	if s.cfg.dedupe != nil && s.cfg.dedupe.ContainsAndAdd(sub.topic, sub.channel, msg.ID) {
		s.cfg.logger.Debugf("nsqgo: deduplicating message %s on %s/%s", msg.ID, sub.topic, sub.channel)
		return s.ackAndReady(conn, msg.ID)
	}

	cbErr := sub.callback(msg)
	if cbErr == nil {
		return s.ackAndReady(conn, msg.ID)
	}

	var expired ExpiredMessage
	if errors.As(cbErr, &expired) {
		s.cfg.logger.Infof("nsqgo: message %s expired", msg.ID)
		return s.ackAndReady(conn, msg.ID)
	}

	var requeue RequeueMessage
	if errors.As(cbErr, &requeue) {
		if s.cfg.dedupe != nil {
			s.cfg.dedupe.Erase(sub.topic, sub.channel, msg.ID)
		}
		return s.requeueAndReady(conn, msg.ID, requeue.Delay)
	}

	if s.cfg.dedupe != nil {
		s.cfg.dedupe.Erase(sub.topic, sub.channel, msg.ID)
	}
	if s.cfg.requeueStrategy != nil {
		if delay := s.cfg.requeueStrategy.ShouldRequeue(msg.Attempts); delay != nil {
			return s.requeueAndReady(conn, msg.ID, *delay)
		}
	}
	s.cfg.logger.Warnf("nsqgo: not requeuing message %s: %s", msg.ID, cbErr)
	return s.ackAndReady(conn, msg.ID)
}

func (s *subscriber) ackAndReady(conn *Connection, id string) error {
	if err := conn.Write(finCommand(id)); err != nil {
		return err
	}
	return conn.Write(rdyCommand(1))
}

func (s *subscriber) requeueAndReady(conn *Connection, id string, delay time.Duration) error {
	if err := conn.Write(reqCommand(id, delay.Milliseconds())); err != nil {
		return err
	}
	return conn.Write(rdyCommand(1))
}

func (s *subscriber) fail(err error) {
	s.errOnce.Do(func() {
		s.loopErr = err
		s.cancel()
	})
}

// stop halts the loop without closing any socket: it cancels the context
// and moves every subscribe connection's read deadline to now, so a
// dispatch loop blocked in ReadFrame returns promptly. Safe to call more
// than once; context.CancelFunc is already idempotent.
func (s *subscriber) stop() {
	s.cancel()
	for _, c := range s.pool.All() {
		c.mu.Lock()
		if c.conn != nil {
			c.conn.SetReadDeadline(time.Now())
		}
		c.mu.Unlock()
	}
}

func (s *subscriber) wait() {
	s.wg.Wait()
}

// closeAll writes CLS to every subscribe-side connection, fire-and-forget,
// ignoring any resulting error (spec section 9, open question c).
func (s *subscriber) closeAll() {
	for _, conn := range s.pool.All() {
		_ = conn.Write(clsCommand())
	}
}
