package nsqgo

import (
	"sync"
	"time"
)

// Client wires together the Publisher, the Subscriber dispatch loop, and
// shared configuration (spec section 4.7). Many Clients may exist in one
// process; all of them share the same publish-side connection pool via
// ConnectionManager (spec section 5's deliberate global-pool policy).
type Client struct {
	cfg *cfg

	mu        sync.Mutex
	publisher *Publisher
	sub       *subscriber

	stopOnce sync.Once
}

// New constructs a Client. See WithLookup, WithDedupe, WithRequeueStrategy,
// WithLogger, and the WithXTimeout options for recognised configuration.
func New(opts ...Opt) *Client {
	c := defaultCfg()
	for _, opt := range opts {
		opt(c)
	}
	return &Client{
		cfg: c,
		sub: newSubscriber(c),
	}
}

// PublishTo configures the publish plan against the process-global
// publisher pool: see Publisher.publishTo for host parsing and consistency
// resolution.
func (cl *Client) PublishTo(hosts interface{}, level ConsistencyLevel) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.publisher == nil {
		cl.publisher = newPublisher(ConnectionManager(), Timeouts{
			Connect:   cl.cfg.connectionTimeout,
			ReadWrite: cl.cfg.readWriteTimeout,
			ReadWait:  cl.cfg.readWaitTimeout,
		}, cl.cfg.logger)
	}
	return cl.publisher.publishTo(hosts, level)
}

// Publish writes message to topic across the plan configured by PublishTo.
func (cl *Client) Publish(topic string, message []byte) error {
	cl.mu.Lock()
	p := cl.publisher
	cl.mu.Unlock()
	if p == nil {
		return &ConfigurationError{Reason: "publish called before publishTo"}
	}
	return p.Publish(topic, message)
}

// Subscribe discovers broker endpoints for topic via the configured
// LookupService and begins dispatching channel's messages to callback.
// params, when non-nil, is sent as the IDENTIFY payload on every
// connection (see DefaultIdentifyParams for a ready-made value).
func (cl *Client) Subscribe(topic, channel string, callback Callback, params map[string]interface{}) error {
	return cl.sub.subscribe(topic, channel, callback, params)
}

// Run blocks until Stop is called, an unrecoverable protocol or socket
// error terminates the dispatch loop, or timeout elapses (if timeout > 0).
// It returns the error that ended the loop, or nil on a clean Stop.
func (cl *Client) Run(timeout time.Duration) error {
	if timeout > 0 {
		timer := time.AfterFunc(timeout, cl.sub.stop)
		defer timer.Stop()
	}
	cl.sub.wait()
	return cl.sub.loopErr
}

// Stop halts the dispatch loop without closing any socket. Idempotent.
func (cl *Client) Stop() {
	cl.stopOnce.Do(func() {
		cl.sub.stop()
	})
}

// Close writes CLS to every subscribe-side connection, fire-and-forget,
// mirroring the source's __destruct behaviour (spec section 9). Call it
// once the dispatch loop has stopped.
func (cl *Client) Close() {
	cl.sub.closeAll()
}
