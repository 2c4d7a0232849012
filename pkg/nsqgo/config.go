package nsqgo

import "time"

// ConsistencyLevel is the publish-time policy for how many broker nodes
// must confirm receipt before Publish returns successfully (spec section
// 6). QUORUM is a sentinel value; its semantic value is resolved against
// the current pool size at publishTo time as N/2+1 with integer division
// (N=3 gives 2).
type ConsistencyLevel int

const (
	ConsistencyOne    ConsistencyLevel = 1
	ConsistencyTwo    ConsistencyLevel = 2
	ConsistencyQuorum ConsistencyLevel = 5
)

type cfg struct {
	lookup          LookupService
	dedupe          DedupeService
	requeueStrategy RequeueStrategy
	logger          Logger

	connectionTimeout time.Duration
	readWriteTimeout  time.Duration
	readWaitTimeout   time.Duration

	clientID string
}

// Opt configures a Client, following the teacher's functional-options
// pattern (kgo.Opt / cfg).
type Opt func(*cfg)

func defaultCfg() *cfg {
	return &cfg{
		logger:            noopLogger{},
		connectionTimeout: 3 * time.Second,
		readWriteTimeout:  3 * time.Second,
		readWaitTimeout:   15 * time.Second,
	}
}

// WithLookup sets the LookupService used by Subscribe. Required before any
// Subscribe call.
func WithLookup(l LookupService) Opt { return func(c *cfg) { c.lookup = l } }

// WithDedupe sets the DedupeService consulted by the message pipeline.
func WithDedupe(d DedupeService) Opt { return func(c *cfg) { c.dedupe = d } }

// WithRequeueStrategy sets the RequeueStrategy consulted when a callback
// fails without signalling an explicit requeue delay.
func WithRequeueStrategy(r RequeueStrategy) Opt { return func(c *cfg) { c.requeueStrategy = r } }

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Opt {
	return func(c *cfg) {
		if l == nil {
			l = noopLogger{}
		}
		c.logger = l
	}
}

// WithConnectionTimeout overrides the default 3s TCP connect timeout.
func WithConnectionTimeout(d time.Duration) Opt { return func(c *cfg) { c.connectionTimeout = d } }

// WithReadWriteTimeout overrides the default 3s blocking-mode (publish)
// read/write deadline.
func WithReadWriteTimeout(d time.Duration) Opt { return func(c *cfg) { c.readWriteTimeout = d } }

// WithReadWaitTimeout overrides the default 15s subscribe-side read
// deadline between frames (covers the broker heartbeat interval).
func WithReadWaitTimeout(d time.Duration) Opt { return func(c *cfg) { c.readWaitTimeout = d } }

// WithClientID stores an identifier in the Client's configuration. Neither
// Subscribe nor DefaultIdentifyParams reads it; an identifier reaches
// IDENTIFY only through the params passed to Subscribe (for example
// DefaultIdentifyParams(id)).
func WithClientID(id string) Opt { return func(c *cfg) { c.clientID = id } }
