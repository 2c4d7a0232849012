package nsqgo

import (
	"math/rand"
	"sync"
)

// ConnectionPool is a set of Connections keyed by "host:port", supporting
// add, find-by-address, find-by-socket-identity, count, shuffle, and
// ordered iteration (spec section 4.3). The subscribe-side pool is a plain
// per-Client instance; the publish-side pool is the process-wide singleton
// returned by ConnectionManager.
type ConnectionPool struct {
	mu     sync.Mutex
	order  []*Connection
	byAddr map[string]*Connection
	byID   map[uint64]*Connection
}

// NewConnectionPool returns an empty pool.
func NewConnectionPool() *ConnectionPool {
	return &ConnectionPool{
		byAddr: make(map[string]*Connection),
		byID:   make(map[uint64]*Connection),
	}
}

// Add registers c under its address. A second Add for an address already
// present is a no-op, matching the source's "for each address not already
// in the pool" publishTo behaviour.
func (p *ConnectionPool) Add(c *Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byAddr[c.Address()]; ok {
		return
	}
	p.byAddr[c.Address()] = c
	p.byID[c.GetSocket()] = c
	p.order = append(p.order, c)
}

// Find looks up a connection by address.
func (p *ConnectionPool) Find(addr string) (*Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byAddr[addr]
	return c, ok
}

// FindBySocket looks up a connection by its stable socket identity (see
// Connection.GetSocket), the Go-idiomatic substitute for keying on a raw,
// reusable OS handle.
func (p *ConnectionPool) FindBySocket(id uint64) (*Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.byID[id]
	return c, ok
}

// Count returns the number of connections in the pool.
func (p *ConnectionPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Shuffle permutes iteration order in place, used by Publisher to
// randomise per-publish node order.
func (p *ConnectionPool) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	rand.Shuffle(len(p.order), func(i, j int) {
		p.order[i], p.order[j] = p.order[j], p.order[i]
	})
}

// Each iterates connections in current order, stopping early if fn returns
// false. The snapshot is taken under lock so fn may safely call back into
// the pool (e.g. Shuffle, Add) without deadlocking.
func (p *ConnectionPool) Each(fn func(*Connection) bool) {
	p.mu.Lock()
	snapshot := make([]*Connection, len(p.order))
	copy(snapshot, p.order)
	p.mu.Unlock()
	for _, c := range snapshot {
		if !fn(c) {
			return
		}
	}
}

// All returns a snapshot of every connection currently in the pool.
func (p *ConnectionPool) All() []*Connection {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Connection, len(p.order))
	copy(out, p.order)
	return out
}

var (
	managerMu   sync.Mutex
	managerPool *ConnectionPool
)

// ConnectionManager returns the process-wide singleton pool shared by
// every Publisher regardless of which Client constructed it. This
// preserves the source's deliberate global-pool policy (spec section 5):
// multiple Client instances in the same process share publish-side
// connections by address.
func ConnectionManager() *ConnectionPool {
	managerMu.Lock()
	defer managerMu.Unlock()
	if managerPool == nil {
		managerPool = NewConnectionPool()
	}
	return managerPool
}

// ResetConnectionManager discards the singleton pool. It exists so tests
// can isolate publish scenarios from one another; production code should
// not need it.
func ResetConnectionManager() {
	managerMu.Lock()
	defer managerMu.Unlock()
	managerPool = nil
}
