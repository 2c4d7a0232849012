// Package dedupe provides a default, standalone DedupeService: a bounded
// probabilistic set over (topic, channel, message id), backed by a counting
// Bloom filter. It satisfies nsqgo.DedupeService without importing the
// nsqgo package, so it can be vendored independently.
package dedupe

import (
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// Service is a counting Bloom filter keyed by "topic/channel/messageID".
// Unlike a classic Bloom filter it supports Erase: each of the k hashed
// positions carries a saturating counter alongside the bit, so clearing a
// key only unsets bits no other live key still needs.
type Service struct {
	mu     sync.Mutex
	bits   *bitset.BitSet
	counts []uint8
	size   uint64
	hashes int
}

// New returns a Service with a filter of size bits and the given number of
// hash rounds per key (go-nsq-class NSQ clients typically size this to the
// channel's expected in-flight window; 4 hash rounds is the conventional
// choice for a few-percent false-positive rate at reasonable fill).
func New(size uint64, hashes int) *Service {
	if size == 0 {
		size = 1 << 20
	}
	if hashes <= 0 {
		hashes = 4
	}
	return &Service{
		bits:   bitset.New(uint(size)),
		counts: make([]uint8, size),
		size:   size,
		hashes: hashes,
	}
}

func (s *Service) positions(key string) []uint {
	h1 := xxhash.Sum64String(key)
	h2 := xxhash.Sum64String(key + "\x00nsqgo-dedupe-salt")
	pos := make([]uint, s.hashes)
	for i := 0; i < s.hashes; i++ {
		pos[i] = uint((h1 + uint64(i)*h2) % s.size)
	}
	return pos
}

// ContainsAndAdd tests and adds key atomically: it reports whether every
// hashed position was already set before this call added them.
func (s *Service) ContainsAndAdd(topic, channel, messageID string) bool {
	key := topic + "/" + channel + "/" + messageID
	pos := s.positions(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	present := true
	for _, p := range pos {
		if !s.bits.Test(p) {
			present = false
			break
		}
	}
	for _, p := range pos {
		if s.counts[p] < math.MaxUint8 {
			s.counts[p]++
		}
		s.bits.Set(p)
	}
	return present
}

// Erase decrements key's positions, clearing any bit whose count has
// dropped to zero so a later retry of the same id can pass the filter
// again. Every ContainsAndAdd call counts the key, including one that
// reported it present, so a key added n times needs n Erase calls.
func (s *Service) Erase(topic, channel, messageID string) {
	key := topic + "/" + channel + "/" + messageID
	pos := s.positions(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pos {
		if s.counts[p] > 0 {
			s.counts[p]--
		}
		if s.counts[p] == 0 {
			s.bits.Clear(p)
		}
	}
}
