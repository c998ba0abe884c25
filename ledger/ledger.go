package ledger

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Ledger records already-handled mention identifiers so retried polls never
// double-reply. Implementations are bounded: old entries may be forgotten,
// new ones are never dropped.
type Ledger interface {
	// MarkIfNew records id and reports whether it was unseen. The mark
	// sticks even if the subsequent handling fails; delivery is
	// at-most-once per mention.
	MarkIfNew(id string) bool
	Len() int
}

// Bounded is an in-memory Ledger over an LRU set with a hard capacity
// invariant: it never holds more than cap entries and evicts the least
// recently seen one on overflow.
type Bounded struct {
	mu  sync.Mutex
	set *lru.Cache[string, struct{}]
}

const DefaultCapacity = 1000

func NewBounded(capacity int) *Bounded {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	set, _ := lru.New[string, struct{}](capacity)
	return &Bounded{set: set}
}

func (b *Bounded) MarkIfNew(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.set.Get(id); seen {
		return false
	}
	b.set.Add(id, struct{}{})
	return true
}

func (b *Bounded) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.set.Len()
}
