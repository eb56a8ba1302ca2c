package images

import (
	"sync"

	"github.com/google/uuid"
)

// productLocks serializes image mutations per product so the first-image
// promotion check and primary reassignment never interleave for the same
// product. Entries are reference counted and removed once idle.
type productLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{entries: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the per-product mutex and returns the unlock func.
func (p *productLocks) Lock(productID uuid.UUID) func() {
	p.mu.Lock()
	entry, ok := p.entries[productID]
	if !ok {
		entry = &lockEntry{}
		p.entries[productID] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.entries, productID)
		}
		p.mu.Unlock()
	}
}
