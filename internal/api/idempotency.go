package api

import (
	"container/list"
	"sync"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

const defaultIdempotencyCapacity = 10_000

type idempotencyKey struct {
	route  string
	caller models.Address
	key    string
}

// idempotencyCache remembers the receipt of recent mutations per
// (route, caller, Idempotency-Key) so a retried request is not applied twice.
// A key reused on another route is a different request.
// Oldest keys are evicted first once capacity is reached.
type idempotencyCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	receipts map[idempotencyKey]*list.Element
}

type idempotencyItem struct {
	key     idempotencyKey
	receipt *models.Receipt
}

func newIdempotencyCache(capacity int) *idempotencyCache {
	return &idempotencyCache{
		capacity: capacity,
		order:    list.New(),
		receipts: make(map[idempotencyKey]*list.Element),
	}
}

func (c *idempotencyCache) get(route string, caller models.Address, key string) (*models.Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.receipts[idempotencyKey{route, caller, key}]
	if !ok {
		return nil, false
	}
	return el.Value.(*idempotencyItem).receipt, true
}

func (c *idempotencyCache) put(route string, caller models.Address, key string, receipt *models.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := idempotencyKey{route, caller, key}
	if _, ok := c.receipts[k]; ok {
		return
	}
	c.receipts[k] = c.order.PushBack(&idempotencyItem{key: k, receipt: receipt})

	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.receipts, oldest.Value.(*idempotencyItem).key)
	}
}
