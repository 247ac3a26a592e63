// Package dedupe tracks event IDs already handed to the grouping engine so
// overlapping source windows do not feed the same event twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/correlate/internal/domain/model"
)

const defaultMaxSize = 50000

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed run can pick the event up again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id  string
	exp time.Time
}

// inMemoryDeduper keeps IDs in insertion order and evicts the oldest first.
// For maxSize <= 0 nothing is evicted by size.
type inMemoryDeduper struct {
	mu      sync.Mutex
	order   *list.List // oldest at back
	seen    map[string]*list.Element
	maxSize int
	ttl     time.Duration // 0 = never expire
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.order = list.New()
	d.seen = make(map[string]*list.Element)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[id]; ok {
		en := el.Value.(entry)
		if d.ttl <= 0 || now.Before(en.exp) {
			return true
		}
		d.remove(el)
	}

	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			d.remove(d.order.Back())
		}
	}
	d.seen[id] = d.order.PushFront(entry{id: id, exp: now.Add(d.ttl)})
	d.size.Add(1)
	d.expireTail(now)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.seen[id]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(entry).id)
	d.size.Add(-1)
}

// expireTail drops expired entries from the oldest end.
func (d *inMemoryDeduper) expireTail(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for t := d.order.Back(); t != nil; t = d.order.Back() {
		if now.Before(t.Value.(entry).exp) {
			return
		}
		d.remove(t)
	}
}

// Filter returns the events whose IDs d has not seen, recording them, and the
// number of duplicates dropped. Events without an ID are always kept since
// they cannot be told apart. Input order is preserved.
func Filter(ctx context.Context, d Deduper, events []model.Event) ([]model.Event, int) {
	if d == nil {
		return events, 0
	}
	kept := make([]model.Event, 0, len(events))
	dups := 0
	for _, ev := range events {
		if ev.ID != "" && d.SeenAndRecord(ctx, ev.ID) {
			dups++
			continue
		}
		kept = append(kept, ev)
	}
	return kept, dups
}

// Forget unrecords the IDs of events, used when a run fails after Filter.
func Forget(ctx context.Context, d Deduper, events []model.Event) {
	if d == nil {
		return
	}
	for _, ev := range events {
		if ev.ID != "" {
			d.Unrecord(ctx, ev.ID)
		}
	}
}
