package ratelimit

import (
	"container/list"
	"sync"
	"time"
)

// Limiter decides whether a request from the given client identity is
// admitted. Implementations must be safe for concurrent use.
type Limiter interface {
	Admit(identity string) bool
}

type entry struct {
	identity string
	stamps   []time.Time
}

// Window is an in-process sliding-window limiter: at most limit requests per
// identity within a trailing window. Identities are tracked LRU and the map
// is bounded to maxIdentities so the state cannot grow without bound under
// many distinct clients.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	max    int

	order    *list.List // front = least recently seen
	elements map[string]*list.Element

	now func() time.Time
}

func NewWindow(limit int, window time.Duration, maxIdentities int) *Window {
	if maxIdentities <= 0 {
		maxIdentities = 10000
	}
	return &Window{
		limit:    limit,
		window:   window,
		max:      maxIdentities,
		order:    list.New(),
		elements: make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Admit prunes the identity's timestamps to the trailing window, rejects if
// the pruned count has reached the limit, and otherwise records the request.
// The read-prune-append sequence runs under the lock so concurrent requests
// from one identity cannot both claim the last slot.
func (w *Window) Admit(identity string) bool {
	now := w.now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	elem, ok := w.elements[identity]
	if !ok {
		w.evictLocked()
		elem = w.order.PushBack(&entry{identity: identity})
		w.elements[identity] = elem
	} else {
		w.order.MoveToBack(elem)
	}
	e := elem.Value.(*entry)

	kept := e.stamps[:0]
	for _, ts := range e.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.stamps = kept

	if len(e.stamps) >= w.limit {
		return false
	}
	e.stamps = append(e.stamps, now)
	return true
}

// evictLocked drops the least recently seen identity once the map is full.
// Evicting live state slightly relaxes the limit for the evicted client,
// which is the accepted cost of bounding memory.
func (w *Window) evictLocked() {
	for w.order.Len() >= w.max {
		front := w.order.Front()
		if front == nil {
			return
		}
		e := front.Value.(*entry)
		w.order.Remove(front)
		delete(w.elements, e.identity)
	}
}

// Len reports the number of tracked identities.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order.Len()
}
