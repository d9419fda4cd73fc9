// Package portal keeps a client-side view of a kid's schedule in step with
// the server. Toggles apply locally at once and are persisted in the
// background; failed writes are rolled back unless a newer toggle superseded
// them.
package portal

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer is the number of changes a slow subscriber may fall behind
// before further changes to it are dropped
const subscriberBuffer = 64

// Key identifies one schedule item on one day
type Key struct {
	KidID  int64
	Date   string
	ItemID int64
}

// Persister writes a completion flag to the server
type Persister interface {
	SetItemDone(ctx context.Context, itemID int64, done bool) error
}

// Change describes a transition of a tracked flag
type Change struct {
	Key     Key
	Done    bool
	Version uint64
	// Confirmed is set once the server accepted the write for Version
	Confirmed bool
	// Reverted is set when a failed write rolled Done back; Err holds the cause
	Reverted bool
	Err      error
}

type entry struct {
	done      bool
	confirmed bool
	version   uint64
	// server is the last value the server is known to hold, written by the
	// write tagged serverVersion
	server        bool
	serverVersion uint64
}

// Tracker holds optimistic completion flags keyed by kid, date and item
type Tracker struct {
	persister Persister
	logger    *zap.SugaredLogger

	mu      sync.Mutex
	items   map[Key]*entry
	version uint64
	subs    map[int]chan Change
	nextSub int

	inflight sync.WaitGroup
}

// NewTracker creates a tracker persisting through p
func NewTracker(p Persister, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		persister: p,
		logger:    logger,
		items:     make(map[Key]*entry),
		subs:      make(map[int]chan Change),
	}
}

// Seed records a flag already known to the server without persisting it
func (t *Tracker) Seed(key Key, done bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.version++
	t.items[key] = &entry{done: done, confirmed: true, version: t.version, server: done, serverVersion: t.version}
}

// Load seeds every item of a day view
func (t *Tracker) Load(day *DayView) {
	for _, item := range day.Items {
		t.Seed(Key{KidID: day.KidID, Date: day.Date, ItemID: item.ID}, item.Done())
	}
}

// Done returns the local flag for key and whether it is tracked
func (t *Tracker) Done(key Key) (done, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.items[key]
	if !ok {
		return false, false
	}
	return e.done, true
}

// AllDone reports whether kidID has at least one tracked item on date and
// every one of them is done
func (t *Tracker) AllDone(kidID int64, date string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for key, e := range t.items {
		if key.KidID != kidID || key.Date != date {
			continue
		}
		if !e.done {
			return false
		}
		n++
	}
	return n > 0
}

// Toggle sets the flag for key immediately and persists it in the background.
// It returns the version tagging this update. If the write fails and no later
// toggle of key has happened, the last value the server confirmed is restored.
func (t *Tracker) Toggle(ctx context.Context, key Key, done bool) uint64 {
	t.mu.Lock()
	e, ok := t.items[key]
	if !ok {
		e = &entry{}
		t.items[key] = e
	}
	t.version++
	version := t.version
	e.done = done
	e.confirmed = false
	e.version = version
	t.publishLocked(Change{Key: key, Done: done, Version: version})
	t.mu.Unlock()

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.persist(ctx, key, done, version)
	}()
	return version
}

func (t *Tracker) persist(ctx context.Context, key Key, done bool, version uint64) {
	err := t.persister.SetItemDone(ctx, key.ItemID, done)

	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.items[key]
	if e == nil {
		return
	}
	if err == nil && version > e.serverVersion {
		e.server = done
		e.serverVersion = version
	}
	if e.version != version {
		if err != nil {
			t.logger.Debugw("stale toggle failed", "item_id", key.ItemID, "version", version, "error", err)
			return
		}
		// A newer toggle already settled; follow the server if this write
		// landed after it was reverted.
		if e.confirmed && e.serverVersion == version && e.done != done {
			e.done = done
			t.publishLocked(Change{Key: key, Done: done, Version: version, Confirmed: true})
		}
		return
	}

	if err != nil {
		t.logger.Warnw("failed to persist toggle, reverting", "item_id", key.ItemID, "kid_id", key.KidID, "error", err)
		e.done = e.server
		e.confirmed = true
		t.publishLocked(Change{Key: key, Done: e.server, Version: version, Reverted: true, Err: err})
		return
	}

	e.confirmed = true
	t.publishLocked(Change{Key: key, Done: done, Version: version, Confirmed: true})
}

// Wait blocks until every background write has finished
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

// Subscribe returns a channel of changes. The channel is closed once ctx is
// cancelled.
func (t *Tracker) Subscribe(ctx context.Context) <-chan Change {
	ch := make(chan Change, subscriberBuffer)

	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subs, id)
		close(ch)
		t.mu.Unlock()
	}()
	return ch
}

func (t *Tracker) publishLocked(c Change) {
	for id, ch := range t.subs {
		select {
		case ch <- c:
		default:
			t.logger.Warnw("subscriber is not keeping up, change dropped", "subscriber", id, "item_id", c.Key.ItemID)
		}
	}
}
