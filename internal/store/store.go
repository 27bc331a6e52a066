package store

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Listener receives every snapshot published after it subscribed.
type Listener func(*Snapshot)

type subscriber struct {
	fn   Listener
	mu   sync.Mutex
	last uint64
}

// Store publishes snapshots. Apply is safe for concurrent use.
type Store struct {
	log logrus.FieldLogger

	applyMu sync.Mutex
	current atomic.Pointer[Snapshot]

	subMu       sync.RWMutex
	subscribers map[string]*subscriber
}

// New creates an empty store at version 0.
func New(log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{
		log:         log.WithField("component", "store"),
		subscribers: make(map[string]*subscriber),
	}
	s.current.Store(emptySnapshot())
	return s
}

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Apply builds the next snapshot from the current one, publishes it and
// notifies subscribers. Calling Apply with no mutations still publishes a
// new version.
func (s *Store) Apply(mutations ...Mutation) *Snapshot {
	s.applyMu.Lock()
	b := newBuilder(s.current.Load())
	for _, m := range mutations {
		if m != nil {
			m(b)
		}
	}
	b.next.version++
	next := b.next
	s.current.Store(next)
	s.applyMu.Unlock()

	s.notify(next)
	return next
}

// Subscribe registers fn for future snapshots. The returned function
// unsubscribes and is safe to call more than once.
//
// Listeners run on the goroutine that called Apply and see versions in
// increasing order; a listener that falls behind skips stale snapshots.
// A listener must not call Apply itself.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	id := uuid.NewString()
	s.subMu.Lock()
	s.subscribers[id] = &subscriber{fn: fn}
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(snap *Snapshot) {
	s.subMu.RLock()
	subs := make([]*subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.subMu.RUnlock()

	for _, sub := range subs {
		s.deliver(sub, snap)
	}
}

func (s *Store) deliver(sub *subscriber, snap *Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if snap.version <= sub.last {
		return
	}
	sub.last = snap.version
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("version", snap.version).Errorf("[Store] PANIC recovered in listener: %v", r)
		}
	}()
	sub.fn(snap)
}
