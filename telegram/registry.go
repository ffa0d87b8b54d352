package telegram

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/amarnathcjd/waitfor/internal/utils"
)

type listenerBucket struct {
	sync.Mutex
	listeners []*Listener
}

func (b *listenerBucket) indexOf(l *Listener) int {
	return slices.Index(b.listeners, l)
}

// remove drops l from the bucket, caller holds the lock.
func (b *listenerBucket) remove(l *Listener) bool {
	i := b.indexOf(l)
	if i < 0 {
		return false
	}
	b.listeners = slices.Delete(b.listeners, i, i+1)
	return true
}

// ListenerRegistry stores the active listeners of one client, one insertion
// ordered bucket per listener type. Every insert, removal and resolution of a
// registered listener happens under its bucket's lock, so a scan never sees a
// listener that is resolved but still registered, or removed but unresolved.
type ListenerRegistry struct {
	buckets map[ListenerType]*listenerBucket
	index   *utils.SyncMap[string, *Listener]
	closed  atomic.Bool

	// OnTimeout and OnStop run after a listener timed out or was stopped by
	// StopMatching or Stop. Set them before the first Add.
	OnTimeout func(*Listener)
	OnStop    func(*Listener)
}

func NewListenerRegistry() *ListenerRegistry {
	r := &ListenerRegistry{
		buckets: make(map[ListenerType]*listenerBucket, len(listenerTypes)),
		index:   utils.NewSyncMap[string, *Listener](),
	}
	for _, t := range listenerTypes {
		r.buckets[t] = &listenerBucket{}
	}
	return r
}

func (r *ListenerRegistry) bucket(t ListenerType) *listenerBucket {
	return r.buckets[t]
}

// Add inserts l at the end of its type's bucket and arms its deadline.
func (r *ListenerRegistry) Add(l *Listener) error {
	b := r.bucket(l.kind)
	if b == nil {
		return ErrInvalidPattern
	}

	b.Lock()
	if r.closed.Load() {
		b.Unlock()
		return ErrRegistryClosed
	}
	if l.resolved.Load() || !r.index.AddIfAbsent(l.id, l) {
		b.Unlock()
		return ErrDuplicateListen
	}
	l.registry = r
	b.listeners = append(b.listeners, l)
	b.Unlock()

	l.armTimer(func() {
		if r.settle(l, Result{Outcome: OutcomeTimedOut}) && r.OnTimeout != nil {
			r.OnTimeout(l)
		}
	})
	return nil
}

// settle resolves l with res and unregisters it in one step. Waiters are woken
// only after l left the registry. It reports false when l was already
// resolved or is not registered here.
func (r *ListenerRegistry) settle(l *Listener, res Result) bool {
	b := r.bucket(l.kind)
	b.Lock()
	defer b.Unlock()
	if b.indexOf(l) < 0 {
		return false
	}
	if !l.claim() {
		return false
	}
	b.remove(l)
	r.index.Delete(l.id)
	l.complete(res)
	return true
}

// Stop cancels l like Remove, and runs OnStop when this call stopped it.
func (r *ListenerRegistry) Stop(l *Listener) bool {
	if !r.settle(l, Result{Outcome: OutcomeCancelled}) {
		return false
	}
	if r.OnStop != nil {
		r.OnStop(l)
	}
	return true
}

// Remove cancels and unregisters the listener with the given id. Removing an
// unknown or already removed id does nothing.
func (r *ListenerRegistry) Remove(id string) bool {
	l, ok := r.index.Get(id)
	if !ok {
		return false
	}
	return r.settle(l, Result{Outcome: OutcomeCancelled})
}

// Get looks a registered listener up by id.
func (r *ListenerRegistry) Get(id string) (*Listener, bool) {
	return r.index.Get(id)
}

// Listeners returns a snapshot of the listeners of type t in registration order.
func (r *ListenerRegistry) Listeners(t ListenerType) []*Listener {
	b := r.bucket(t)
	if b == nil {
		return nil
	}
	b.Lock()
	defer b.Unlock()
	return slices.Clone(b.listeners)
}

func (r *ListenerRegistry) Len(t ListenerType) int {
	b := r.bucket(t)
	if b == nil {
		return 0
	}
	b.Lock()
	defer b.Unlock()
	return len(b.listeners)
}

// Total counts listeners across all types.
func (r *ListenerRegistry) Total() int {
	return r.index.Len()
}

// MatchingPattern returns the listeners of type t whose own pattern is covered
// by the query pattern, the stop side lookup.
func (r *ListenerRegistry) MatchingPattern(t ListenerType, pattern Identifier) []*Listener {
	var out []*Listener
	for _, l := range r.Listeners(t) {
		if pattern.Covers(l.identifier) {
			out = append(out, l)
		}
	}
	return out
}

// Candidates returns the listeners of type t whose pattern accepts addr, the
// dispatch side lookup.
func (r *ListenerRegistry) Candidates(t ListenerType, addr Address) []*Listener {
	var out []*Listener
	for _, l := range r.Listeners(t) {
		if l.identifier.Matches(addr) {
			out = append(out, l)
		}
	}
	return out
}

// StopMatching cancels every listener of type t covered by pattern and
// returns how many this call resolved.
func (r *ListenerRegistry) StopMatching(t ListenerType, pattern Identifier) int {
	n := 0
	for _, l := range r.MatchingPattern(t, pattern) {
		if r.Stop(l) {
			n++
		}
	}
	return n
}

// Close cancels every listener and rejects later inserts.
func (r *ListenerRegistry) Close() int {
	r.closed.Store(true)
	n := 0
	for _, t := range listenerTypes {
		b := r.bucket(t)
		b.Lock()
		pending := b.listeners
		b.listeners = nil
		for _, l := range pending {
			r.index.Delete(l.id)
			if l.resolve(Result{Outcome: OutcomeCancelled}) {
				n++
			}
		}
		b.Unlock()
	}
	return n
}

func (r *ListenerRegistry) Closed() bool { return r.closed.Load() }
