package telegram

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type ListenerMode int

const (
	// OneShot listeners resolve on their first match and leave the registry.
	OneShot ListenerMode = iota
	// Persistent listeners run their handler on every match until stopped.
	Persistent
)

func (m ListenerMode) String() string {
	if m == Persistent {
		return "persistent"
	}
	return "one_shot"
}

type Outcome int

const (
	OutcomeMatched Outcome = iota + 1
	OutcomeCancelled
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// Result is what a listener resolves with. Event is set only when Outcome is
// OutcomeMatched.
type Result struct {
	Outcome Outcome
	Event   Event
	// SentMessage is the prompt sent by Ask, if any.
	SentMessage *Message

	timeout time.Duration
}

func (r *Result) Matched() bool { return r != nil && r.Outcome == OutcomeMatched }

// Err turns a non-matching outcome into an error for callers that prefer
// error style control flow.
func (r *Result) Err() error {
	switch r.Outcome {
	case OutcomeMatched:
		return nil
	case OutcomeTimedOut:
		return &ListenerTimeoutError{Timeout: r.timeout}
	default:
		return ErrListenerStopped
	}
}

// Message returns the matched event as a message, or nil.
func (r *Result) Message() *Message {
	m, _ := r.Event.(*Message)
	return m
}

// CallbackQuery returns the matched event as a callback query, or nil.
func (r *Result) CallbackQuery() *CallbackQuery {
	q, _ := r.Event.(*CallbackQuery)
	return q
}

// Handler is run for every match of a handler listener. The returned error is
// logged, it does not affect the listener.
type Handler func(ev Event) error

// Listener is one registered wait request. The registry holds the only
// authoritative reference; callers keep it to wait on or cancel.
type Listener struct {
	id         string
	kind       ListenerType
	identifier Identifier
	patternKey string
	filters    []Filter
	mode       ListenerMode
	handler    Handler
	deadline   time.Time
	timeout    time.Duration
	clickAlert bool

	resolved atomic.Bool
	result   Result
	done     chan struct{}

	timerMu  sync.Mutex
	timer    *time.Timer
	registry *ListenerRegistry

	// persistent handler queue, drained by one worker in arrival order
	queueMu sync.Mutex
	queue   []Event
	wake    chan struct{}
	worker  sync.Once
}

// ListenerConfig describes a listener before it is registered.
type ListenerConfig struct {
	Type       ListenerType
	Identifier Identifier
	Filters    []Filter
	Mode       ListenerMode
	Handler    Handler
	// Deadline is absolute; zero means no deadline.
	Deadline time.Time
	// UnallowedClickAlert answers callback clicks from users the listener is
	// not waiting for with an alert.
	UnallowedClickAlert bool
}

func newListener(cfg ListenerConfig) *Listener {
	l := &Listener{
		id:         uuid.NewString(),
		kind:       cfg.Type,
		identifier: cfg.Identifier,
		patternKey: cfg.Identifier.key(),
		filters:    append([]Filter(nil), cfg.Filters...),
		mode:       cfg.Mode,
		handler:    cfg.Handler,
		deadline:   cfg.Deadline,
		clickAlert: cfg.UnallowedClickAlert,
		done:       make(chan struct{}),
		wake:       make(chan struct{}, 1),
	}
	if !cfg.Deadline.IsZero() {
		l.timeout = time.Until(cfg.Deadline).Round(time.Millisecond)
	}
	return l
}

func (l *Listener) ID() string             { return l.id }
func (l *Listener) Type() ListenerType     { return l.kind }
func (l *Listener) Identifier() Identifier { return l.identifier }
func (l *Listener) Mode() ListenerMode     { return l.mode }
func (l *Listener) Deadline() time.Time    { return l.deadline }

// resolve fills the result slot. Only the first call wins; later calls are
// dropped and report false.
func (l *Listener) resolve(res Result) bool {
	if !l.claim() {
		return false
	}
	l.complete(res)
	return true
}

// claim reserves the result slot without publishing it yet.
func (l *Listener) claim() bool {
	return l.resolved.CompareAndSwap(false, true)
}

// complete publishes res and wakes waiters; the caller won claim.
func (l *Listener) complete(res Result) {
	res.timeout = l.timeout
	l.result = res
	close(l.done)
	l.stopTimer()
}

// deliver queues ev for the handler of a persistent listener. The handler
// sees queued events one at a time, in the order they were delivered.
func (l *Listener) deliver(ev Event, run func(Event)) {
	l.queueMu.Lock()
	l.queue = append(l.queue, ev)
	l.queueMu.Unlock()

	l.worker.Do(func() { go l.work(run) })
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Listener) work(run func(Event)) {
	for {
		select {
		case <-l.wake:
		case <-l.done:
		}
		for {
			l.queueMu.Lock()
			if len(l.queue) == 0 {
				l.queueMu.Unlock()
				break
			}
			ev := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.queueMu.Unlock()
			run(ev)
		}
		if l.resolved.Load() {
			return
		}
	}
}

func (l *Listener) Resolved() bool { return l.resolved.Load() }

// Done is closed once the listener has resolved.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Result returns the resolution, or nil while still pending.
func (l *Listener) Result() *Result {
	select {
	case <-l.done:
		res := l.result
		return &res
	default:
		return nil
	}
}

// Wait blocks until the listener resolves or ctx ends. If ctx ends first the
// listener is abandoned: removed when still registered, untouched otherwise.
func (l *Listener) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-l.done:
		return l.Result(), nil
	case <-ctx.Done():
		l.Cancel()
		// a match may have won the race against the abandonment
		if res := l.Result(); res != nil && res.Outcome == OutcomeMatched {
			return res, nil
		}
		return nil, ctx.Err()
	}
}

// Cancel resolves the listener as cancelled and removes it. It is a no-op on
// a listener that already resolved.
func (l *Listener) Cancel() {
	if l.registry != nil {
		l.registry.Remove(l.id)
		return
	}
	l.resolve(Result{Outcome: OutcomeCancelled})
}

func (l *Listener) armTimer(fire func()) {
	if l.deadline.IsZero() {
		return
	}
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.resolved.Load() {
		return
	}
	l.timer = time.AfterFunc(time.Until(l.deadline), fire)
}

func (l *Listener) stopTimer() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
