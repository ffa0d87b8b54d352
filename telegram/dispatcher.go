// Copyright (c) 2024, amarnathcjd

package telegram

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/amarnathcjd/waitfor/internal/utils"
)

const DefaultUnallowedClickAlert = "You're not expected to click this button."

// DispatchStats are running counters of a dispatcher.
type DispatchStats struct {
	Dispatched uint64
	Notified   uint64
	Unmatched  uint64
	Alerts     uint64
}

// Dispatcher routes decoded updates to the listeners of one registry.
type Dispatcher struct {
	registry  *ListenerRegistry
	logger    *utils.Logger
	answerer  CallbackAnswerer
	alertText string

	dispatched atomic.Uint64
	notified   atomic.Uint64
	unmatched  atomic.Uint64
	alerts     atomic.Uint64
}

func NewDispatcher(registry *ListenerRegistry, logger *utils.Logger) *Dispatcher {
	if logger == nil {
		logger = utils.NewLogger("waitfor dispatcher").SetLevel(utils.NoLevel)
	}
	return &Dispatcher{
		registry:  registry,
		logger:    logger,
		alertText: DefaultUnallowedClickAlert,
	}
}

// SetCallbackAnswerer enables alerts for clicks by users a callback listener
// is not waiting for.
func (d *Dispatcher) SetCallbackAnswerer(a CallbackAnswerer, text string) {
	d.answerer = a
	if text != "" {
		d.alertText = text
	}
}

// Dispatch offers ev to every listener of its type, oldest first, and returns
// how many were notified. Listeners waiting on different patterns all see the
// event; among one-shot listeners with the same pattern only the oldest one
// whose filters pass takes it. An update nobody waits for is not an error.
func (d *Dispatcher) Dispatch(ev Event) int {
	if ev == nil {
		return 0
	}
	d.dispatched.Add(1)

	kind, addr := ev.Type(), ev.Address()
	notified := 0
	var taken map[string]struct{}

	for _, l := range d.registry.Candidates(kind, addr) {
		if l.mode == OneShot {
			if _, ok := taken[l.patternKey]; ok {
				continue
			}
		}
		if !d.passes(l, ev) {
			continue
		}

		switch l.mode {
		case Persistent:
			if !d.registry.index.Has(l.id) {
				continue
			}
			notified++
			l.deliver(ev, func(ev Event) { d.runHandler(l, ev) })
		default:
			if !d.registry.settle(l, Result{Outcome: OutcomeMatched, Event: ev}) {
				// lost to a timeout, a stop or a concurrent dispatch
				continue
			}
			notified++
			if taken == nil {
				taken = make(map[string]struct{})
			}
			taken[l.patternKey] = struct{}{}
			if l.handler != nil {
				go d.runHandler(l, ev)
			}
		}
	}

	d.notified.Add(uint64(notified))
	if notified == 0 {
		d.unmatched.Add(1)
		if q, ok := ev.(*CallbackQuery); ok {
			d.alertUnallowedClick(q, addr)
		}
	}
	d.logger.Trace("dispatched %s to %d listener(s)", kind, notified)
	return notified
}

func (d *Dispatcher) passes(l *Listener, ev Event) (ok bool) {
	if len(l.filters) == 0 {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("[Filter] listener %s filter panicked: %v", l.id, r)
			ok = false
		}
	}()
	return runFilterChain(ev, l.filters)
}

func (d *Dispatcher) runHandler(l *Listener, ev Event) {
	defer utils.Recover(d.logger, "ListenerHandler")
	if err := l.handler(ev); err != nil {
		d.logger.WithError(err).WithField("listener", l.id).Error("[ListenerHandler] %s handler failed", l.kind)
	}
}

// alertUnallowedClick answers a click that only failed to match on the
// sender, when the listener asked for it.
func (d *Dispatcher) alertUnallowedClick(q *CallbackQuery, addr Address) {
	if d.answerer == nil || q.ID == "" {
		return
	}
	for _, l := range d.registry.Listeners(ListenerCallbackQuery) {
		if !l.clickAlert || !l.identifier.FromUserID.Defined() {
			continue
		}
		if !l.identifier.withoutUser().Matches(addr) {
			continue
		}
		d.alerts.Add(1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := d.answerer.AnswerCallback(ctx, q.ID, d.alertText, true); err != nil {
				d.logger.WithError(err).Warn("[UnallowedClick] answering callback %s", q.ID)
			}
		}()
		return
	}
}

func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Dispatched: d.dispatched.Load(),
		Notified:   d.notified.Load(),
		Unmatched:  d.unmatched.Load(),
		Alerts:     d.alerts.Load(),
	}
}
