// Package scenario replays scripted updates against a client and checks how
// each declared listener resolved. Scenarios are YAML documents.
package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"

	"github.com/amarnathcjd/waitfor/telegram"
)

// DefaultSettle is how long Run waits after the last event for listeners with
// no deadline of their own.
const DefaultSettle = 200 * time.Millisecond

type Scenario struct {
	Name      string         `yaml:"name"`
	Settle    time.Duration  `yaml:"settle"`
	Listeners []ListenerSpec `yaml:"listeners"`
	Events    []EventSpec    `yaml:"events"`
}

type ListenerSpec struct {
	Name            string        `yaml:"name"`
	Type            string        `yaml:"type"`
	Mode            string        `yaml:"mode"`
	ChatID          any           `yaml:"chat_id"`
	UserID          any           `yaml:"user_id"`
	MessageID       any           `yaml:"message_id"`
	InlineMessageID any           `yaml:"inline_message_id"`
	Filter          string        `yaml:"filter"`
	Timeout         time.Duration `yaml:"timeout"`

	Expect          string `yaml:"expect"`
	ExpectMessageID int32  `yaml:"expect_message_id"`
	ExpectHits      int64  `yaml:"expect_hits"`
}

// EventSpec is one step: exactly one of the update fields or Stop is set.
type EventSpec struct {
	After    time.Duration `yaml:"after"`
	Message  *MessageSpec  `yaml:"message"`
	Edited   *MessageSpec  `yaml:"edited_message"`
	Callback *CallbackSpec `yaml:"callback_query"`
	Inline   *InlineSpec   `yaml:"inline_query"`
	Chosen   *ChosenSpec   `yaml:"chosen_inline_result"`
	Stop     *StopSpec     `yaml:"stop"`
}

type MessageSpec struct {
	ChatID    int64  `yaml:"chat_id"`
	UserID    int64  `yaml:"user_id"`
	MessageID int32  `yaml:"message_id"`
	Text      string `yaml:"text"`
	Private   bool   `yaml:"private"`
	ReplyTo   int32  `yaml:"reply_to"`
}

type CallbackSpec struct {
	ID              string `yaml:"id"`
	ChatID          int64  `yaml:"chat_id"`
	UserID          int64  `yaml:"user_id"`
	MessageID       int32  `yaml:"message_id"`
	InlineMessageID string `yaml:"inline_message_id"`
	Data            string `yaml:"data"`
}

type InlineSpec struct {
	ID     string `yaml:"id"`
	UserID int64  `yaml:"user_id"`
	Query  string `yaml:"query"`
}

type ChosenSpec struct {
	ResultID        string `yaml:"result_id"`
	UserID          int64  `yaml:"user_id"`
	InlineMessageID string `yaml:"inline_message_id"`
	Query           string `yaml:"query"`
}

type StopSpec struct {
	Type            string `yaml:"type"`
	ChatID          any    `yaml:"chat_id"`
	UserID          any    `yaml:"user_id"`
	MessageID       any    `yaml:"message_id"`
	InlineMessageID any    `yaml:"inline_message_id"`
}

func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "parsing scenario")
	}
	if len(s.Listeners) == 0 {
		return nil, errors.New("[EmptyScenario] scenario declares no listeners")
	}
	for i := range s.Listeners {
		l := &s.Listeners[i]
		if l.Name == "" {
			l.Name = fmt.Sprintf("listener-%d", i+1)
		}
		if l.Expect == "" {
			l.Expect = telegram.OutcomeMatched.String()
			if l.Mode == telegram.Persistent.String() {
				l.Expect = "active"
			}
		}
	}
	if s.Settle <= 0 {
		s.Settle = DefaultSettle
	}
	return &s, nil
}

// Outcome of one listener after a replay.
type Outcome struct {
	Name      string
	Expected  string
	Got       string
	MessageID int32
	Hits      int64
	Problem   string
}

func (o Outcome) OK() bool { return o.Problem == "" }

type Report struct {
	Scenario   string
	Outcomes   []Outcome
	Dispatched int
	Notified   int
}

func (r *Report) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

type running struct {
	spec     ListenerSpec
	listener *telegram.Listener
	hits     atomic.Int64
	lastMsg  atomic.Int32
}

// Run registers every listener, plays the events in order and reports how
// each listener resolved. Listeners still pending once the scenario settled
// are stopped and reported as pending.
func Run(ctx context.Context, c *telegram.Client, s *Scenario) (report *Report, err error) {
	runs := make([]*running, 0, len(s.Listeners))
	defer func() {
		if err != nil {
			for _, r := range runs {
				c.RemoveListener(r.listener)
			}
		}
	}()
	for _, spec := range s.Listeners {
		r, err := register(ctx, c, spec)
		if err != nil {
			return nil, errors.Wrapf(err, "listener %q", spec.Name)
		}
		runs = append(runs, r)
	}

	report = &Report{Scenario: s.Name}
	for i, ev := range s.Events {
		if ev.After > 0 {
			select {
			case <-time.After(ev.After):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if ev.Stop != nil {
			if _, err := stop(ctx, c, ev.Stop); err != nil {
				return nil, errors.Wrapf(err, "event %d", i+1)
			}
			continue
		}
		update, err := ev.event()
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i+1)
		}
		report.Dispatched++
		report.Notified += c.Dispatch(update)
	}

	settle(ctx, runs, s.Settle)

	for _, r := range runs {
		report.Outcomes = append(report.Outcomes, r.finish(c))
	}
	return report, nil
}

func register(ctx context.Context, c *telegram.Client, spec ListenerSpec) (*running, error) {
	t, err := parseType(spec.Type)
	if err != nil {
		return nil, err
	}
	opts := &telegram.ListenOptions{
		Type:            t,
		ChatID:          spec.ChatID,
		UserID:          spec.UserID,
		MessageID:       spec.MessageID,
		InlineMessageID: spec.InlineMessageID,
		Timeout:         spec.Timeout,
	}
	if spec.Filter != "" {
		f, err := telegram.ExprFilter(spec.Filter)
		if err != nil {
			return nil, err
		}
		opts.Filters = []telegram.Filter{f}
	}

	r := &running{spec: spec}
	switch spec.Mode {
	case "", telegram.OneShot.String():
		r.listener, err = c.NewListener(ctx, opts)
	case telegram.Persistent.String():
		r.listener, err = c.Register(func(ev telegram.Event) error {
			r.hits.Add(1)
			if m, ok := ev.(*telegram.Message); ok {
				r.lastMsg.Store(m.ID)
			}
			return nil
		}, opts)
	default:
		return nil, errors.Errorf("[InvalidMode] unknown listener mode %q", spec.Mode)
	}
	return r, err
}

// settle waits for one-shot listeners to resolve, bounded by their own
// deadline or by grace when they have none.
func settle(ctx context.Context, runs []*running, grace time.Duration) {
	limit := time.Now().Add(grace)
	for _, r := range runs {
		if dl := r.listener.Deadline(); !dl.IsZero() && dl.After(limit) {
			limit = dl
		}
	}
	for _, r := range runs {
		if r.listener.Mode() == telegram.Persistent {
			continue
		}
		wait := time.Until(limit)
		if wait <= 0 {
			return
		}
		select {
		case <-r.listener.Done():
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
	if time.Now().Before(limit) {
		// persistent handlers run asynchronously
		select {
		case <-time.After(min(grace, time.Until(limit))):
		case <-ctx.Done():
		}
	}
}

func (r *running) finish(c *telegram.Client) Outcome {
	out := Outcome{Name: r.spec.Name, Expected: r.spec.Expect, Got: "pending"}

	if r.listener.Mode() == telegram.Persistent {
		out.Hits = r.hits.Load()
		out.MessageID = r.lastMsg.Load()
		if res := r.listener.Result(); res != nil {
			out.Got = res.Outcome.String()
		} else {
			out.Got = "active"
			c.StopListener(r.listener)
		}
		if r.spec.ExpectHits > 0 && out.Hits != r.spec.ExpectHits {
			out.Problem = fmt.Sprintf("expected %d hit(s), got %d", r.spec.ExpectHits, out.Hits)
		}
		if out.Problem == "" && r.spec.Expect != out.Got {
			out.Problem = "expected " + r.spec.Expect + ", got " + out.Got
		}
		return out
	}

	res := r.listener.Result()
	if res == nil {
		c.StopListener(r.listener)
	} else {
		out.Got = res.Outcome.String()
		if m := res.Message(); m != nil {
			out.MessageID = m.ID
		} else if q := res.CallbackQuery(); q != nil && q.Message != nil {
			out.MessageID = q.Message.ID
		}
	}
	switch {
	case out.Got != r.spec.Expect:
		out.Problem = "expected " + r.spec.Expect + ", got " + out.Got
	case r.spec.ExpectMessageID != 0 && out.MessageID != r.spec.ExpectMessageID:
		out.Problem = fmt.Sprintf("expected message %d, got %d", r.spec.ExpectMessageID, out.MessageID)
	}
	return out
}

func stop(ctx context.Context, c *telegram.Client, s *StopSpec) (int, error) {
	t, err := parseType(s.Type)
	if err != nil {
		return 0, err
	}
	return c.StopListening(ctx, &telegram.ListenOptions{
		Type:            t,
		ChatID:          s.ChatID,
		UserID:          s.UserID,
		MessageID:       s.MessageID,
		InlineMessageID: s.InlineMessageID,
	})
}

// parseType defaults to message listeners.
func parseType(s string) (telegram.ListenerType, error) {
	if s == "" {
		return telegram.ListenerMessage, nil
	}
	t, ok := telegram.ParseListenerType(s)
	if !ok {
		return 0, errors.Wrapf(telegram.ErrInvalidPattern, "unknown listener type %q", s)
	}
	return t, nil
}

func (m *MessageSpec) message(edited bool) *telegram.Message {
	chatType := telegram.ChatGroup
	if m.Private {
		chatType = telegram.ChatPrivate
	}
	msg := &telegram.Message{
		ID:               m.MessageID,
		Chat:             &telegram.Chat{ID: m.ChatID, Type: chatType},
		Text:             m.Text,
		Date:             time.Now().Unix(),
		ReplyToMessageID: m.ReplyTo,
		Edited:           edited,
	}
	if m.ChatID == 0 {
		msg.Chat = nil
	}
	if m.UserID != 0 {
		msg.From = &telegram.User{ID: m.UserID}
	}
	return msg
}

func user(id int64) *telegram.User {
	if id == 0 {
		return nil
	}
	return &telegram.User{ID: id}
}

func (e EventSpec) event() (telegram.Event, error) {
	switch {
	case e.Message != nil:
		return e.Message.message(false), nil
	case e.Edited != nil:
		return e.Edited.message(true), nil
	case e.Callback != nil:
		cb := e.Callback
		q := &telegram.CallbackQuery{ID: cb.ID, From: user(cb.UserID), InlineMessageID: cb.InlineMessageID, Data: cb.Data}
		if cb.MessageID != 0 || cb.ChatID != 0 {
			q.Message = (&MessageSpec{ChatID: cb.ChatID, MessageID: cb.MessageID}).message(false)
		}
		return q, nil
	case e.Inline != nil:
		return &telegram.InlineQuery{ID: e.Inline.ID, From: user(e.Inline.UserID), Query: e.Inline.Query}, nil
	case e.Chosen != nil:
		ch := e.Chosen
		return &telegram.ChosenInlineResult{ResultID: ch.ResultID, From: user(ch.UserID), InlineMessageID: ch.InlineMessageID, Query: ch.Query}, nil
	}
	return nil, errors.New("[EmptyEvent] event carries no update")
}
