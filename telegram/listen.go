package telegram

import (
	"context"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/amarnathcjd/waitfor/internal/utils"
)

// ListenOptions describe what a listener waits for. The id fields take a
// single value or a slice; user and chat ids may also be given as usernames,
// which are resolved through the client's PeerResolver.
type ListenOptions struct {
	Type            ListenerType
	ChatID          any
	UserID          any
	MessageID       any
	InlineMessageID any
	Filters         []Filter
	// Timeout is relative to registration; Deadline, when set, wins.
	Timeout  time.Duration
	Deadline time.Time
	// NoClickAlert disables the alert shown to users clicking a button a
	// callback listener is not waiting for them to click.
	NoClickAlert bool
}

func (o *ListenOptions) clone() *ListenOptions {
	if o == nil {
		return &ListenOptions{}
	}
	cp := *o
	return &cp
}

// Listen registers a one-shot listener and blocks until it matches, times out
// or is stopped. Timeouts and stops are reported through Result.Outcome, the
// error is only set for invalid options, a stopped client or an abandoned ctx.
func (c *Client) Listen(ctx context.Context, opts ...*ListenOptions) (*Result, error) {
	l, err := c.register(ctx, getVariadic(opts, nil), OneShot, nil)
	if err != nil {
		return nil, err
	}
	return l.Wait(ctx)
}

// Ask sends text to chatID and waits for the answer. The listener is
// registered before sending, so a fast reply cannot be missed. Unless set in
// opts, the listener waits on chatID; for a slice, the first chat is asked.
func (c *Client) Ask(ctx context.Context, chatID any, text string, opts ...*ListenOptions) (*Result, error) {
	o := getVariadic(opts, nil).clone()
	if o.ChatID == nil {
		o.ChatID = chatID
	}

	target, err := c.firstID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	l, err := c.register(ctx, o, OneShot, nil)
	if err != nil {
		return nil, err
	}

	var sent *Message
	if strings.TrimSpace(text) != "" {
		if c.sender == nil {
			l.Cancel()
			return nil, ErrNoTransport
		}
		sent, err = c.sender.SendMessage(ctx, target, text, 0)
		if err != nil {
			l.Cancel()
			return nil, errors.Wrap(err, "sending prompt")
		}
	}

	res, err := l.Wait(ctx)
	if err != nil {
		return nil, err
	}
	res.SentMessage = sent
	return res, nil
}

// RegisterNextStepHandler runs handler once, for the next matching update.
func (c *Client) RegisterNextStepHandler(handler Handler, opts ...*ListenOptions) (*Listener, error) {
	if handler == nil {
		return nil, errors.New("[NilHandler] handler must not be nil")
	}
	return c.register(context.Background(), getVariadic(opts, nil), OneShot, handler)
}

// Register runs handler for every matching update until the listener is stopped.
func (c *Client) Register(handler Handler, opts ...*ListenOptions) (*Listener, error) {
	if handler == nil {
		return nil, errors.New("[NilHandler] handler must not be nil")
	}
	return c.register(context.Background(), getVariadic(opts, nil), Persistent, handler)
}

// NewListener registers a one-shot listener without waiting on it.
func (c *Client) NewListener(ctx context.Context, opts ...*ListenOptions) (*Listener, error) {
	return c.register(ctx, getVariadic(opts, nil), OneShot, nil)
}

func (c *Client) register(ctx context.Context, o *ListenOptions, mode ListenerMode, handler Handler) (*Listener, error) {
	o = o.clone()
	if !o.Type.valid() {
		return nil, errors.Wrapf(ErrInvalidPattern, "unknown listener type %d", o.Type)
	}
	id, err := c.BuildIdentifier(ctx, o)
	if err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}

	deadline := o.Deadline
	if deadline.IsZero() {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = c.config.DefaultTimeout
		}
		if timeout > 0 {
			deadline = time.Now().Add(timeout)
		}
	}

	l := newListener(ListenerConfig{
		Type:                o.Type,
		Identifier:          id,
		Filters:             o.Filters,
		Mode:                mode,
		Handler:             handler,
		Deadline:            deadline,
		UnallowedClickAlert: !o.NoClickAlert,
	})
	if err := c.registry.Add(l); err != nil {
		return nil, err
	}
	c.Log.Debug("registered %s %s listener %s on %s", mode, o.Type, l.id, id)
	return l, nil
}

// StopListening cancels every listener of opts.Type whose pattern is covered
// by the pattern built from opts and returns how many were cancelled. With no
// ids set, every listener of that type is stopped.
func (c *Client) StopListening(ctx context.Context, opts ...*ListenOptions) (int, error) {
	o := getVariadic(opts, nil).clone()
	if !o.Type.valid() {
		return 0, errors.Wrapf(ErrInvalidPattern, "unknown listener type %d", o.Type)
	}
	id, err := c.BuildIdentifier(ctx, o)
	if err != nil {
		return 0, err
	}
	return c.StopMatching(o.Type, id), nil
}

// StopMatching is StopListening for an already built pattern.
func (c *Client) StopMatching(t ListenerType, pattern Identifier) int {
	n := c.registry.StopMatching(t, pattern)
	if n > 0 {
		c.Log.Debug("stopped %d %s listener(s) on %s", n, t, pattern)
	}
	return n
}

// StopListener cancels a single listener; false if it had already resolved.
func (c *Client) StopListener(l *Listener) bool {
	if l == nil {
		return false
	}
	return c.registry.Stop(l)
}

// RemoveListener drops l from the registry, cancelling it if still pending.
func (c *Client) RemoveListener(l *Listener) bool {
	if l == nil {
		return false
	}
	return c.registry.Remove(l.id)
}

// BuildIdentifier converts the id fields of opts into a pattern.
func (c *Client) BuildIdentifier(ctx context.Context, o *ListenOptions) (Identifier, error) {
	var id Identifier
	var err error
	if o == nil {
		return id, nil
	}
	if id.FromUserID, err = c.peerField(ctx, "user_id", o.UserID); err != nil {
		return id, err
	}
	if id.ChatID, err = c.peerField(ctx, "chat_id", o.ChatID); err != nil {
		return id, err
	}
	if id.MessageID, err = scalarField(o.MessageID, toMessageID); err != nil {
		return id, errors.Wrap(err, "message_id")
	}
	if id.InlineMessageID, err = scalarField(o.InlineMessageID, cast.ToStringE); err != nil {
		return id, errors.Wrap(err, "inline_message_id")
	}
	return id, nil
}

func (c *Client) peerField(ctx context.Context, name string, v any) (Field[int64], error) {
	if v == nil {
		return Field[int64]{}, nil
	}
	var ids []int64
	for _, item := range flatten(v) {
		id, err := c.resolvePeer(ctx, item)
		if err != nil {
			return Field[int64]{}, errors.Wrap(err, name)
		}
		ids = append(ids, id)
	}
	return AnyOf(utils.Dedupe(ids)...), nil
}

func (c *Client) firstID(ctx context.Context, v any) (int64, error) {
	items := flatten(v)
	if len(items) == 0 {
		return 0, errors.Wrap(ErrInvalidPattern, "no chat to ask")
	}
	return c.resolvePeer(ctx, items[0])
}

func (c *Client) resolvePeer(ctx context.Context, v any) (int64, error) {
	switch p := v.(type) {
	case *User:
		return p.ID, nil
	case *Chat:
		return p.ID, nil
	}
	if id, err := cast.ToInt64E(v); err == nil {
		return id, nil
	}
	name, err := cast.ToStringE(v)
	if err != nil {
		return 0, err
	}
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return 0, errors.Wrap(ErrInvalidPattern, "empty username")
	}
	if c.resolver == nil {
		return 0, errors.Wrapf(ErrNoTransport, "resolving @%s", name)
	}
	return c.resolver.ResolveUsername(ctx, name)
}

// toMessageID rejects ids that do not fit a message id instead of truncating them.
func toMessageID(v any) (int32, error) {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errors.Wrapf(ErrInvalidPattern, "message id %d out of range", n)
	}
	return int32(n), nil
}

func scalarField[T comparable](v any, conv func(any) (T, error)) (Field[T], error) {
	if v == nil {
		return Field[T]{}, nil
	}
	var vals []T
	for _, item := range flatten(v) {
		x, err := conv(item)
		if err != nil {
			return Field[T]{}, err
		}
		vals = append(vals, x)
	}
	return AnyOf(utils.Dedupe(vals)...), nil
}

// flatten turns a scalar or any slice into []any.
func flatten(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
