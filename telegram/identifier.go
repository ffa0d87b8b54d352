package telegram

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Field is one constraint of an Identifier: unconstrained (the zero value),
// a single value, or a set of values.
type Field[T comparable] struct {
	vals []T
	set  bool
}

// One constrains a field to a single value.
func One[T comparable](v T) Field[T] {
	return Field[T]{vals: []T{v}, set: true}
}

// AnyOf constrains a field to a set of values. AnyOf() with no values is an
// explicitly empty set, which Validate rejects.
func AnyOf[T comparable](vals ...T) Field[T] {
	return Field[T]{vals: slices.Clone(vals), set: true}
}

func (f Field[T]) Defined() bool { return f.set }

func (f Field[T]) Values() []T { return slices.Clone(f.vals) }

func (f Field[T]) Contains(v T) bool {
	return slices.Contains(f.vals, v)
}

func (f Field[T]) intersects(o Field[T]) bool {
	for _, v := range o.vals {
		if f.Contains(v) {
			return true
		}
	}
	return false
}

// accepts reports whether an event value passes this field; zero means absent.
func (f Field[T]) accepts(v T) bool {
	if !f.set {
		return true
	}
	var zero T
	if v == zero {
		return false
	}
	return f.Contains(v)
}

func (f Field[T]) String() string {
	switch {
	case !f.set:
		return "*"
	case len(f.vals) == 1:
		return fmt.Sprint(f.vals[0])
	default:
		parts := make([]string, len(f.vals))
		for i, v := range f.vals {
			parts[i] = fmt.Sprint(v)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
}

// Address is where an incoming event comes from. Zero fields are absent.
type Address struct {
	FromUserID      int64
	ChatID          int64
	MessageID       int32
	InlineMessageID string
}

// Identifier is the pattern a listener waits on. It is never mutated after
// construction and can be shared between goroutines.
type Identifier struct {
	FromUserID      Field[int64]
	ChatID          Field[int64]
	MessageID       Field[int32]
	InlineMessageID Field[string]
}

// Matches tests a concrete event address against the pattern.
func (id Identifier) Matches(addr Address) bool {
	return id.FromUserID.accepts(addr.FromUserID) &&
		id.ChatID.accepts(addr.ChatID) &&
		id.MessageID.accepts(addr.MessageID) &&
		id.InlineMessageID.accepts(addr.InlineMessageID)
}

// Covers is the stop-side comparison between two patterns: every field set on
// id must also be set on other and share at least one value with it. Fields
// left unconstrained on id accept anything, so the wildcard covers everything.
func (id Identifier) Covers(other Identifier) bool {
	return covers(id.FromUserID, other.FromUserID) &&
		covers(id.ChatID, other.ChatID) &&
		covers(id.MessageID, other.MessageID) &&
		covers(id.InlineMessageID, other.InlineMessageID)
}

func covers[T comparable](q, l Field[T]) bool {
	if !q.set {
		return true
	}
	return l.set && q.intersects(l)
}

func (id Identifier) IsWildcard() bool {
	return !id.FromUserID.set && !id.ChatID.set && !id.MessageID.set && !id.InlineMessageID.set
}

// withoutUser drops the sender constraint, used to spot callback clicks by
// users a listener was not waiting for.
func (id Identifier) withoutUser() Identifier {
	id.FromUserID = Field[int64]{}
	return id
}

// key is a canonical form of the pattern, equal for equal patterns whatever
// the order their values were given in.
func (id Identifier) key() string {
	return fieldKey(id.FromUserID) + "|" + fieldKey(id.ChatID) + "|" +
		fieldKey(id.MessageID) + "|" + fieldKey(id.InlineMessageID)
}

func fieldKey[T comparable](f Field[T]) string {
	if !f.set {
		return "*"
	}
	parts := make([]string, len(f.vals))
	for i, v := range f.vals {
		parts[i] = fmt.Sprint(v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (id Identifier) String() string {
	return fmt.Sprintf("{user=%s chat=%s msg=%s inline=%s}",
		id.FromUserID, id.ChatID, id.MessageID, id.InlineMessageID)
}

// Validate rejects patterns that could never match anything.
func (id Identifier) Validate() error {
	var result *multierror.Error

	check := func(name string, defined bool, n int, bad int) {
		if !defined {
			return
		}
		if n == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: empty value set", name))
		}
		if bad > 0 {
			result = multierror.Append(result, fmt.Errorf("%s: %d invalid value(s)", name, bad))
		}
	}

	check("from_user_id", id.FromUserID.set, len(id.FromUserID.vals), countIf(id.FromUserID.vals, func(v int64) bool { return v == 0 }))
	check("chat_id", id.ChatID.set, len(id.ChatID.vals), countIf(id.ChatID.vals, func(v int64) bool { return v == 0 }))
	check("message_id", id.MessageID.set, len(id.MessageID.vals), countIf(id.MessageID.vals, func(v int32) bool { return v <= 0 }))
	check("inline_message_id", id.InlineMessageID.set, len(id.InlineMessageID.vals), countIf(id.InlineMessageID.vals, func(v string) bool { return strings.TrimSpace(v) == "" }))

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(ErrInvalidPattern, err.Error())
	}
	return nil
}

func countIf[T any](vals []T, bad func(T) bool) int {
	n := 0
	for _, v := range vals {
		if bad(v) {
			n++
		}
	}
	return n
}
