package telegram_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

func TestIdentifierMatches(t *testing.T) {
	pattern := telegram.Identifier{
		ChatID:    telegram.One[int64](-100),
		MessageID: telegram.AnyOf[int32](5, 6),
	}

	assert.True(t, pattern.Matches(telegram.Address{ChatID: -100, MessageID: 6, FromUserID: 9}))
	assert.False(t, pattern.Matches(telegram.Address{ChatID: -100, MessageID: 7}))
	assert.False(t, pattern.Matches(telegram.Address{ChatID: -101, MessageID: 5}))
	// a constrained field needs the event to carry it
	assert.False(t, pattern.Matches(telegram.Address{ChatID: -100}))
}

func TestWildcardIdentifierMatchesEverything(t *testing.T) {
	var wildcard telegram.Identifier
	assert.True(t, wildcard.IsWildcard())
	assert.True(t, wildcard.Matches(telegram.Address{}))
	assert.True(t, wildcard.Matches(telegram.Address{ChatID: 1, FromUserID: 2, MessageID: 3, InlineMessageID: "x"}))
	assert.NoError(t, wildcard.Validate())
}

func TestIdentifierCovers(t *testing.T) {
	chat1 := telegram.Identifier{ChatID: telegram.One[int64](1)}
	chat1User5 := telegram.Identifier{ChatID: telegram.One[int64](1), FromUserID: telegram.One[int64](5)}
	chats12 := telegram.Identifier{ChatID: telegram.AnyOf[int64](1, 2)}

	assert.True(t, telegram.Identifier{}.Covers(chat1User5))
	assert.True(t, chat1.Covers(chat1User5))
	assert.True(t, chat1.Covers(chats12), "sets intersect")
	assert.False(t, chat1User5.Covers(chat1), "listener without a user constraint is not covered by a user stop")
	assert.False(t, telegram.Identifier{ChatID: telegram.One[int64](3)}.Covers(chats12))
}

func TestIdentifierValidate(t *testing.T) {
	bad := telegram.Identifier{
		ChatID:          telegram.AnyOf[int64](),
		MessageID:       telegram.One[int32](0),
		InlineMessageID: telegram.One(" "),
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, telegram.ErrInvalidPattern))
	assert.Contains(t, err.Error(), "chat_id: empty value set")
	assert.Contains(t, err.Error(), "message_id: 1 invalid value(s)")
	assert.Contains(t, err.Error(), "inline_message_id")

	good := telegram.Identifier{ChatID: telegram.One[int64](-1001), FromUserID: telegram.AnyOf[int64](1, 2)}
	assert.NoError(t, good.Validate())
}

func TestIdentifierIsImmutable(t *testing.T) {
	ids := []int64{1, 2}
	f := telegram.AnyOf(ids...)
	ids[0] = 99

	assert.True(t, f.Contains(1))
	vals := f.Values()
	vals[1] = 42
	assert.True(t, f.Contains(2))
	assert.Equal(t, "[1,2]", f.String())
}
