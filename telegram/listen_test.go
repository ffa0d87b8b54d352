package telegram_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

// fakeBot sends by recording, and can answer a prompt before SendMessage
// returns, the way a fast user would.
type fakeBot struct {
	mu      sync.Mutex
	sent    []string
	client  *telegram.Client
	reply   string
	failErr error
	users   map[string]int64
}

func (b *fakeBot) SendMessage(_ context.Context, chatID int64, text string, replyTo int32) (*telegram.Message, error) {
	if b.failErr != nil {
		return nil, b.failErr
	}
	b.mu.Lock()
	b.sent = append(b.sent, text)
	id := int32(100 + len(b.sent))
	b.mu.Unlock()

	if b.reply != "" {
		b.client.Dispatch(chatMessage(chatID, chatID, id+1, b.reply))
	}
	return &telegram.Message{ID: id, Chat: &telegram.Chat{ID: chatID}, Text: text, ReplyToMessageID: replyTo, Outgoing: true}, nil
}

func (b *fakeBot) ResolveUsername(_ context.Context, name string) (int64, error) {
	if id, ok := b.users[name]; ok {
		return id, nil
	}
	return 0, errors.New("USERNAME_NOT_OCCUPIED")
}

func newBotClient(t *testing.T, bot *fakeBot) *telegram.Client {
	c := newClient(t, telegram.ClientConfig{Transport: bot})
	bot.client = c
	return c
}

func TestListenMatches(t *testing.T) {
	c := newClient(t)
	go func() {
		assert.Eventually(t, func() bool { return c.Registry().Len(telegram.ListenerMessage) == 1 }, time.Second, time.Millisecond)
		c.Dispatch(chatMessage(20, 3, 1, "ping"))
	}()

	res, err := c.Listen(context.Background(), &telegram.ListenOptions{ChatID: 20, UserID: 3, Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.NoError(t, res.Err())
	assert.Equal(t, "ping", res.Message().Text)
	assert.Zero(t, c.Registry().Total())
}

func TestListenTimesOut(t *testing.T) {
	c := newClient(t)
	res, err := c.Listen(context.Background(), &telegram.ListenOptions{ChatID: 20, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, telegram.OutcomeTimedOut, res.Outcome)
	assert.Nil(t, res.Event)

	err = res.Err()
	assert.True(t, telegram.IsTimeout(err))
	assert.Contains(t, err.Error(), "20ms")
	assert.Zero(t, c.Registry().Total())
}

func TestListenDefaultTimeout(t *testing.T) {
	c := newClient(t, telegram.ClientConfig{DefaultTimeout: 10 * time.Millisecond})
	res, err := c.Listen(context.Background(), &telegram.ListenOptions{ChatID: 1})
	require.NoError(t, err)
	assert.Equal(t, telegram.OutcomeTimedOut, res.Outcome)
}

func TestListenStoppedReportsCancelled(t *testing.T) {
	c := newClient(t)
	go func() {
		assert.Eventually(t, func() bool { return c.Registry().Total() == 1 }, time.Second, time.Millisecond)
		_, _ = c.StopListening(context.Background(), &telegram.ListenOptions{ChatID: 20})
	}()

	res, err := c.Listen(context.Background(), &telegram.ListenOptions{ChatID: []int64{20, 21}})
	require.NoError(t, err)
	assert.Equal(t, telegram.OutcomeCancelled, res.Outcome)
	assert.ErrorIs(t, res.Err(), telegram.ErrListenerStopped)
}

func TestAbandonedListenRemovesListener(t *testing.T) {
	c := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := c.Listen(ctx, &telegram.ListenOptions{ChatID: 1})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Registry().Total())
	assert.Zero(t, c.Dispatch(chatMessage(1, 1, 1, "late")))
}

func TestInvalidPatterns(t *testing.T) {
	c := newClient(t)
	for name, opts := range map[string]*telegram.ListenOptions{
		"empty chat set":  {ChatID: []int64{}},
		"zero user":       {UserID: 0},
		"negative msg id": {MessageID: -4},
		"msg id overflow": {MessageID: int64(1<<32 + 5)},
		"msg id in list":  {MessageID: []int64{7, 1 << 40}},
		"blank inline id": {Type: telegram.ListenerCallbackQuery, InlineMessageID: " "},
		"unknown type":    {Type: telegram.ListenerType(99)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.NewListener(context.Background(), opts)
			assert.ErrorIs(t, err, telegram.ErrInvalidPattern)
		})
	}
	assert.Zero(t, c.Registry().Total())
}

func TestAskRegistersBeforeSending(t *testing.T) {
	bot := &fakeBot{reply: "blue"}
	c := newBotClient(t, bot)

	res, err := c.Ask(context.Background(), 77, "favourite colour?", &telegram.ListenOptions{Timeout: time.Second})
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, "blue", res.Message().Text)
	require.NotNil(t, res.SentMessage)
	assert.Equal(t, "favourite colour?", res.SentMessage.Text)
	assert.Equal(t, []string{"favourite colour?"}, bot.sent)
}

func TestAskSendFailureCancelsListener(t *testing.T) {
	bot := &fakeBot{failErr: errors.New("CHAT_WRITE_FORBIDDEN")}
	c := newBotClient(t, bot)

	_, err := c.Ask(context.Background(), 77, "hi?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_WRITE_FORBIDDEN")
	assert.Zero(t, c.Registry().Total())
}

func TestAskWithoutTransport(t *testing.T) {
	c := newClient(t)
	_, err := c.Ask(context.Background(), 77, "hi?")
	assert.ErrorIs(t, err, telegram.ErrNoTransport)
	assert.Zero(t, c.Registry().Total())
}

func TestUsernamesAreResolved(t *testing.T) {
	bot := &fakeBot{users: map[string]int64{"alice": 501}}
	c := newBotClient(t, bot)

	l, err := c.NewListener(context.Background(), &telegram.ListenOptions{UserID: "@alice", ChatID: []any{"alice", int64(-100)}})
	require.NoError(t, err)
	assert.Equal(t, []int64{501}, l.Identifier().FromUserID.Values())
	assert.Equal(t, []int64{501, -100}, l.Identifier().ChatID.Values())

	_, err = c.NewListener(context.Background(), &telegram.ListenOptions{UserID: "bob"})
	assert.ErrorContains(t, err, "USERNAME_NOT_OCCUPIED")

	bare := newClient(t)
	_, err = bare.NewListener(context.Background(), &telegram.ListenOptions{UserID: "alice"})
	assert.ErrorIs(t, err, telegram.ErrNoTransport)
}

func TestBoundHelpers(t *testing.T) {
	bot := &fakeBot{reply: "sure"}
	c := newBotClient(t, bot)
	user := &telegram.User{ID: 9}

	res, err := user.Ask(context.Background(), c, "coffee?", &telegram.ListenOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "sure", res.Message().Text)

	chat := &telegram.Chat{ID: -5}
	_, err = c.NewListener(context.Background(), &telegram.ListenOptions{ChatID: -5})
	require.NoError(t, err)
	n, err := chat.StopListening(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
