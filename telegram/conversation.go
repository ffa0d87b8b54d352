package telegram

import (
	"context"
	"slices"
	"sync"
	"time"
)

const ConvDefaultTimeOut = 60 * time.Second

// Conversation is a struct for conversation with user.
type Conversation struct {
	Client    *Client
	ChatID    int64
	isPrivate bool
	timeOut   time.Duration
	mu        sync.Mutex
	openL     []*Listener
	lastMsg   *Message
}

// NewConversation opens a conversation in the chat given by peer (an id,
// username, *User or *Chat).
func (c *Client) NewConversation(ctx context.Context, peer any, isPrivate bool, timeout ...time.Duration) (*Conversation, error) {
	chatID, err := c.resolvePeer(ctx, peer)
	if err != nil {
		return nil, err
	}
	return &Conversation{
		Client:    c,
		ChatID:    chatID,
		isPrivate: isPrivate,
		timeOut:   getVariadic(timeout, ConvDefaultTimeOut),
	}, nil
}

// ConversationFor continues the conversation m belongs to; Reply quotes m.
func (c *Client) ConversationFor(m *Message) *Conversation {
	return &Conversation{
		Client:    c,
		ChatID:    m.ChatID(),
		isPrivate: m.IsPrivate(),
		timeOut:   ConvDefaultTimeOut,
		lastMsg:   m,
	}
}

// SetTimeOut sets the timeout for conversation
func (c *Conversation) SetTimeOut(timeout time.Duration) *Conversation {
	c.timeOut = timeout
	return c
}

func (c *Conversation) Respond(ctx context.Context, text string) (*Message, error) {
	if c.Client.sender == nil {
		return nil, ErrNoTransport
	}
	return c.Client.sender.SendMessage(ctx, c.ChatID, text, 0)
}

// Reply responds quoting the last message received in the conversation.
func (c *Conversation) Reply(ctx context.Context, text string) (*Message, error) {
	if c.Client.sender == nil {
		return nil, ErrNoTransport
	}
	var replyTo int32
	c.mu.Lock()
	if c.lastMsg != nil {
		replyTo = c.lastMsg.ID
	}
	c.mu.Unlock()
	return c.Client.sender.SendMessage(ctx, c.ChatID, text, replyTo)
}

func (c *Conversation) GetResponse(ctx context.Context) (*Message, error) {
	return c.waitMessage(ctx, ListenerMessage)
}

func (c *Conversation) GetEdit(ctx context.Context) (*Message, error) {
	return c.waitMessage(ctx, ListenerEditedMessage)
}

func (c *Conversation) GetReply(ctx context.Context) (*Message, error) {
	return c.waitMessage(ctx, ListenerMessage, FilterReply)
}

// WaitClick waits for a button click on any message of the conversation.
func (c *Conversation) WaitClick(ctx context.Context) (*CallbackQuery, error) {
	ev, err := c.WaitEvent(ctx, ListenerCallbackQuery)
	if err != nil {
		return nil, err
	}
	return ev.(*CallbackQuery), nil
}

func (c *Conversation) WaitEvent(ctx context.Context, t ListenerType, filters ...Filter) (Event, error) {
	if c.isPrivate && (t == ListenerMessage || t == ListenerEditedMessage) {
		filters = append(filters, FilterPrivate)
	}
	l, err := c.Client.register(ctx, &ListenOptions{
		Type:    t,
		ChatID:  c.ChatID,
		Filters: filters,
		Timeout: c.timeOut,
	}, OneShot, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.openL = append(c.openL, l)
	c.mu.Unlock()
	defer c.forget(l)

	res, err := l.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Event, nil
}

func (c *Conversation) waitMessage(ctx context.Context, t ListenerType, filters ...Filter) (*Message, error) {
	ev, err := c.WaitEvent(ctx, t, filters...)
	if err != nil {
		return nil, err
	}
	m := ev.(*Message)
	c.mu.Lock()
	c.lastMsg = m
	c.mu.Unlock()
	return m, nil
}

func (c *Conversation) forget(l *Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.openL, l); i >= 0 {
		c.openL = slices.Delete(c.openL, i, i+1)
	}
}

// Close stops every listener the conversation still has open.
func (c *Conversation) Close() {
	c.mu.Lock()
	open := c.openL
	c.openL = nil
	c.mu.Unlock()
	for _, l := range open {
		l.Cancel()
	}
}
