package telegram

import "context"

// Listen waits for the next update sent by this user. Shortcut for
// c.Listen(ctx, &ListenOptions{UserID: u.ID, ...}).
func (u *User) Listen(ctx context.Context, c *Client, opts ...*ListenOptions) (*Result, error) {
	o := getVariadic(opts, nil).clone()
	o.UserID = u.ID
	return c.Listen(ctx, o)
}

// Ask sends text to the user's private chat and waits for their reply.
func (u *User) Ask(ctx context.Context, c *Client, text string, opts ...*ListenOptions) (*Result, error) {
	o := getVariadic(opts, nil).clone()
	o.UserID = u.ID
	o.ChatID = u.ID
	return c.Ask(ctx, u.ID, text, o)
}

// StopListening stops the listeners waiting on this user.
func (u *User) StopListening(ctx context.Context, c *Client, opts ...*ListenOptions) (int, error) {
	o := getVariadic(opts, nil).clone()
	o.UserID = u.ID
	return c.StopListening(ctx, o)
}

// Listen waits for the next update in this chat.
func (ch *Chat) Listen(ctx context.Context, c *Client, opts ...*ListenOptions) (*Result, error) {
	o := getVariadic(opts, nil).clone()
	o.ChatID = ch.ID
	return c.Listen(ctx, o)
}

// Ask sends text to the chat and waits for an answer in it.
func (ch *Chat) Ask(ctx context.Context, c *Client, text string, opts ...*ListenOptions) (*Result, error) {
	o := getVariadic(opts, nil).clone()
	o.ChatID = ch.ID
	return c.Ask(ctx, ch.ID, text, o)
}

// StopListening stops the listeners waiting on this chat.
func (ch *Chat) StopListening(ctx context.Context, c *Client, opts ...*ListenOptions) (int, error) {
	o := getVariadic(opts, nil).clone()
	o.ChatID = ch.ID
	return c.StopListening(ctx, o)
}
