package main

import (
	"context"
	"fmt"
	"time"

	"github.com/amarnathcjd/waitfor/telegram"
)

// registerCommands wires /start, which asks the sender for their name, and
// /cancel, which stops whatever the bot is waiting for from the sender.
func registerCommands(ctx context.Context, c *telegram.Client, timeout time.Duration) error {
	start, err := telegram.ExprFilter(`text == "/start"`)
	if err != nil {
		return err
	}
	cancel, err := telegram.ExprFilter(`text == "/cancel"`)
	if err != nil {
		return err
	}
	notCommand, err := telegram.ExprFilter(`!(text startsWith "/")`)
	if err != nil {
		return err
	}

	if _, err := c.Register(func(ev telegram.Event) error {
		m := ev.(*telegram.Message)
		res, err := c.Ask(ctx, m.ChatID(), "Hi! What's your name?", &telegram.ListenOptions{
			UserID:  m.SenderID(),
			Filters: []telegram.Filter{notCommand, telegram.FilterText},
			Timeout: timeout,
		})
		if err != nil {
			return err
		}

		reply := "Nice to meet you, %s!"
		switch res.Outcome {
		case telegram.OutcomeMatched:
			reply = fmt.Sprintf(reply, res.Message().Text)
		case telegram.OutcomeTimedOut:
			reply = "Too slow, send /start to try again."
		default:
			reply = "Okay, never mind."
		}
		quote := m
		if res.Matched() {
			quote = res.Message()
		}
		_, err = c.ConversationFor(quote).Reply(ctx, reply)
		return err
	}, &telegram.ListenOptions{Filters: []telegram.Filter{start}}); err != nil {
		return err
	}

	_, err = c.Register(func(ev telegram.Event) error {
		m := ev.(*telegram.Message)
		n, err := c.StopListening(ctx, &telegram.ListenOptions{ChatID: m.ChatID(), UserID: m.SenderID()})
		if err != nil {
			return err
		}
		if n == 0 {
			_, err = c.ConversationFor(m).Respond(ctx, "Nothing to cancel.")
		}
		return err
	}, &telegram.ListenOptions{Filters: []telegram.Filter{cancel}})
	return err
}
