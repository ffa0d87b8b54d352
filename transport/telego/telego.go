// Package telego feeds updates long-polled by a github.com/mymmrac/telego bot
// into a waitfor client.
package telego

import (
	"context"
	"net/http"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/pkg/errors"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
)

type Config struct {
	Token string
	// APIServer overrides https://api.telegram.org.
	APIServer string
}

type Transport struct {
	bot  *telego.Bot
	log  *utils.Logger
	http *http.Client
}

func New(cfg Config, log *utils.Logger) (*Transport, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("[EmptyToken] telegram bot token is empty")
	}
	var opts []telego.BotOption
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing telego bot")
	}
	if log == nil {
		log = utils.NewLogger("waitfor telego").SetLevel(utils.NoLevel)
	}
	return &Transport{bot: bot, log: log, http: http.DefaultClient}, nil
}

func (t *Transport) Bot() *telego.Bot { return t.bot }

// Run long-polls and dispatches every update to c until ctx ends.
func (t *Transport) Run(ctx context.Context, c *telegram.Client) error {
	updates, err := t.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting long polling")
	}
	t.log.Info("long polling started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("[UpdatesClosed] telegram updates channel closed")
			}
			ev := Convert(update)
			if ev == nil {
				continue
			}
			n := c.Dispatch(ev)
			t.log.WithField("update_id", update.UpdateID).Trace("%s reached %d listener(s)", ev.Type(), n)
		}
	}
}

func (t *Transport) SendMessage(ctx context.Context, chatID int64, text string, replyTo int32) (*telegram.Message, error) {
	params := tu.Message(tu.ID(chatID), text)
	if replyTo > 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{MessageID: int(replyTo)})
	}
	m, err := t.bot.SendMessage(ctx, params)
	if err != nil {
		return nil, err
	}
	msg := convertMessage(m)
	msg.Outgoing = true
	return msg, nil
}

func (t *Transport) AnswerCallback(ctx context.Context, queryID, text string, alert bool) error {
	return t.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}

func (t *Transport) ResolveUsername(ctx context.Context, username string) (int64, error) {
	chat, err := t.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.Username("@" + strings.TrimPrefix(username, "@"))})
	if err != nil {
		return 0, errors.Wrapf(err, "resolving @%s", username)
	}
	return chat.ID, nil
}

// FetchChunk downloads one byte range of a file from the Bot API file server.
func (t *Transport) FetchChunk(ctx context.Context, file telegram.FileInfo, offset int64, limit int) ([]byte, error) {
	f, err := t.bot.GetFile(ctx, &telego.GetFileParams{FileID: file.FileID})
	if err != nil {
		return nil, errors.Wrap(err, "getFile")
	}
	return utils.FetchRange(ctx, t.http, t.bot.FileDownloadURL(f.FilePath), offset, limit)
}

// Convert maps a telego update onto a waitfor event, or nil.
func Convert(u telego.Update) telegram.Event {
	switch {
	case u.Message != nil:
		return convertMessage(u.Message)
	case u.EditedMessage != nil:
		m := convertMessage(u.EditedMessage)
		m.Edited = true
		return m
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		q := &telegram.CallbackQuery{
			ID:              cb.ID,
			From:            convertUser(&cb.From),
			InlineMessageID: cb.InlineMessageID,
			Data:            cb.Data,
		}
		switch m := cb.Message.(type) {
		case *telego.Message:
			q.Message = convertMessage(m)
		case nil:
		default:
			// inaccessible messages still carry their chat and id
			chat := m.GetChat()
			q.Message = &telegram.Message{ID: int32(m.GetMessageID()), Chat: convertChat(&chat)}
		}
		return q
	case u.InlineQuery != nil:
		return &telegram.InlineQuery{
			ID:     u.InlineQuery.ID,
			From:   convertUser(&u.InlineQuery.From),
			Query:  u.InlineQuery.Query,
			Offset: u.InlineQuery.Offset,
		}
	case u.ChosenInlineResult != nil:
		r := u.ChosenInlineResult
		return &telegram.ChosenInlineResult{
			ResultID:        r.ResultID,
			From:            convertUser(&r.From),
			InlineMessageID: r.InlineMessageID,
			Query:           r.Query,
		}
	}
	return nil
}

func convertMessage(m *telego.Message) *telegram.Message {
	msg := &telegram.Message{
		ID:         int32(m.MessageID),
		Chat:       convertChat(&m.Chat),
		From:       convertUser(m.From),
		Text:       m.Text,
		Date:       m.Date,
		Attachment: convertMedia(m),
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToMessageID = int32(m.ReplyToMessage.MessageID)
	}
	return msg
}

func convertChat(c *telego.Chat) *telegram.Chat {
	if c == nil || c.ID == 0 {
		return nil
	}
	t := telegram.ChatGroup
	switch c.Type {
	case telego.ChatTypePrivate:
		t = telegram.ChatPrivate
	case telego.ChatTypeSupergroup:
		t = telegram.ChatSupergroup
	case telego.ChatTypeChannel:
		t = telegram.ChatChannel
	}
	return &telegram.Chat{ID: c.ID, Type: t, Title: c.Title, Username: c.Username}
}

func convertUser(u *telego.User) *telegram.User {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &telegram.User{ID: u.ID, IsBot: u.IsBot, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

// largestPhoto picks the biggest size Telegram offers.
func largestPhoto(sizes []telego.PhotoSize) (telego.PhotoSize, bool) {
	if len(sizes) == 0 {
		return telego.PhotoSize{}, false
	}
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best, true
}

func info(id, unique string, size int64) telegram.FileInfo {
	return telegram.FileInfo{FileID: id, FileUniqueID: unique, FileSize: size}
}

func convertMedia(m *telego.Message) telegram.Media {
	if p, ok := largestPhoto(m.Photo); ok {
		return &telegram.Photo{FileInfo: info(p.FileID, p.FileUniqueID, int64(p.FileSize)), Width: p.Width, Height: p.Height}
	}
	switch {
	case m.Document != nil:
		d := m.Document
		return &telegram.Document{FileInfo: info(d.FileID, d.FileUniqueID, int64(d.FileSize)), FileName: d.FileName, MimeType: d.MimeType}
	case m.Audio != nil:
		a := m.Audio
		return &telegram.Audio{FileInfo: info(a.FileID, a.FileUniqueID, int64(a.FileSize)), Duration: a.Duration, Title: a.Title, Performer: a.Performer, MimeType: a.MimeType}
	case m.Video != nil:
		v := m.Video
		return &telegram.Video{FileInfo: info(v.FileID, v.FileUniqueID, int64(v.FileSize)), Duration: v.Duration, Width: v.Width, Height: v.Height, MimeType: v.MimeType}
	case m.Voice != nil:
		v := m.Voice
		return &telegram.Voice{FileInfo: info(v.FileID, v.FileUniqueID, int64(v.FileSize)), Duration: v.Duration, MimeType: v.MimeType}
	case m.VideoNote != nil:
		v := m.VideoNote
		return &telegram.VideoNote{FileInfo: info(v.FileID, v.FileUniqueID, int64(v.FileSize)), Duration: v.Duration, Length: v.Length}
	case m.Animation != nil:
		a := m.Animation
		return &telegram.Animation{FileInfo: info(a.FileID, a.FileUniqueID, int64(a.FileSize)), Duration: a.Duration, Width: a.Width, Height: a.Height, FileName: a.FileName}
	case m.Sticker != nil:
		s := m.Sticker
		return &telegram.Sticker{FileInfo: info(s.FileID, s.FileUniqueID, int64(s.FileSize)), Emoji: s.Emoji, SetName: s.SetName, Animated: s.IsAnimated}
	}
	if p, ok := largestPhoto(m.NewChatPhoto); ok {
		return &telegram.ChatPhoto{FileInfo: info(p.FileID, p.FileUniqueID, int64(p.FileSize))}
	}
	return nil
}
