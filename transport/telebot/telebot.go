// Package telebot plugs a gopkg.in/telebot.v4 bot into a waitfor client:
// updates polled by the bot are dispatched to the client's listeners and the
// bot answers prompts, callback alerts and username lookups.
package telebot

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	tele "gopkg.in/telebot.v4"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
	// URL overrides the Bot API server, for local bot API servers.
	URL string
}

type Transport struct {
	bot *tele.Bot
	log *utils.Logger
}

func New(cfg Config, log *utils.Logger) (*Transport, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("[EmptyToken] telegram bot token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		URL:    cfg.URL,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating telebot bot")
	}
	return Wrap(b, log), nil
}

// Wrap adapts an existing bot.
func Wrap(b *tele.Bot, log *utils.Logger) *Transport {
	if log == nil {
		log = utils.NewLogger("waitfor telebot").SetLevel(utils.NoLevel)
	}
	return &Transport{bot: b, log: log}
}

func (t *Transport) Bot() *tele.Bot { return t.bot }

// Attach routes every polled update through c before telebot's own handlers
// see it. Call it before Start.
func (t *Transport) Attach(c *telegram.Client) {
	t.bot.Poller = tele.NewMiddlewarePoller(t.bot.Poller, func(u *tele.Update) bool {
		if ev := Convert(u); ev != nil {
			c.Dispatch(ev)
		}
		return true
	})
}

// Start polls until ctx ends.
func (t *Transport) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		t.bot.Stop()
	}()
	t.log.Info("polling started as @%s", t.bot.Me.Username)
	t.bot.Start()
	t.log.Info("polling stopped")
}

func (t *Transport) SendMessage(_ context.Context, chatID int64, text string, replyTo int32) (*telegram.Message, error) {
	opts := &tele.SendOptions{}
	if replyTo > 0 {
		opts.ReplyTo = &tele.Message{ID: int(replyTo)}
	}
	m, err := t.bot.Send(&tele.Chat{ID: chatID}, text, opts)
	if err != nil {
		return nil, err
	}
	msg := convertMessage(m)
	msg.Outgoing = true
	return msg, nil
}

func (t *Transport) AnswerCallback(_ context.Context, queryID, text string, alert bool) error {
	return t.bot.Respond(&tele.Callback{ID: queryID}, &tele.CallbackResponse{Text: text, ShowAlert: alert})
}

func (t *Transport) ResolveUsername(_ context.Context, username string) (int64, error) {
	chat, err := t.bot.ChatByUsername("@" + strings.TrimPrefix(username, "@"))
	if err != nil {
		return 0, errors.Wrapf(err, "resolving @%s", username)
	}
	return chat.ID, nil
}

// FetchChunk reads limit bytes at offset. The Bot API has no ranged
// downloads, so the file is read from the start and the head discarded.
func (t *Transport) FetchChunk(_ context.Context, file telegram.FileInfo, offset int64, limit int) ([]byte, error) {
	rc, err := t.bot.File(&tele.File{FileID: file.FileID})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if _, err := io.CopyN(io.Discard, rc, offset); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	buf, err := io.ReadAll(io.LimitReader(rc, int64(limit)))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Convert maps a telebot update onto a waitfor event; nil for update kinds
// nobody can listen for.
func Convert(u *tele.Update) telegram.Event {
	switch {
	case u == nil:
		return nil
	case u.Message != nil:
		return convertMessage(u.Message)
	case u.EditedMessage != nil:
		m := convertMessage(u.EditedMessage)
		m.Edited = true
		return m
	case u.Callback != nil:
		cb := u.Callback
		q := &telegram.CallbackQuery{
			ID:              cb.ID,
			From:            convertUser(cb.Sender),
			InlineMessageID: cb.MessageID,
			Data:            cb.Data,
		}
		if cb.Message != nil {
			q.Message = convertMessage(cb.Message)
		}
		return q
	case u.Query != nil:
		return &telegram.InlineQuery{
			ID:     u.Query.ID,
			From:   convertUser(u.Query.Sender),
			Query:  u.Query.Text,
			Offset: u.Query.Offset,
		}
	case u.InlineResult != nil:
		r := u.InlineResult
		return &telegram.ChosenInlineResult{
			ResultID:        r.ResultID,
			From:            convertUser(r.Sender),
			InlineMessageID: r.MessageID,
			Query:           r.Query,
		}
	}
	return nil
}

func convertMessage(m *tele.Message) *telegram.Message {
	msg := &telegram.Message{
		ID:         int32(m.ID),
		From:       convertUser(m.Sender),
		Text:       m.Text,
		Date:       m.Unixtime,
		Attachment: convertMedia(m),
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.Chat != nil {
		msg.Chat = &telegram.Chat{
			ID:       m.Chat.ID,
			Type:     chatType(m.Chat.Type),
			Title:    m.Chat.Title,
			Username: m.Chat.Username,
		}
	}
	if m.ReplyTo != nil {
		msg.ReplyToMessageID = int32(m.ReplyTo.ID)
	}
	return msg
}

func chatType(t tele.ChatType) telegram.ChatType {
	switch t {
	case tele.ChatPrivate:
		return telegram.ChatPrivate
	case tele.ChatSuperGroup:
		return telegram.ChatSupergroup
	case tele.ChatChannel:
		return telegram.ChatChannel
	default:
		return telegram.ChatGroup
	}
}

func convertUser(u *tele.User) *telegram.User {
	if u == nil {
		return nil
	}
	return &telegram.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func fileInfo(f tele.File) telegram.FileInfo {
	return telegram.FileInfo{FileID: f.FileID, FileUniqueID: f.UniqueID, FileSize: int64(f.FileSize)}
}

func convertMedia(m *tele.Message) telegram.Media {
	switch {
	case m.Photo != nil:
		return &telegram.Photo{FileInfo: fileInfo(m.Photo.File), Width: m.Photo.Width, Height: m.Photo.Height}
	case m.Document != nil:
		return &telegram.Document{FileInfo: fileInfo(m.Document.File), FileName: m.Document.FileName, MimeType: m.Document.MIME}
	case m.Audio != nil:
		return &telegram.Audio{FileInfo: fileInfo(m.Audio.File), Duration: m.Audio.Duration, Title: m.Audio.Title, Performer: m.Audio.Performer, MimeType: m.Audio.MIME}
	case m.Video != nil:
		return &telegram.Video{FileInfo: fileInfo(m.Video.File), Duration: m.Video.Duration, Width: m.Video.Width, Height: m.Video.Height, MimeType: m.Video.MIME}
	case m.Voice != nil:
		return &telegram.Voice{FileInfo: fileInfo(m.Voice.File), Duration: m.Voice.Duration, MimeType: m.Voice.MIME}
	case m.VideoNote != nil:
		return &telegram.VideoNote{FileInfo: fileInfo(m.VideoNote.File), Duration: m.VideoNote.Duration, Length: m.VideoNote.Length}
	case m.Animation != nil:
		return &telegram.Animation{FileInfo: fileInfo(m.Animation.File), Duration: m.Animation.Duration, Width: m.Animation.Width, Height: m.Animation.Height, FileName: m.Animation.FileName}
	case m.Sticker != nil:
		return &telegram.Sticker{FileInfo: fileInfo(m.Sticker.File), Emoji: m.Sticker.Emoji, SetName: m.Sticker.SetName, Animated: m.Sticker.Animated}
	case m.NewGroupPhoto != nil:
		return &telegram.ChatPhoto{FileInfo: fileInfo(m.NewGroupPhoto.File)}
	}
	return nil
}
