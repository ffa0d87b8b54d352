// Package botmodels converts github.com/go-telegram/bot updates and serves a
// Bot API webhook that dispatches them to a waitfor client.
package botmodels

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxUpdateSize bounds a webhook body; Telegram updates are far smaller.
const maxUpdateSize = 1 << 20

// Webhook is an http.Handler receiving Bot API updates.
type Webhook struct {
	Client *telegram.Client
	// Secret, when set, must match the secret token header of every request.
	Secret string
	Log    *utils.Logger
}

func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.Secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	update, err := ParseUpdate(io.LimitReader(r.Body, maxUpdateSize))
	if err != nil {
		if h.Log != nil {
			h.Log.WithError(err).Warn("[Webhook] dropping malformed update")
		}
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if ev := Convert(update); ev != nil {
		n := h.Client.Dispatch(ev)
		if h.Log != nil {
			h.Log.WithField("update_id", update.ID).Trace("%s reached %d listener(s)", ev.Type(), n)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func ParseUpdate(r io.Reader) (*models.Update, error) {
	var update models.Update
	if err := json.NewDecoder(r).Decode(&update); err != nil {
		return nil, errors.Wrap(err, "decoding update")
	}
	return &update, nil
}

// Convert maps an update onto a waitfor event, or nil.
func Convert(u *models.Update) telegram.Event {
	switch {
	case u == nil:
		return nil
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
		switch {
		case cb.Message.Message != nil:
			q.Message = convertMessage(cb.Message.Message)
		case cb.Message.InaccessibleMessage != nil:
			im := cb.Message.InaccessibleMessage
			q.Message = &telegram.Message{ID: int32(im.MessageID), Chat: convertChat(&im.Chat)}
		}
		return q
	case u.InlineQuery != nil:
		return &telegram.InlineQuery{
			ID:     u.InlineQuery.ID,
			From:   convertUser(u.InlineQuery.From),
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

func convertMessage(m *models.Message) *telegram.Message {
	msg := &telegram.Message{
		ID:         int32(m.ID),
		Chat:       convertChat(&m.Chat),
		From:       convertUser(m.From),
		Text:       m.Text,
		Date:       int64(m.Date),
		Attachment: convertMedia(m),
	}
	if msg.Text == "" {
		msg.Text = m.Caption
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToMessageID = int32(m.ReplyToMessage.ID)
	}
	return msg
}

func convertChat(c *models.Chat) *telegram.Chat {
	if c.ID == 0 {
		return nil
	}
	t := telegram.ChatGroup
	switch c.Type {
	case models.ChatTypePrivate:
		t = telegram.ChatPrivate
	case models.ChatTypeSupergroup:
		t = telegram.ChatSupergroup
	case models.ChatTypeChannel:
		t = telegram.ChatChannel
	}
	return &telegram.Chat{ID: c.ID, Type: t, Title: c.Title, Username: c.Username}
}

func convertUser(u *models.User) *telegram.User {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &telegram.User{ID: u.ID, IsBot: u.IsBot, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

func bestPhoto(sizes []models.PhotoSize) *models.PhotoSize {
	var best *models.PhotoSize
	for i := range sizes {
		if best == nil || sizes[i].Width*sizes[i].Height > best.Width*best.Height {
			best = &sizes[i]
		}
	}
	return best
}

func convertMedia(m *models.Message) telegram.Media {
	fi := func(id, unique string, size int64) telegram.FileInfo {
		return telegram.FileInfo{FileID: id, FileUniqueID: unique, FileSize: size}
	}
	if p := bestPhoto(m.Photo); p != nil {
		return &telegram.Photo{FileInfo: fi(p.FileID, p.FileUniqueID, int64(p.FileSize)), Width: p.Width, Height: p.Height}
	}
	switch {
	case m.Document != nil:
		d := m.Document
		return &telegram.Document{FileInfo: fi(d.FileID, d.FileUniqueID, int64(d.FileSize)), FileName: d.FileName, MimeType: d.MimeType}
	case m.Audio != nil:
		a := m.Audio
		return &telegram.Audio{FileInfo: fi(a.FileID, a.FileUniqueID, int64(a.FileSize)), Duration: a.Duration, Title: a.Title, Performer: a.Performer, MimeType: a.MimeType}
	case m.Video != nil:
		v := m.Video
		return &telegram.Video{FileInfo: fi(v.FileID, v.FileUniqueID, int64(v.FileSize)), Duration: v.Duration, Width: v.Width, Height: v.Height, MimeType: v.MimeType}
	case m.Voice != nil:
		v := m.Voice
		return &telegram.Voice{FileInfo: fi(v.FileID, v.FileUniqueID, int64(v.FileSize)), Duration: v.Duration, MimeType: v.MimeType}
	case m.Animation != nil:
		a := m.Animation
		return &telegram.Animation{FileInfo: fi(a.FileID, a.FileUniqueID, int64(a.FileSize)), Duration: a.Duration, Width: a.Width, Height: a.Height, FileName: a.FileName}
	case m.Sticker != nil:
		s := m.Sticker
		return &telegram.Sticker{FileInfo: fi(s.FileID, s.FileUniqueID, int64(s.FileSize)), Emoji: s.Emoji, SetName: s.SetName, Animated: s.IsAnimated}
	}
	if p := bestPhoto(m.NewChatPhoto); p != nil {
		return &telegram.ChatPhoto{FileInfo: fi(p.FileID, p.FileUniqueID, int64(p.FileSize))}
	}
	return nil
}
