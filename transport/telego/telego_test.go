package telego

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

func TestConvertPicksLargestPhoto(t *testing.T) {
	ev := Convert(telego.Update{Message: &telego.Message{
		MessageID: 3,
		From:      &telego.User{ID: 8},
		Chat:      telego.Chat{ID: -100, Type: telego.ChatTypeSupergroup},
		Caption:   "sunset",
		Photo: []telego.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "big", Width: 1280, Height: 960, FileSize: 4096},
			{FileID: "mid", Width: 320, Height: 240},
		},
	}})

	msg := ev.(*telegram.Message)
	assert.Equal(t, telegram.Address{FromUserID: 8, ChatID: -100, MessageID: 3}, msg.Address())
	assert.Equal(t, telegram.ChatSupergroup, msg.Chat.Type)
	assert.Equal(t, "sunset", msg.Text)

	media, ok := msg.Media()
	require.True(t, ok)
	assert.Equal(t, telegram.MediaPhoto, media.Kind())
	assert.Equal(t, "big", media.File().FileID)
}

func TestConvertCallbackAndInline(t *testing.T) {
	cb := Convert(telego.Update{CallbackQuery: &telego.CallbackQuery{
		ID:      "q",
		From:    telego.User{ID: 2},
		Message: &telego.Message{MessageID: 5, Chat: telego.Chat{ID: 9, Type: telego.ChatTypePrivate}},
		Data:    "ok",
	}})
	assert.Equal(t, telegram.ListenerCallbackQuery, cb.Type())
	assert.Equal(t, telegram.Address{FromUserID: 2, ChatID: 9, MessageID: 5}, cb.Address())

	inline := Convert(telego.Update{CallbackQuery: &telego.CallbackQuery{ID: "q2", From: telego.User{ID: 2}, InlineMessageID: "im"}})
	assert.Equal(t, telegram.Address{FromUserID: 2, InlineMessageID: "im"}, inline.Address())

	chosen := Convert(telego.Update{ChosenInlineResult: &telego.ChosenInlineResult{ResultID: "r", From: telego.User{ID: 6}, InlineMessageID: "im"}})
	assert.Equal(t, telegram.ListenerChosenInlineResult, chosen.Type())

	edited := Convert(telego.Update{EditedMessage: &telego.Message{MessageID: 1, Chat: telego.Chat{ID: 1}}})
	assert.Equal(t, telegram.ListenerEditedMessage, edited.Type())

	assert.Nil(t, Convert(telego.Update{UpdateID: 1}))
}
