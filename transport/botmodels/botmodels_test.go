package botmodels

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amarnathcjd/waitfor/telegram"
)

const messageUpdate = `{
	"update_id": 1,
	"message": {
		"message_id": 44,
		"date": 1700000000,
		"from": {"id": 7, "is_bot": false, "first_name": "Ada"},
		"chat": {"id": 7, "type": "private"},
		"text": "/start",
		"document": {"file_id": "doc", "file_unique_id": "u", "file_size": 10}
	}
}`

func TestParseAndConvert(t *testing.T) {
	update, err := ParseUpdate(strings.NewReader(messageUpdate))
	require.NoError(t, err)

	msg, ok := Convert(update).(*telegram.Message)
	require.True(t, ok)
	assert.Equal(t, telegram.Address{FromUserID: 7, ChatID: 7, MessageID: 44}, msg.Address())
	assert.True(t, msg.IsPrivate())
	assert.EqualValues(t, 1700000000, msg.Date)

	media, ok := msg.Media()
	require.True(t, ok)
	assert.Equal(t, "doc", media.File().FileID)

	_, err = ParseUpdate(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestCallbackFromInaccessibleMessage(t *testing.T) {
	update, err := ParseUpdate(strings.NewReader(`{
		"update_id": 2,
		"callback_query": {
			"id": "q", "from": {"id": 3, "first_name": "B"}, "chat_instance": "x", "data": "go",
			"message": {"chat": {"id": -5, "type": "group"}, "message_id": 9, "date": 0}
		}
	}`))
	require.NoError(t, err)
	ev := Convert(update)
	require.NotNil(t, ev)
	assert.Equal(t, telegram.Address{FromUserID: 3, ChatID: -5, MessageID: 9}, ev.Address())
}

func TestWebhookDispatches(t *testing.T) {
	c, err := telegram.NewClient(telegram.ClientConfig{LogLevel: "disable"})
	require.NoError(t, err)
	defer c.Stop()

	l, err := c.NewListener(t.Context(), &telegram.ListenOptions{ChatID: 7, Timeout: time.Minute})
	require.NoError(t, err)

	h := &Webhook{Client: c, Secret: "s3cret"}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(messageUpdate)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, l.Resolved())

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(messageUpdate))
	req.Header.Set(secretHeader, "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, l.Resolved())
	assert.Equal(t, "/start", l.Result().Message().Text)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
