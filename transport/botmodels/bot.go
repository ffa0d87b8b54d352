package botmodels

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"

	"github.com/amarnathcjd/waitfor/internal/utils"
	"github.com/amarnathcjd/waitfor/telegram"
)

// Bot answers for a webhook-fed client through the go-telegram/bot SDK.
type Bot struct {
	sdk  *bot.Bot
	http *http.Client
}

// NewBot creates the SDK client without calling getMe; apiServer may be empty.
func NewBot(token, apiServer string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("[EmptyToken] telegram bot token is empty")
	}
	hc := &http.Client{Timeout: 90 * time.Second}
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(90*time.Second, hc),
	}
	if apiServer != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(apiServer, "/")))
	}
	sdk, err := bot.New(token, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating bot sdk")
	}
	return &Bot{sdk: sdk, http: hc}, nil
}

func (b *Bot) SDK() *bot.Bot { return b.sdk }

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, replyTo int32) (*telegram.Message, error) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: int(replyTo)}
	}
	m, err := b.sdk.SendMessage(ctx, params)
	if err != nil {
		return nil, err
	}
	msg := convertMessage(m)
	msg.Outgoing = true
	return msg, nil
}

func (b *Bot) AnswerCallback(ctx context.Context, queryID, text string, alert bool) error {
	_, err := b.sdk.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	return err
}

func (b *Bot) ResolveUsername(ctx context.Context, username string) (int64, error) {
	chat, err := b.sdk.GetChat(ctx, &bot.GetChatParams{ChatID: "@" + strings.TrimPrefix(username, "@")})
	if err != nil {
		return 0, errors.Wrapf(err, "resolving @%s", username)
	}
	return chat.ID, nil
}

func (b *Bot) FetchChunk(ctx context.Context, file telegram.FileInfo, offset int64, limit int) ([]byte, error) {
	f, err := b.sdk.GetFile(ctx, &bot.GetFileParams{FileID: file.FileID})
	if err != nil {
		return nil, errors.Wrap(err, "getFile")
	}
	return utils.FetchRange(ctx, b.http, b.sdk.FileDownloadLink(f), offset, limit)
}
