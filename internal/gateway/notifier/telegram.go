package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram 通过 Bot API 推送交易通知，失败时最多重试 2 次。
type Telegram struct {
	chatID string
	client *resty.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return newTelegram(defaultTelegramAPI, botToken, chatID)
}

func newTelegram(apiBase, botToken, chatID string) *Telegram {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(apiBase, "/") + "/bot" + strings.TrimSpace(botToken))
	client.SetTimeout(15 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(3 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
	})
	return &Telegram{chatID: strings.TrimSpace(chatID), client: client}
}

func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t == nil || t.chatID == "" {
		return fmt.Errorf("telegram notifier not configured")
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram status=%d", resp.StatusCode())
	}
	return nil
}
