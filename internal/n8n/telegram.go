package n8n

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BotAPI manages a telegram bot's webhook binding. It talks to the bot
// platform directly, authenticated by the bot token itself rather than an
// engine key.
type BotAPI struct {
	baseURL string
	http    *http.Client
}

// NewBotAPI creates a BotAPI against the given platform base URL
// (https://api.telegram.org in production).
func NewBotAPI(baseURL string) *BotAPI {
	return &BotAPI{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterWebhook points the bot's updates at webhookURL.
func (b *BotAPI) RegisterWebhook(token, webhookURL string) error {
	return b.call(token, "setWebhook", url.Values{"url": {webhookURL}})
}

// DeleteWebhook removes the bot's webhook binding.
func (b *BotAPI) DeleteWebhook(token string) error {
	return b.call(token, "deleteWebhook", nil)
}

func (b *BotAPI) call(token, method string, params url.Values) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.baseURL, token, method)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := b.http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("unexpected telegram response: %s", string(raw))
	}
	if !body.OK {
		return fmt.Errorf("telegram %s rejected: %s", method, body.Description)
	}
	return nil
}
