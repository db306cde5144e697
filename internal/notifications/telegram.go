package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

type TelegramNotifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		apiBase: defaultTelegramAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithAPIBase points the notifier at a different Bot API host.
func (t *TelegramNotifier) WithAPIBase(base string, client *http.Client) *TelegramNotifier {
	t.apiBase = strings.TrimRight(base, "/")
	if client != nil {
		t.client = client
	}
	return t
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	emoji := "ℹ️"
	switch level {
	case "warning":
		emoji = "⚠️"
	case "error", "critical":
		emoji = "🚨"
	case "success":
		emoji = "✅"
	}

	text := fmt.Sprintf("%s *Smart EA Alert*\n\n%s", emoji, message)

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := t.client.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
