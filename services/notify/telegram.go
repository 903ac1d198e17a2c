package notify

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers scan notifications through the Telegram Bot
// API. Delivery is fire-and-forget: Notify returns immediately and
// failures are logged, never surfaced to the scan.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

// NewTelegramNotifier creates a notifier. With an empty token or chat id
// it becomes a no-op, so callers can wire it unconditionally.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultTelegramAPI,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify sends the message in the background.
func (n *TelegramNotifier) Notify(message string) {
	if n.botToken == "" || n.chatID == "" || message == "" {
		return
	}
	go n.send(message)
}

func (n *TelegramNotifier) send(message string) {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{
		"chat_id": {n.chatID},
		"text":    {message},
	}

	resp, err := n.httpClient.PostForm(endpoint, form)
	if err != nil {
		log.Printf("notify: telegram send failed: %v", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("notify: telegram returned %d", resp.StatusCode)
	}
}
