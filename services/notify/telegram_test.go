package notify

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTelegramNotifySendsForm(t *testing.T) {
	received := make(chan struct{})
	var gotPath, gotChat, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotPath = r.URL.Path
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		close(received)
	}))
	defer server.Close()

	n := NewTelegramNotifier("bot-token", "chat-42")
	n.apiBase = server.URL
	n.Notify("day_trading scan: 1 signal(s)")

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("telegram API never called")
	}
	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotChat != "chat-42" || gotText != "day_trading scan: 1 signal(s)" {
		t.Fatalf("form = chat %q text %q", gotChat, gotText)
	}
}

func TestTelegramNotifierNoOpWithoutConfig(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	for _, n := range []*TelegramNotifier{
		NewTelegramNotifier("", "chat-42"),
		NewTelegramNotifier("bot-token", ""),
	} {
		n.apiBase = server.URL
		n.Notify("dropped")
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Fatalf("unconfigured notifier sent %d requests", got)
	}
}
