package notify

import "github.com/kmoganti/stock-trading-system-sub001/services/scanner"

// MultiNotifier fans one message out to several notifiers, e.g. Telegram
// and the dashboard websocket hub.
type MultiNotifier struct {
	targets []scanner.Notifier
}

// NewMultiNotifier composes the given notifiers.
func NewMultiNotifier(targets ...scanner.Notifier) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

// Notify implements scanner.Notifier.
func (m *MultiNotifier) Notify(message string) {
	for _, t := range m.targets {
		t.Notify(message)
	}
}
