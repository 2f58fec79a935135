package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EventType classifies a notification.
type EventType string

const (
	EventPositionOpen  EventType = "position_open"
	EventPositionClose EventType = "position_close"
	EventStopMoved     EventType = "stop_moved"
	EventError         EventType = "error"
	EventInfo          EventType = "info"
)

// Event is one notification message. Prices travel as exchange-formatted
// strings; the bot never renders floats.
type Event struct {
	Type      EventType
	Title     string
	Message   string
	Symbol    string
	Timestamp time.Time
}

// Notifier is a single delivery channel.
type Notifier interface {
	Send(ev *Event) error
	Name() string
	IsEnabled() bool
}

// Manager fans an event out to every enabled channel. Delivery is
// best-effort; a failing channel never blocks trading.
type Manager struct {
	notifiers []Notifier
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

func (m *Manager) Send(ev *Event) error {
	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(ev); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendPositionOpened reports a freshly confirmed position.
func (m *Manager) SendPositionOpened(symbol, side, entry, qty, sl string) error {
	msg := fmt.Sprintf("%s %s\nEntry: %s\nQty: %s", side, symbol, entry, qty)
	if sl != "" {
		msg += "\nSL: " + sl
	}
	return m.Send(&Event{
		Type:      EventPositionOpen,
		Title:     fmt.Sprintf("Position opened: %s", symbol),
		Message:   msg,
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendPositionClosed reports a market close and what triggered it.
func (m *Manager) SendPositionClosed(symbol, side, trigger string) error {
	return m.Send(&Event{
		Type:      EventPositionClose,
		Title:     fmt.Sprintf("Position closed: %s", symbol),
		Message:   fmt.Sprintf("%s %s closed (%s)", side, symbol, trigger),
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendStopMoved reports a protective stop-loss adjustment.
func (m *Manager) SendStopMoved(symbol, side, sl string) error {
	return m.Send(&Event{
		Type:      EventStopMoved,
		Title:     fmt.Sprintf("Stop moved: %s", symbol),
		Message:   fmt.Sprintf("%s %s stop-loss now %s", side, symbol, sl),
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendError reports a processing failure.
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Event{
		Type:      EventError,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string    { return "telegram" }
func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

func (t *TelegramNotifier) Send(ev *Event) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       fmt.Sprintf("*%s*\n\n%s", ev.Title, ev.Message),
		"parse_mode": "Markdown",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string    { return "discord" }
func (d *DiscordNotifier) IsEnabled() bool { return d.enabled }

func (d *DiscordNotifier) Send(ev *Event) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00
	if ev.Type == EventError {
		color = 0xFF0000
	}

	embed := map[string]interface{}{
		"title":       ev.Title,
		"description": ev.Message,
		"color":       color,
		"timestamp":   ev.Timestamp.Format(time.RFC3339),
	}
	if ev.Symbol != "" {
		embed["fields"] = []map[string]interface{}{
			{"name": "Symbol", "value": ev.Symbol, "inline": true},
		}
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return nil
}
