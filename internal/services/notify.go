package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"siteguard/internal/config"
	"siteguard/internal/timeutil"

	"golang.org/x/net/proxy"
)

// Notifier interface for different notification channels
type Notifier interface {
	Send(domain string, remainingSeconds int) error
}

// NotifyService fans threshold warnings out to all enabled channels.
// It implements the engine's Notifier collaborator.
type NotifyService struct {
	notifiers []Notifier
}

// NewNotifyService creates a new notification service
func NewNotifyService(cfg *config.NotificationsConfig) *NotifyService {
	service := &NotifyService{
		notifiers: make([]Notifier, 0),
	}

	if cfg.Webhook.Enabled {
		service.notifiers = append(service.notifiers, NewWebhookNotifier(&cfg.Webhook))
	}

	if cfg.Telegram.Enabled {
		service.notifiers = append(service.notifiers, NewTelegramNotifier(&cfg.Telegram))
	}

	return service
}

// TimeRemaining sends a remaining-time warning through all enabled
// channels. Failures are logged per channel and never block the
// accounting tick that emitted the event.
func (s *NotifyService) TimeRemaining(domain string, remainingSeconds int) {
	for _, notifier := range s.notifiers {
		notifierType := fmt.Sprintf("%T", notifier)
		if err := notifier.Send(domain, remainingSeconds); err != nil {
			fmt.Printf("[ERROR] %s notification failed: %v\n", notifierType, err)
			continue
		}
		fmt.Printf("[SUCCESS] %s notification sent for %s\n", notifierType, domain)
	}
}

// WebhookNotifier sends webhook notifications
type WebhookNotifier struct {
	config *config.WebhookConfig
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{config: cfg}
}

// Send sends webhook notification
func (w *WebhookNotifier) Send(domain string, remainingSeconds int) error {
	payload := map[string]interface{}{
		"domain":            domain,
		"remaining_seconds": remainingSeconds,
		"remaining":         timeutil.FormatRemaining(remainingSeconds),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(w.config.URL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// TelegramNotifier sends Telegram notifications
type TelegramNotifier struct {
	config *config.TelegramConfig
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{config: cfg}
}

// Send sends Telegram notification
func (t *TelegramNotifier) Send(domain string, remainingSeconds int) error {
	message := fmt.Sprintf("⏳ Time running out\n\nWebsite: %s\nRemaining: %s",
		domain, timeutil.FormatRemaining(remainingSeconds))

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.config.BotToken)

	payload := map[string]interface{}{
		"chat_id": t.config.ChatID,
		"text":    message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Optional SOCKS5 proxy for networks where the Telegram API is
	// unreachable directly
	if t.config.SOCKS5Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", t.config.SOCKS5Proxy, nil, proxy.Direct)
		if err != nil {
			fmt.Printf("[TELEGRAM] Failed to create SOCKS5 proxy: %v\n", err)
		} else {
			transport := &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				},
			}
			client.Transport = transport
		}
	}

	resp, err := client.Post(apiURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
