package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// discordMaxContent is the webhook's content length limit in characters.
const discordMaxContent = 2000

// DiscordNotifier posts to a channel webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// NewDiscordNotifier creates a notifier with optional proxy support.
func NewDiscordNotifier(webhookURL, proxyURL string) *DiscordNotifier {
	return &DiscordNotifier{WebhookURL: webhookURL, Client: newHTTPClient(proxyURL, 10*time.Second)}
}

func (d *DiscordNotifier) Name() string { return "discord" }

func (d *DiscordNotifier) Send(ctx context.Context, text string) error {
	if utf8.RuneCountInString(text) > discordMaxContent {
		text = string([]rune(text)[:discordMaxContent-1]) + "…"
	}
	if err := postJSON(ctx, d.Client, d.WebhookURL, nil, map[string]string{"content": text}); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
