package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// LineEndpoint is the Messaging API push URL.
const LineEndpoint = "https://api.line.me/v2/bot/message/push"

// LineNotifier pushes text messages to one LINE user.
type LineNotifier struct {
	ChannelToken string
	UserID       string
	Endpoint     string
	Client       *http.Client
}

// NewLineNotifier creates a notifier with optional proxy support.
func NewLineNotifier(channelToken, userID, proxyURL string) *LineNotifier {
	return &LineNotifier{
		ChannelToken: channelToken,
		UserID:       userID,
		Endpoint:     LineEndpoint,
		Client:       newHTTPClient(proxyURL, 10*time.Second),
	}
}

func (l *LineNotifier) Name() string { return "line" }

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

func (l *LineNotifier) Send(ctx context.Context, text string) error {
	payload := linePush{To: l.UserID, Messages: []lineMessage{{Type: "text", Text: text}}}
	headers := map[string]string{"Authorization": "Bearer " + l.ChannelToken}
	if err := postJSON(ctx, l.Client, l.Endpoint, headers, payload); err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}
