package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"StockPulse/internal/metrics"
)

// Notifier pushes one plain-text message to a chat channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Multi fans a message out to every channel in order. A failing channel is
// logged and counted; the others still receive the message.
type Multi struct {
	Notifiers []Notifier
	Metrics   *metrics.Recorder
}

// Send returns how many channels accepted the message.
func (m *Multi) Send(ctx context.Context, text string) int {
	delivered := 0
	for _, n := range m.Notifiers {
		if err := n.Send(ctx, text); err != nil {
			log.Error().Err(err).Str("channel", n.Name()).Msg("push failed")
			if m.Metrics != nil {
				m.Metrics.PushFailed(n.Name())
			}
			continue
		}
		delivered++
		log.Info().Str("channel", n.Name()).Msg("push delivered")
	}
	return delivered
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// postJSON sends payload and treats any 2xx as success.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
