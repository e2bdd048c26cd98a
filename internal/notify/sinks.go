package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nftvault/internal/paas"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Notify(_ context.Context, ev Event) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("ingestion event",
		zap.String("type", ev.Type),
		zap.String("wallet_id", ev.WalletID),
		zap.String("network", ev.Network),
		zap.String("state", ev.State),
		zap.String("message", ev.Message),
		zap.Any("data", ev.Data),
	)
	return nil
}

type WebhookSink struct {
	URL  string
	HTTP *http.Client
}

type WebhookError struct {
	StatusCode int
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook http status %d", e.StatusCode)
}

func (s WebhookSink) Notify(ctx context.Context, ev Event) error {
	if s.URL == "" {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &WebhookError{StatusCode: resp.StatusCode}
	}
	return nil
}

// PlatformSink records terminal ingestion states in the easyweb3 platform
// log API. Intermediate transitions are skipped.
type PlatformSink struct {
	Client *paas.Client
	Agent  string
}

func (s PlatformSink) Notify(ctx context.Context, ev Event) error {
	if s.Client == nil {
		return nil
	}
	if ev.State != StateDone && ev.State != StateNetworkFailed {
		return nil
	}
	level := "info"
	if ev.State == StateNetworkFailed {
		level = "warn"
	}
	details := map[string]any{
		"wallet_id": ev.WalletID,
		"network":   ev.Network,
		"message":   ev.Message,
	}
	for k, v := range ev.Data {
		details[k] = v
	}
	return s.Client.CreateLog(ctx, paas.CreateLogRequest{
		Agent:    s.Agent,
		Action:   "nftvault_" + ev.State,
		Level:    level,
		Details:  details,
		Metadata: map[string]any{"type": ev.Type},
	})
}
