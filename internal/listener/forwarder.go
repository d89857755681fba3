package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vidria/internal/config"
	"vidria/internal/constants"
	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/pkg/retry"
)

// Forwarder posts normalized events to the cloud ingest API. Transient
// failures are retried with backoff; after that the event is dropped, since
// Frigate will republish on the next state change anyway.
type Forwarder struct {
	client *http.Client
	url    string
	token  string
	policy retry.Policy
	logger logger.Logger
}

func NewForwarder(cfg config.ListenerConfig, log logger.Logger) *Forwarder {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	return &Forwarder{
		client: &http.Client{Timeout: timeout},
		url:    cfg.IngestURL,
		token:  cfg.TenantToken,
		policy: retry.Policy{
			MaxAttempts:     3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
		},
		logger: log,
	}
}

func (f *Forwarder) Forward(ctx context.Context, event events.IngestRequest) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return retry.RetryWithCallback(ctx, f.policy, func() error {
		return f.post(ctx, body)
	}, func(attempt int, err error, nextDelay time.Duration) {
		f.logger.Warnw("Forward attempt failed, retrying",
			"error", err,
			"attempt", attempt,
			"next_delay", nextDelay,
			"frigate_event_id", event.EventID,
		)
	})
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.TenantTokenHeader, f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("ingest API returned %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// The API rejected the event; retrying the same payload
			// cannot help.
			return retry.MarkFatal(err)
		}
		return err
	}
	return nil
}
