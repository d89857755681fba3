package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"vidria/internal/config"
	"vidria/internal/constants"
	"vidria/internal/logger"
	"vidria/pkg/circuitbreaker"
	"vidria/pkg/errors"
	"vidria/pkg/metrics"
)

// WhatsAppNotifier sends alerts through the Meta Graph API. A single system
// number sends to every tenant; only the destination varies.
type WhatsAppNotifier struct {
	cfg     config.WhatsAppConfig
	client  *http.Client
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewWhatsAppNotifier(cfg config.WhatsAppConfig, log logger.Logger) *WhatsAppNotifier {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	return &WhatsAppNotifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("whatsapp")),
		logger:  log,
	}
}

type textMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	Body string `json:"body"`
}

type imageMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Image            imagePayload `json:"image"`
}

type imagePayload struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

func (n *WhatsAppNotifier) SendText(ctx context.Context, toNumber, body string) error {
	if toNumber == "" {
		return errors.ErrValidation.WithDetail("message", "destination number is empty")
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               toNumber,
		Type:             "text",
		Text:             textPayload{Body: body},
	}

	err := n.postMessage(ctx, msg)
	n.recordOutcome("text", err)
	if err != nil {
		return err
	}

	n.logger.InfowCtx(ctx, "WhatsApp text sent", "to", toNumber)
	return nil
}

// SendImage uploads the snapshot, then sends an image message referencing
// it. Any failure along the image path falls back to a plain text send of
// the caption, once.
func (n *WhatsAppNotifier) SendImage(ctx context.Context, toNumber string, image []byte, caption string) error {
	if toNumber == "" {
		return errors.ErrValidation.WithDetail("message", "destination number is empty")
	}

	mediaID, err := n.uploadMedia(ctx, image)
	if err != nil {
		n.logger.WarnwCtx(ctx, "Snapshot upload failed, falling back to text",
			"error", err,
			"to", toNumber,
		)
		metrics.NotificationFallbackTotal.Inc()
		return n.SendText(ctx, toNumber, caption)
	}

	msg := imageMessage{
		MessagingProduct: "whatsapp",
		To:               toNumber,
		Type:             "image",
		Image:            imagePayload{ID: mediaID, Caption: caption},
	}

	if err := n.postMessage(ctx, msg); err != nil {
		n.recordOutcome("image", err)
		n.logger.WarnwCtx(ctx, "Image message failed, falling back to text",
			"error", err,
			"to", toNumber,
		)
		metrics.NotificationFallbackTotal.Inc()
		return n.SendText(ctx, toNumber, caption)
	}

	n.recordOutcome("image", nil)
	n.logger.InfowCtx(ctx, "WhatsApp image sent", "to", toNumber)
	return nil
}

func (n *WhatsAppNotifier) postMessage(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", n.cfg.APIBaseURL, n.cfg.PhoneNumberID)

	_, err = n.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+n.cfg.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("whatsapp API returned %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, nil
	})

	return err
}

func (n *WhatsAppNotifier) uploadMedia(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty snapshot")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "snapshot.jpg")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.WriteField("type", "image/jpeg"); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	url := fmt.Sprintf("%s/%s/media", n.cfg.APIBaseURL, n.cfg.PhoneNumberID)

	result, err := n.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+n.cfg.AccessToken)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
			return nil, fmt.Errorf("media upload returned %d: %s", resp.StatusCode, string(respBody))
		}

		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse upload response: %w", err)
		}
		if parsed.ID == "" {
			return nil, fmt.Errorf("upload response missing media id")
		}
		return parsed.ID, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (n *WhatsAppNotifier) recordOutcome(kind string, err error) {
	status := "sent"
	success := true
	if err != nil {
		status = "failed"
		success = false
	}
	metrics.NotificationsTotal.WithLabelValues(kind, status).Inc()
	n.breaker.RecordRequest(success)
}
