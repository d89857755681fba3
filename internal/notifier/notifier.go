package notifier

import "context"

// Notifier delivers alert messages to a destination number.
type Notifier interface {
	// SendText sends a plain text alert.
	SendText(ctx context.Context, toNumber, body string) error
	// SendImage sends an image with a caption. Implementations fall back to
	// a text alert when the image path fails, so a hit still produces a
	// notification whenever the channel works at all.
	SendImage(ctx context.Context, toNumber string, image []byte, caption string) error
}

// NopNotifier drops every message. Used when no WhatsApp credentials are
// configured.
type NopNotifier struct{}

func (NopNotifier) SendText(ctx context.Context, toNumber, body string) error {
	return nil
}

func (NopNotifier) SendImage(ctx context.Context, toNumber string, image []byte, caption string) error {
	return nil
}
