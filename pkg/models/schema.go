package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateEventEnvelope(env *EventEnvelope) error {
	if env == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "event envelope cannot be nil",
		}
	}

	if env.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "envelope ID is required",
		}
	}

	if env.Source == "" {
		return &ValidationError{
			Field:   "source",
			Message: "envelope source is required",
		}
	}

	if env.Timestamp.IsZero() {
		return &ValidationError{
			Field:   "timestamp",
			Message: "envelope timestamp is required",
		}
	}

	return ValidateDetectionEvent(&env.Event)
}

func ValidateDetectionEvent(event *DetectionEvent) error {
	if event == nil {
		return &ValidationError{
			Field:   "event",
			Message: "detection event cannot be nil",
		}
	}

	if event.TenantToken == "" {
		return &ValidationError{
			Field:   "tenant_token",
			Message: "tenant token is required",
		}
	}

	if event.Camera == "" {
		return &ValidationError{
			Field:   "camera",
			Message: "camera is required",
		}
	}

	if event.Label == "" {
		return &ValidationError{
			Field:   "label",
			Message: "label is required",
		}
	}

	if !IsValidEventType(event.Type) {
		return &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("missing or unknown event type %q", event.Type),
		}
	}

	return nil
}
