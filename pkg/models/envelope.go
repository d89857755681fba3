package models

import "time"

// EventEnvelope is the wire format for detection events flowing between the
// ingest API and the alert service.
type EventEnvelope struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Event     DetectionEvent `json:"event"`
	Metadata  Metadata       `json:"metadata"`
}

type Metadata struct {
	TraceID string   `json:"trace_id,omitempty"`
	DLQ     *DLQInfo `json:"dlq,omitempty"`
}

// DLQInfo records why an envelope was diverted to the dead letter topic.
type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	Timestamp   time.Time `json:"timestamp"`
}

// DetectionEvent is a normalized Frigate detection as stored by the ingest
// API. Score, TopScore and DurationSeconds are nil when Frigate omitted them.
type DetectionEvent struct {
	RecordID        int64     `json:"record_id"`
	TenantToken     string    `json:"tenant_token"`
	FrigateID       string    `json:"frigate_id"`
	Camera          string    `json:"camera"`
	Label           string    `json:"label"`
	Type            string    `json:"type"`
	Score           *float64  `json:"score,omitempty"`
	TopScore        *float64  `json:"top_score,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	Zones           []string  `json:"zones,omitempty"`
	HasSnapshot     bool      `json:"has_snapshot"`
	ReceivedAt      time.Time `json:"received_at"`
}

// Frigate event lifecycle types.
const (
	EventTypeNew    = "new"
	EventTypeUpdate = "update"
	EventTypeEnd    = "end"
)

// IsValidEventType reports whether t is one of the Frigate lifecycle types.
func IsValidEventType(t string) bool {
	return t == EventTypeNew || t == EventTypeUpdate || t == EventTypeEnd
}

// EffectiveScore returns the highest confidence Frigate reported for the
// detection. Missing scores count as zero.
func (e *DetectionEvent) EffectiveScore() float64 {
	score := 0.0
	if e.Score != nil {
		score = *e.Score
	}
	if e.TopScore != nil && *e.TopScore > score {
		score = *e.TopScore
	}
	return score
}

type EventEnvelopeBuilder struct {
	envelope *EventEnvelope
}

func NewEventEnvelopeBuilder() *EventEnvelopeBuilder {
	return &EventEnvelopeBuilder{
		envelope: &EventEnvelope{},
	}
}

func (b *EventEnvelopeBuilder) WithID(id string) *EventEnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *EventEnvelopeBuilder) WithSource(source string) *EventEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *EventEnvelopeBuilder) WithTimestamp(timestamp time.Time) *EventEnvelopeBuilder {
	b.envelope.Timestamp = timestamp
	return b
}

func (b *EventEnvelopeBuilder) WithEvent(event DetectionEvent) *EventEnvelopeBuilder {
	b.envelope.Event = event
	return b
}

func (b *EventEnvelopeBuilder) WithTraceID(traceID string) *EventEnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

func (b *EventEnvelopeBuilder) Build() *EventEnvelope {
	if b.envelope.Timestamp.IsZero() {
		b.envelope.Timestamp = time.Now()
	}
	return b.envelope
}
