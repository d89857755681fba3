package events

import (
	"encoding/json"
	"time"

	"vidria/pkg/models"
)

// Event is a stored detection row. Snapshot holds the JPEG bytes when the
// edge listener uploaded one, Payload keeps the raw normalized event.
type Event struct {
	ID              int64           `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	TenantToken     string          `json:"tenant_token"`
	Camera          string          `json:"camera"`
	Label           string          `json:"label"`
	FrigateType     string          `json:"frigate_type,omitempty"`
	Score           *float64        `json:"score,omitempty"`
	TopScore        *float64        `json:"top_score,omitempty"`
	DurationSeconds *float64        `json:"duration_seconds,omitempty"`
	FrigateEventID  string          `json:"frigate_event_id,omitempty"`
	Snapshot        []byte          `json:"-"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// IngestRequest is the normalized detection posted by the edge listener.
type IngestRequest struct {
	EventID         string    `json:"event_id"`
	FrigateType     string    `json:"frigate_type"`
	Camera          string    `json:"camera"`
	Label           string    `json:"label"`
	SubLabel        string    `json:"sub_label,omitempty"`
	Score           *float64  `json:"score,omitempty"`
	TopScore        *float64  `json:"top_score,omitempty"`
	StartTime       *float64  `json:"start_time,omitempty"`
	EndTime         *float64  `json:"end_time,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	Timestamp       string    `json:"timestamp,omitempty"`
	HasClip         bool      `json:"has_clip,omitempty"`
	HasSnapshot     bool      `json:"has_snapshot,omitempty"`
	Zones           []string  `json:"zones,omitempty"`
	EnteredZones    []string  `json:"entered_zones,omitempty"`
	SnapshotB64     string    `json:"snapshot_b64,omitempty"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}

// ToDetectionEvent converts a stored event into the wire form carried on the
// broker.
func (e *Event) ToDetectionEvent(zones []string) models.DetectionEvent {
	return models.DetectionEvent{
		RecordID:        e.ID,
		TenantToken:     e.TenantToken,
		FrigateID:       e.FrigateEventID,
		Camera:          e.Camera,
		Label:           e.Label,
		Type:            e.FrigateType,
		Score:           e.Score,
		TopScore:        e.TopScore,
		DurationSeconds: e.DurationSeconds,
		Zones:           zones,
		HasSnapshot:     len(e.Snapshot) > 0,
		ReceivedAt:      e.ReceivedAt,
	}
}
