package listener

import (
	"encoding/json"
	"fmt"
	"time"

	"vidria/internal/events"
)

// frigateMessage is the payload Frigate publishes on frigate/events. The
// before/after pair describes the tracked object around the state change;
// after is the authoritative view when present.
type frigateMessage struct {
	Type   string         `json:"type"`
	Before *frigateObject `json:"before"`
	After  *frigateObject `json:"after"`
}

type frigateObject struct {
	ID           string   `json:"id"`
	Camera       string   `json:"camera"`
	Label        string   `json:"label"`
	SubLabel     string   `json:"sub_label"`
	Score        *float64 `json:"score"`
	TopScore     *float64 `json:"top_score"`
	StartTime    *float64 `json:"start_time"`
	EndTime      *float64 `json:"end_time"`
	HasClip      bool     `json:"has_clip"`
	HasSnapshot  bool     `json:"has_snapshot"`
	CurrentZones []string `json:"current_zones"`
	EnteredZones []string `json:"entered_zones"`
}

// Normalize converts a raw Frigate MQTT payload into the ingest API's wire
// form. The original payload travels along in Raw for forensics.
func Normalize(payload []byte) (events.IngestRequest, error) {
	var msg frigateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return events.IngestRequest{}, fmt.Errorf("failed to parse frigate payload: %w", err)
	}

	base := msg.After
	if base == nil {
		base = msg.Before
	}
	if base == nil {
		return events.IngestRequest{}, fmt.Errorf("frigate payload has no before or after object")
	}

	return events.IngestRequest{
		EventID:         base.ID,
		FrigateType:     msg.Type,
		Camera:          base.Camera,
		Label:           base.Label,
		SubLabel:        base.SubLabel,
		Score:           base.Score,
		TopScore:        base.TopScore,
		StartTime:       base.StartTime,
		EndTime:         base.EndTime,
		DurationSeconds: durationBetween(base.StartTime, base.EndTime),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		HasClip:         base.HasClip,
		HasSnapshot:     base.HasSnapshot,
		Zones:           base.CurrentZones,
		EnteredZones:    base.EnteredZones,
		Raw:             json.RawMessage(payload),
	}, nil
}

func durationBetween(start, end *float64) *float64 {
	if start == nil || end == nil {
		return nil
	}
	d := *end - *start
	if d < 0 {
		return nil
	}
	return &d
}
