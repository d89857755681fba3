package rules

import "time"

// Rule is a per-tenant notification rule. Nil predicate fields are
// unconstrained; Label may hold several labels separated by commas.
// TimeStart and TimeEnd are "HH:MM" strings stored in UTC.
type Rule struct {
	ID                 int       `json:"id"`
	TenantID           int       `json:"tenant_id"`
	Name               string    `json:"name"`
	Enabled            bool      `json:"enabled"`
	IsDeleted          bool      `json:"-"`
	Camera             *string   `json:"camera,omitempty"`
	Label              *string   `json:"label,omitempty"`
	FrigateType        *string   `json:"frigate_type,omitempty"`
	MinScore           *float64  `json:"min_score,omitempty"`
	MinDurationSeconds *float64  `json:"min_duration_seconds,omitempty"`
	CustomMessage      *string   `json:"custom_message,omitempty"`
	TimeStart          *string   `json:"time_start,omitempty"`
	TimeEnd            *string   `json:"time_end,omitempty"`
	Expression         *string   `json:"expression,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CreateRuleRequest struct {
	Name               string   `json:"name"`
	Enabled            *bool    `json:"enabled,omitempty"`
	Camera             *string  `json:"camera,omitempty"`
	Label              *string  `json:"label,omitempty"`
	FrigateType        *string  `json:"frigate_type,omitempty"`
	MinScore           *float64 `json:"min_score,omitempty"`
	MinDurationSeconds *float64 `json:"min_duration_seconds,omitempty"`
	CustomMessage      *string  `json:"custom_message,omitempty"`
	TimeStart          *string  `json:"time_start,omitempty"`
	TimeEnd            *string  `json:"time_end,omitempty"`
	Expression         *string  `json:"expression,omitempty"`
}

// UpdateRuleRequest applies partial updates. A present-but-empty string
// clears the corresponding field, matching PATCH semantics of the API.
type UpdateRuleRequest struct {
	Name               *string  `json:"name,omitempty"`
	Enabled            *bool    `json:"enabled,omitempty"`
	Camera             *string  `json:"camera,omitempty"`
	Label              *string  `json:"label,omitempty"`
	FrigateType        *string  `json:"frigate_type,omitempty"`
	MinScore           *float64 `json:"min_score,omitempty"`
	MinDurationSeconds *float64 `json:"min_duration_seconds,omitempty"`
	CustomMessage      *string  `json:"custom_message,omitempty"`
	TimeStart          *string  `json:"time_start,omitempty"`
	TimeEnd            *string  `json:"time_end,omitempty"`
	Expression         *string  `json:"expression,omitempty"`
}

// Hit records a rule firing against a stored event.
type Hit struct {
	ID          int64     `json:"id"`
	RuleID      int       `json:"rule_id"`
	EventID     int64     `json:"event_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	Action      string    `json:"action"`
}
