package ingest

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"vidria/internal/broker"
	"vidria/internal/dedup"
	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/internal/tenants"
	"vidria/pkg/errors"
	"vidria/pkg/metrics"
	"vidria/pkg/models"
)

const (
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
	statusInvalid   = "invalid"
	statusError     = "error"

	envelopeSource = "api-service"
)

// Result is the outcome of one ingest call.
type Result struct {
	ID        int64 `json:"id"`
	Duplicate bool  `json:"duplicate"`
}

// Service accepts normalized detections from edge listeners, stores them,
// and hands them to the broker for rule evaluation. Storage is the source
// of truth: an event that cannot be stored is rejected, while a publish
// failure after storage is logged and the event still counts as accepted.
type Service struct {
	repo     events.Repository
	recent   *events.RecentBuffer
	dedup    *dedup.Service
	producer broker.Producer
	topic    string
	logger   logger.Logger
	now      func() time.Time
}

func NewService(
	repo events.Repository,
	recent *events.RecentBuffer,
	deduper *dedup.Service,
	producer broker.Producer,
	topic string,
	log logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		recent:   recent,
		dedup:    deduper,
		producer: producer,
		topic:    topic,
		logger:   log,
		now:      time.Now,
	}
}

// Ingest validates, deduplicates, stores and publishes one detection.
func (s *Service) Ingest(ctx context.Context, tenant *tenants.Tenant, req events.IngestRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		metrics.EventsIngestedTotal.WithLabelValues(statusInvalid).Inc()
		return nil, err
	}

	if s.dedup.IsDuplicate(ctx, tenant.Token, req.EventID, req.FrigateType) {
		metrics.EventsIngestedTotal.WithLabelValues(statusDuplicate).Inc()
		s.logger.DebugwCtx(ctx, "Duplicate event suppressed",
			"tenant_id", tenant.ID,
			"frigate_event_id", req.EventID,
			"frigate_type", req.FrigateType,
		)
		return &Result{Duplicate: true}, nil
	}

	snapshot, err := decodeSnapshot(req.SnapshotB64)
	if err != nil {
		metrics.EventsIngestedTotal.WithLabelValues(statusInvalid).Inc()
		return nil, errors.ErrValidation.WithCause(err).WithDetail("message", "snapshot_b64 is not valid base64")
	}

	event := &events.Event{
		ReceivedAt:      s.now().UTC(),
		TenantToken:     tenant.Token,
		Camera:          req.Camera,
		Label:           req.Label,
		FrigateType:     req.FrigateType,
		Score:           req.Score,
		TopScore:        req.TopScore,
		DurationSeconds: durationOf(req),
		FrigateEventID:  req.EventID,
		Snapshot:        snapshot,
		Payload:         req.Raw,
	}

	id, err := s.repo.Insert(ctx, event)
	if err != nil {
		metrics.EventsIngestedTotal.WithLabelValues(statusError).Inc()
		s.logger.ErrorwCtx(ctx, "Failed to store event",
			"error", err,
			"tenant_id", tenant.ID,
			"camera", event.Camera,
		)
		return nil, err
	}
	event.ID = id

	s.recent.Add(*event)

	detection := event.ToDetectionEvent(mergeZones(req.Zones, req.EnteredZones))
	envelope := models.NewEventEnvelopeBuilder().
		WithID(uuid.New().String()).
		WithSource(envelopeSource).
		WithTimestamp(event.ReceivedAt).
		WithEvent(detection).
		WithTraceID(traceIDFrom(ctx)).
		Build()

	if err := s.producer.Publish(ctx, s.topic, *envelope); err != nil {
		// The event is durable; evaluation is lost for this one delivery
		// but the API caller should not retry the whole ingest.
		s.logger.ErrorwCtx(ctx, "Failed to publish event to broker",
			"error", err,
			"event_id", id,
			"topic", s.topic,
		)
	}

	metrics.EventsIngestedTotal.WithLabelValues(statusAccepted).Inc()
	s.logger.InfowCtx(ctx, "Event ingested",
		"event_id", id,
		"tenant_id", tenant.ID,
		"camera", event.Camera,
		"label", event.Label,
		"frigate_type", event.FrigateType,
		"has_snapshot", len(snapshot) > 0,
	)

	return &Result{ID: id}, nil
}

// Recent returns the newest in-memory events, most recent first.
func (s *Service) Recent(limit int) []events.Event {
	return s.recent.List(limit)
}

// List returns stored events for the tenant, newest first.
func (s *Service) List(ctx context.Context, tenant *tenants.Tenant, limit int) ([]events.Event, error) {
	return s.repo.ListByTenant(ctx, tenant.Token, limit)
}

// Get returns one stored event, scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenant *tenants.Tenant, id int64) (*events.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.TenantToken != tenant.Token {
		return nil, errors.ErrNotFound
	}
	return event, nil
}

// Snapshot returns the stored JPEG for one event, scoped to the tenant.
func (s *Service) Snapshot(ctx context.Context, tenant *tenants.Tenant, id int64) ([]byte, error) {
	if _, err := s.Get(ctx, tenant, id); err != nil {
		return nil, err
	}

	snapshot, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, errors.ErrNotFound.WithDetail("message", "event has no snapshot")
	}
	return snapshot, nil
}

func validateRequest(req events.IngestRequest) error {
	if req.Camera == "" {
		return errors.ErrValidation.WithDetail("message", "camera is required")
	}
	if req.Label == "" {
		return errors.ErrValidation.WithDetail("message", "label is required")
	}
	if !models.IsValidEventType(req.FrigateType) {
		return errors.ErrValidation.WithDetail("message", "frigate_type must be one of: new, update, end")
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 1) {
		return errors.ErrValidation.WithDetail("message", "score must be between 0 and 1")
	}
	if req.TopScore != nil && (*req.TopScore < 0 || *req.TopScore > 1) {
		return errors.ErrValidation.WithDetail("message", "top_score must be between 0 and 1")
	}
	return nil
}

func decodeSnapshot(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// durationOf prefers the explicit duration and falls back to the start/end
// pair when the listener did not compute one.
func durationOf(req events.IngestRequest) *float64 {
	if req.DurationSeconds != nil {
		return req.DurationSeconds
	}
	if req.StartTime != nil && req.EndTime != nil && *req.EndTime >= *req.StartTime {
		d := *req.EndTime - *req.StartTime
		return &d
	}
	return nil
}

func mergeZones(zones, entered []string) []string {
	if len(entered) == 0 {
		return zones
	}
	seen := make(map[string]struct{}, len(zones))
	merged := make([]string, 0, len(zones)+len(entered))
	for _, z := range zones {
		seen[z] = struct{}{}
		merged = append(merged, z)
	}
	for _, z := range entered {
		if _, ok := seen[z]; !ok {
			merged = append(merged, z)
		}
	}
	return merged
}

func traceIDFrom(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}
