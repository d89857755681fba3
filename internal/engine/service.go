package engine

import (
	"context"
	"time"

	"vidria/internal/constants"
	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/internal/notifier"
	"vidria/internal/rules"
	"vidria/internal/tenants"
	"vidria/pkg/cel"
	pkgerrors "vidria/pkg/errors"
	"vidria/pkg/metrics"
	"vidria/pkg/models"
	"vidria/pkg/tracing"
)

const (
	statusMatched  = "matched"
	statusNoMatch  = "no_match"
	statusRejected = "rejected"
	statusError    = "error"
)

// Service is the rule engine. It evaluates one detection event against the
// owning tenant's enabled rules and dispatches WhatsApp alerts for matches.
// Evaluation never propagates an error back to the broker: every failure is
// logged and swallowed so a poisoned event cannot wedge the consumer.
type Service struct {
	tenantRepo tenants.Repository
	ruleRepo   rules.Repository
	eventRepo  events.Repository
	notifier   notifier.Notifier
	evaluator  *cel.Evaluator
	logger     logger.Logger
	now        func() time.Time
}

func NewService(
	tenantRepo tenants.Repository,
	ruleRepo rules.Repository,
	eventRepo events.Repository,
	sender notifier.Notifier,
	log logger.Logger,
) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	return &Service{
		tenantRepo: tenantRepo,
		ruleRepo:   ruleRepo,
		eventRepo:  eventRepo,
		notifier:   sender,
		evaluator:  evaluator,
		logger:     log,
		now:        time.Now,
	}, nil
}

// Evaluate runs the full evaluation pipeline for one event. It is the broker
// consumer's handler; returning nil always keeps the message committed.
func (s *Service) Evaluate(ctx context.Context, envelope models.EventEnvelope) error {
	ctx, span := tracing.GetTracer("alert-engine").Start(ctx, "engine.evaluate")
	defer span.End()

	start := s.now()
	status := statusError

	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			s.logger.ErrorwCtx(ctx, "Panic during event evaluation",
				"error", err,
				"event_id", envelope.Event.RecordID,
			)
			status = statusError
		}
		metrics.EventsEvaluatedTotal.WithLabelValues(status).Inc()
		metrics.ObserveEvaluationDuration(time.Since(start), status)
	}()

	event := envelope.Event

	if !models.IsValidEventType(event.Type) {
		s.logger.WarnwCtx(ctx, "Rejecting event with missing or unknown type",
			"event_id", event.RecordID,
			"type", event.Type,
		)
		status = statusRejected
		return nil
	}

	tenant, err := s.tenantRepo.GetByToken(ctx, event.TenantToken)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.logger.WarnwCtx(ctx, "Rejecting event with unknown tenant token",
				"event_id", event.RecordID,
			)
			status = statusRejected
			return nil
		}
		s.logger.ErrorwCtx(ctx, "Tenant lookup failed",
			"error", err,
			"event_id", event.RecordID,
		)
		return nil
	}

	tenantRules, err := s.ruleRepo.FindEnabledForTenant(ctx, tenant.ID, event.Camera)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to load rules",
			"error", err,
			"tenant_id", tenant.ID,
			"event_id", event.RecordID,
		)
		return nil
	}

	s.logger.DebugwCtx(ctx, "Evaluating rules",
		"tenant_id", tenant.ID,
		"event_id", event.RecordID,
		"rules_count", len(tenantRules),
		"camera", event.Camera,
		"label", event.Label,
	)

	matched := s.evaluateRules(ctx, tenant, tenantRules, &event)
	if matched {
		status = statusMatched
	} else {
		status = statusNoMatch
	}
	return nil
}

func (s *Service) evaluateRules(ctx context.Context, tenant *tenants.Tenant, tenantRules []rules.Rule, event *models.DetectionEvent) bool {
	anyMatched := false

	// Snapshot is fetched lazily and at most once per event, shared across
	// every matching rule.
	var snapshot []byte
	snapshotLoaded := false
	loadSnapshot := func() []byte {
		if snapshotLoaded {
			return snapshot
		}
		snapshotLoaded = true
		if !event.HasSnapshot || event.RecordID == 0 {
			return nil
		}
		data, err := s.eventRepo.GetSnapshot(ctx, event.RecordID)
		if err != nil {
			s.logger.WarnwCtx(ctx, "Failed to load snapshot",
				"error", err,
				"event_id", event.RecordID,
			)
			return nil
		}
		snapshot = data
		return snapshot
	}

	for i := range tenantRules {
		rule := &tenantRules[i]

		if !s.ruleMatches(ctx, rule, event) {
			continue
		}
		anyMatched = true
		metrics.RuleHitsTotal.Inc()

		// The hit is durable proof a rule fired; record it before any
		// dispatch attempt.
		if _, err := s.ruleRepo.InsertHit(ctx, rule.ID, event.RecordID, constants.ActionWhatsApp); err != nil {
			s.logger.ErrorwCtx(ctx, "Failed to record rule hit, stopping evaluation for event",
				"error", err,
				"rule_id", rule.ID,
				"event_id", event.RecordID,
			)
			return anyMatched
		}

		s.logger.InfowCtx(ctx, "Rule matched",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"event_id", event.RecordID,
			"camera", event.Camera,
			"label", event.Label,
		)

		if !tenant.CanReceiveWhatsApp() {
			s.logger.InfowCtx(ctx, "WhatsApp disabled for tenant, hit recorded without dispatch",
				"rule_id", rule.ID,
				"tenant_id", tenant.ID,
			)
			continue
		}

		s.dispatch(ctx, tenant, rule, event, loadSnapshot())
	}

	return anyMatched
}

func (s *Service) ruleMatches(ctx context.Context, rule *rules.Rule, event *models.DetectionEvent) bool {
	if err := TimeWindowError(rule); err != nil {
		s.logger.ErrorwCtx(ctx, "Rule has malformed time window, predicate skipped",
			"error", err,
			"rule_id", rule.ID,
		)
	}

	result := MatchRule(rule, event, s.now())
	if !result.Matched {
		metrics.RulesEvaluatedTotal.WithLabelValues("no_match").Inc()
		s.logger.DebugwCtx(ctx, "Rule did not match",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"reasons", result.Reasons,
		)
		return false
	}

	if rule.Expression != nil && *rule.Expression != "" {
		ok, err := s.evaluator.EvaluateFilter(ctx, *rule.Expression, *event)
		if err != nil {
			// A broken expression degrades to unconstrained, matching how
			// malformed time windows behave.
			s.logger.ErrorwCtx(ctx, "Rule expression evaluation failed, predicate skipped",
				"error", err,
				"rule_id", rule.ID,
			)
		} else if !ok {
			metrics.RulesEvaluatedTotal.WithLabelValues("no_match").Inc()
			s.logger.DebugwCtx(ctx, "Rule expression did not match",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
			)
			return false
		}
	}

	metrics.RulesEvaluatedTotal.WithLabelValues("matched").Inc()
	return true
}

func (s *Service) dispatch(ctx context.Context, tenant *tenants.Tenant, rule *rules.Rule, event *models.DetectionEvent, snapshot []byte) {
	message := RenderMessage(rule, event)

	var err error
	if len(snapshot) > 0 {
		err = s.notifier.SendImage(ctx, tenant.WhatsAppNumber, snapshot, message)
	} else {
		err = s.notifier.SendText(ctx, tenant.WhatsAppNumber, message)
	}

	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to dispatch alert",
			"error", err,
			"rule_id", rule.ID,
			"event_id", event.RecordID,
			"tenant_id", tenant.ID,
		)
	}
}
