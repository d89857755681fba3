package rules

import (
	"context"
	"time"

	"vidria/internal/logger"
	"vidria/internal/tenants"
	"vidria/pkg/cel"
	"vidria/pkg/errors"
	"vidria/pkg/models"
	"vidria/pkg/timeutil"
)

// Service owns rule CRUD. Time windows arrive as wall-clock times in the
// tenant's timezone and are converted to UTC before they reach the database,
// so the engine can compare directly against UTC now.
type Service struct {
	repo      Repository
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewService(repo Repository, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:      repo,
		evaluator: evaluator,
		logger:    log,
	}, nil
}

func (s *Service) Create(ctx context.Context, tenant *tenants.Tenant, req CreateRuleRequest) (*Rule, error) {
	if req.Name == "" {
		return nil, errors.ErrValidation.WithDetail("message", "rule name is required")
	}

	rule := &Rule{
		TenantID:           tenant.ID,
		Name:               req.Name,
		Enabled:            true,
		Camera:             emptyToNil(req.Camera),
		Label:              emptyToNil(req.Label),
		FrigateType:        emptyToNil(req.FrigateType),
		MinScore:           req.MinScore,
		MinDurationSeconds: req.MinDurationSeconds,
		CustomMessage:      emptyToNil(req.CustomMessage),
		TimeStart:          emptyToNil(req.TimeStart),
		TimeEnd:            emptyToNil(req.TimeEnd),
		Expression:         emptyToNil(req.Expression),
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.convertTimesToUTC(rule, tenant.Timezone); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "Rule created",
		"rule_id", created.ID,
		"tenant_id", tenant.ID,
		"rule_name", created.Name,
	)
	return created, nil
}

func (s *Service) Get(ctx context.Context, tenant *tenants.Tenant, ruleID int) (*Rule, error) {
	return s.repo.GetByID(ctx, tenant.ID, ruleID)
}

func (s *Service) List(ctx context.Context, tenant *tenants.Tenant) ([]Rule, error) {
	return s.repo.ListByTenant(ctx, tenant.ID)
}

func (s *Service) Update(ctx context.Context, tenant *tenants.Tenant, ruleID int, req UpdateRuleRequest) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, tenant.ID, ruleID)
	if err != nil {
		return nil, err
	}

	applyUpdates(rule, req)

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	// Only re-convert windows the request touched; stored values are
	// already UTC.
	if req.TimeStart != nil || req.TimeEnd != nil {
		converted := &Rule{TimeStart: nil, TimeEnd: nil}
		if req.TimeStart != nil {
			converted.TimeStart = rule.TimeStart
		}
		if req.TimeEnd != nil {
			converted.TimeEnd = rule.TimeEnd
		}
		if err := s.convertTimesToUTC(converted, tenant.Timezone); err != nil {
			return nil, err
		}
		if req.TimeStart != nil {
			rule.TimeStart = converted.TimeStart
		}
		if req.TimeEnd != nil {
			rule.TimeEnd = converted.TimeEnd
		}
	}

	updated, err := s.repo.Update(ctx, rule)
	if err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "Rule updated",
		"rule_id", updated.ID,
		"tenant_id", tenant.ID,
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, tenant *tenants.Tenant, ruleID int) error {
	if err := s.repo.SoftDelete(ctx, tenant.ID, ruleID); err != nil {
		return err
	}

	s.logger.InfowCtx(ctx, "Rule deleted",
		"rule_id", ruleID,
		"tenant_id", tenant.ID,
	)
	return nil
}

func (s *Service) ListHits(ctx context.Context, tenant *tenants.Tenant, limit int) ([]Hit, error) {
	return s.repo.ListHitsByTenant(ctx, tenant.ID, limit)
}

func (s *Service) validateRule(rule *Rule) error {
	if rule.FrigateType != nil && !models.IsValidEventType(*rule.FrigateType) {
		return errors.ErrValidation.WithDetail("message", "frigate_type must be one of: new, update, end")
	}

	if rule.MinScore != nil && (*rule.MinScore < 0 || *rule.MinScore > 1) {
		return errors.ErrValidation.WithDetail("message", "min_score must be between 0 and 1")
	}

	if rule.MinDurationSeconds != nil && *rule.MinDurationSeconds < 0 {
		return errors.ErrValidation.WithDetail("message", "min_duration_seconds must be non-negative")
	}

	if rule.TimeStart != nil {
		if _, err := time.Parse("15:04", *rule.TimeStart); err != nil {
			return errors.ErrValidation.WithDetail("message", "time_start must use the HH:MM format")
		}
	}

	if rule.TimeEnd != nil {
		if _, err := time.Parse("15:04", *rule.TimeEnd); err != nil {
			return errors.ErrValidation.WithDetail("message", "time_end must use the HH:MM format")
		}
	}

	if rule.Expression != nil {
		if err := s.evaluator.ValidateFilterExpression(*rule.Expression); err != nil {
			return errors.ErrValidation.
				WithCause(err).
				WithDetail("message", "expression is not a valid filter")
		}
	}

	return nil
}

func (s *Service) convertTimesToUTC(rule *Rule, timezone string) error {
	if rule.TimeStart != nil {
		utc, err := timeutil.LocalToUTC(*rule.TimeStart, timezone)
		if err != nil {
			return errors.ErrValidation.WithCause(err).WithDetail("message", "invalid time_start")
		}
		rule.TimeStart = &utc
	}

	if rule.TimeEnd != nil {
		utc, err := timeutil.LocalToUTC(*rule.TimeEnd, timezone)
		if err != nil {
			return errors.ErrValidation.WithCause(err).WithDetail("message", "invalid time_end")
		}
		rule.TimeEnd = &utc
	}

	return nil
}

func applyUpdates(rule *Rule, req UpdateRuleRequest) {
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Camera != nil {
		rule.Camera = emptyToNil(req.Camera)
	}
	if req.Label != nil {
		rule.Label = emptyToNil(req.Label)
	}
	if req.FrigateType != nil {
		rule.FrigateType = emptyToNil(req.FrigateType)
	}
	if req.MinScore != nil {
		rule.MinScore = req.MinScore
	}
	if req.MinDurationSeconds != nil {
		rule.MinDurationSeconds = req.MinDurationSeconds
	}
	if req.CustomMessage != nil {
		rule.CustomMessage = emptyToNil(req.CustomMessage)
	}
	if req.TimeStart != nil {
		rule.TimeStart = emptyToNil(req.TimeStart)
	}
	if req.TimeEnd != nil {
		rule.TimeEnd = emptyToNil(req.TimeEnd)
	}
	if req.Expression != nil {
		rule.Expression = emptyToNil(req.Expression)
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
