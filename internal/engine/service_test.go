package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidria/internal/events"
	"vidria/internal/logger"
	"vidria/internal/rules"
	"vidria/internal/tenants"
	"vidria/pkg/errors"
	"vidria/pkg/models"
)

type fakeTenantRepo struct {
	tenant *tenants.Tenant
	err    error
}

func (f *fakeTenantRepo) GetByToken(ctx context.Context, token string) (*tenants.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.tenant == nil || f.tenant.Token != token {
		return nil, errors.ErrNotFound
	}
	return f.tenant, nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id int) (*tenants.Tenant, error) {
	return f.tenant, f.err
}

func (f *fakeTenantRepo) Update(ctx context.Context, id int, req tenants.UpdateTenantRequest) (*tenants.Tenant, error) {
	return f.tenant, f.err
}

type fakeRuleRepo struct {
	rules        []rules.Rule
	findErr      error
	insertHitErr error
	hits         []rules.Hit
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *rules.Rule) (*rules.Rule, error) {
	return rule, nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, tenantID, ruleID int) (*rules.Rule, error) {
	return nil, errors.ErrNotFound
}

func (f *fakeRuleRepo) ListByTenant(ctx context.Context, tenantID int) ([]rules.Rule, error) {
	return f.rules, nil
}

func (f *fakeRuleRepo) FindEnabledForTenant(ctx context.Context, tenantID int, camera string) ([]rules.Rule, error) {
	return f.rules, f.findErr
}

func (f *fakeRuleRepo) Update(ctx context.Context, rule *rules.Rule) (*rules.Rule, error) {
	return rule, nil
}

func (f *fakeRuleRepo) SoftDelete(ctx context.Context, tenantID, ruleID int) error {
	return nil
}

func (f *fakeRuleRepo) InsertHit(ctx context.Context, ruleID int, eventID int64, action string) (int64, error) {
	if f.insertHitErr != nil {
		return 0, f.insertHitErr
	}
	f.hits = append(f.hits, rules.Hit{ID: int64(len(f.hits) + 1), RuleID: ruleID, EventID: eventID, Action: action})
	return int64(len(f.hits)), nil
}

func (f *fakeRuleRepo) ListHitsByTenant(ctx context.Context, tenantID, limit int) ([]rules.Hit, error) {
	return f.hits, nil
}

type fakeEventRepo struct {
	snapshot      []byte
	snapshotErr   error
	snapshotCalls int
}

func (f *fakeEventRepo) Insert(ctx context.Context, event *events.Event) (int64, error) {
	return 1, nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id int64) (*events.Event, error) {
	return nil, errors.ErrNotFound
}

func (f *fakeEventRepo) GetSnapshot(ctx context.Context, id int64) ([]byte, error) {
	f.snapshotCalls++
	return f.snapshot, f.snapshotErr
}

func (f *fakeEventRepo) ListByTenant(ctx context.Context, tenantToken string, limit int) ([]events.Event, error) {
	return nil, nil
}

type sentText struct {
	to   string
	body string
}

type sentImage struct {
	to      string
	caption string
	size    int
}

type fakeNotifier struct {
	texts   []sentText
	images  []sentImage
	sendErr error
}

func (f *fakeNotifier) SendText(ctx context.Context, toNumber, body string) error {
	f.texts = append(f.texts, sentText{to: toNumber, body: body})
	return f.sendErr
}

func (f *fakeNotifier) SendImage(ctx context.Context, toNumber string, image []byte, caption string) error {
	f.images = append(f.images, sentImage{to: toNumber, caption: caption, size: len(image)})
	return f.sendErr
}

type engineFixture struct {
	svc      *Service
	tenants  *fakeTenantRepo
	rules    *fakeRuleRepo
	events   *fakeEventRepo
	notifier *fakeNotifier
}

func newEngineFixture(t *testing.T, tenantRules []rules.Rule) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		tenants: &fakeTenantRepo{tenant: &tenants.Tenant{
			ID:              1,
			Token:           "tok-1",
			Username:        "alice",
			WhatsAppNumber:  "+573001112233",
			WhatsAppEnabled: true,
			Timezone:        "UTC",
		}},
		rules:    &fakeRuleRepo{rules: tenantRules},
		events:   &fakeEventRepo{},
		notifier: &fakeNotifier{},
	}

	svc, err := NewService(fx.tenants, fx.rules, fx.events, fx.notifier, logger.NopLogger())
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	fx.svc = svc
	return fx
}

func envelopeFor(event models.DetectionEvent) models.EventEnvelope {
	return models.EventEnvelope{
		ID:        "env-1",
		Source:    "api-service",
		Timestamp: time.Now().UTC(),
		Event:     event,
	}
}

func TestEvaluateMatchRecordsHitAndSendsText(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "person anywhere", Label: strPtr("person")},
	})

	event := baseEvent()
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	require.Len(t, fx.rules.hits, 1)
	assert.Equal(t, 10, fx.rules.hits[0].RuleID)
	assert.Equal(t, int64(42), fx.rules.hits[0].EventID)
	assert.Equal(t, "whatsapp", fx.rules.hits[0].Action)

	require.Len(t, fx.notifier.texts, 1)
	assert.Equal(t, "+573001112233", fx.notifier.texts[0].to)
	assert.Contains(t, fx.notifier.texts[0].body, "Alert: person anywhere")
	assert.Empty(t, fx.notifier.images)
}

func TestEvaluateNoMatchSendsNothing(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "cars only", Label: strPtr("car")},
	})

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	assert.Empty(t, fx.rules.hits)
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateRejectsUnknownEventType(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})

	event := baseEvent()
	event.Type = "bogus"
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	assert.Empty(t, fx.rules.hits)
}

func TestEvaluateRejectsMissingEventType(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})

	event := baseEvent()
	event.Type = ""
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	assert.Empty(t, fx.rules.hits)
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateRejectsUnknownTenant(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})

	event := baseEvent()
	event.TenantToken = "no-such-token"
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	assert.Empty(t, fx.rules.hits)
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateTenantLookupErrorSwallowed(t *testing.T) {
	fx := newEngineFixture(t, nil)
	fx.tenants.err = errors.ErrInternal

	assert.NoError(t, fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent())))
}

func TestEvaluateHitRecordedWithoutDispatchWhenWhatsAppDisabled(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})
	fx.tenants.tenant.WhatsAppEnabled = false

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	assert.Len(t, fx.rules.hits, 1)
	assert.Empty(t, fx.notifier.texts)
	assert.Empty(t, fx.notifier.images)
}

func TestEvaluateHitRecordedWithoutDispatchWhenNumberMissing(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})
	fx.tenants.tenant.WhatsAppNumber = ""

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	assert.Len(t, fx.rules.hits, 1)
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateInsertHitFailureStopsRemainingRules(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "first"},
		{ID: 11, Name: "second"},
	})
	fx.rules.insertHitErr = errors.ErrInternal

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	assert.Empty(t, fx.rules.hits)
	// no dispatch without a durable hit
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateAllMatchingRulesFire(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "first"},
		{ID: 11, Name: "no match", Label: strPtr("car")},
		{ID: 12, Name: "third"},
	})

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	require.Len(t, fx.rules.hits, 2)
	assert.Equal(t, 10, fx.rules.hits[0].RuleID)
	assert.Equal(t, 12, fx.rules.hits[1].RuleID)
	assert.Len(t, fx.notifier.texts, 2)
}

func TestEvaluateSnapshotLoadedOnceAcrossRules(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "first"},
		{ID: 11, Name: "second"},
	})
	fx.events.snapshot = []byte{0xff, 0xd8, 0xff}

	event := baseEvent()
	event.HasSnapshot = true
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	assert.Equal(t, 1, fx.events.snapshotCalls)
	require.Len(t, fx.notifier.images, 2)
	assert.Equal(t, 3, fx.notifier.images[0].size)
	assert.Empty(t, fx.notifier.texts)
}

func TestEvaluateSnapshotLoadFailureFallsBackToText(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})
	fx.events.snapshotErr = errors.ErrInternal

	event := baseEvent()
	event.HasSnapshot = true
	err := fx.svc.Evaluate(context.Background(), envelopeFor(event))

	require.NoError(t, err)
	assert.Empty(t, fx.notifier.images)
	assert.Len(t, fx.notifier.texts, 1)
}

func TestEvaluateNoSnapshotFetchWhenEventHasNone(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{{ID: 10, Name: "any"}})

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	assert.Equal(t, 0, fx.events.snapshotCalls)
}

func TestEvaluateDispatchErrorSwallowed(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "first"},
		{ID: 11, Name: "second"},
	})
	fx.notifier.sendErr = errors.ErrInternal

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	// both hits recorded and both dispatch attempts made despite failures
	assert.Len(t, fx.rules.hits, 2)
	assert.Len(t, fx.notifier.texts, 2)
}

func TestEvaluateExpressionPredicate(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "scored", Expression: strPtr(`score > 0.8 && camera == "front_door"`)},
		{ID: 11, Name: "filtered out", Expression: strPtr(`label == "car"`)},
	})

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	require.NoError(t, err)
	require.Len(t, fx.rules.hits, 1)
	assert.Equal(t, 10, fx.rules.hits[0].RuleID)
}

func TestEvaluateBrokenExpressionDegrades(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "broken", Expression: strPtr(`this is not CEL ((`)},
	})

	err := fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent()))

	// the expression predicate is skipped, the structured predicates decide
	require.NoError(t, err)
	assert.Len(t, fx.rules.hits, 1)
}

func TestEvaluateTimeWindowUsesInjectedClock(t *testing.T) {
	fx := newEngineFixture(t, []rules.Rule{
		{ID: 10, Name: "night only", TimeStart: strPtr("22:00"), TimeEnd: strPtr("06:00")},
	})

	// fixture clock is 12:00 UTC, outside the window
	require.NoError(t, fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent())))
	assert.Empty(t, fx.rules.hits)

	fx.svc.now = func() time.Time { return time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC) }
	require.NoError(t, fx.svc.Evaluate(context.Background(), envelopeFor(baseEvent())))
	assert.Len(t, fx.rules.hits, 1)
}
