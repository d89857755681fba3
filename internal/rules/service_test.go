package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidria/internal/logger"
	"vidria/internal/tenants"
	"vidria/pkg/errors"
)

type memoryRepo struct {
	rules  map[int]*Rule
	nextID int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rules: make(map[int]*Rule), nextID: 1}
}

func (m *memoryRepo) Create(ctx context.Context, rule *Rule) (*Rule, error) {
	stored := *rule
	stored.ID = m.nextID
	m.nextID++
	m.rules[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *memoryRepo) GetByID(ctx context.Context, tenantID, ruleID int) (*Rule, error) {
	rule, ok := m.rules[ruleID]
	if !ok || rule.TenantID != tenantID || rule.IsDeleted {
		return nil, errors.ErrNotFound
	}
	copied := *rule
	return &copied, nil
}

func (m *memoryRepo) ListByTenant(ctx context.Context, tenantID int) ([]Rule, error) {
	var out []Rule
	for _, rule := range m.rules {
		if rule.TenantID == tenantID && !rule.IsDeleted {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (m *memoryRepo) FindEnabledForTenant(ctx context.Context, tenantID int, camera string) ([]Rule, error) {
	var out []Rule
	for _, rule := range m.rules {
		if rule.TenantID == tenantID && rule.Enabled && !rule.IsDeleted {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (m *memoryRepo) Update(ctx context.Context, rule *Rule) (*Rule, error) {
	if _, ok := m.rules[rule.ID]; !ok {
		return nil, errors.ErrNotFound
	}
	stored := *rule
	m.rules[rule.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, tenantID, ruleID int) error {
	rule, ok := m.rules[ruleID]
	if !ok || rule.TenantID != tenantID || rule.IsDeleted {
		return errors.ErrNotFound
	}
	rule.IsDeleted = true
	rule.Enabled = false
	return nil
}

func (m *memoryRepo) InsertHit(ctx context.Context, ruleID int, eventID int64, action string) (int64, error) {
	return 1, nil
}

func (m *memoryRepo) ListHitsByTenant(ctx context.Context, tenantID, limit int) ([]Hit, error) {
	return nil, nil
}

func testTenant(timezone string) *tenants.Tenant {
	return &tenants.Tenant{ID: 1, Token: "tok-1", Username: "alice", Timezone: timezone}
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	svc, err := NewService(repo, logger.NopLogger())
	require.NoError(t, err)
	return svc, repo
}

func ptr[T any](v T) *T { return &v }

func TestCreateRuleDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	rule, err := svc.Create(context.Background(), testTenant("UTC"), CreateRuleRequest{
		Name:  "person alert",
		Label: ptr("person"),
	})

	require.NoError(t, err)
	assert.True(t, rule.Enabled)
	assert.Equal(t, 1, rule.TenantID)
	assert.Equal(t, "person", *rule.Label)
	assert.Nil(t, rule.Camera)
}

func TestCreateRuleRequiresName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), testTenant("UTC"), CreateRuleRequest{})
	assert.True(t, errors.IsValidation(err))
}

func TestCreateRuleEmptyStringsBecomeUnconstrained(t *testing.T) {
	svc, _ := newTestService(t)

	rule, err := svc.Create(context.Background(), testTenant("UTC"), CreateRuleRequest{
		Name:   "any",
		Camera: ptr(""),
		Label:  ptr(""),
	})

	require.NoError(t, err)
	assert.Nil(t, rule.Camera)
	assert.Nil(t, rule.Label)
}

func TestCreateRuleValidation(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("UTC")

	tests := []struct {
		name string
		req  CreateRuleRequest
	}{
		{"bad frigate type", CreateRuleRequest{Name: "r", FrigateType: ptr("started")}},
		{"score above one", CreateRuleRequest{Name: "r", MinScore: ptr(1.5)}},
		{"negative score", CreateRuleRequest{Name: "r", MinScore: ptr(-0.1)}},
		{"negative duration", CreateRuleRequest{Name: "r", MinDurationSeconds: ptr(-1.0)}},
		{"bad time format", CreateRuleRequest{Name: "r", TimeStart: ptr("9pm")}},
		{"bad expression", CreateRuleRequest{Name: "r", Expression: ptr("score >>> 1")}},
		{"non-bool expression", CreateRuleRequest{Name: "r", Expression: ptr("camera")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tenant, tt.req)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestCreateRuleConvertsTimeWindowToUTC(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("America/Bogota") // UTC-5, no DST

	rule, err := svc.Create(context.Background(), tenant, CreateRuleRequest{
		Name:      "evening",
		TimeStart: ptr("18:00"),
		TimeEnd:   ptr("22:30"),
	})

	require.NoError(t, err)
	assert.Equal(t, "23:00", *rule.TimeStart)
	assert.Equal(t, "03:30", *rule.TimeEnd)
}

func TestCreateRuleUTCTenantKeepsTimesVerbatim(t *testing.T) {
	svc, _ := newTestService(t)

	rule, err := svc.Create(context.Background(), testTenant("UTC"), CreateRuleRequest{
		Name:      "evening",
		TimeStart: ptr("18:00"),
	})

	require.NoError(t, err)
	assert.Equal(t, "18:00", *rule.TimeStart)
}

func TestUpdateRulePartial(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("UTC")

	created, err := svc.Create(context.Background(), tenant, CreateRuleRequest{
		Name:     "original",
		Label:    ptr("person"),
		MinScore: ptr(0.5),
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), tenant, created.ID, UpdateRuleRequest{
		Name: ptr("renamed"),
	})

	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "person", *updated.Label)
	assert.Equal(t, 0.5, *updated.MinScore)
}

func TestUpdateRuleEmptyStringClearsField(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("UTC")

	created, err := svc.Create(context.Background(), tenant, CreateRuleRequest{
		Name:   "r",
		Camera: ptr("front_door"),
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), tenant, created.ID, UpdateRuleRequest{
		Camera: ptr(""),
	})

	require.NoError(t, err)
	assert.Nil(t, updated.Camera)
}

func TestUpdateRuleReconvertsOnlyTouchedWindow(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("America/Bogota")

	created, err := svc.Create(context.Background(), tenant, CreateRuleRequest{
		Name:      "r",
		TimeStart: ptr("18:00"), // stored as 23:00 UTC
		TimeEnd:   ptr("22:00"), // stored as 03:00 UTC
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), tenant, created.ID, UpdateRuleRequest{
		TimeEnd: ptr("23:00"),
	})

	require.NoError(t, err)
	// untouched start keeps its stored UTC value, not a double conversion
	assert.Equal(t, "23:00", *updated.TimeStart)
	assert.Equal(t, "04:00", *updated.TimeEnd)
}

func TestUpdateRuleNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), testTenant("UTC"), 999, UpdateRuleRequest{Name: ptr("x")})
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateRuleRejectsInvalidChange(t *testing.T) {
	svc, _ := newTestService(t)
	tenant := testTenant("UTC")

	created, err := svc.Create(context.Background(), tenant, CreateRuleRequest{Name: "r"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), tenant, created.ID, UpdateRuleRequest{
		MinScore: ptr(2.0),
	})
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteRuleSoftDeletes(t *testing.T) {
	svc, repo := newTestService(t)
	tenant := testTenant("UTC")

	created, err := svc.Create(context.Background(), tenant, CreateRuleRequest{Name: "r"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tenant, created.ID))

	_, err = svc.Get(context.Background(), tenant, created.ID)
	assert.True(t, errors.IsNotFound(err))

	// the row is kept for hit history, just flagged
	assert.True(t, repo.rules[created.ID].IsDeleted)
	assert.False(t, repo.rules[created.ID].Enabled)
}

func TestDeleteRuleWrongTenant(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), testTenant("UTC"), CreateRuleRequest{Name: "r"})
	require.NoError(t, err)

	other := &tenants.Tenant{ID: 2, Token: "tok-2", Username: "bob", Timezone: "UTC"}
	err = svc.Delete(context.Background(), other, created.ID)
	assert.True(t, errors.IsNotFound(err))
}
