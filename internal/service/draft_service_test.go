package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/pricing"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
)

type draftStoreStub struct {
	drafts map[string]*models.OrderDraft
	seq    int
}

func newDraftStoreStub() *draftStoreStub {
	return &draftStoreStub{drafts: map[string]*models.OrderDraft{}}
}

func (d *draftStoreStub) CreateDraft(ctx context.Context, draft *models.OrderDraft) error {
	d.seq++
	draft.ID = fmt.Sprintf("draft-%d", d.seq)
	draft.CreatedAt = time.Now().UTC()
	draft.UpdatedAt = draft.CreatedAt
	clone := *draft
	d.drafts[draft.ID] = &clone
	return nil
}

func (d *draftStoreStub) GetDraft(ctx context.Context, id string) (*models.OrderDraft, error) {
	draft, ok := d.drafts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *draft
	return &clone, nil
}

func (d *draftStoreStub) UpdateDraft(ctx context.Context, draft *models.OrderDraft) error {
	if _, ok := d.drafts[draft.ID]; !ok {
		return sql.ErrNoRows
	}
	draft.UpdatedAt = time.Now().UTC()
	clone := *draft
	d.drafts[draft.ID] = &clone
	return nil
}

func (d *draftStoreStub) ListDraftsByOwner(ctx context.Context, ownerID string) ([]models.OrderDraft, error) {
	var out []models.OrderDraft
	for _, draft := range d.drafts {
		if draft.OwnerID == ownerID {
			out = append(out, *draft)
		}
	}
	return out, nil
}

type marketSourceStub struct {
	signals pricing.MarketSignals
	err     error
}

func (m *marketSourceStub) Signals(ctx context.Context, template models.TemplateCode) (pricing.MarketSignals, error) {
	if m.err != nil {
		return pricing.MarketSignals{}, m.err
	}
	return m.signals, nil
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		RiskLow:           1.0,
		RiskMedium:        1.25,
		RiskHigh:          1.6,
		RiskExtreme:       2.1,
		CommissionRate:    0.05,
		InsuranceBasic:    0.03,
		InsuranceStandard: 0.06,
		InsurancePremium:  0.1,
		TimeModifierCap:   1.5,
		ReferenceDuration: 72 * time.Hour,
		DeviationWarnPct:  0.35,
		BudgetRangeLow:    0.85,
		BudgetRangeHigh:   1.2,
		MinEscrow:         50,
		MaxEscrow:         10000,
	}
}

func newDraftFixture() (*DraftService, *draftStoreStub, *marketSourceStub) {
	store := newDraftStoreStub()
	market := &marketSourceStub{signals: pricing.MarketSignals{Index: 10, MedianReward: 150}}
	estimator := pricing.NewEstimator(testPricingConfig())
	validation := config.ValidationConfig{
		TTL:            time.Hour,
		MaxObjectives:  10,
		MaxCheckpoints: 5,
		MaxTeamSize:    6,
	}
	svc := NewDraftService(store, market, estimator, validation, testPricingConfig(), nil)
	return svc, store, market
}

func validBriefPayload() dto.BriefPayload {
	deadline := time.Now().UTC().Add(96 * time.Hour)
	return dto.BriefPayload{
		Goal:         "escort the convoy through the combat zone without losses",
		Objectives:   []string{"meet at the depot", "cover the convoy", "confirm arrival"},
		RiskLevel:    string(models.RiskMedium),
		TeamSize:     2,
		Privacy:      string(models.VisibilityPublic),
		TemplateCode: string(models.TemplateBodyguardEscort),
		Deadline:     &deadline,
	}
}

func TestCreateDraftParsesBrief(t *testing.T) {
	svc, store, _ := newDraftFixture()

	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusDraft, draft.Status)
	assert.Equal(t, models.RiskMedium, draft.Brief.RiskLevel)
	assert.Equal(t, models.TemplateBodyguardEscort, draft.Brief.TemplateCode)
	require.Contains(t, store.drafts, draft.ID)

	bad := validBriefPayload()
	bad.RiskLevel = "suicidal"
	_, err = svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), draft.ID, "owner-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	got, err := svc.Get(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestValidatePassingBriefAttachesBudget(t *testing.T) {
	svc, _, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)

	validated, err := svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusValidated, validated.Status)
	require.NotNil(t, validated.ValidationSummary)
	assert.True(t, validated.ValidationSummary.Passed())
	assert.Empty(t, validated.ValidationSummary.Issues)
	require.NotNil(t, validated.Budget)
	assert.Greater(t, validated.Budget.BaseReward, 0.0)
	require.NotNil(t, validated.LastValidatedAt)
}

func TestValidateFailingBriefListsEveryIssue(t *testing.T) {
	svc, _, _ := newDraftFixture()
	brief := validBriefPayload()
	brief.Objectives = []string{"scout the area", "Scout the area "} // duplicate after normalisation
	brief.TeamSize = 40
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: brief})
	require.NoError(t, err)

	validated, err := svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusDraft, validated.Status)
	assert.Nil(t, validated.Budget)
	require.NotNil(t, validated.ValidationSummary)
	assert.False(t, validated.ValidationSummary.Passed())
	require.Len(t, validated.ValidationSummary.Issues, 2)

	failed := map[string]bool{}
	for _, rule := range validated.ValidationSummary.Rules {
		if !rule.Passed {
			failed[rule.Code] = true
		}
	}
	assert.True(t, failed[RuleObjectives])
	assert.True(t, failed[RuleTeamSize])
}

func TestValidateRejectsUnorderedCheckpoints(t *testing.T) {
	svc, _, _ := newDraftFixture()
	now := time.Now().UTC()
	brief := validBriefPayload()
	brief.Checkpoints = []dto.CheckpointPayload{
		{Title: "reach the midpoint", Due: now.Add(48 * time.Hour)},
		{Title: "leave the depot", Due: now.Add(24 * time.Hour)},
	}
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: brief})
	require.NoError(t, err)

	validated, err := svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.False(t, validated.ValidationSummary.Passed())
	assert.Contains(t, validated.ValidationSummary.Issues, "checkpoints must be ordered by due time")
}

func TestValidateBudgetOutsideBoundsFailsPolicy(t *testing.T) {
	store := newDraftStoreStub()
	market := &marketSourceStub{signals: pricing.MarketSignals{Index: 10, MedianReward: 150}}
	cfg := testPricingConfig()
	cfg.MaxEscrow = 60
	validation := config.ValidationConfig{TTL: time.Hour, MaxObjectives: 10, MaxCheckpoints: 5, MaxTeamSize: 6}
	svc := NewDraftService(store, market, pricing.NewEstimator(cfg), validation, cfg, nil)

	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)

	validated, err := svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusDraft, validated.Status)
	assert.Nil(t, validated.Budget)
	require.NotNil(t, validated.ValidationSummary)
	assert.False(t, validated.ValidationSummary.Passed())

	var bounds *models.RuleResult
	for i, rule := range validated.ValidationSummary.Rules {
		if rule.Code == RuleBudgetBounds {
			bounds = &validated.ValidationSummary.Rules[i]
		}
	}
	require.NotNil(t, bounds)
	assert.False(t, bounds.Passed)
	assert.Contains(t, bounds.Detail, "outside platform bounds")
}

func TestUpdateRejectsUnknownEnumValues(t *testing.T) {
	svc, _, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)

	bad := "apocalyptic"
	_, err = svc.Update(context.Background(), draft.ID, "owner-1", dto.UpdateDraftRequest{RiskLevel: &bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// No partial application: the stored brief keeps its old risk level.
	stored, err := svc.Get(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.RiskMedium, stored.Brief.RiskLevel)
}

func TestUpdateResetsValidationState(t *testing.T) {
	svc, _, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)
	_, err = svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)

	goal := "guard the merchant caravan along the southern route instead"
	updated, err := svc.Update(context.Background(), draft.ID, "owner-1", dto.UpdateDraftRequest{Goal: &goal})
	require.NoError(t, err)
	assert.Equal(t, goal, updated.Brief.Goal)
	assert.Equal(t, models.DraftStatusDraft, updated.Status)
	assert.Nil(t, updated.ValidationSummary)
	assert.Nil(t, updated.Budget)
	assert.Nil(t, updated.LastValidatedAt)
}

func TestDiscardPublishedDraftFails(t *testing.T) {
	svc, store, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)
	store.drafts[draft.ID].Status = models.DraftStatusPublished

	err = svc.Discard(context.Background(), draft.ID, "owner-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestValidationFreshHonoursTTL(t *testing.T) {
	svc, _, _ := newDraftFixture()
	draft, err := svc.Create(context.Background(), "owner-1", dto.CreateDraftRequest{Brief: validBriefPayload()})
	require.NoError(t, err)
	validated, err := svc.Validate(context.Background(), draft.ID, "owner-1")
	require.NoError(t, err)

	now := time.Now().UTC()
	assert.True(t, svc.ValidationFresh(validated, now))
	assert.False(t, svc.ValidationFresh(validated, now.Add(2*time.Hour)))

	validated.ValidationSummary = nil
	assert.False(t, svc.ValidationFresh(validated, now))
}

func TestEstimateIsDeterministic(t *testing.T) {
	svc, _, _ := newDraftFixture()
	req := dto.EstimateRequest{Brief: validBriefPayload()}

	first, err := svc.Estimate(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, first.BaseReward, second.BaseReward, 0.02)
	assert.InDelta(t, first.Commission, second.Commission, 0.02)
	assert.LessOrEqual(t, first.RecommendedRange.Low, first.BaseReward)
	assert.GreaterOrEqual(t, first.RecommendedRange.High, first.BaseReward)
}

func TestEstimateSurfacesMarketFailure(t *testing.T) {
	svc, _, market := newDraftFixture()
	market.err = fmt.Errorf("redis: connection refused")

	_, err := svc.Estimate(context.Background(), dto.EstimateRequest{Brief: validBriefPayload()})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.True(t, strings.Contains(err.Error(), "market"))
}
