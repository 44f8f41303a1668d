package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
)

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		RiskLow:           1.0,
		RiskMedium:        1.25,
		RiskHigh:          1.6,
		RiskExtreme:       1.8,
		CommissionRate:    0.05,
		InsuranceBasic:    0.03,
		InsuranceStandard: 0.06,
		InsurancePremium:  0.1,
		TimeModifierCap:   1.5,
		ReferenceDuration: 72 * time.Hour,
		DeviationWarnPct:  40.0,
		BudgetRangeLow:    0.85,
		BudgetRangeHigh:   1.15,
		MinEscrow:         50.0,
		MaxEscrow:         1000000.0,
	}
}

func mediumBrief(deadline time.Time) models.OrderBrief {
	return models.OrderBrief{
		Goal:          "recover the shipment",
		Objectives:    []string{"locate cargo", "secure cargo", "deliver to drop point"},
		RiskLevel:     models.RiskMedium,
		TeamSize:      1,
		Privacy:       models.VisibilityPublic,
		TemplateCode:  models.TemplateCourierRun,
		Deadline:      &deadline,
		GuaranteeTier: models.GuaranteeNone,
	}
}

func TestEstimateMediumRiskSevenDayDeadline(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	brief := mediumBrief(now.Add(7 * 24 * time.Hour))
	est := NewEstimator(testPricingConfig()).Estimate(brief, MarketSignals{Index: 10, MedianReward: 350}, now)

	// 7 days of slack exceeds the 72h reference, so no time surcharge.
	assert.Equal(t, 1.0, est.TimeModifier)
	assert.Equal(t, 28.0, est.ComplexityScore) // 10 + 3 objectives * 6
	assert.Equal(t, 1.25, est.RiskModifier)
	assert.Equal(t, 350.0, est.BaseReward) // 28 * 1.25 * 10 * 1.0
	assert.Equal(t, 17.5, est.Commission)
	assert.GreaterOrEqual(t, est.Escrow, est.BaseReward)
	assert.Nil(t, est.InsurancePremium)
	// Medium risk sits below the insurance suggestion threshold.
	assert.Empty(t, est.Recommendations)
	assert.Equal(t, 0.0, est.MedianDeviation)
}

func TestEstimateIsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	brief := mediumBrief(now.Add(48 * time.Hour))
	brief.Checkpoints = []models.Checkpoint{{Title: "stage one", Due: now.Add(24 * time.Hour)}}
	est := NewEstimator(testPricingConfig())

	first := est.Estimate(brief, MarketSignals{Index: 12.5, MedianReward: 400}, now)
	second := est.Estimate(brief, MarketSignals{Index: 12.5, MedianReward: 400}, now)
	assert.Equal(t, first, second)
}

func TestEstimateHighRiskSuggestsInsurance(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	brief := mediumBrief(now.Add(7 * 24 * time.Hour))
	brief.RiskLevel = models.RiskHigh

	est := NewEstimator(testPricingConfig()).Estimate(brief, MarketSignals{Index: 10, MedianReward: 400}, now)
	require.NotEmpty(t, est.Recommendations)
	assert.Contains(t, est.Recommendations[0], "insurance")

	// Selecting a guarantee removes the suggestion and prices the premium in.
	brief.GuaranteeTier = models.GuaranteeStandard
	withGuarantee := NewEstimator(testPricingConfig()).Estimate(brief, MarketSignals{Index: 10, MedianReward: 400}, now)
	require.NotNil(t, withGuarantee.InsurancePremium)
	assert.InDelta(t, withGuarantee.BaseReward+*withGuarantee.InsurancePremium, withGuarantee.Escrow, 0.001)
	for _, rec := range withGuarantee.Recommendations {
		assert.NotContains(t, rec, "insurance")
	}
}

func TestEstimateTimeModifierClamped(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := testPricingConfig()
	est := NewEstimator(cfg)

	tight := mediumBrief(now.Add(2 * time.Hour))
	rushed := est.Estimate(tight, MarketSignals{Index: 10}, now)
	assert.Equal(t, cfg.TimeModifierCap, rushed.TimeModifier)
	assert.Contains(t, rushed.Recommendations, "deadline is very tight; extending it would reduce the time surcharge")

	// A modifier between 1 and the cap scales with the remaining slack.
	mid := mediumBrief(now.Add(48 * time.Hour))
	scaled := est.Estimate(mid, MarketSignals{Index: 10}, now)
	assert.Equal(t, 1.5, scaled.TimeModifier) // 72h / 48h capped exactly at 1.5
}

func TestEstimateMonotonicInComplexityFactors(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	est := NewEstimator(testPricingConfig())
	signals := MarketSignals{Index: 10}

	base := mediumBrief(now.Add(7 * 24 * time.Hour))
	baseline := est.Estimate(base, signals, now)

	more := base
	more.Objectives = append([]string{}, base.Objectives...)
	more.Objectives = append(more.Objectives, "sweep the perimeter")
	assert.Greater(t, est.Estimate(more, signals, now).BaseReward, baseline.BaseReward)

	team := base
	team.TeamSize = 4
	assert.Greater(t, est.Estimate(team, signals, now).BaseReward, baseline.BaseReward)

	risky := base
	risky.RiskLevel = models.RiskExtreme
	assert.Greater(t, est.Estimate(risky, signals, now).BaseReward, baseline.BaseReward)
}

func TestEstimateMedianDeviationWarning(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	brief := mediumBrief(now.Add(7 * 24 * time.Hour))

	est := NewEstimator(testPricingConfig()).Estimate(brief, MarketSignals{Index: 10, MedianReward: 100}, now)
	// base reward 350 vs median 100 => +250% deviation
	assert.Equal(t, 250.0, est.MedianDeviation)
	require.Len(t, est.Warnings, 1)
	assert.Contains(t, est.Warnings[0], "median")
}
