package pricing

import (
	"math"
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
)

// Base complexity units. Each factor contributes monotonically; the weights
// are internal to the formula, the multipliers around it are configuration.
const (
	complexityBase          = 10.0
	complexityPerObjective  = 6.0
	complexityPerCheckpoint = 3.0
	complexityPerTeammate   = 4.0
)

const currency = "eurodollar"

// MarketSignals carries the live inputs the estimator cannot derive from the
// brief: the platform market index and the historical median reward for the
// order's template.
type MarketSignals struct {
	Index        float64
	MedianReward float64
}

// Estimator computes budget estimates. It is a pure function of its inputs:
// the caller supplies the clock, and nothing here consults randomness, so the
// same brief and signals always reproduce the same estimate.
type Estimator struct {
	cfg config.PricingConfig
}

// NewEstimator builds an estimator around the configured pricing constants.
func NewEstimator(cfg config.PricingConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate prices a brief against current market signals.
func (e *Estimator) Estimate(brief models.OrderBrief, market MarketSignals, now time.Time) models.BudgetEstimate {
	complexity := e.complexityScore(brief)
	risk := e.riskModifier(brief.RiskLevel)
	timeMod := e.timeModifier(brief, now)

	baseReward := round2(complexity * risk * market.Index * timeMod)
	commission := round2(baseReward * e.cfg.CommissionRate)

	var premium *float64
	escrow := baseReward
	if rate := e.insuranceRate(brief.GuaranteeTier); rate > 0 {
		p := round2(baseReward * rate)
		premium = &p
		escrow = round2(baseReward + p)
	}

	est := models.BudgetEstimate{
		ComplexityScore: complexity,
		RiskModifier:    risk,
		MarketIndex:     market.Index,
		TimeModifier:    timeMod,
		BaseReward:      baseReward,
		Escrow:          escrow,
		Commission:      commission,
		CommissionRate:  e.cfg.CommissionRate,
		InsurancePremium: premium,
		RecommendedRange: models.BudgetRange{
			Low:  round2(baseReward * e.cfg.BudgetRangeLow),
			High: round2(baseReward * e.cfg.BudgetRangeHigh),
		},
		Currency:     currency,
		CalculatedAt: now,
	}

	if market.MedianReward > 0 {
		est.MedianDeviation = round2((baseReward - market.MedianReward) / market.MedianReward * 100)
		if math.Abs(est.MedianDeviation) > e.cfg.DeviationWarnPct {
			est.Warnings = append(est.Warnings, "reward deviates strongly from the historical median for this template")
		}
	}

	est.Recommendations = e.recommendations(brief, est)

	return est
}

func (e *Estimator) complexityScore(brief models.OrderBrief) float64 {
	score := complexityBase
	score += complexityPerObjective * float64(len(brief.Objectives))
	score += complexityPerCheckpoint * float64(len(brief.Checkpoints))
	if brief.TeamSize > 1 {
		score += complexityPerTeammate * float64(brief.TeamSize-1)
	}
	return score
}

func (e *Estimator) riskModifier(level models.RiskLevel) float64 {
	switch level {
	case models.RiskMedium:
		return e.cfg.RiskMedium
	case models.RiskHigh:
		return e.cfg.RiskHigh
	case models.RiskExtreme:
		return e.cfg.RiskExtreme
	default:
		return e.cfg.RiskLow
	}
}

// timeModifier rewards tight deadlines: reward scales up as the available
// time shrinks below the reference duration, clamped to avoid runaway
// inflation. Orders without a deadline price at 1.0.
func (e *Estimator) timeModifier(brief models.OrderBrief, now time.Time) float64 {
	if brief.Deadline == nil {
		return 1.0
	}
	slack := brief.Deadline.Sub(now)
	if slack <= 0 {
		return e.cfg.TimeModifierCap
	}
	mod := float64(e.cfg.ReferenceDuration) / float64(slack)
	if mod < 1.0 {
		return 1.0
	}
	if mod > e.cfg.TimeModifierCap {
		return e.cfg.TimeModifierCap
	}
	return mod
}

func (e *Estimator) insuranceRate(tier models.GuaranteeTier) float64 {
	switch tier {
	case models.GuaranteeBasic:
		return e.cfg.InsuranceBasic
	case models.GuaranteeStandard:
		return e.cfg.InsuranceStandard
	case models.GuaranteePremium:
		return e.cfg.InsurancePremium
	default:
		return 0
	}
}

// recommendations are generated from deterministic threshold crossings only.
func (e *Estimator) recommendations(brief models.OrderBrief, est models.BudgetEstimate) []string {
	var recs []string
	if est.RiskModifier >= 1.5 && brief.GuaranteeTier == models.GuaranteeNone {
		recs = append(recs, "consider adding an insurance guarantee for this risk tier")
	}
	if est.TimeModifier >= e.cfg.TimeModifierCap {
		recs = append(recs, "deadline is very tight; extending it would reduce the time surcharge")
	}
	if est.MedianDeviation < -e.cfg.DeviationWarnPct {
		recs = append(recs, "reward is well below the template median; executors may not pick this up")
	}
	return recs
}

// round2 rounds to the platform currency precision (2 decimal places,
// half away from zero).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
