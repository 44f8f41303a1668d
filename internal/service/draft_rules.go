package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/pkg/config"
)

// Rule codes surfaced in validation summaries. Stable identifiers: clients
// key UI hints off them.
const (
	RuleGoalLength   = "GOAL_LENGTH"
	RuleObjectives   = "OBJECTIVES"
	RuleCheckpoints  = "CHECKPOINTS"
	RuleTeamSize     = "TEAM_SIZE"
	RuleDeadline     = "DEADLINE"
	RuleTemplate     = "TEMPLATE"
	RuleRiskLevel    = "RISK_LEVEL"
	RulePrivacy      = "PRIVACY"
	RuleBudgetBounds = "BUDGET_BOUNDS"
)

const (
	minGoalLength = 12
	maxGoalLength = 500
)

// briefValidator runs the publication gate rules over a brief. Every rule is
// evaluated even after a failure so the summary lists all issues at once.
type briefValidator struct {
	cfg     config.ValidationConfig
	pricing config.PricingConfig
}

func newBriefValidator(cfg config.ValidationConfig, pricing config.PricingConfig) *briefValidator {
	return &briefValidator{cfg: cfg, pricing: pricing}
}

func (v *briefValidator) validate(brief models.OrderBrief, now time.Time) models.ValidationSummary {
	summary := models.ValidationSummary{CheckedAt: now}

	checks := []struct {
		code string
		run  func(models.OrderBrief, time.Time) (bool, string)
	}{
		{RuleGoalLength, v.checkGoal},
		{RuleObjectives, v.checkObjectives},
		{RuleCheckpoints, v.checkCheckpoints},
		{RuleTeamSize, v.checkTeamSize},
		{RuleDeadline, v.checkDeadline},
		{RuleTemplate, v.checkTemplate},
		{RuleRiskLevel, v.checkRisk},
		{RulePrivacy, v.checkPrivacy},
	}

	for _, c := range checks {
		passed, detail := c.run(brief, now)
		summary.Rules = append(summary.Rules, models.RuleResult{Code: c.code, Passed: passed, Detail: detail})
		if !passed {
			summary.Issues = append(summary.Issues, detail)
		}
	}

	return summary
}

func (v *briefValidator) checkGoal(brief models.OrderBrief, _ time.Time) (bool, string) {
	goal := strings.TrimSpace(brief.Goal)
	if len(goal) < minGoalLength {
		return false, fmt.Sprintf("goal must be at least %d characters", minGoalLength)
	}
	if len(goal) > maxGoalLength {
		return false, fmt.Sprintf("goal must be at most %d characters", maxGoalLength)
	}
	return true, ""
}

func (v *briefValidator) checkObjectives(brief models.OrderBrief, _ time.Time) (bool, string) {
	if len(brief.Objectives) == 0 {
		return false, "at least one objective is required"
	}
	if len(brief.Objectives) > v.cfg.MaxObjectives {
		return false, fmt.Sprintf("at most %d objectives are allowed", v.cfg.MaxObjectives)
	}
	seen := make(map[string]struct{}, len(brief.Objectives))
	for _, obj := range brief.Objectives {
		trimmed := strings.ToLower(strings.TrimSpace(obj))
		if trimmed == "" {
			return false, "objectives must not be empty"
		}
		if _, dup := seen[trimmed]; dup {
			return false, "objectives must be distinct"
		}
		seen[trimmed] = struct{}{}
	}
	return true, ""
}

// checkCheckpoints requires checkpoint due times to be ordered and, when a
// deadline exists, to fall before it.
func (v *briefValidator) checkCheckpoints(brief models.OrderBrief, now time.Time) (bool, string) {
	if len(brief.Checkpoints) > v.cfg.MaxCheckpoints {
		return false, fmt.Sprintf("at most %d checkpoints are allowed", v.cfg.MaxCheckpoints)
	}
	if !sort.SliceIsSorted(brief.Checkpoints, func(i, j int) bool {
		return brief.Checkpoints[i].Due.Before(brief.Checkpoints[j].Due)
	}) {
		return false, "checkpoints must be ordered by due time"
	}
	for _, cp := range brief.Checkpoints {
		if strings.TrimSpace(cp.Title) == "" {
			return false, "checkpoint titles must not be empty"
		}
		if cp.Due.Before(now) {
			return false, "checkpoint due times must be in the future"
		}
		if brief.Deadline != nil && cp.Due.After(*brief.Deadline) {
			return false, "checkpoints must come before the order deadline"
		}
	}
	return true, ""
}

func (v *briefValidator) checkTeamSize(brief models.OrderBrief, _ time.Time) (bool, string) {
	if brief.TeamSize < 1 {
		return false, "team size must be at least 1"
	}
	if brief.TeamSize > v.cfg.MaxTeamSize {
		return false, fmt.Sprintf("team size must be at most %d", v.cfg.MaxTeamSize)
	}
	return true, ""
}

func (v *briefValidator) checkDeadline(brief models.OrderBrief, now time.Time) (bool, string) {
	if brief.Deadline == nil {
		return true, ""
	}
	if !brief.Deadline.After(now) {
		return false, "deadline must be in the future"
	}
	return true, ""
}

func (v *briefValidator) checkTemplate(brief models.OrderBrief, _ time.Time) (bool, string) {
	if _, err := models.ParseTemplateCode(string(brief.TemplateCode)); err != nil {
		return false, "unknown order template"
	}
	return true, ""
}

func (v *briefValidator) checkRisk(brief models.OrderBrief, _ time.Time) (bool, string) {
	if _, err := models.ParseRiskLevel(string(brief.RiskLevel)); err != nil {
		return false, "unknown risk level"
	}
	return true, ""
}

func (v *briefValidator) checkPrivacy(brief models.OrderBrief, _ time.Time) (bool, string) {
	if _, err := models.ParseOrderVisibility(string(brief.Privacy)); err != nil {
		return false, "unknown privacy setting"
	}
	return true, ""
}

// checkBudgetBounds runs after estimation, once the escrow figure exists.
// Publication checks the same bounds again in case platform limits moved
// between validation and publish.
func (v *briefValidator) checkBudgetBounds(escrow float64) models.RuleResult {
	if escrow < v.pricing.MinEscrow || escrow > v.pricing.MaxEscrow {
		return models.RuleResult{
			Code:   RuleBudgetBounds,
			Passed: false,
			Detail: fmt.Sprintf("escrow %.2f is outside platform bounds [%.2f, %.2f]", escrow, v.pricing.MinEscrow, v.pricing.MaxEscrow),
		}
	}
	return models.RuleResult{Code: RuleBudgetBounds, Passed: true}
}
