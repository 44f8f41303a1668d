package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/pricing"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
)

type draftStore interface {
	CreateDraft(ctx context.Context, draft *models.OrderDraft) error
	GetDraft(ctx context.Context, id string) (*models.OrderDraft, error)
	UpdateDraft(ctx context.Context, draft *models.OrderDraft) error
	ListDraftsByOwner(ctx context.Context, ownerID string) ([]models.OrderDraft, error)
}

type marketSource interface {
	Signals(ctx context.Context, template models.TemplateCode) (pricing.MarketSignals, error)
}

// DraftService manages drafts from creation through validation. Publication
// itself is PublicationService territory.
type DraftService struct {
	drafts    draftStore
	market    marketSource
	estimator *pricing.Estimator
	rules     *briefValidator
	ttl       time.Duration
	logger    *zap.Logger
}

// NewDraftService constructs the draft service.
func NewDraftService(drafts draftStore, market marketSource, estimator *pricing.Estimator, validation config.ValidationConfig, pricingCfg config.PricingConfig, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		drafts:    drafts,
		market:    market,
		estimator: estimator,
		rules:     newBriefValidator(validation, pricingCfg),
		ttl:       validation.TTL,
		logger:    logger,
	}
}

// Create stores a new draft for its owner. The brief is accepted as-is;
// validation is a separate, explicit step.
func (s *DraftService) Create(ctx context.Context, ownerID string, req dto.CreateDraftRequest) (*models.OrderDraft, error) {
	brief, err := briefFromPayload(req.Brief)
	if err != nil {
		return nil, err
	}
	draft := &models.OrderDraft{
		OwnerID: ownerID,
		Brief:   brief,
		Status:  models.DraftStatusDraft,
	}
	if err := s.drafts.CreateDraft(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create draft")
	}
	s.logger.Info("draft created", zap.String("draftId", draft.ID), zap.String("ownerId", ownerID))
	return draft, nil
}

// Get loads a draft, enforcing ownership.
func (s *DraftService) Get(ctx context.Context, id, actorID string) (*models.OrderDraft, error) {
	draft, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// List returns the actor's drafts.
func (s *DraftService) List(ctx context.Context, actorID string) ([]models.OrderDraft, error) {
	drafts, err := s.drafts.ListDraftsByOwner(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drafts")
	}
	return drafts, nil
}

// Update applies a partial brief edit. Any change invalidates the previous
// validation summary and drops the draft back to draft status.
func (s *DraftService) Update(ctx context.Context, id, actorID string, req dto.UpdateDraftRequest) (*models.OrderDraft, error) {
	draft, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusDraft && draft.Status != models.DraftStatusValidated {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "draft can no longer be edited")
	}

	if err := applyBriefPatch(&draft.Brief, req); err != nil {
		return nil, err
	}
	draft.Status = models.DraftStatusDraft
	draft.ValidationSummary = nil
	draft.Budget = nil
	draft.LastValidatedAt = nil

	if err := s.drafts.UpdateDraft(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return draft, nil
}

// Discard retires a draft without publishing it.
func (s *DraftService) Discard(ctx context.Context, id, actorID string) error {
	draft, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return err
	}
	if draft.Status == models.DraftStatusPublished {
		return appErrors.Clone(appErrors.ErrStateTransition, "published drafts cannot be discarded")
	}
	draft.Status = models.DraftStatusDiscarded
	if err := s.drafts.UpdateDraft(ctx, draft); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to discard draft")
	}
	return nil
}

// Validate runs the rule chain and, when every rule passes, attaches a fresh
// budget estimate and promotes the draft to validated. A failed run leaves
// the summary on the draft so the owner sees every issue.
func (s *DraftService) Validate(ctx context.Context, id, actorID string) (*models.OrderDraft, error) {
	draft, err := s.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusDraft && draft.Status != models.DraftStatusValidated {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "only unpublished drafts can be validated")
	}

	now := time.Now().UTC()
	summary := s.rules.validate(draft.Brief, now)
	draft.ValidationSummary = &summary
	draft.LastValidatedAt = &now

	if summary.Passed() {
		signals, err := s.market.Signals(ctx, draft.Brief.TemplateCode)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load market signals")
		}
		budget := s.estimator.Estimate(draft.Brief, signals, now)
		bounds := s.rules.checkBudgetBounds(budget.Escrow)
		summary.Rules = append(summary.Rules, bounds)
		if bounds.Passed {
			draft.Budget = &budget
			draft.Status = models.DraftStatusValidated
		} else {
			summary.Issues = append(summary.Issues, bounds.Detail)
			draft.Budget = nil
			draft.Status = models.DraftStatusDraft
		}
	} else {
		draft.Budget = nil
		draft.Status = models.DraftStatusDraft
	}

	if err := s.drafts.UpdateDraft(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store validation result")
	}
	s.logger.Info("draft validated",
		zap.String("draftId", draft.ID),
		zap.Bool("passed", summary.Passed()),
		zap.Int("issues", len(summary.Issues)))
	return draft, nil
}

// Estimate prices a brief without persisting anything. Used for live budget
// previews while the owner edits.
func (s *DraftService) Estimate(ctx context.Context, req dto.EstimateRequest) (*models.BudgetEstimate, error) {
	brief, err := briefFromPayload(req.Brief)
	if err != nil {
		return nil, err
	}
	signals, err := s.market.Signals(ctx, brief.TemplateCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load market signals")
	}
	budget := s.estimator.Estimate(brief, signals, time.Now().UTC())
	return &budget, nil
}

// ValidationFresh reports whether the draft's summary still satisfies the
// publication TTL at the given time.
func (s *DraftService) ValidationFresh(draft *models.OrderDraft, now time.Time) bool {
	return draft.ValidationSummary.FreshAt(now, s.ttl)
}

func (s *DraftService) loadOwned(ctx context.Context, id, actorID string) (*models.OrderDraft, error) {
	draft, err := s.drafts.GetDraft(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "draft not found")
	}
	if draft.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "draft belongs to another player")
	}
	return draft, nil
}

func briefFromPayload(p dto.BriefPayload) (models.OrderBrief, error) {
	risk, err := models.ParseRiskLevel(p.RiskLevel)
	if err != nil {
		return models.OrderBrief{}, appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
	}
	privacy, err := models.ParseOrderVisibility(p.Privacy)
	if err != nil {
		return models.OrderBrief{}, appErrors.Clone(appErrors.ErrValidation, "unknown privacy setting")
	}
	template, err := models.ParseTemplateCode(p.TemplateCode)
	if err != nil {
		return models.OrderBrief{}, appErrors.Clone(appErrors.ErrValidation, "unknown order template")
	}
	brief := models.OrderBrief{
		Goal:         p.Goal,
		Objectives:   p.Objectives,
		RiskLevel:    risk,
		TeamSize:     p.TeamSize,
		Privacy:      privacy,
		TemplateCode: template,
		Deadline:     p.Deadline,
	}
	for _, cp := range p.Checkpoints {
		brief.Checkpoints = append(brief.Checkpoints, models.Checkpoint{Title: cp.Title, Due: cp.Due})
	}
	return brief, nil
}

func applyBriefPatch(brief *models.OrderBrief, req dto.UpdateDraftRequest) error {
	if req.Goal != nil {
		brief.Goal = *req.Goal
	}
	if req.Objectives != nil {
		brief.Objectives = *req.Objectives
	}
	if req.Checkpoints != nil {
		brief.Checkpoints = brief.Checkpoints[:0]
		for _, cp := range *req.Checkpoints {
			brief.Checkpoints = append(brief.Checkpoints, models.Checkpoint{Title: cp.Title, Due: cp.Due})
		}
	}
	if req.RiskLevel != nil {
		risk, err := models.ParseRiskLevel(*req.RiskLevel)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
		}
		brief.RiskLevel = risk
	}
	if req.TeamSize != nil {
		brief.TeamSize = *req.TeamSize
	}
	if req.Privacy != nil {
		privacy, err := models.ParseOrderVisibility(*req.Privacy)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "unknown privacy setting")
		}
		brief.Privacy = privacy
	}
	if req.TemplateCode != nil {
		template, err := models.ParseTemplateCode(*req.TemplateCode)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "unknown order template")
		}
		brief.TemplateCode = template
	}
	if req.Deadline != nil {
		brief.Deadline = req.Deadline
	}
	return nil
}
