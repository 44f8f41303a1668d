package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/repository"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/export"
	"github.com/necpgame/player-orders-core/pkg/jobs"
	"github.com/necpgame/player-orders-core/pkg/storage"
)

const recalcJobType = "rating_recalc"

type recalcJobStore interface {
	Create(ctx context.Context, job *models.RecalcJob) error
	GetByID(ctx context.Context, id string) (*models.RecalcJob, error)
	MarkRunning(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, processed, failed int, errs models.JobErrors) error
	Finish(ctx context.Context, id string, status models.JobStatus, resultURL *string) error
	RequestCancel(ctx context.Context, id string) error
	CurrentStatus(ctx context.Context, id string) (models.JobStatus, error)
	ListUnfinished(ctx context.Context) ([]models.RecalcJob, error)
	List(ctx context.Context, limit int) ([]models.RecalcJob, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type ratingKeySource interface {
	ListKeys(ctx context.Context, offset, limit int) ([]repository.RatingKey, error)
}

type ratingReplayer interface {
	Replay(ctx context.Context, playerID string, role models.RatingRole, persist bool) (*ReplayResult, error)
}

// RecalcDownload is a resolved drift report download.
type RecalcDownload struct {
	Path      string
	Filename  string
	ExpiresAt time.Time
}

// RecalcService runs rating recalculation jobs: full or scoped replays of
// the review and penalty logs, optionally as dry runs that only report
// drift. Job rows are the source of truth; the in-memory queue carries ids.
type RecalcService struct {
	repo    recalcJobStore
	keys    ratingKeySource
	ratings ratingReplayer
	queue   jobDispatcher
	store   *storage.LocalStorage
	signer  *storage.DriftTokenSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	cfg     config.RecalcConfig
	exports config.ExportsConfig
	metrics *MetricsService
	logger  *zap.Logger
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// NewRecalcService constructs the recalculation service.
func NewRecalcService(
	repo recalcJobStore,
	keys ratingKeySource,
	ratings ratingReplayer,
	queue jobDispatcher,
	store *storage.LocalStorage,
	signer *storage.DriftTokenSigner,
	cfg config.RecalcConfig,
	exports config.ExportsConfig,
	metrics *MetricsService,
	logger *zap.Logger,
) *RecalcService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &RecalcService{
		repo:    repo,
		keys:    keys,
		ratings: ratings,
		queue:   queue,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		cfg:     cfg,
		exports: exports,
		metrics: metrics,
		logger:  logger,
	}
}

// Enqueue persists a job row and dispatches it to the worker pool.
func (s *RecalcService) Enqueue(ctx context.Context, actorID string, req dto.RecalcRequest) (*models.RecalcJob, error) {
	scope := models.RecalcScope{DryRun: req.DryRun}
	if req.PlayerID != nil {
		scope.PlayerID = *req.PlayerID
	}
	if req.Role != nil {
		role, err := models.ParseRatingRole(*req.Role)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown rating role")
		}
		scope.Role = &role
	}
	if scope.PlayerID != "" && scope.Role == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "player-scoped recalculations need a role")
	}

	job := &models.RecalcJob{Scope: scope, CreatedBy: actorID}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create recalc job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: recalcJobType}); err != nil {
		_ = s.repo.Finish(ctx, job.ID, models.JobStatusFailed, nil)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue recalc job")
	}
	s.logger.Info("recalc job queued",
		zap.String("jobId", job.ID),
		zap.Bool("dryRun", scope.DryRun),
		zap.String("playerId", scope.PlayerID))
	return job, nil
}

// EnqueueForPlayer queues a persisting single-player recalculation. Used by
// penalty reversal, penalty expiry and review takedowns.
func (s *RecalcService) EnqueueForPlayer(ctx context.Context, playerID string, role models.RatingRole, actorID string) error {
	roleStr := string(role)
	_, err := s.Enqueue(ctx, actorID, dto.RecalcRequest{PlayerID: &playerID, Role: &roleStr})
	return err
}

// Status returns the persisted job row.
func (s *RecalcService) Status(ctx context.Context, jobID string) (*models.RecalcJob, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "recalc job not found")
	}
	return job, nil
}

// List returns recent jobs.
func (s *RecalcService) List(ctx context.Context, limit int) ([]models.RecalcJob, error) {
	jobList, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recalc jobs")
	}
	return jobList, nil
}

// Cancel requests cooperative cancellation. A queued job never starts; a
// running one stops at its next batch boundary.
func (s *RecalcService) Cancel(ctx context.Context, jobID string) error {
	if err := s.repo.RequestCancel(ctx, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrJobCancelled, "job is already terminal")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel recalc job")
	}
	return nil
}

// Process is the queue handler: it replays the job's scope batch by batch,
// tolerating per-player failures and honoring cancellation between batches.
func (s *RecalcService) Process(ctx context.Context, job jobs.Job) error {
	if err := s.repo.MarkRunning(ctx, job.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// cancelled before it started, or picked up twice
			return nil
		}
		return fmt.Errorf("mark running: %w", err)
	}
	row, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	var (
		processed int
		failed    int
		jobErrs   models.JobErrors
		drift     []ReplayResult
	)

	runOne := func(playerID string, role models.RatingRole) {
		result, rerr := s.ratings.Replay(ctx, playerID, role, !row.Scope.DryRun)
		if rerr != nil {
			failed++
			jobErrs = append(jobErrs, models.JobError{PlayerID: playerID, Role: role, Message: rerr.Error()})
			return
		}
		processed++
		if result.Drift != 0 {
			drift = append(drift, *result)
		}
	}

	if row.Scope.PlayerID != "" {
		runOne(row.Scope.PlayerID, *row.Scope.Role)
	} else {
		offset := 0
		for {
			if cancelled, cerr := s.cancelled(ctx, job.ID); cerr != nil {
				return cerr
			} else if cancelled {
				s.logger.Info("recalc job cancelled mid-run", zap.String("jobId", job.ID), zap.Int("processed", processed))
				return nil
			}
			keys, kerr := s.keys.ListKeys(ctx, offset, s.cfg.BatchSize)
			if kerr != nil {
				_ = s.repo.Finish(ctx, job.ID, models.JobStatusFailed, nil)
				s.metrics.RecalcJobFinished(string(models.JobStatusFailed))
				return fmt.Errorf("list rating keys: %w", kerr)
			}
			if len(keys) == 0 {
				break
			}
			for _, key := range keys {
				if row.Scope.Role != nil && key.Role != *row.Scope.Role {
					continue
				}
				runOne(key.PlayerID, key.Role)
			}
			offset += len(keys)
			if perr := s.repo.UpdateProgress(ctx, job.ID, processed, failed, jobErrs); perr != nil {
				s.logger.Warn("failed to store recalc progress", zap.String("jobId", job.ID), zap.Error(perr))
			}
		}
	}

	if perr := s.repo.UpdateProgress(ctx, job.ID, processed, failed, jobErrs); perr != nil {
		s.logger.Warn("failed to store recalc progress", zap.String("jobId", job.ID), zap.Error(perr))
	}

	var resultURL *string
	if row.Scope.DryRun {
		url, derr := s.exportDrift(job.ID, drift)
		if derr != nil {
			s.logger.Error("failed to export drift report", zap.String("jobId", job.ID), zap.Error(derr))
		} else {
			resultURL = &url
		}
	}

	// Per-player failures do not fail the job; the row carries them.
	if err := s.repo.Finish(ctx, job.ID, models.JobStatusCompleted, resultURL); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	s.metrics.RecalcJobFinished(string(models.JobStatusCompleted))
	s.logger.Info("recalc job finished",
		zap.String("jobId", job.ID),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Int("drifted", len(drift)))
	return nil
}

// Download resolves a signed drift report token to a stored file.
func (s *RecalcService) Download(ctx context.Context, token string) (*RecalcDownload, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	if _, err := s.repo.GetByID(ctx, claims.JobID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "recalc job not found")
	}
	file, err := s.store.Open(claims.ReportPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "drift report no longer available")
	}
	path := file.Name()
	_ = file.Close()
	return &RecalcDownload{Path: path, Filename: "drift-" + claims.JobID + ".csv", ExpiresAt: claims.ExpiresAt}, nil
}

// RecoverPending requeues jobs stranded by a restart. Running jobs are
// restarted from scratch: replay is idempotent, so a double pass is safe.
func (s *RecalcService) RecoverPending(ctx context.Context) error {
	stranded, err := s.repo.ListUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("list unfinished jobs: %w", err)
	}
	for i := range stranded {
		if err := s.queue.Enqueue(jobs.Job{ID: stranded[i].ID, Type: recalcJobType}); err != nil {
			s.logger.Error("failed to requeue stranded job", zap.String("jobId", stranded[i].ID), zap.Error(err))
			continue
		}
		s.logger.Info("requeued stranded recalc job", zap.String("jobId", stranded[i].ID))
	}
	return nil
}

// StartCleanup prunes old terminal jobs and their stored reports on a ticker.
func (s *RecalcService) StartCleanup(ctx context.Context) {
	interval := s.exports.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupOnce(ctx)
			}
		}
	}()
}

func (s *RecalcService) cleanupOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.exports.ResultTTL)
	if _, err := s.repo.DeleteFinishedBefore(ctx, cutoff); err != nil {
		s.logger.Error("recalc job cleanup failed", zap.Error(err))
	}
	removed, err := s.store.CleanupOlderThan(s.exports.ResultTTL)
	if err != nil {
		s.logger.Error("drift report cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("drift reports pruned", zap.Int("count", len(removed)))
	}
}

func (s *RecalcService) cancelled(ctx context.Context, jobID string) (bool, error) {
	status, err := s.repo.CurrentStatus(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("poll job status: %w", err)
	}
	return status == models.JobStatusCancelled, nil
}

// exportDrift renders the dry-run drift table to CSV, stores it and returns
// a signed download URL.
func (s *RecalcService) exportDrift(jobID string, drift []ReplayResult) (string, error) {
	table := export.Table{
		Headers: []string{"player_id", "role", "stored_score", "replayed_score", "drift"},
	}
	for _, d := range drift {
		table.Rows = append(table.Rows, []string{
			d.PlayerID,
			string(d.Role),
			strconv.FormatFloat(d.Stored, 'f', 2, 64),
			strconv.FormatFloat(d.Replayed, 'f', 2, 64),
			strconv.FormatFloat(d.Drift, 'f', 2, 64),
		})
	}
	data, err := s.csv.Render(table)
	if err != nil {
		return "", fmt.Errorf("render drift csv: %w", err)
	}
	relPath := "drift/" + jobID + ".csv"
	if _, err := s.store.Save(relPath, data); err != nil {
		return "", fmt.Errorf("store drift csv: %w", err)
	}
	// A PDF rendition sits next to the CSV for operators; losing it is not
	// worth failing the job over.
	if pdfData, perr := s.pdf.Render(table, "Rating drift report"); perr == nil {
		if _, serr := s.store.Save("drift/"+jobID+".pdf", pdfData); serr != nil {
			s.logger.Warn("failed to store drift pdf", zap.String("jobId", jobID), zap.Error(serr))
		}
	} else {
		s.logger.Warn("failed to render drift pdf", zap.String("jobId", jobID), zap.Error(perr))
	}
	token, _, err := s.signer.Mint(jobID, relPath)
	if err != nil {
		return "", fmt.Errorf("sign drift url: %w", err)
	}
	return "/ratings/recalculate/download/" + token, nil
}
