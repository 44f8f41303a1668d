package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/repository"
	"github.com/necpgame/player-orders-core/pkg/config"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/jobs"
	"github.com/necpgame/player-orders-core/pkg/storage"
)

type recalcJobStoreStub struct {
	jobs map[string]*models.RecalcJob
	seq  int
	// cancelAfterBatches flips the job to cancelled once UpdateProgress has
	// been called this many times, simulating an operator cancelling mid-run.
	cancelAfterBatches int
	progressCalls      int
}

func newRecalcJobStoreStub() *recalcJobStoreStub {
	return &recalcJobStoreStub{jobs: map[string]*models.RecalcJob{}}
}

func (r *recalcJobStoreStub) Create(ctx context.Context, job *models.RecalcJob) error {
	r.seq++
	job.ID = fmt.Sprintf("job-%d", r.seq)
	job.Status = models.JobStatusQueued
	job.CreatedAt = time.Now().UTC()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *recalcJobStoreStub) GetByID(ctx context.Context, id string) (*models.RecalcJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (r *recalcJobStoreStub) MarkRunning(ctx context.Context, id string) error {
	job, ok := r.jobs[id]
	if !ok || job.Status != models.JobStatusQueued {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	return nil
}

func (r *recalcJobStoreStub) UpdateProgress(ctx context.Context, id string, processed, failed int, errs models.JobErrors) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.ProcessedCount = processed
	job.FailedCount = failed
	job.Errors = errs
	r.progressCalls++
	if r.cancelAfterBatches > 0 && r.progressCalls >= r.cancelAfterBatches {
		job.Status = models.JobStatusCancelled
	}
	return nil
}

func (r *recalcJobStoreStub) Finish(ctx context.Context, id string, status models.JobStatus, resultURL *string) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	job.Status = status
	job.ResultURL = resultURL
	job.FinishedAt = &now
	return nil
}

func (r *recalcJobStoreStub) RequestCancel(ctx context.Context, id string) error {
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return sql.ErrNoRows
	}
	job.Status = models.JobStatusCancelled
	return nil
}

func (r *recalcJobStoreStub) CurrentStatus(ctx context.Context, id string) (models.JobStatus, error) {
	job, ok := r.jobs[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	return job.Status, nil
}

func (r *recalcJobStoreStub) ListUnfinished(ctx context.Context) ([]models.RecalcJob, error) {
	var out []models.RecalcJob
	for _, job := range r.jobs {
		if job.Status == models.JobStatusQueued || job.Status == models.JobStatusRunning {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *recalcJobStoreStub) List(ctx context.Context, limit int) ([]models.RecalcJob, error) {
	var out []models.RecalcJob
	for _, job := range r.jobs {
		out = append(out, *job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *recalcJobStoreStub) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var urls []string
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			if job.ResultURL != nil {
				urls = append(urls, *job.ResultURL)
			}
			delete(r.jobs, id)
		}
	}
	return urls, nil
}

type ratingKeysStub struct {
	keys []repository.RatingKey
	err  error
}

func (r *ratingKeysStub) ListKeys(ctx context.Context, offset, limit int) ([]repository.RatingKey, error) {
	if r.err != nil {
		return nil, r.err
	}
	if offset >= len(r.keys) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.keys) {
		end = len(r.keys)
	}
	return r.keys[offset:end], nil
}

type replayerStub struct {
	failFor map[string]bool
	drift   map[string]float64
	persist []string
}

func (r *replayerStub) Replay(ctx context.Context, playerID string, role models.RatingRole, persist bool) (*ReplayResult, error) {
	if r.failFor[playerID] {
		return nil, fmt.Errorf("rating row is corrupt")
	}
	if persist {
		r.persist = append(r.persist, playerID)
	}
	d := r.drift[playerID]
	return &ReplayResult{
		PlayerID: playerID,
		Role:     role,
		Stored:   50 + d,
		Replayed: 50,
		Drift:    -d,
	}, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type recalcFixture struct {
	svc      *RecalcService
	repo     *recalcJobStoreStub
	keys     *ratingKeysStub
	replayer *replayerStub
	queue    *queueStub
	store    *storage.LocalStorage
	dir      string
}

func newRecalcFixture(t *testing.T) *recalcFixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewDriftTokenSigner("test-secret", time.Hour)

	repo := newRecalcJobStoreStub()
	keys := &ratingKeysStub{}
	replayer := &replayerStub{failFor: map[string]bool{}, drift: map[string]float64{}}
	queue := &queueStub{}
	svc := NewRecalcService(repo, keys, replayer, queue, store, signer,
		config.RecalcConfig{BatchSize: 2},
		config.ExportsConfig{StorageDir: dir, SignedURLSecret: "test-secret", SignedURLTTL: time.Hour, ResultTTL: time.Hour},
		nil, nil)
	return &recalcFixture{svc: svc, repo: repo, keys: keys, replayer: replayer, queue: queue, store: store, dir: dir}
}

func seedKeys(f *recalcFixture, n int) {
	for i := 0; i < n; i++ {
		f.keys.keys = append(f.keys.keys, repository.RatingKey{
			PlayerID: fmt.Sprintf("player-%d", i),
			Role:     models.RoleExecutor,
		})
	}
}

func TestEnqueueValidatesScope(t *testing.T) {
	f := newRecalcFixture(t)

	playerID := "player-1"
	_, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{PlayerID: &playerID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	role := "executor"
	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{PlayerID: &playerID, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, "player-1", job.Scope.PlayerID)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, job.ID, f.queue.jobs[0].ID)
}

func TestEnqueueDispatchFailureFailsJobRow(t *testing.T) {
	f := newRecalcFixture(t)
	f.queue.err = fmt.Errorf("queue is shut down")

	_, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.Error(t, err)
	require.Len(t, f.repo.jobs, 1)
	for _, job := range f.repo.jobs {
		assert.Equal(t, models.JobStatusFailed, job.Status)
	}
}

func TestProcessFullSweepToleratesPerPlayerFailures(t *testing.T) {
	f := newRecalcFixture(t)
	seedKeys(f, 7)
	f.replayer.failFor["player-2"] = true
	f.replayer.failFor["player-5"] = true

	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID, Type: "rating_recalc"}))

	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, row.Status)
	assert.Equal(t, 5, row.ProcessedCount)
	assert.Equal(t, 2, row.FailedCount)
	require.Len(t, row.Errors, 2)
	assert.Equal(t, "player-2", row.Errors[0].PlayerID)
	assert.Contains(t, row.Errors[0].Message, "corrupt")
	assert.Len(t, f.replayer.persist, 5)
}

func TestProcessSinglePlayerScope(t *testing.T) {
	f := newRecalcFixture(t)
	seedKeys(f, 5)

	playerID, role := "player-3", "executor"
	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{PlayerID: &playerID, Role: &role})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, row.ProcessedCount)
	assert.Equal(t, []string{"player-3"}, f.replayer.persist)
}

func TestProcessDryRunExportsDriftReport(t *testing.T) {
	f := newRecalcFixture(t)
	seedKeys(f, 4)
	f.replayer.drift["player-1"] = 3.5
	f.replayer.drift["player-2"] = -1.25

	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{DryRun: true})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	// Dry run never persists scores.
	assert.Empty(t, f.replayer.persist)

	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, row.ResultURL)
	assert.True(t, strings.HasPrefix(*row.ResultURL, "/ratings/recalculate/download/"))

	data, err := os.ReadFile(filepath.Join(f.dir, "drift", job.ID+".csv"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "player_id,role,stored_score,replayed_score,drift")
	assert.Contains(t, content, "player-1")
	assert.Contains(t, content, "-3.50")

	token := strings.TrimPrefix(*row.ResultURL, "/ratings/recalculate/download/")
	download, err := f.svc.Download(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "drift-"+job.ID+".csv", download.Filename)
	assert.FileExists(t, download.Path)
}

func TestProcessStopsAtCancellation(t *testing.T) {
	f := newRecalcFixture(t)
	seedKeys(f, 10)
	f.repo.cancelAfterBatches = 2 // batch size 2: cancel after four players

	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, row.Status)
	assert.Equal(t, 4, row.ProcessedCount)
	assert.Len(t, f.replayer.persist, 4)
}

func TestProcessSkipsAlreadyTerminalJob(t *testing.T) {
	f := newRecalcFixture(t)
	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), job.ID))

	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))
	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, row.Status)
	assert.Zero(t, row.ProcessedCount)
}

func TestProcessInfrastructureFailureFailsJob(t *testing.T) {
	f := newRecalcFixture(t)
	f.keys.err = fmt.Errorf("connection reset by peer")

	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.Error(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	row, err := f.svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, row.Status)
}

func TestCancelTerminalJobConflicts(t *testing.T) {
	f := newRecalcFixture(t)
	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.Process(context.Background(), jobs.Job{ID: job.ID}))

	err = f.svc.Cancel(context.Background(), job.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrJobCancelled.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingRequeuesStrandedJobs(t *testing.T) {
	f := newRecalcFixture(t)
	job, err := f.svc.Enqueue(context.Background(), "admin-1", dto.RecalcRequest{})
	require.NoError(t, err)
	require.NoError(t, f.repo.MarkRunning(context.Background(), job.ID))
	f.queue.jobs = nil

	require.NoError(t, f.svc.RecoverPending(context.Background()))
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, job.ID, f.queue.jobs[0].ID)
}
