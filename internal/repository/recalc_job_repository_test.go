package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/models"
)

func newRecalcJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRecalcJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRecalcJobRepoMock(t)
	defer cleanup()

	repo := NewRecalcJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO recalc_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.RecalcJob{
		Scope:     models.RecalcScope{PlayerID: "player-1", DryRun: true},
		CreatedBy: "gm-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.JobStatusQueued, job.Status)

	scopeJSON, err := json.Marshal(job.Scope)
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "scope", "status", "processed_count", "failed_count", "errors", "result_url",
		"created_by", "created_at", "started_at", "finished_at"}).
		AddRow(job.ID, scopeJSON, "queued", 0, 0, nil, nil, "gm-1", job.CreatedAt, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, scope, status")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, found.Scope.DryRun)
	require.Equal(t, "player-1", found.Scope.PlayerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalcJobRepositoryMarkRunningOnlyFromQueued(t *testing.T) {
	db, mock, cleanup := newRecalcJobRepoMock(t)
	defer cleanup()

	repo := NewRecalcJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE recalc_jobs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkRunning(context.Background(), "job-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE recalc_jobs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkRunning(context.Background(), "job-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalcJobRepositoryRequestCancelTerminalJob(t *testing.T) {
	db, mock, cleanup := newRecalcJobRepoMock(t)
	defer cleanup()

	repo := NewRecalcJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE recalc_jobs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RequestCancel(context.Background(), "job-done")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecalcJobRepositoryDeleteFinishedBefore(t *testing.T) {
	db, mock, cleanup := newRecalcJobRepoMock(t)
	defer cleanup()

	repo := NewRecalcJobRepository(db)
	rows := sqlmock.NewRows([]string{"coalesce"}).
		AddRow("/downloads/drift/job-1.csv").
		AddRow("")
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM recalc_jobs")).
		WillReturnRows(rows)

	urls, err := repo.DeleteFinishedBefore(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"/downloads/drift/job-1.csv", ""}, urls)
	require.NoError(t, mock.ExpectationsWereMet())
}
