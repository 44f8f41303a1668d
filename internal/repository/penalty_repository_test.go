package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/models"
)

func newPenaltyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPenaltyRepositoryCreateSetsDefaults(t *testing.T) {
	db, mock, cleanup := newPenaltyRepoMock(t)
	defer cleanup()

	repo := NewPenaltyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_penalties")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	penalty := &models.PlayerOrderPenalty{
		PlayerID:  "player-1",
		Role:      models.RoleExecutor,
		Type:      models.PenaltyAbandonment,
		Delta:     -25,
		Reason:    "abandoned an escort mid-route",
		AppliedBy: "gm-1",
	}
	require.NoError(t, repo.Create(context.Background(), penalty))
	require.NotEmpty(t, penalty.ID)
	require.Equal(t, models.PenaltyActive, penalty.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPenaltyRepositoryExpireDueReturnsRows(t *testing.T) {
	db, mock, cleanup := newPenaltyRepoMock(t)
	defer cleanup()

	repo := NewPenaltyRepository(db)
	expiry := time.Now().Add(-time.Hour).UTC()
	rows := sqlmock.NewRows([]string{"id", "player_id", "role", "penalty_type", "delta", "reason", "applied_by", "applied_at", "expires_at",
		"status", "linked_order_id", "reversed_by", "reversal_note", "reversed_at"}).
		AddRow("pen-1", "player-1", "executor", "cancellation", -10.0, "late cancellation", "system", time.Now().Add(-240*time.Hour), expiry,
			"expired", nil, nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE order_penalties SET status")).
		WillReturnRows(rows)

	expired, err := repo.ExpireDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "player-1", expired[0].PlayerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPenaltyRepositoryReverseRequiresActive(t *testing.T) {
	db, mock, cleanup := newPenaltyRepoMock(t)
	defer cleanup()

	repo := NewPenaltyRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_penalties")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reverse(context.Background(), "pen-1", "gm-2", "appeal upheld")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
