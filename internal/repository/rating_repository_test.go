package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/necpgame/player-orders-core/internal/models"
)

func newRatingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRatingRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()

	repo := NewRatingRepository(db)
	metricsJSON, err := json.Marshal(models.RatingMetrics{ReviewsCounted: 12, PenaltiesCounted: 1, AverageOverall: 4.2})
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"player_id", "role", "score", "decay_applied", "trend", "completed_orders", "metrics",
		"warnings", "season_stats", "updated_at"}).
		AddRow("player-1", "executor", 71.5, 0.0, 1.2, 18, metricsJSON, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT player_id, role, score")).
		WithArgs("player-1", "executor").
		WillReturnRows(rows)

	rating, err := repo.Get(context.Background(), "player-1", models.RoleExecutor)
	require.NoError(t, err)
	require.InDelta(t, 71.5, rating.Score, 1e-9)
	require.Equal(t, 12, rating.Metrics.ReviewsCounted)
	require.Equal(t, models.CategorySilver, rating.Category(models.RatingThresholds{BronzeUpper: 40, SilverUpper: 65, GoldUpper: 85}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryUpsertAndEvent(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()

	repo := NewRatingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_ratings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rating_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rating := &models.PlayerOrderRating{
		PlayerID: "player-1",
		Role:     models.RoleClient,
		Score:    52.0,
	}
	require.NoError(t, repo.Upsert(context.Background(), rating))
	require.False(t, rating.UpdatedAt.IsZero())

	event := &models.RatingEvent{
		PlayerID:   "player-1",
		Role:       models.RoleClient,
		Source:     models.RatingSourceReview,
		Delta:      2.0,
		ScoreAfter: 52.0,
	}
	require.NoError(t, repo.AppendEvent(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryListKeysPaging(t *testing.T) {
	db, mock, cleanup := newRatingRepoMock(t)
	defer cleanup()

	repo := NewRatingRepository(db)
	rows := sqlmock.NewRows([]string{"player_id", "role"}).
		AddRow("player-1", "client").
		AddRow("player-1", "executor").
		AddRow("player-2", "executor")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT player_id, role FROM order_ratings")).
		WithArgs(3, 0).
		WillReturnRows(rows)

	keys, err := repo.ListKeys(context.Background(), 0, 3)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	require.Equal(t, models.RoleClient, keys[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}
