package clients

import (
	"context"

	"github.com/necpgame/player-orders-core/internal/models"
)

// RosterClient resolves player identity and role eligibility against the
// external identity/roster service.
type RosterClient interface {
	PlayerExists(ctx context.Context, playerID string) (bool, error)
	EligibleForRole(ctx context.Context, playerID string, role models.RatingRole) (bool, error)
}
