package handler

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/response"
)

// playerHeader carries the authenticated player id, injected by the platform
// edge after session validation.
const playerHeader = "X-Player-ID"

// actorID extracts the calling player's id. When the header is missing the
// request is rejected and the caller should return immediately.
func actorID(c *gin.Context) (string, bool) {
	id := c.GetHeader(playerHeader)
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing player identity"))
		return "", false
	}
	return id, true
}
