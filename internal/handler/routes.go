package handler

import "github.com/gin-gonic/gin"

// Handlers groups everything the router needs.
type Handlers struct {
	Drafts    *DraftHandler
	Orders    *OrderHandler
	Reviews   *ReviewHandler
	Penalties *PenaltyHandler
	Ratings   *RatingHandler
	Recalc    *RecalcHandler
}

// RegisterRoutes mounts every API route on the router.
func RegisterRoutes(r gin.IRouter, h Handlers) {
	drafts := r.Group("/orders/drafts")
	{
		drafts.POST("", h.Drafts.Create)
		drafts.GET("", h.Drafts.List)
		drafts.GET("/:id", h.Drafts.Get)
		drafts.PATCH("/:id", h.Drafts.Update)
		drafts.DELETE("/:id", h.Drafts.Discard)
		drafts.POST("/:id/validate", h.Drafts.Validate)
		drafts.POST("/:id/publish", h.Orders.Publish)
	}

	r.POST("/orders/estimate", h.Drafts.Estimate)

	orders := r.Group("/orders")
	{
		orders.GET("/:id", h.Orders.Get)
		orders.POST("/:id/accept", h.Orders.Accept)
		orders.POST("/:id/confirm", h.Orders.Confirm)
		orders.POST("/:id/cancel", h.Orders.Cancel)
		orders.POST("/:id/complete", h.Orders.Complete)
		orders.POST("/:id/reviews", h.Reviews.Submit)
		orders.GET("/:id/reviews", h.Reviews.ListByOrder)
	}

	r.POST("/reviews/:id/moderate", h.Reviews.Moderate)

	penalties := r.Group("/penalties")
	{
		penalties.POST("", h.Penalties.Apply)
		penalties.GET("/:id", h.Penalties.Get)
		penalties.POST("/:id/reverse", h.Penalties.Reverse)
	}

	players := r.Group("/players/:playerId")
	{
		players.GET("/rating", h.Ratings.Get)
		players.GET("/rating/history", h.Ratings.History)
		players.GET("/penalties", h.Penalties.List)
	}

	recalc := r.Group("/ratings/recalculate")
	{
		recalc.POST("", h.Recalc.Enqueue)
		recalc.GET("", h.Recalc.List)
		recalc.GET("/download/:token", h.Recalc.Download)
		recalc.GET("/:id", h.Recalc.Status)
		recalc.DELETE("/:id", h.Recalc.Cancel)
	}
}
