package handler

import (
	"net/http"

	"github.com/annazecevic/subscription-tracker/dto"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/annazecevic/subscription-tracker/middleware"
	"github.com/annazecevic/subscription-tracker/service"
	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	service   service.SubscriptionService
	jwtSecret string
	guard     gin.HandlerFunc
}

// NewSubscriptionHandler builds the handler. guard runs in front of every /api/v1
// route and may be nil.
func NewSubscriptionHandler(service service.SubscriptionService, jwtSecret string, guard gin.HandlerFunc) *SubscriptionHandler {
	return &SubscriptionHandler{
		service:   service,
		jwtSecret: jwtSecret,
		guard:     guard,
	}
}

func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(logger.EventValidationFailure, "Invalid subscription request", logger.Fields(
			"user_id", userID,
			"error", err.Error(),
		))
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	subscription, err := h.service.Create(c.Request.Context(), userID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.Response{
		Success: true,
		Data:    dto.CreateSubscriptionResponse{Subscription: subscription},
	})
}

func (h *SubscriptionHandler) ListByOwner(c *gin.Context) {
	subscriptions, err := h.service.ListByOwner(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{Success: true, Data: subscriptions})
}

func (h *SubscriptionHandler) Update(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req dto.UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(logger.EventValidationFailure, "Invalid subscription update", logger.Fields(
			"user_id", userID,
			"subscription_id", c.Param("id"),
			"error", err.Error(),
		))
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	subscription, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Subscription updated successfully",
		Data:    subscription,
	})
}

func (h *SubscriptionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{Success: true, Message: "Subscription deleted successfully"})
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	subscription, err := h.service.Cancel(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Message: "Subscription cancelled successfully",
		Data:    subscription,
	})
}

func (h *SubscriptionHandler) History(c *gin.Context) {
	events, err := h.service.History(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.Response{Success: true, Data: events})
}

func stub(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.StubResponse{Title: title})
	}
}

func (h *SubscriptionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	if h.guard != nil {
		api.Use(h.guard)
	}
	{
		auth := middleware.AuthMiddleware(h.jwtSecret)

		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.GET("", stub("GET all subscriptions"))
			subscriptions.GET("/upcoming-renewals", stub("GET upcoming renewals"))
			subscriptions.GET("/:id", stub("GET subscription details"))

			subscriptions.POST("", auth, h.Create)
			subscriptions.PUT("/:id", auth, h.Update)
			subscriptions.DELETE("/:id", auth, h.Delete)
			subscriptions.GET("/user/:id", auth, h.ListByOwner)
			subscriptions.PUT("/:id/cancel", auth, h.Cancel)
			subscriptions.GET("/:id/history", auth, h.History)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
