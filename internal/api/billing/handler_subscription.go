package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyify-site/config"
	authapi "replyify-site/internal/api/auth"
	billingdomain "replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/plans"
	"replyify-site/internal/infra/logging"
	"replyify-site/internal/infra/metrics"
)

// StatusReader reads a user's plan from the backend.
type StatusReader interface {
	GetPayingStatus(ctx context.Context, externalUserID string) (billingdomain.SubscriptionStatus, error)
}

// Updater changes a user's plan through the billing webhook.
type Updater interface {
	UpdateSubscription(ctx context.Context, externalUserID string, plan plans.Plan) error
}

type (
	StatusSource  func() (StatusReader, error)
	UpdaterSource func() (Updater, error)
)

type Handler struct {
	statuses StatusSource
	updaters UpdaterSource
	recorder metrics.Recorder
}

func NewHandler(statuses StatusSource, updaters UpdaterSource, recorder metrics.Recorder) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Handler{statuses: statuses, updaters: updaters, recorder: recorder}
}

// CurrentStatus never fails: any lookup problem falls back to the
// default plan so pages still render.
func (h *Handler) CurrentStatus(c *gin.Context, externalUserID string) billingdomain.SubscriptionStatus {
	status, err := h.lookup(c.Request.Context(), externalUserID)
	if err != nil {
		logging.FromContext(c).Warn("plan status lookup failed, using default",
			zap.String("user_id", externalUserID), zap.Error(err))
		h.recorder.RecordStatusFallback()
		return billingdomain.DefaultStatus(externalUserID)
	}
	return status
}

func (h *Handler) lookup(ctx context.Context, externalUserID string) (billingdomain.SubscriptionStatus, error) {
	reader, err := h.statuses()
	if err != nil {
		return billingdomain.SubscriptionStatus{}, err
	}
	return reader.GetPayingStatus(ctx, externalUserID)
}

// GET /api/subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	user, ok := authapi.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	status, err := h.lookup(c.Request.Context(), user.ID)
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": missing.Message()})
			return
		}
		logging.FromContext(c).Error("plan status lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, status)
}
