package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyify-site/config"
	"replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/plans"
	"replyify-site/internal/domain/users"
	"replyify-site/internal/infra/logging"
	"replyify-site/internal/infra/metrics"
)

const (
	msgInvalidBody   = "Invalid request body"
	msgEmailRequired = "Email is required"
	msgInvalidEmail  = "Invalid email format"
	msgFailed        = "Failed to process payment"
)

// Writer persists a plan choice keyed by email.
type Writer interface {
	UpsertPaymentByEmail(ctx context.Context, email string, plan plans.Plan) (billing.PaymentRecord, error)
}

// WriterSource resolves the Writer per request. It returns
// *config.MissingError when the backend is not configured.
type WriterSource func() (Writer, error)

type Handler struct {
	writers  WriterSource
	recorder metrics.Recorder
}

func NewHandler(writers WriterSource, recorder metrics.Recorder) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Handler{writers: writers, recorder: recorder}
}

// POST /api/payment
//
// Input is validated in full before the backend is resolved, so a bad
// request never reaches it.
func (h *Handler) Create(c *gin.Context) {
	log := logging.FromContext(c)

	var body map[string]interface{}
	raw, err := c.GetRawData()
	if err != nil || json.Unmarshal(raw, &body) != nil || body == nil {
		h.reject(c, msgInvalidBody)
		return
	}

	email, ok := body["email"].(string)
	if !ok || strings.TrimSpace(email) == "" {
		h.reject(c, msgEmailRequired)
		return
	}

	planValue, _ := body["plan"].(string)
	plan, ok := plans.Parse(planValue)
	if !ok {
		h.reject(c, plans.InvalidPlanMessage)
		return
	}

	email = users.NormalizeEmail(email)
	if !users.IsEmailValid(email) {
		h.reject(c, msgInvalidEmail)
		return
	}

	writer, err := h.writers()
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			log.Error("payment backend not configured", zap.String("key", missing.Key))
			h.recorder.RecordPayment(metrics.OutcomeMisconfigured)
			c.JSON(http.StatusInternalServerError, gin.H{"error": missing.Message()})
			return
		}
		log.Error("payment backend unavailable", zap.Error(err))
		h.recorder.RecordPayment(metrics.OutcomeUpstreamFail)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgFailed})
		return
	}

	record, err := writer.UpsertPaymentByEmail(c.Request.Context(), email, plan)
	if err != nil {
		log.Error("payment upsert failed", zap.String("plan", plan.String()), zap.Error(err))
		h.recorder.RecordPayment(metrics.OutcomeUpstreamFail)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgFailed})
		return
	}

	h.recorder.RecordPayment(metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": record})
}

func (h *Handler) reject(c *gin.Context, msg string) {
	h.recorder.RecordPayment(metrics.OutcomeInvalid)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
