package billing

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyify-site/config"
	authapi "replyify-site/internal/api/auth"
	"replyify-site/internal/domain/plans"
	"replyify-site/internal/infra/logging"
	"replyify-site/internal/infra/metrics"
)

// Flash kinds, read back by the pricing page.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

const (
	PricingPath     = "/pricing"
	msgChangeFailed = "We couldn't update your plan. Please try again."
)

// POST /pricing/plan
func (h *Handler) ChangePlan(c *gin.Context) {
	log := logging.FromContext(c)

	user, ok := authapi.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/auth/sign-in?return_to="+PricingPath)
		return
	}

	var form struct {
		Plan string `form:"plan" binding:"required,oneof=starter pro scale"`
	}
	if err := c.ShouldBind(&form); err != nil {
		h.recorder.RecordPlanChange(metrics.OutcomeInvalid)
		h.flashAndReturn(c, FlashError, plans.InvalidPlanMessage)
		return
	}
	plan, _ := plans.Parse(form.Plan)

	updater, err := h.updaters()
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			log.Error("billing webhook not configured", zap.String("key", missing.Key))
			h.recorder.RecordPlanChange(metrics.OutcomeMisconfigured)
			c.JSON(http.StatusInternalServerError, gin.H{"error": missing.Message()})
			return
		}
		log.Error("billing webhook unavailable", zap.Error(err))
		h.recorder.RecordPlanChange(metrics.OutcomeUpstreamFail)
		h.flashAndReturn(c, FlashError, msgChangeFailed)
		return
	}

	if err := updater.UpdateSubscription(c.Request.Context(), user.ID, plan); err != nil {
		log.Error("plan change failed",
			zap.String("user_id", user.ID), zap.String("plan", plan.String()), zap.Error(err))
		h.recorder.RecordPlanChange(metrics.OutcomeUpstreamFail)
		h.flashAndReturn(c, FlashError, msgChangeFailed)
		return
	}

	log.Info("plan changed", zap.String("user_id", user.ID), zap.String("plan", plan.String()))
	h.recorder.RecordPlanChange(metrics.OutcomeSuccess)
	h.flashAndReturn(c, FlashSuccess, planChangedMessage(plan))
}

func planChangedMessage(p plans.Plan) string {
	return "You're now on the " + p.Title() + " plan."
}

func (h *Handler) flashAndReturn(c *gin.Context, kind, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg, kind)
	if err := session.Save(); err != nil {
		logging.FromContext(c).Error("save flash", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, PricingPath)
}
