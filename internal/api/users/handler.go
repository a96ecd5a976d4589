package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authapi "replyify-site/internal/api/auth"
	"replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/plans"
	"replyify-site/internal/domain/users"
)

// StatusLookup resolves a user's plan, falling back to the default plan.
type StatusLookup interface {
	CurrentStatus(c *gin.Context, externalUserID string) billing.SubscriptionStatus
}

type Handler struct {
	statuses StatusLookup
}

func NewHandler(statuses StatusLookup) *Handler {
	return &Handler{statuses: statuses}
}

// GET /api/me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	user, ok := authapi.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	status := h.statuses.CurrentStatus(c, user.ID)
	c.JSON(http.StatusOK, MeResponse{
		User:    buildUserDTO(user),
		Billing: buildBillingDTO(status),
	})
}

func buildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		DisplayName:       u.DisplayName(),
		ProfilePictureURL: u.ProfilePictureURL,
	}
}

func buildBillingDTO(s billing.SubscriptionStatus) BillingDTO {
	plan := s.Plan
	if !plan.Valid() {
		plan = plans.Default
	}
	dto := BillingDTO{
		Plan:     PlanDTO{Key: plan.String(), Name: plan.Title()},
		IsPaying: s.IsPaying,
		Exists:   s.Exists,
	}
	if tier, ok := plans.TierFor(plan); ok {
		dto.Plan.Name = tier.Name
		dto.Plan.Price = tier.Price
	}
	return dto
}
