package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"replyify-site/internal/domain/plans"
)

type TierDTO struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Price     string   `json:"price"`
	Highlight bool     `json:"highlight"`
	Features  []string `json:"features"`
	CTA       string   `json:"cta"`
}

// GET /api/plans
func ListPlans(c *gin.Context) {
	tiers := plans.Tiers()
	out := make([]TierDTO, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, TierDTO{
			Key:       t.Slug.String(),
			Name:      t.Name,
			Price:     t.Price,
			Highlight: t.Highlight,
			Features:  t.Features,
			CTA:       t.CTA,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
