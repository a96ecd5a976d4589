package pages

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authapi "replyify-site/internal/api/auth"
	billingapi "replyify-site/internal/api/billing"
	"replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/plans"
	"replyify-site/internal/domain/users"
	"replyify-site/internal/infra/logging"
)

const (
	SupportEmail   = "support@replyify.app"
	siteTitle      = "Replyify | AI Replies for YouTube Creators"
	signedOutPlans = "Sign in to see your current plan."
)

// StatusLookup resolves the plan shown on the pricing page. It must not fail.
type StatusLookup interface {
	CurrentStatus(c *gin.Context, externalUserID string) billing.SubscriptionStatus
}

type Handler struct {
	statuses StatusLookup
}

func NewHandler(statuses StatusLookup) *Handler {
	return &Handler{statuses: statuses}
}

type DownloadOption struct {
	Title  string
	Detail string
	CTA    string
}

var downloadOptions = []DownloadOption{
	{Title: "macOS", Detail: "Apple Silicon and Intel builds", CTA: "Download for macOS"},
	{Title: "Windows", Detail: "Windows 11 and Windows 10 (64-bit)", CTA: "Download for Windows"},
	{Title: "Linux", Detail: "Ubuntu, Debian, and Fedora packages", CTA: "Download for Linux"},
}

type TierView struct {
	plans.Tier
	Current bool
}

type Flashes struct {
	Success []string
	Error   []string
}

type PageData struct {
	Title     string
	Active    string
	User      *users.User
	SignInURL string

	PlanStatus string
	Tiers      []TierView
	Flashes    Flashes

	Downloads    []DownloadOption
	SupportEmail string
}

func (h *Handler) base(c *gin.Context, active string) PageData {
	data := PageData{
		Title:     siteTitle,
		Active:    active,
		SignInURL: SignInURL(c.Request.URL.RequestURI()),
	}
	if u, ok := authapi.CurrentUser(c); ok {
		data.User = &u
	}
	return data
}

// SignInURL is the local sign-in entry point returning to path afterwards.
func SignInURL(path string) string {
	return "/auth/sign-in?return_to=" + url.QueryEscape(path)
}

// GET /
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", h.base(c, "home"))
}

// GET /download
func (h *Handler) Download(c *gin.Context) {
	data := h.base(c, "download")
	data.Downloads = downloadOptions
	data.SupportEmail = SupportEmail
	c.HTML(http.StatusOK, "download.html", data)
}

// GET /pricing
func (h *Handler) Pricing(c *gin.Context) {
	data := h.base(c, "pricing")
	data.Flashes = readFlashes(c)

	var current plans.Plan
	if data.User == nil {
		data.PlanStatus = signedOutPlans
	} else {
		status := h.statuses.CurrentStatus(c, data.User.ID)
		current = status.Plan
		if !current.Valid() {
			current = plans.Default
		}
		data.PlanStatus = "Current plan: " + current.Title()
	}

	for _, t := range plans.Tiers() {
		data.Tiers = append(data.Tiers, TierView{Tier: t, Current: t.Slug == current})
	}

	c.HTML(http.StatusOK, "pricing.html", data)
}

func readFlashes(c *gin.Context) Flashes {
	session := sessions.Default(c)
	var f Flashes
	for _, v := range session.Flashes(billingapi.FlashSuccess) {
		if s, ok := v.(string); ok {
			f.Success = append(f.Success, s)
		}
	}
	for _, v := range session.Flashes(billingapi.FlashError) {
		if s, ok := v.(string); ok {
			f.Error = append(f.Error, s)
		}
	}
	if len(f.Success)+len(f.Error) > 0 {
		if err := session.Save(); err != nil {
			logging.FromContext(c).Warn("clear flashes", zap.Error(err))
		}
	}
	return f
}
