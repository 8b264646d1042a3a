package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go-jobportal-web/internal/delivery/http/middleware"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/session"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/apperror"
	"go-jobportal-web/pkg/logger"
	"go-jobportal-web/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler serves every page of the site.
type Handler struct {
	store        *session.Store
	auth         *usecase.AuthUsecase
	jobs         domain.JobUsecase
	applications domain.ApplicationUsecase
	health       usecase.HealthUsecase
	validate     *validator.Validate
	log          *logger.Logger
	now          func() time.Time
}

func NewHandler(deps Deps) *Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	v := deps.Validate
	if v == nil {
		v = usecase.NewValidator()
	}
	return &Handler{
		store:        deps.Store,
		auth:         deps.Auth,
		jobs:         deps.Jobs,
		applications: deps.Applications,
		health:       deps.Health,
		validate:     v,
		log:          log,
		now:          time.Now,
	}
}

// Layout is the chrome shared by every page.
type Layout struct {
	Title       string
	CSRFToken   string
	Identity    *domain.Identity
	CurrentPath string
	Flashes     []middleware.Flash
	Watch       bool // subscribe to session events
}

func (l Layout) DisplayName() string {
	if l.Identity == nil {
		return ""
	}
	if n := l.Identity.NameOrEmpty(); n != "" {
		return n
	}
	return l.Identity.EmailOrEmpty()
}

func (h *Handler) layout(c *gin.Context, title string) Layout {
	_, guarded := c.Get(guardedKey)
	return Layout{
		Title:       title,
		CSRFToken:   middleware.CSRFToken(c),
		Identity:    session.IdentityFromContext(c.Request.Context()),
		CurrentPath: c.Request.URL.RequestURI(),
		Flashes:     middleware.Flashes(c),
		Watch:       guarded,
	}
}

// render writes a page; data keys are merged next to "Layout".
func (h *Handler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Layout"] = h.layout(c, title)
	c.HTML(status, name, data)
}

// ErrorPage is the catch-all error view used by the error middleware.
func (h *Handler) ErrorPage(c *gin.Context, appErr *apperror.AppError) {
	title := "Something went wrong"
	if appErr.Code == http.StatusNotFound {
		title = "Page not found"
	}
	h.render(c, appErr.Code, "error.html", title, gin.H{
		"Status":  appErr.Code,
		"Message": appErr.Message,
	})
}

func (h *Handler) notFound(c *gin.Context) {
	_ = c.Error(apperror.NotFound("The page you are looking for does not exist."))
}

// Loading is the neutral placeholder shown while a session settles. It
// refreshes itself so the guard runs again.
func (h *Handler) Loading(c *gin.Context) {
	h.render(c, http.StatusOK, "loading.html", "Loading", nil)
}

// fetchState is the outcome of a page's collection fetch, rendered as the
// page's error state with a retry link instead of the error page.
type fetchState struct {
	Failed  bool
	Message string
	Retry   string
}

func (h *Handler) fetchFailed(c *gin.Context, err error) (int, fetchState) {
	h.log.Warn("page fetch failed", "path", c.Request.URL.Path, "request_id", c.GetString("RequestID"), "error", err)
	msg := "We could not load this page. Please try again."
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindNetwork {
		msg = appErr.Message
	}
	return apperror.StatusOf(err), fetchState{Failed: true, Message: msg, Retry: c.Request.URL.RequestURI()}
}

func currentIdentity(c *gin.Context) *domain.Identity {
	return session.IdentityFromContext(c.Request.Context())
}

func (h *Handler) flash(c *gin.Context, kind, title, msg string) {
	middleware.AddFlash(c, middleware.Flash{Kind: kind, Title: title, Message: msg})
}

// formFailure maps a submit error to the inline form banner and status.
func formFailure(err error) (int, validation.FieldErrors) {
	errs := validation.FieldErrors{}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		errs.Add("_form", appErr.Message)
		return appErr.Code, errs
	}
	errs.Add("_form", "Something went wrong. Please try again.")
	return http.StatusInternalServerError, errs
}

// ownedBy reports whether the listing was posted by ident.
func ownedBy(job *domain.Job, ident *domain.Identity) bool {
	return job != nil && ident != nil && strings.EqualFold(strings.TrimSpace(job.HREmail), ident.EmailOrEmpty())
}
