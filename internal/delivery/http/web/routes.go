package web

import (
	"context"
	"errors"
	"net/http"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const (
	guardedKey = "guarded"
	preloadKey = "preload"
)

// Preload fetches a page's data before its handler runs. A failure is
// handed to the error middleware and the handler never runs.
type Preload func(ctx context.Context, params gin.Params) (any, error)

// Route is one entry of the static route table.
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler gin.HandlerFunc
	Guarded bool
	Limited bool // stricter rate limit for credential posts
	Preload Preload
}

// Routes returns the route table. It is built once at startup.
func (h *Handler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Name: "home", Handler: h.home},
		{Method: http.MethodGet, Path: "/jobs", Name: "jobs", Handler: h.browseJobs},
		{Method: http.MethodGet, Path: "/job/:id", Name: "job_detail", Handler: h.jobDetail, Preload: h.preloadJob},

		{Method: http.MethodGet, Path: "/login", Name: "login", Handler: h.loginPage},
		{Method: http.MethodPost, Path: "/login", Name: "login_submit", Handler: h.loginSubmit, Limited: true},
		{Method: http.MethodGet, Path: "/register", Name: "register", Handler: h.registerPage},
		{Method: http.MethodPost, Path: "/register", Name: "register_submit", Handler: h.registerSubmit, Limited: true},
		{Method: http.MethodGet, Path: "/auth/federated/:provider", Name: "federated", Handler: h.federatedStart, Limited: true},
		{Method: http.MethodGet, Path: "/auth/callback", Name: "federated_callback", Handler: h.federatedCallback},
		{Method: http.MethodPost, Path: "/logout", Name: "logout", Handler: h.logout},
		{Method: http.MethodGet, Path: "/session/events", Name: "session_events", Handler: h.sessionEvents},

		{Method: http.MethodGet, Path: "/jobApply/:id", Name: "apply", Handler: h.applyPage, Guarded: true},
		{Method: http.MethodPost, Path: "/jobApply/:id", Name: "apply_submit", Handler: h.applySubmit, Guarded: true},
		{Method: http.MethodGet, Path: "/my-applications", Name: "my_applications", Handler: h.myApplications, Guarded: true},
		{Method: http.MethodGet, Path: "/add-job", Name: "add_job", Handler: h.addJobPage, Guarded: true},
		{Method: http.MethodPost, Path: "/add-job", Name: "add_job_submit", Handler: h.addJobSubmit, Guarded: true},
		{Method: http.MethodGet, Path: "/my-posted-jobs", Name: "my_posted_jobs", Handler: h.myPostedJobs, Guarded: true},
		{Method: http.MethodPost, Path: "/my-posted-jobs/:id/delete", Name: "delete_job", Handler: h.deleteJob, Guarded: true},
		{Method: http.MethodGet, Path: "/edit-job/:id", Name: "edit_job", Handler: h.editJobPage, Guarded: true},
		{Method: http.MethodPost, Path: "/edit-job/:id", Name: "edit_job_submit", Handler: h.editJobSubmit, Guarded: true},
		{Method: http.MethodGet, Path: "/viewApplications/:id", Name: "view_applications", Handler: h.viewApplications, Guarded: true},
		{Method: http.MethodPost, Path: "/viewApplications/:id/status/:appId", Name: "update_status", Handler: h.updateStatus, Guarded: true},
		{Method: http.MethodGet, Path: "/viewApplications/:id/export", Name: "export_applications", Handler: h.exportApplications, Guarded: true},
		{Method: http.MethodGet, Path: "/profile", Name: "profile", Handler: h.profilePage, Guarded: true},
		{Method: http.MethodPost, Path: "/profile", Name: "profile_submit", Handler: h.profileSubmit, Guarded: true},
	}
}

// preloadJob loads the listing for the detail page. A listing the API
// answers with an empty body renders as unavailable; any failed fetch
// escalates to the error page.
func (h *Handler) preloadJob(ctx context.Context, params gin.Params) (any, error) {
	job, err := h.jobs.GetJobDetails(ctx, params.ByName("id"))
	if err != nil {
		var appErr *apperror.AppError
		if errors.Is(err, domain.ErrNotFound) && !errors.As(err, &appErr) {
			return (*domain.Job)(nil), nil
		}
		return nil, err
	}
	return job, nil
}

func runPreload(p Preload) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := p(c.Request.Context(), c.Params)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(preloadKey, data)
		c.Next()
	}
}

func markGuarded(c *gin.Context) {
	c.Set(guardedKey, true)
	c.Next()
}
