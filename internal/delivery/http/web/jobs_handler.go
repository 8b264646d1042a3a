package web

import (
	"net/http"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/validation"

	"github.com/gin-gonic/gin"
)

func (h *Handler) home(c *gin.Context) {
	data := gin.H{"Categories": domain.Categories}

	jobs, err := h.jobs.HotJobs(c.Request.Context(), usecase.DefaultHotJobs)
	if err != nil {
		status, state := h.fetchFailed(c, err)
		data["Fetch"] = state
		h.render(c, status, "home.html", "Find your next job", data)
		return
	}
	data["Jobs"] = jobs
	h.render(c, http.StatusOK, "home.html", "Find your next job", data)
}

func (h *Handler) browseJobs(c *gin.Context) {
	filter := usecase.ListingFilterFromQuery(c.Request.URL.Query())
	data := gin.H{"Filter": filter}

	all, err := h.jobs.ListJobs(c.Request.Context())
	if err != nil {
		status, state := h.fetchFailed(c, err)
		data["Fetch"] = state
		h.render(c, status, "jobs.html", "Browse jobs", data)
		return
	}

	data["Total"] = len(all)
	data["Jobs"] = usecase.FilterListings(all, filter)
	data["Options"] = usecase.ListingOptions(all)
	h.render(c, http.StatusOK, "jobs.html", "Browse jobs", data)
}

func (h *Handler) jobDetail(c *gin.Context) {
	job, _ := c.MustGet(preloadKey).(*domain.Job)
	if !job.IsActive() {
		h.render(c, http.StatusOK, "job_unavailable.html", "Job Not Available", nil)
		return
	}
	h.render(c, http.StatusOK, "job_detail.html", job.Title, gin.H{"Job": job})
}

// applyJob loads the listing an application is for; an inactive listing
// cannot be applied to.
func (h *Handler) applyJob(c *gin.Context) (*domain.Job, bool) {
	job, err := h.jobs.GetJobDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	if !job.IsActive() || usecase.DeadlinePassed(job, h.now()) {
		h.render(c, http.StatusOK, "job_unavailable.html", "Job Not Available", nil)
		return nil, false
	}
	return job, true
}

func (h *Handler) applyPage(c *gin.Context) {
	job, ok := h.applyJob(c)
	if !ok {
		return
	}
	ident := currentIdentity(c)
	form := usecase.ApplyForm{Name: ident.NameOrEmpty(), Email: ident.EmailOrEmpty()}
	h.renderApply(c, http.StatusOK, job, form, nil)
}

func (h *Handler) applySubmit(c *gin.Context) {
	job, ok := h.applyJob(c)
	if !ok {
		return
	}

	var form usecase.ApplyForm
	_ = c.ShouldBind(&form)
	if errs := form.Validate(h.validate); errs.Any() {
		h.renderApply(c, http.StatusUnprocessableEntity, job, form, errs)
		return
	}

	if err := h.applications.Apply(c.Request.Context(), form.Application(job.ID)); err != nil {
		status, errs := formFailure(err)
		h.renderApply(c, status, job, form, errs)
		return
	}

	h.flash(c, "success", "Application submitted", "Your application for "+job.Title+" has been submitted.")
	c.Redirect(http.StatusSeeOther, "/my-applications")
}

func (h *Handler) renderApply(c *gin.Context, status int, job *domain.Job, form usecase.ApplyForm, errs validation.FieldErrors) {
	h.render(c, status, "apply.html", "Apply for "+job.Title, gin.H{
		"Job":    job,
		"Form":   form,
		"Errors": errs,
	})
}

func (h *Handler) myApplications(c *gin.Context) {
	data := gin.H{}
	apps, err := h.applications.GetMyApplications(c.Request.Context(), currentIdentity(c).EmailOrEmpty())
	if err != nil {
		status, state := h.fetchFailed(c, err)
		data["Fetch"] = state
		h.render(c, status, "my_applications.html", "My applications", data)
		return
	}
	data["Applications"] = apps
	h.render(c, http.StatusOK, "my_applications.html", "My applications", data)
}
