package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go-jobportal-web/internal/delivery/http/response"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/usecase"
	"go-jobportal-web/pkg/apperror"
	"go-jobportal-web/pkg/validation"

	"github.com/gin-gonic/gin"
)

type jobFormView struct {
	Action     string
	Submit     string
	JobID      string
	Form       usecase.JobForm
	Errors     validation.FieldErrors
	JobTypes   []domain.JobType
	Categories []domain.Category
	Currencies []string
}

func (h *Handler) renderJobForm(c *gin.Context, status int, title string, v jobFormView) {
	v.JobTypes = domain.JobTypes
	v.Categories = domain.Categories
	v.Currencies = usecase.Currencies
	h.render(c, status, "job_form.html", title, gin.H{"View": v})
}

// applyListAction handles the add-row and remove-row buttons of the
// requirements and responsibilities lists. It reports whether the submit
// was such an edit rather than a save.
func applyListAction(form *usecase.JobForm, action string) bool {
	parts := strings.Split(action, ":")
	if len(parts) < 2 {
		return false
	}

	var list *usecase.StringList
	switch parts[1] {
	case "requirements":
		list = &form.Requirements
	case "responsibilities":
		list = &form.Responsibilities
	default:
		return false
	}

	switch {
	case parts[0] == "add":
		*list = list.Add()
	case parts[0] == "remove" && len(parts) == 3:
		i, err := strconv.Atoi(parts[2])
		if err != nil {
			return false
		}
		*list = list.RemoveAt(i)
	default:
		return false
	}
	return true
}

func bindJobForm(c *gin.Context) usecase.JobForm {
	var form usecase.JobForm
	_ = c.ShouldBind(&form)
	form.Requirements = form.Requirements.OrEmptyRow()
	form.Responsibilities = form.Responsibilities.OrEmptyRow()
	return form
}

func (h *Handler) addJobPage(c *gin.Context) {
	h.renderJobForm(c, http.StatusOK, "Post a job", jobFormView{
		Action: "/add-job",
		Submit: "Post job",
		Form:   usecase.NewJobForm(currentIdentity(c).EmailOrEmpty()),
	})
}

func (h *Handler) addJobSubmit(c *gin.Context) {
	view := jobFormView{Action: "/add-job", Submit: "Post job", Form: bindJobForm(c)}
	if applyListAction(&view.Form, c.PostForm("action")) {
		h.renderJobForm(c, http.StatusOK, "Post a job", view)
		return
	}

	if view.Errors = view.Form.Validate(h.validate); view.Errors.Any() {
		h.renderJobForm(c, http.StatusUnprocessableEntity, "Post a job", view)
		return
	}

	job := view.Form.Job()
	if err := h.jobs.CreateJob(c.Request.Context(), job); err != nil {
		var status int
		status, view.Errors = formFailure(err)
		h.renderJobForm(c, status, "Post a job", view)
		return
	}

	h.flash(c, "success", "Job posted", job.Title+" is now live.")
	c.Redirect(http.StatusSeeOther, "/my-posted-jobs")
}

// ownedJob loads a listing and checks it belongs to the signed-in poster.
func (h *Handler) ownedJob(c *gin.Context, id string) (*domain.Job, bool) {
	job, err := h.jobs.GetJobDetails(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return nil, false
	}
	if !ownedBy(job, currentIdentity(c)) {
		_ = c.Error(apperror.Forbidden("Only the poster of this job can manage it."))
		return nil, false
	}
	return job, true
}

func (h *Handler) editJobPage(c *gin.Context) {
	job, ok := h.ownedJob(c, c.Param("id"))
	if !ok {
		return
	}
	h.renderJobForm(c, http.StatusOK, "Edit job", jobFormView{
		Action: "/edit-job/" + job.ID,
		Submit: "Save changes",
		JobID:  job.ID,
		Form:   usecase.JobFormFrom(job),
	})
}

func (h *Handler) editJobSubmit(c *gin.Context) {
	id := c.Param("id")
	view := jobFormView{Action: "/edit-job/" + id, Submit: "Save changes", JobID: id, Form: bindJobForm(c)}
	if applyListAction(&view.Form, c.PostForm("action")) {
		h.renderJobForm(c, http.StatusOK, "Edit job", view)
		return
	}

	if view.Errors = view.Form.Validate(h.validate); view.Errors.Any() {
		h.renderJobForm(c, http.StatusUnprocessableEntity, "Edit job", view)
		return
	}

	existing, ok := h.ownedJob(c, id)
	if !ok {
		return
	}

	job := view.Form.Job()
	job.ID = existing.ID
	job.PostedDate = existing.PostedDate
	if err := h.jobs.UpdateJob(c.Request.Context(), job); err != nil {
		var status int
		status, view.Errors = formFailure(err)
		h.renderJobForm(c, status, "Edit job", view)
		return
	}

	h.flash(c, "success", "Job updated", job.Title+" has been updated.")
	c.Redirect(http.StatusSeeOther, "/my-posted-jobs")
}

func (h *Handler) myPostedJobs(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	data := gin.H{"Search": search}

	jobs, err := h.jobs.ListJobsByPoster(c.Request.Context(), currentIdentity(c).EmailOrEmpty())
	if err != nil {
		status, state := h.fetchFailed(c, err)
		data["Fetch"] = state
		h.render(c, status, "my_posted_jobs.html", "My posted jobs", data)
		return
	}
	data["Total"] = len(jobs)
	data["Jobs"] = usecase.FilterPostedJobs(jobs, search)
	h.render(c, http.StatusOK, "my_posted_jobs.html", "My posted jobs", data)
}

func (h *Handler) deleteJob(c *gin.Context) {
	job, ok := h.ownedJob(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.jobs.DeleteJob(c.Request.Context(), job.ID); err != nil {
		h.flash(c, "error", "Delete failed", messageOf(err))
	} else {
		h.flash(c, "success", "Job deleted", job.Title+" has been removed.")
	}
	c.Redirect(http.StatusSeeOther, "/my-posted-jobs")
}

func (h *Handler) viewApplications(c *gin.Context) {
	id := c.Param("id")
	filter := usecase.ApplicationFilterFromQuery(c.Request.URL.Query())
	data := gin.H{"Filter": filter, "Statuses": domain.ApplicationStatuses}

	job, apps, err := h.applications.ListByJobID(c.Request.Context(), id)
	if err != nil {
		if apperror.StatusOf(err) == http.StatusNotFound {
			_ = c.Error(err)
			return
		}
		status, state := h.fetchFailed(c, err)
		data["Fetch"] = state
		h.render(c, status, "view_applications.html", "Applications", data)
		return
	}
	if !ownedBy(job, currentIdentity(c)) {
		_ = c.Error(apperror.Forbidden("Only the poster of this job can review its applications."))
		return
	}

	data["Job"] = job
	data["Total"] = len(apps)
	data["Counts"] = usecase.StatusCounts(apps)
	data["Applications"] = usecase.FilterApplications(apps, filter)
	data["Query"] = filter.Query()
	h.render(c, http.StatusOK, "view_applications.html", "Applications for "+job.Title, data)
}

func (h *Handler) updateStatus(c *gin.Context) {
	id := c.Param("id")
	back := "/viewApplications/" + id
	if q := c.PostForm("return"); strings.HasPrefix(q, "?") {
		back += q
	}

	if _, ok := h.ownedJob(c, id); !ok {
		return
	}

	var form usecase.StatusForm
	_ = c.ShouldBind(&form)
	if errs := form.Validate(h.validate); errs.Any() {
		h.flash(c, "error", "Status not changed", errs["status"])
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	err := h.applications.UpdateApplicationStatus(c.Request.Context(), c.Param("appId"), domain.ApplicationStatus(form.Status))
	if err != nil {
		h.flash(c, "error", "Status not changed", messageOf(err))
	} else {
		h.flash(c, "success", "Status updated", "Application marked as "+form.Status+".")
	}
	c.Redirect(http.StatusSeeOther, back)
}

func (h *Handler) exportApplications(c *gin.Context) {
	ctx := c.Request.Context()
	job, apps, err := h.applications.ListByJobID(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ownedBy(job, currentIdentity(c)) {
		_ = c.Error(apperror.Forbidden("Only the poster of this job can export its applications."))
		return
	}

	apps = usecase.FilterApplications(apps, usecase.ApplicationFilterFromQuery(c.Request.URL.Query()))
	err = response.Attachment(c, usecase.ExportFilename(job, h.now()), response.XLSXContentType, func(w io.Writer) error {
		return h.applications.ExportApplications(ctx, job, apps, w)
	})
	if err != nil {
		_ = c.Error(apperror.Internal(err))
	}
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
