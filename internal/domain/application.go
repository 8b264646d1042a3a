package domain

import (
	"context"
	"io"
	"time"
)

type ApplicationStatus string

// Application status constants. Any status may be set to any other; the
// review workflow is intentionally unconstrained.
const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusReviewing   ApplicationStatus = "reviewing"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusHired       ApplicationStatus = "hired"
)

var ApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPending,
	ApplicationStatusReviewing,
	ApplicationStatusShortlisted,
	ApplicationStatusRejected,
	ApplicationStatusHired,
}

func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Application represents a candidate's submission against a listing.
type Application struct {
	ID          string            `json:"_id,omitempty"`
	JobID       string            `json:"jobId"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	GitHub      string            `json:"github"`
	LinkedIn    string            `json:"linkedin"`
	Resume      string            `json:"resume"`
	CoverLetter string            `json:"coverLetter"`
	Status      ApplicationStatus `json:"status,omitempty"`
	AppliedAt   *time.Time        `json:"appliedAt,omitempty"`

	// Joined by the API on the applicant's list
	JobTitle *string `json:"title,omitempty"`
	Company  *string `json:"company,omitempty"`
}

// EffectiveStatus treats a missing status as pending.
func (a Application) EffectiveStatus() ApplicationStatus {
	if a.Status == "" {
		return ApplicationStatusPending
	}
	return a.Status
}

// ApplicationRepository is backed by the external jobs API.
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	GetByApplicantEmail(ctx context.Context, email string) ([]Application, error)
	GetByJobID(ctx context.Context, jobID string) ([]Application, error)
	UpdateStatus(ctx context.Context, id string, status ApplicationStatus) error
}

type ApplicationUsecase interface {
	Apply(ctx context.Context, app *Application) error
	GetMyApplications(ctx context.Context, email string) ([]Application, error)
	ListByJobID(ctx context.Context, jobID string) (*Job, []Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status ApplicationStatus) error
	ExportApplications(ctx context.Context, job *Job, apps []Application, w io.Writer) error
}
