package jobapi

import (
	"context"
	"net/http"
	"net/url"

	"go-jobportal-web/internal/domain"
)

type applicationRepository struct {
	c *Client
}

func NewApplicationRepository(c *Client) domain.ApplicationRepository {
	return &applicationRepository{c: c}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	if err := r.c.do(ctx, "create_application", http.MethodPost, "/jobApplication", nil, app, &created); err != nil {
		return err
	}
	if created.InsertedID != "" {
		app.ID = created.InsertedID
	}
	return nil
}

func (r *applicationRepository) GetByApplicantEmail(ctx context.Context, email string) ([]domain.Application, error) {
	apps := []domain.Application{}
	q := url.Values{"email": {email}}
	if err := r.c.do(ctx, "applications_by_email", http.MethodGet, "/application", q, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepository) GetByJobID(ctx context.Context, jobID string) ([]domain.Application, error) {
	apps := []domain.Application{}
	if err := r.c.do(ctx, "applications_by_job", http.MethodGet, "/applications/job/"+url.PathEscape(jobID), nil, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) error {
	body := map[string]domain.ApplicationStatus{"status": status}
	return r.c.do(ctx, "update_application_status", http.MethodPatch, "/applications/"+url.PathEscape(id), nil, body, nil)
}
