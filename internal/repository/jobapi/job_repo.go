package jobapi

import (
	"context"
	"net/http"
	"net/url"

	"go-jobportal-web/internal/domain"
)

type jobRepository struct {
	c *Client
}

func NewJobRepository(c *Client) domain.JobRepository {
	return &jobRepository{c: c}
}

func (r *jobRepository) Fetch(ctx context.Context) ([]domain.Job, error) {
	jobs := []domain.Job{}
	if err := r.c.do(ctx, "list_jobs", http.MethodGet, "/jobs", nil, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	if err := r.c.do(ctx, "get_job", http.MethodGet, "/jobs/"+url.PathEscape(id), nil, nil, &job); err != nil {
		return nil, err
	}
	// Some deployments answer 200 with null for unknown ids.
	if job.ID == "" && job.Title == "" {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (r *jobRepository) FetchByEmail(ctx context.Context, email string) ([]domain.Job, error) {
	jobs := []domain.Job{}
	q := url.Values{"email": {email}}
	if err := r.c.do(ctx, "jobs_by_email", http.MethodGet, "/jobsByEmailAddress", q, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Create(ctx context.Context, job *domain.Job) error {
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	if err := r.c.do(ctx, "create_job", http.MethodPost, "/jobs", nil, job, &created); err != nil {
		return err
	}
	if created.InsertedID != "" {
		job.ID = created.InsertedID
	}
	return nil
}

func (r *jobRepository) Update(ctx context.Context, job *domain.Job) error {
	body := *job
	body.ID = ""
	return r.c.do(ctx, "update_job", http.MethodPut, "/jobs/"+url.PathEscape(job.ID), nil, &body, nil)
}

func (r *jobRepository) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, "delete_job", http.MethodDelete, "/jobs/"+url.PathEscape(id), nil, nil, nil)
}
