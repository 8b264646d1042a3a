package usecase

import (
	"context"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"
)

const DefaultHotJobs = 6

type jobUsecase struct {
	jobRepo domain.JobRepository
	now     func() time.Time
}

func NewJobUsecase(jobRepo domain.JobRepository) domain.JobUsecase {
	return &jobUsecase{
		jobRepo: jobRepo,
		now:     time.Now,
	}
}

func (u *jobUsecase) ListJobs(ctx context.Context) ([]domain.Job, error) {
	return u.jobRepo.Fetch(ctx)
}

// HotJobs returns the first limit listings in API order.
func (u *jobUsecase) HotJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	jobs, err := u.jobRepo.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHotJobs
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (u *jobUsecase) GetJobDetails(ctx context.Context, id string) (*domain.Job, error) {
	if id == "" {
		return nil, apperror.NotFound("Job not found")
	}
	return u.jobRepo.GetByID(ctx, id)
}

func (u *jobUsecase) ListJobsByPoster(ctx context.Context, email string) ([]domain.Job, error) {
	if email == "" {
		return []domain.Job{}, nil
	}
	return u.jobRepo.FetchByEmail(ctx, email)
}

func (u *jobUsecase) CreateJob(ctx context.Context, job *domain.Job) error {
	if err := checkSalary(job); err != nil {
		return err
	}
	if job.Status == "" {
		job.Status = domain.JobStatusActive
	}
	if job.PostedDate == nil {
		now := u.now().UTC()
		job.PostedDate = &now
	}
	return u.jobRepo.Create(ctx, job)
}

func (u *jobUsecase) UpdateJob(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		return apperror.BadRequest("Job id is required")
	}
	if err := checkSalary(job); err != nil {
		return err
	}
	return u.jobRepo.Update(ctx, job)
}

func (u *jobUsecase) DeleteJob(ctx context.Context, id string) error {
	if id == "" {
		return apperror.BadRequest("Job id is required")
	}
	return u.jobRepo.Delete(ctx, id)
}

func checkSalary(job *domain.Job) error {
	if job.SalaryRange != nil && job.SalaryRange.Min > job.SalaryRange.Max {
		return apperror.Validation("Maximum salary must be greater than or equal to minimum salary", nil)
	}
	return nil
}
