package domain

import (
	"context"
	"errors"
	"time"
)

// Common domain errors
var ErrNotFound = errors.New("resource not found")

type JobType string

const (
	JobTypeRemote JobType = "Remote"
	JobTypeHybrid JobType = "Hybrid"
	JobTypeOnSite JobType = "On-site"
)

// JobTypes is the canonical job type enumeration shared by the creation form and the browse filter.
var JobTypes = []JobType{JobTypeRemote, JobTypeHybrid, JobTypeOnSite}

// Category is one entry of the canonical category enumeration.
type Category struct {
	Value string
	Label string
}

var Categories = []Category{
	{Value: "Engineering", Label: "Engineering"},
	{Value: "Design", Label: "Design"},
	{Value: "Marketing", Label: "Marketing"},
	{Value: "Sales", Label: "Sales"},
	{Value: "Customer Support", Label: "Customer Support"},
	{Value: "Finance", Label: "Finance"},
	{Value: "HR", Label: "Human Resources"},
	{Value: "Management", Label: "Management"},
	{Value: "Healthcare", Label: "Healthcare"},
	{Value: "Education", Label: "Education"},
	{Value: "Other", Label: "Other"},
}

type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusInactive JobStatus = "inactive"
)

type SalaryRange struct {
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	Currency string `json:"currency"`
}

// Job is a listing as served by the jobs API.
type Job struct {
	ID                  string       `json:"_id,omitempty"`
	Title               string       `json:"title"`
	Company             string       `json:"company"`
	Location            string       `json:"location"`
	JobType             JobType      `json:"jobType"`
	Category            string       `json:"category"`
	Description         string       `json:"description,omitempty"`
	SalaryRange         *SalaryRange `json:"salaryRange,omitempty"`
	ApplicationDeadline *string      `json:"applicationDeadline,omitempty"`
	PostedDate          *time.Time   `json:"postedDate,omitempty"`
	Requirements        []string     `json:"requirements"`
	Responsibilities    []string     `json:"responsibilities"`
	Status              JobStatus    `json:"status"`
	HRName              string       `json:"hr_name"`
	HREmail             string       `json:"hr_email"`
	CompanyLogo         string       `json:"company_logo"`
}

func (j *Job) IsActive() bool {
	return j != nil && j.Status == JobStatusActive
}

func IsJobType(v string) bool {
	for _, t := range JobTypes {
		if string(t) == v {
			return true
		}
	}
	return false
}

func IsCategory(v string) bool {
	for _, c := range Categories {
		if c.Value == v {
			return true
		}
	}
	return false
}

// JobRepository is backed by the external jobs API.
type JobRepository interface {
	Fetch(ctx context.Context) ([]Job, error)
	GetByID(ctx context.Context, id string) (*Job, error)
	FetchByEmail(ctx context.Context, email string) ([]Job, error)
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id string) error
}

type JobUsecase interface {
	ListJobs(ctx context.Context) ([]Job, error)
	HotJobs(ctx context.Context, limit int) ([]Job, error)
	GetJobDetails(ctx context.Context, id string) (*Job, error)
	ListJobsByPoster(ctx context.Context, email string) ([]Job, error)
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	DeleteJob(ctx context.Context, id string) error
}
