package usecase

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const deadlineLayout = "2006-01-02"

// Currencies offered by the job form, in display order.
var Currencies = []string{"bdt", "usd", "eur", "gbp"}

// NewValidator returns the form validator with the job board enumerations registered.
func NewValidator() *validator.Validate {
	v := validation.New()
	validation.RegisterEnum(v, "job_type", domain.IsJobType)
	validation.RegisterEnum(v, "job_category", domain.IsCategory)
	validation.RegisterEnum(v, "app_status", func(s string) bool {
		return domain.ApplicationStatus(s).Valid()
	})
	return v
}

// StringList is an ordered list of free-text entries edited one row at a
// time. Blank rows are kept while editing and dropped by Compact.
type StringList []string

func (l StringList) Add() StringList {
	out := make(StringList, len(l), len(l)+1)
	copy(out, l)
	return append(out, "")
}

// RemoveAt drops the entry at i. Out of range indexes are ignored; the list
// never becomes empty so the form always shows one row.
func (l StringList) RemoveAt(i int) StringList {
	if i < 0 || i >= len(l) {
		return l
	}
	out := make(StringList, 0, len(l))
	out = append(out, l[:i]...)
	out = append(out, l[i+1:]...)
	if len(out) == 0 {
		out = append(out, "")
	}
	return out
}

// Compact trims entries and drops blanks.
func (l StringList) Compact() []string {
	out := make([]string, 0, len(l))
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (l StringList) OrEmptyRow() StringList {
	if len(l) == 0 {
		return StringList{""}
	}
	return l
}

// JobForm backs both the add and edit listing pages.
type JobForm struct {
	Title               string     `form:"title" validate:"required,max=120"`
	Company             string     `form:"company" validate:"required,max=120"`
	Location            string     `form:"location" validate:"required,max=120"`
	JobType             string     `form:"jobType" validate:"required,job_type"`
	Category            string     `form:"category" validate:"required,job_category"`
	ApplicationDeadline string     `form:"applicationDeadline" validate:"required,datetime=2006-01-02"`
	Status              string     `form:"status" validate:"required,oneof=active inactive"`
	SalaryMin           string     `form:"salaryMin" validate:"required"`
	SalaryMax           string     `form:"salaryMax" validate:"required"`
	Currency            string     `form:"currency" validate:"required,oneof=bdt usd eur gbp"`
	Description         string     `form:"description" validate:"required"`
	Requirements        StringList `form:"requirements"`
	Responsibilities    StringList `form:"responsibilities"`
	HRName              string     `form:"hr_name" validate:"required,max=100"`
	HREmail             string     `form:"hr_email" validate:"required,valid_email"`
	CompanyLogo         string     `form:"company_logo" validate:"required,url"`
}

// NewJobForm returns the blank add form with the poster's email prefilled.
func NewJobForm(hrEmail string) JobForm {
	return JobForm{
		Status:           string(domain.JobStatusActive),
		Currency:         "usd",
		HREmail:          hrEmail,
		Requirements:     StringList{""},
		Responsibilities: StringList{""},
	}
}

// JobFormFrom prefills the edit form from an existing listing.
func JobFormFrom(job *domain.Job) JobForm {
	f := JobForm{
		Title:            job.Title,
		Company:          job.Company,
		Location:         job.Location,
		JobType:          string(job.JobType),
		Category:         job.Category,
		Status:           string(job.Status),
		Description:      job.Description,
		Requirements:     StringList(job.Requirements).OrEmptyRow(),
		Responsibilities: StringList(job.Responsibilities).OrEmptyRow(),
		HRName:           job.HRName,
		HREmail:          job.HREmail,
		CompanyLogo:      job.CompanyLogo,
	}
	if job.ApplicationDeadline != nil {
		// the API stores ISO timestamps or plain dates
		d := *job.ApplicationDeadline
		if len(d) >= len(deadlineLayout) {
			d = d[:len(deadlineLayout)]
		}
		f.ApplicationDeadline = d
	}
	if job.SalaryRange != nil {
		f.SalaryMin = strconv.FormatInt(job.SalaryRange.Min, 10)
		f.SalaryMax = strconv.FormatInt(job.SalaryRange.Max, 10)
		f.Currency = job.SalaryRange.Currency
	}
	if f.Status == "" {
		f.Status = string(domain.JobStatusActive)
	}
	return f
}

func (f *JobForm) trim() {
	for _, p := range []*string{&f.Title, &f.Company, &f.Location, &f.ApplicationDeadline, &f.SalaryMin,
		&f.SalaryMax, &f.Description, &f.HRName, &f.HREmail, &f.CompanyLogo} {
		*p = strings.TrimSpace(*p)
	}
}

func parseSalary(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	return n, err == nil && n >= 0
}

// Validate returns per-field messages; an empty result means the form can be submitted.
func (f *JobForm) Validate(v *validator.Validate) validation.FieldErrors {
	f.trim()
	errs := validation.Fields(v.Struct(f))

	minVal, minOK := parseSalary(f.SalaryMin)
	maxVal, maxOK := parseSalary(f.SalaryMax)
	if f.SalaryMin != "" && !minOK {
		errs.Add("salaryMin", "Must be a whole number of zero or more")
	}
	if f.SalaryMax != "" && !maxOK {
		errs.Add("salaryMax", "Must be a whole number of zero or more")
	}
	if minOK && maxOK && minVal > maxVal {
		errs.Add("salaryMax", "Maximum salary must be greater than or equal to minimum salary")
	}
	return errs
}

// Job converts a validated form into the listing sent to the API.
func (f *JobForm) Job() *domain.Job {
	minVal, _ := parseSalary(f.SalaryMin)
	maxVal, _ := parseSalary(f.SalaryMax)
	deadline := f.ApplicationDeadline

	return &domain.Job{
		Title:               f.Title,
		Company:             f.Company,
		Location:            f.Location,
		JobType:             domain.JobType(f.JobType),
		Category:            f.Category,
		Description:         f.Description,
		SalaryRange:         &domain.SalaryRange{Min: minVal, Max: maxVal, Currency: f.Currency},
		ApplicationDeadline: &deadline,
		Requirements:        f.Requirements.Compact(),
		Responsibilities:    f.Responsibilities.Compact(),
		Status:              domain.JobStatus(f.Status),
		HRName:              f.HRName,
		HREmail:             f.HREmail,
		CompanyLogo:         f.CompanyLogo,
	}
}

// ApplyForm is the candidate's application.
type ApplyForm struct {
	Name        string `form:"name" validate:"required,max=100"`
	Email       string `form:"email" validate:"required,valid_email"`
	GitHub      string `form:"github" validate:"required,url"`
	LinkedIn    string `form:"linkedin" validate:"required,url"`
	Resume      string `form:"resume" validate:"required,url"`
	CoverLetter string `form:"coverLetter" validate:"max=5000"`
}

func (f *ApplyForm) Validate(v *validator.Validate) validation.FieldErrors {
	for _, p := range []*string{&f.Name, &f.Email, &f.GitHub, &f.LinkedIn, &f.Resume, &f.CoverLetter} {
		*p = strings.TrimSpace(*p)
	}
	return validation.Fields(v.Struct(f))
}

func (f *ApplyForm) Application(jobID string) *domain.Application {
	return &domain.Application{
		JobID:       jobID,
		Name:        f.Name,
		Email:       f.Email,
		GitHub:      f.GitHub,
		LinkedIn:    f.LinkedIn,
		Resume:      f.Resume,
		CoverLetter: f.CoverLetter,
	}
}

type RegisterForm struct {
	Name            string `form:"name" validate:"max=80"`
	Email           string `form:"email" validate:"required,valid_email"`
	PhotoURL        string `form:"photoURL" validate:"omitempty,url"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

func (f *RegisterForm) Validate(v *validator.Validate) validation.FieldErrors {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.PhotoURL = strings.TrimSpace(f.PhotoURL)
	return validation.Fields(v.Struct(f))
}

// Profile returns the optional fields to apply after sign-up.
func (f *RegisterForm) Profile() domain.ProfileUpdate {
	var upd domain.ProfileUpdate
	if f.Name != "" {
		upd.DisplayName = &f.Name
	}
	if f.PhotoURL != "" {
		upd.AvatarURL = &f.PhotoURL
	}
	return upd
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,valid_email"`
	Password string `form:"password" validate:"required"`
	Redirect string `form:"redirect" validate:"-"`
}

func (f *LoginForm) Validate(v *validator.Validate) validation.FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return validation.Fields(v.Struct(f))
}

type ProfileForm struct {
	Name     string `form:"name" validate:"required,max=80"`
	PhotoURL string `form:"photoURL" validate:"omitempty,url"`
}

func (f *ProfileForm) Validate(v *validator.Validate) validation.FieldErrors {
	f.Name = strings.TrimSpace(f.Name)
	f.PhotoURL = strings.TrimSpace(f.PhotoURL)
	return validation.Fields(v.Struct(f))
}

func (f *ProfileForm) Update() domain.ProfileUpdate {
	name, photo := f.Name, f.PhotoURL
	return domain.ProfileUpdate{DisplayName: &name, AvatarURL: &photo}
}

type StatusForm struct {
	Status string `form:"status" validate:"required,app_status"`
}

func (f *StatusForm) Validate(v *validator.Validate) validation.FieldErrors {
	f.Status = strings.TrimSpace(f.Status)
	return validation.Fields(v.Struct(f))
}

// PasswordStrength scores a password from 0 to 4: one point each for
// length of at least 8, an upper case letter, a digit and a symbol.
func PasswordStrength(pw string) int {
	var upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r) && r <= unicode.MaxASCII:
			upper = true
		case unicode.IsDigit(r) && r <= unicode.MaxASCII:
			digit = true
		case !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9'):
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{len(pw) >= 8, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return score
}

func PasswordStrengthLabel(score int) string {
	switch score {
	case 0:
		return "Very weak"
	case 1:
		return "Weak"
	case 2:
		return "Medium"
	case 3:
		return "Strong"
	default:
		return "Very strong"
	}
}

// DeadlinePassed reports whether a listing's application deadline is before today.
func DeadlinePassed(job *domain.Job, now time.Time) bool {
	if job == nil || job.ApplicationDeadline == nil || len(*job.ApplicationDeadline) < len(deadlineLayout) {
		return false
	}
	d, err := time.Parse(deadlineLayout, (*job.ApplicationDeadline)[:len(deadlineLayout)])
	if err != nil {
		return false
	}
	y, m, day := now.Date()
	return d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}
