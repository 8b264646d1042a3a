package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"

	"github.com/xuri/excelize/v2"
)

type applicationUsecase struct {
	appRepo domain.ApplicationRepository
	jobRepo domain.JobRepository
	now     func() time.Time
}

func NewApplicationUsecase(appRepo domain.ApplicationRepository, jobRepo domain.JobRepository) domain.ApplicationUsecase {
	return &applicationUsecase{
		appRepo: appRepo,
		jobRepo: jobRepo,
		now:     time.Now,
	}
}

func (u *applicationUsecase) Apply(ctx context.Context, app *domain.Application) error {
	if app.JobID == "" {
		return apperror.BadRequest("Job id is required")
	}
	app.Status = domain.ApplicationStatusPending
	now := u.now().UTC()
	app.AppliedAt = &now
	return u.appRepo.Create(ctx, app)
}

func (u *applicationUsecase) GetMyApplications(ctx context.Context, email string) ([]domain.Application, error) {
	if email == "" {
		return []domain.Application{}, nil
	}
	return u.appRepo.GetByApplicantEmail(ctx, email)
}

// ListByJobID loads the listing and its applications. The listing is
// fetched first so an unknown id surfaces as not found.
func (u *applicationUsecase) ListByJobID(ctx context.Context, jobID string) (*domain.Job, []domain.Application, error) {
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	apps, err := u.appRepo.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	return job, apps, nil
}

func (u *applicationUsecase) UpdateApplicationStatus(ctx context.Context, id string, status domain.ApplicationStatus) error {
	if id == "" {
		return apperror.BadRequest("Application id is required")
	}
	if !status.Valid() {
		return apperror.Validation("Please select a valid status", nil)
	}
	return u.appRepo.UpdateStatus(ctx, id, status)
}

var exportColumns = []struct {
	header string
	width  float64
	value  func(a domain.Application) any
}{
	{"NAME", 24, func(a domain.Application) any { return a.Name }},
	{"EMAIL", 30, func(a domain.Application) any { return a.Email }},
	{"STATUS", 14, func(a domain.Application) any { return strings.ToUpper(string(a.EffectiveStatus())) }},
	{"APPLIED AT", 20, func(a domain.Application) any {
		if a.AppliedAt == nil {
			return ""
		}
		return a.AppliedAt.UTC().Format("2006-01-02 15:04")
	}},
	{"GITHUB", 36, func(a domain.Application) any { return a.GitHub }},
	{"LINKEDIN", 36, func(a domain.Application) any { return a.LinkedIn }},
	{"RESUME", 36, func(a domain.Application) any { return a.Resume }},
	{"COVER LETTER", 60, func(a domain.Application) any { return a.CoverLetter }},
}

// ExportApplications writes apps as an xlsx workbook to w.
func (u *applicationUsecase) ExportApplications(ctx context.Context, job *domain.Job, apps []domain.Application, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheetName := "Applications"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	row := 1
	if job != nil {
		_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s - %s", job.Title, job.Company))
		titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
		_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
		row = 3
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, col.header)
	}

	// Dark blue header with white text
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	startCell, _ := excelize.CoordinatesToCellName(1, row)
	endCell, _ := excelize.CoordinatesToCellName(len(exportColumns), row)
	_ = f.SetCellStyle(sheetName, startCell, endCell, headerStyle)

	for i, app := range apps {
		for c, col := range exportColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, row+1+i)
			_ = f.SetCellValue(sheetName, cell, col.value(app))
		}
	}

	for i, col := range exportColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, name, name, col.width)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// ExportFilename names the workbook after the listing and the export time.
func ExportFilename(job *domain.Job, now time.Time) string {
	slug := "applications"
	if job != nil && job.Title != "" {
		var b strings.Builder
		for _, r := range strings.ToLower(job.Title) {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				b.WriteRune(r)
			case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
				b.WriteByte('_')
			}
		}
		if s := strings.Trim(b.String(), "_"); s != "" {
			slug = s + "_applications"
		}
	}
	return fmt.Sprintf("%s_%s.xlsx", slug, now.Format("20060102_150405"))
}
