package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps an input name to its inline message.
type FieldErrors map[string]string

func (f FieldErrors) Add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

func (f FieldErrors) Any() bool {
	return len(f) > 0
}

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

// FieldLabels maps form field names to user-facing labels
var FieldLabels = map[string]string{
	// Job form
	"title":               "Job title",
	"company":             "Company name",
	"location":            "Location",
	"jobType":             "Job type",
	"category":            "Category",
	"description":         "Description",
	"salaryMin":           "Minimum salary",
	"salaryMax":           "Maximum salary",
	"currency":            "Currency",
	"applicationDeadline": "Application deadline",
	"hr_name":             "HR name",
	"hr_email":            "HR email",
	"company_logo":        "Company logo URL",

	// Application form
	"name":        "Full name",
	"email":       "Email",
	"github":      "GitHub profile",
	"linkedin":    "LinkedIn profile",
	"resume":      "Resume link",
	"coverLetter": "Cover letter",
	"status":      "Status",

	// Account forms
	"password":        "Password",
	"confirmPassword": "Confirm password",
	"photoURL":        "Photo URL",
}

// Fields converts validator errors into per-field inline messages. Any other
// error is returned under the "_form" key.
func Fields(err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}

	var fe FieldErrors
	if errors.As(err, &fe) {
		for k, v := range fe {
			out.Add(k, v)
		}
		return out
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		out.Add("_form", err.Error())
		return out
	}
	for _, e := range validationErrors {
		out.Add(e.Field(), formatSingleError(e))
	}
	return out
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	param := e.Param()

	switch e.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", getFieldLabel(e.Field()))

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return fmt.Sprintf("Must be at least %s", param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("Must be at most %s characters", param)
		}
		return fmt.Sprintf("Must be at most %s", param)

	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.Join(strings.Fields(param), ", "))

	case "email", "valid_email":
		return "Please enter a valid email address"

	case "url", "http_url":
		return "Please enter a valid URL"

	case "valid_name":
		return "Only letters, spaces and common punctuation are allowed"

	case "no_emoji":
		return "Must not contain emoji or special symbols"

	case "job_type":
		return "Please select a valid job type"

	case "job_category":
		return "Please select a valid category"

	case "app_status":
		return "Please select a valid status"

	case "eqfield":
		if e.Field() == "confirmPassword" {
			return "Passwords do not match"
		}
		return fmt.Sprintf("Must match %s", getFieldLabel(param))

	case "gtefield":
		return fmt.Sprintf("Must be greater than or equal to %s", strings.ToLower(getFieldLabel(param)))

	case "ltefield":
		return fmt.Sprintf("Must be less than or equal to %s", strings.ToLower(getFieldLabel(param)))

	case "datetime":
		return "Please enter a valid date"

	default:
		return fmt.Sprintf("Invalid value (%s)", e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
