package web

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/internal/usecase"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"usd": "$",
	"bdt": "৳",
	"eur": "€",
	"gbp": "£",
}

var numberPrinter = message.NewPrinter(language.English)

// FormatSalary renders a salary range with the currency symbol and
// thousands separators, or "Competitive" when the listing has none.
func FormatSalary(r *domain.SalaryRange) string {
	if r == nil {
		return "Competitive"
	}
	symbol := currencySymbols[strings.ToLower(r.Currency)]
	return numberPrinter.Sprintf("%s%d - %s%d", symbol, r.Min, symbol, r.Max)
}

// FormatDate renders an application deadline, "Open" when there is none.
func FormatDate(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "Open"
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return *s
}

// TimeAgo describes how long ago t was in whole days, weeks or months.
func TimeAgo(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	days := int(now.Sub(*t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return fmt.Sprintf("%d months ago", days/30)
	}
}

func categoryLabel(v string) string {
	for _, c := range domain.Categories {
		if c.Value == v {
			return c.Label
		}
	}
	return v
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"formatSalary": FormatSalary,
		"formatDate":   FormatDate,
		"timeAgo":      func(t *time.Time) string { return TimeAgo(t, now()) },
		"formatTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Local().Format("Jan 2, 2006")
		},
		"categoryLabel":  categoryLabel,
		"strengthLabel":  usecase.PasswordStrengthLabel,
		"deadlinePassed": func(j *domain.Job) bool { return usecase.DeadlinePassed(j, now()) },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"upper": strings.ToUpper,
		"withQuery": func(path string, q url.Values) string {
			if enc := q.Encode(); enc != "" {
				return path + "?" + enc
			}
			return path
		},
		"pathEscape": url.PathEscape,
		"add":        func(a, b int) int { return a + b },
	}
}
