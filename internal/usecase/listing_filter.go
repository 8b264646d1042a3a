package usecase

import (
	"net/url"
	"sort"
	"strings"

	"go-jobportal-web/internal/domain"
)

// ListingFilter is the browse page's view state. It round-trips through the
// query string so a filtered page can be bookmarked and retried.
type ListingFilter struct {
	Search   string
	JobType  string
	Category string
	Location string
}

func ListingFilterFromQuery(q url.Values) ListingFilter {
	return ListingFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		JobType:  strings.TrimSpace(q.Get("jobType")),
		Category: strings.TrimSpace(q.Get("category")),
		Location: strings.TrimSpace(q.Get("location")),
	}
}

func (f ListingFilter) IsZero() bool {
	return f == ListingFilter{}
}

// Query encodes the non-empty criteria.
func (f ListingFilter) Query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{
		"search":   f.Search,
		"jobType":  f.JobType,
		"category": f.Category,
		"location": f.Location,
	} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func (f ListingFilter) Match(j *domain.Job) bool {
	if f.Search != "" && !containsFold(f.Search, j.Title, j.Company, j.Description) {
		return false
	}
	if f.JobType != "" && string(j.JobType) != f.JobType {
		return false
	}
	if f.Category != "" && j.Category != f.Category {
		return false
	}
	if f.Location != "" && j.Location != f.Location {
		return false
	}
	return true
}

// FilterListings returns the listings matching every criterion, in their
// fetched order. A zero filter returns jobs unchanged.
func FilterListings(jobs []domain.Job, f ListingFilter) []domain.Job {
	if f.IsZero() {
		return jobs
	}
	out := make([]domain.Job, 0, len(jobs))
	for i := range jobs {
		if f.Match(&jobs[i]) {
			out = append(out, jobs[i])
		}
	}
	return out
}

// FilterOptions holds the choices offered by the browse page's selects.
type FilterOptions struct {
	JobTypes   []string
	Categories []string
	Locations  []string
}

// ListingOptions derives the select options from the fetched collection.
// Values in the canonical enumeration come first in its order; anything else
// observed follows alphabetically.
func ListingOptions(jobs []domain.Job) FilterOptions {
	types := make([]string, 0, len(domain.JobTypes))
	for _, t := range domain.JobTypes {
		types = append(types, string(t))
	}
	cats := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		cats = append(cats, c.Value)
	}

	var seenTypes, seenCats, seenLocs []string
	for i := range jobs {
		seenTypes = append(seenTypes, string(jobs[i].JobType))
		seenCats = append(seenCats, jobs[i].Category)
		seenLocs = append(seenLocs, jobs[i].Location)
	}

	return FilterOptions{
		JobTypes:   orderOptions(seenTypes, types),
		Categories: orderOptions(seenCats, cats),
		Locations:  orderOptions(seenLocs, nil),
	}
}

func orderOptions(observed, canonical []string) []string {
	present := map[string]bool{}
	for _, v := range observed {
		if v = strings.TrimSpace(v); v != "" {
			present[v] = true
		}
	}

	out := make([]string, 0, len(present))
	for _, v := range canonical {
		if present[v] {
			out = append(out, v)
			delete(present, v)
		}
	}
	rest := make([]string, 0, len(present))
	for v := range present {
		rest = append(rest, v)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// FilterPostedJobs narrows the poster's own listings by title, company or category.
func FilterPostedJobs(jobs []domain.Job, search string) []domain.Job {
	search = strings.TrimSpace(search)
	if search == "" {
		return jobs
	}
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if containsFold(search, j.Title, j.Company, j.Category) {
			out = append(out, j)
		}
	}
	return out
}

const StatusAll = "all"

// ApplicationFilter is the review page's view state.
type ApplicationFilter struct {
	Search string
	Status string
}

func ApplicationFilterFromQuery(q url.Values) ApplicationFilter {
	f := ApplicationFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if f.Status == "" {
		f.Status = StatusAll
	}
	return f
}

func (f ApplicationFilter) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" && f.Status != StatusAll {
		q.Set("status", f.Status)
	}
	return q
}

func FilterApplications(apps []domain.Application, f ApplicationFilter) []domain.Application {
	if f.Search == "" && (f.Status == "" || f.Status == StatusAll) {
		return apps
	}
	out := make([]domain.Application, 0, len(apps))
	for _, a := range apps {
		if f.Search != "" && !containsFold(f.Search, a.Name, a.Email) {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && string(a.EffectiveStatus()) != f.Status {
			continue
		}
		out = append(out, a)
	}
	return out
}

// StatusCounts tallies applications per status for the review page's summary.
func StatusCounts(apps []domain.Application) map[domain.ApplicationStatus]int {
	counts := make(map[domain.ApplicationStatus]int, len(domain.ApplicationStatuses))
	for _, s := range domain.ApplicationStatuses {
		counts[s] = 0
	}
	for _, a := range apps {
		counts[a.EffectiveStatus()]++
	}
	return counts
}

func containsFold(needle string, haystacks ...string) bool {
	needle = strings.ToLower(needle)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
