package jobapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, forward bool, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/", ForwardToken: forward, HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestJobRepository(t *testing.T) {
	t.Run("Should list jobs and forward the bearer token", func(t *testing.T) {
		c := newTestClient(t, true, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/jobs", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[{"_id":"1","title":"Go Dev","company":"Acme","jobType":"Remote","category":"Engineering",
				"salaryRange":{"min":1000,"max":2000,"currency":"usd"},"requirements":["Go"],"status":"active"}]`))
		})

		jobs, err := NewJobRepository(c).Fetch(WithAccessToken(context.Background(), "tok"))
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "1", jobs[0].ID)
		assert.Equal(t, domain.JobTypeRemote, jobs[0].JobType)
		require.NotNil(t, jobs[0].SalaryRange)
		assert.Equal(t, int64(2000), jobs[0].SalaryRange.Max)
		assert.Nil(t, jobs[0].ApplicationDeadline)
	})

	t.Run("Should not forward the token when disabled", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		})
		jobs, err := NewJobRepository(c).Fetch(WithAccessToken(context.Background(), "tok"))
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("Should map 500 to a network error", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := NewJobRepository(c).Fetch(context.Background())
		require.Error(t, err)
		assert.Equal(t, apperror.KindNetwork, apperror.KindOf(err))
		assert.Equal(t, http.StatusBadGateway, apperror.StatusOf(err))
	})

	t.Run("Should map 404 to not found", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := NewJobRepository(c).GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Should treat a null body as not found", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`null`))
		})

		_, err := NewJobRepository(c).GetByID(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Should query by poster email", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/jobsByEmailAddress", r.URL.Path)
			assert.Equal(t, "hr@acme.com", r.URL.Query().Get("email"))
			_, _ = w.Write([]byte(`[]`))
		})
		_, err := NewJobRepository(c).FetchByEmail(context.Background(), "hr@acme.com")
		require.NoError(t, err)
	})

	t.Run("Should PUT without the id in the body", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/jobs/42", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "_id")
			assert.Equal(t, "Go Dev", body["title"])
		})
		require.NoError(t, NewJobRepository(c).Update(context.Background(), &domain.Job{ID: "42", Title: "Go Dev"}))
	})

	t.Run("Should honour request cancellation", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewJobRepository(c).Fetch(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestApplicationRepository(t *testing.T) {
	t.Run("Should post applications", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/jobApplication", r.URL.Path)
			var body domain.Application
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "job-1", body.JobID)
			_, _ = w.Write([]byte(`{"acknowledged":true,"insertedId":"app-9"}`))
		})

		app := &domain.Application{JobID: "job-1", Name: "Ada", Email: "ada@example.com"}
		require.NoError(t, NewApplicationRepository(c).Create(context.Background(), app))
		assert.Equal(t, "app-9", app.ID)
	})

	t.Run("Should patch only the status", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/applications/app-1", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{"status": "hired"}, body)
		})
		require.NoError(t, NewApplicationRepository(c).UpdateStatus(context.Background(), "app-1", domain.ApplicationStatusHired))
	})

	t.Run("Should list by job and by applicant", func(t *testing.T) {
		c := newTestClient(t, false, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/applications/job/job-1":
				_, _ = w.Write([]byte(`[{"_id":"a1","jobId":"job-1","name":"Ada","status":"reviewing"}]`))
			case "/application":
				assert.Equal(t, "ada@example.com", r.URL.Query().Get("email"))
				_, _ = w.Write([]byte(`[{"_id":"a1","jobId":"job-1","title":"Go Dev","company":"Acme"}]`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		repo := NewApplicationRepository(c)

		byJob, err := repo.GetByJobID(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ApplicationStatusReviewing, byJob[0].Status)

		mine, err := repo.GetByApplicantEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		require.NotNil(t, mine[0].JobTitle)
		assert.Equal(t, "Go Dev", *mine[0].JobTitle)
		assert.Equal(t, domain.ApplicationStatusPending, mine[0].EffectiveStatus())
	})
}
