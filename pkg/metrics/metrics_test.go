package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(upstreamCalls.WithLabelValues("jobs_api", "test_op", "error"))
	ObserveUpstream("jobs_api", "test_op", errors.New("boom"), 0)
	after := testutil.ToFloat64(upstreamCalls.WithLabelValues("jobs_api", "test_op", "error"))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	done := TrackRequest()
	ObserveRequest(http.MethodGet, "/jobs", http.StatusOK, 20*time.Millisecond)
	done()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `jobportal_web_http_requests_total{method="GET",route="/jobs",status="200"}`)
}
