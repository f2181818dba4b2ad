package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"detective_lab/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOutcome(t *testing.T) {
	m := New()

	m.ObserveOutcome(&model.Outcome{Runtime: "lua", Verdict: model.VerdictAccepted, RewardPoints: 10, DurationMs: 12})
	m.ObserveOutcome(&model.Outcome{Runtime: "lua", Verdict: model.VerdictIncorrect, DurationMs: 3})
	m.ObserveOutcome(&model.Outcome{Runtime: "go", Verdict: model.VerdictCaseLocked})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("lua", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("lua", "incorrect_solution")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("go", "case_locked")))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.PointsAwarded))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GradeDuration), "locked submissions never ran")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOutcome(&model.Outcome{Runtime: "lua", Verdict: model.VerdictTimeout, DurationMs: 2000})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `detective_lab_submissions_total{runtime="lua",verdict="timeout"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
