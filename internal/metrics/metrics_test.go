package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Proctor/internal/domain"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.Event("join-exam", OutcomeHandled)
	r.Event("join-exam", OutcomeHandled)
	r.Event("exam-start", OutcomeUnauthorized)
	r.Stats(domain.Stats{Total: 3, Students: 2, Admins: 1, ActiveExams: 1})
	r.Groups(3)
	r.Dropped(2)
	r.Dropped(0)
	r.GateRejected("missing credential")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("join-exam", OutcomeHandled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("exam-start", OutcomeUnauthorized)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.connections.WithLabelValues("student")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connections.WithLabelValues("admin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activeExams))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.groups))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.dropped))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "proctor_events_total"))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.Event("x", OutcomeHandled)
	r.Stats(domain.Stats{})
	r.Groups(1)
	r.Dropped(1)
	r.GateRejected("x")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownEventsCollapseToOneSeries(t *testing.T) {
	r := New()
	for range 3 {
		r.Event(EventUnknown, OutcomeUnknown)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(r.events))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.events.WithLabelValues(EventUnknown, OutcomeUnknown)))
}
