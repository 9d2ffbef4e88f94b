package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.XPAwarded("meal_log", 50)
		m.Unlocked("nutrition")
		m.UnlockConflict()
		m.DailyAwardDuplicate("daily_streak")
		m.QuestCompleted("general")
		m.DailyScore(61)
		m.UnknownCriterion("mystery")
	})
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.XPAwarded("meal_log", 50)
	m.XPAwarded("meal_log", 25)
	m.Unlocked("consistency")
	m.UnlockConflict()

	assert.Equal(t, 75.0, testutil.ToFloat64(m.xpAwarded.WithLabelValues("meal_log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unlocks.WithLabelValues("consistency")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unlockConflicts))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/users/{id}", http.MethodGet, http.StatusText(http.StatusTeapot))))
}
