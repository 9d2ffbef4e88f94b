// Package metrics exposes Prometheus collectors for the engine. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	xpAwarded       *prometheus.CounterVec
	unlocks         *prometheus.CounterVec
	unlockConflicts prometheus.Counter
	dailyAwardDups  *prometheus.CounterVec
	questsCompleted *prometheus.CounterVec
	dailyScore      prometheus.Histogram
	unknownCriteria *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which tests use to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		xpAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_xp_awarded_total",
				Help: "Total XP awarded, by reason kind",
			},
			[]string{"reason_kind"},
		),
		unlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_achievement_unlocks_total",
				Help: "Achievements unlocked, by category",
			},
			[]string{"category"},
		),
		unlockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_achievement_unlock_conflicts_total",
			Help: "Unlock attempts dropped because a concurrent pass won",
		}),
		dailyAwardDups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_daily_award_duplicates_total",
				Help: "Once-per-day awards skipped because today's was already paid",
			},
			[]string{"reason_kind"},
		),
		questsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_quests_completed_total",
				Help: "Daily quests completed, by quest type",
			},
			[]string{"quest_type"},
		),
		dailyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_daily_nutrition_score",
			Help:    "Computed daily nutrition scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 75, 90, 100},
		}),
		unknownCriteria: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_unknown_criteria_total",
				Help: "Achievements skipped because their criterion kind is unknown",
			},
			[]string{"kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_ops_http_requests_total",
				Help: "Requests served by the ops listener",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_ops_http_request_duration_seconds",
				Help:    "Duration of ops listener requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.xpAwarded,
			m.unlocks,
			m.unlockConflicts,
			m.dailyAwardDups,
			m.questsCompleted,
			m.dailyScore,
			m.unknownCriteria,
			m.httpRequests,
			m.httpDuration,
		)
	}
	return m
}

// XPAwarded records an XP award.
func (m *Metrics) XPAwarded(reasonKind string, amount int64) {
	if m == nil {
		return
	}
	m.xpAwarded.WithLabelValues(reasonKind).Add(float64(amount))
}

// Unlocked records an achievement unlock.
func (m *Metrics) Unlocked(category string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(category).Inc()
}

// UnlockConflict records an unlock lost to a concurrent evaluation.
func (m *Metrics) UnlockConflict() {
	if m == nil {
		return
	}
	m.unlockConflicts.Inc()
}

// DailyAwardDuplicate records a once-per-day award that was already paid.
func (m *Metrics) DailyAwardDuplicate(reasonKind string) {
	if m == nil {
		return
	}
	m.dailyAwardDups.WithLabelValues(reasonKind).Inc()
}

// QuestCompleted records a quest completion.
func (m *Metrics) QuestCompleted(questType string) {
	if m == nil {
		return
	}
	m.questsCompleted.WithLabelValues(questType).Inc()
}

// DailyScore records a computed daily nutrition score.
func (m *Metrics) DailyScore(score float64) {
	if m == nil {
		return
	}
	m.dailyScore.Observe(score)
}

// UnknownCriterion records an achievement skipped for an unknown criterion kind.
func (m *Metrics) UnknownCriterion(kind string) {
	if m == nil {
		return
	}
	m.unknownCriteria.WithLabelValues(kind).Inc()
}

// Middleware records request counts and durations by route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		m.httpRequests.WithLabelValues(path, r.Method, http.StatusText(ww.status)).Inc()
		m.httpDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
