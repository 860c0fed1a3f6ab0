// Package metrics provides Prometheus metrics for xpd.
// Counters for XP grants, refresh cycles, badges and store failures,
// plus snapshot latency and health gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── XP Ledger ──────────────────────────────────────────────────────────────

// XPAwarded tracks XP granted, labelled by reward action or "custom".
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "xp_awarded_total",
	Help:      "Total XP granted through the ledger.",
}, []string{"source"})

// XPRejected tracks grants refused before reaching the ledger.
var XPRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "xp_rejected_total",
	Help:      "XP grants rejected by validation.",
}, []string{"reason"})

// ─── Refresh Cycle ──────────────────────────────────────────────────────────

// Refreshes tracks refresh cycles by outcome ("ok" or "fallback").
var Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "refresh_total",
	Help:      "Refresh cycles by outcome.",
}, []string{"outcome"})

// DailyLogins tracks logins that advanced the streak.
var DailyLogins = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "daily_logins_total",
	Help:      "Daily logins counted.",
})

// BadgesEarned tracks first-time badge credits.
var BadgesEarned = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "badges_earned_total",
	Help:      "Badges credited for the first time.",
}, []string{"badge"})

// ─── Platform ───────────────────────────────────────────────────────────────

// SnapshotLatency tracks activity snapshot fetch duration.
var SnapshotLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "xpd",
	Name:      "snapshot_fetch_seconds",
	Help:      "Activity snapshot fetch duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// SnapshotFailures tracks snapshot fetches that fell back to an empty snapshot.
var SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "snapshot_failures_total",
	Help:      "Activity snapshot fetches that failed.",
})

// ─── Storage ────────────────────────────────────────────────────────────────

// StoreErrors tracks failed record writes by pipeline step.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "store_errors_total",
	Help:      "Failed gamification record writes.",
}, []string{"op"})

// ─── Live Feed ──────────────────────────────────────────────────────────────

// LiveSubscribers tracks open websocket subscribers.
var LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "xpd",
	Name:      "live_subscribers",
	Help:      "Open live feed connections.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "xpd",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "xpd",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
