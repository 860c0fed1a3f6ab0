package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestLedgerMetrics(t *testing.T) {
	XPAwarded.WithLabelValues("DAILY_LOGIN").Add(15)
	XPRejected.WithLabelValues("negative").Inc()

	names := gatheredNames(t)
	for _, name := range []string{"xpd_xp_awarded_total", "xpd_xp_rejected_total"} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestRefreshMetrics(t *testing.T) {
	Refreshes.WithLabelValues("ok").Inc()
	DailyLogins.Inc()
	BadgesEarned.WithLabelValues("first_roadmap").Inc()
	SnapshotLatency.Observe(0.2)
	SnapshotFailures.Inc()

	names := gatheredNames(t)
	expected := []string{
		"xpd_refresh_total",
		"xpd_daily_logins_total",
		"xpd_badges_earned_total",
		"xpd_snapshot_fetch_seconds",
		"xpd_snapshot_failures_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestInfraMetrics(t *testing.T) {
	StoreErrors.WithLabelValues("award").Inc()
	LiveSubscribers.Set(2)
	HealthCheckStatus.WithLabelValues("store").Set(1)
	HealthRecoveries.WithLabelValues("store").Inc()

	names := gatheredNames(t)
	expected := []string{
		"xpd_store_errors_total",
		"xpd_live_subscribers",
		"xpd_health_check_status",
		"xpd_health_recoveries_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
