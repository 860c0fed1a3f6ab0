package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/domain"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, ".........."},
		{50, "#####....."},
		{100, "##########"},
		{140, "##########"},
		{-5, ".........."},
	}
	for _, tt := range tests {
		if got := progressBar(tt.pct, 10); got != tt.want {
			t.Errorf("progressBar(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestPrintState(t *testing.T) {
	now := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	data := gamification.AddXP(domain.NewGamificationData(), 200, "Quiz", now)
	data.Streak, data.LongestStreak, data.LastActiveDate = 3, 5, "2025-07-10"

	res := gamification.BuildState(data, domain.EmptySnapshot(), now)

	var buf bytes.Buffer
	if err := printState(&buf, res.State); err != nil {
		t.Fatalf("printState: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Level 2", "XP     200", "Streak 3 day(s), longest 5", "first_roadmap", "+200", "Quiz"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRequireUser(t *testing.T) {
	if err := requireUser(""); err == nil {
		t.Error("requireUser(\"\") should fail")
	}
	if err := requireUser("u1"); err != nil {
		t.Errorf("requireUser(u1) = %v", err)
	}
}
