package gamification

import (
	"time"

	"github.com/studyplatform/xpd/internal/domain"
)

// StreakResult is the outcome of evaluating the daily streak.
type StreakResult struct {
	Streak        int
	LongestStreak int
	Updated       bool // false when today's login was already counted
}

// Day returns the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(domain.DateLayout)
}

// CalculateStreak decides whether the streak continues, resets, or was
// already counted today. Days are compared as UTC calendar dates, so an
// unparseable lastActiveDate simply counts as a broken streak.
func CalculateStreak(data domain.GamificationData, now time.Time) StreakResult {
	today := Day(now)
	yesterday := Day(now.UTC().AddDate(0, 0, -1))

	switch data.LastActiveDate {
	case today:
		return StreakResult{Streak: data.Streak, LongestStreak: data.LongestStreak}
	case yesterday:
		next := data.Streak + 1
		return StreakResult{Streak: next, LongestStreak: max(next, data.LongestStreak), Updated: true}
	case "":
		return StreakResult{Streak: 1, LongestStreak: 1, Updated: true}
	default:
		// Broken streaks reset silently; the record keeps its longest run.
		return StreakResult{Streak: 1, LongestStreak: data.LongestStreak, Updated: true}
	}
}
