package gamification

import (
	"time"

	"github.com/studyplatform/xpd/internal/domain"
)

// Streak lengths that pay a one-off bonus. Only an exact match pays: a
// streak that skips past a milestone does not receive it.
const (
	weekStreak  = 7
	monthStreak = 30
)

var (
	dailyLoginReward = mustReward(domain.ActionDailyLogin)
	weekBonus        = mustReward(domain.ActionStreakBonus7)
	monthBonus       = mustReward(domain.ActionStreakBonus30)
)

// HandleDailyLogin counts today's login at most once per UTC day. The second
// return value is false, and data is returned untouched, when today was
// already counted.
func HandleDailyLogin(data domain.GamificationData, now time.Time) (domain.GamificationData, bool) {
	res := CalculateStreak(data, now)
	if !res.Updated {
		return data, false
	}

	out := data.Clone()
	out.Streak = res.Streak
	out.LongestStreak = res.LongestStreak
	out.LastActiveDate = Day(now)

	out = grantReward(out, dailyLoginReward, now)

	switch res.Streak {
	case weekStreak:
		out = grantReward(out, weekBonus, now)
	case monthStreak:
		out = grantReward(out, monthBonus, now)
	}
	return out, true
}
