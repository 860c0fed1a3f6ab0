package gamification

import (
	"time"

	"github.com/studyplatform/xpd/internal/domain"
)

// BuildResult is the output of one state build.
type BuildResult struct {
	State domain.GamificationState
	// Data is the record with any newly earned badges credited.
	Data domain.GamificationData
	// NewlyEarned lists badges credited by this build, in catalog order.
	NewlyEarned []domain.Badge
}

// BuildState composes the read model and credits newly earned badges on the
// returned record. It does not persist; see Engine.BuildState.
func BuildState(data domain.GamificationData, snap domain.ActivitySnapshot, now time.Time) BuildResult {
	today := Day(now)
	out := data.Clone()

	badges := BuildBadges(data, snap)
	var fresh []domain.Badge
	for _, b := range badges {
		if b.Earned && !data.HasBadge(b.ID) {
			fresh = append(fresh, b)
		}
	}

	if len(fresh) > 0 {
		if out.BadgeEarnedDates == nil {
			out.BadgeEarnedDates = make(map[string]string, len(fresh))
		}
		for _, b := range fresh {
			out.BadgesEarned = append(out.BadgesEarned, b.ID)
			out.BadgeEarnedDates[b.ID] = today
		}
		// Re-derive so EarnedAt reflects the credit just made.
		badges = BuildBadges(out, snap)
		for i := range fresh {
			fresh[i].EarnedAt = earnedAt(out, fresh[i].ID)
		}
	}

	level := LevelInfo(out.XP)
	lastActive := out.LastActiveDate
	if lastActive == "" {
		lastActive = today
	}

	return BuildResult{
		State: domain.GamificationState{
			XP:                out.XP,
			Level:             level.Level,
			LevelName:         level.LevelName,
			XPForCurrentLevel: level.XPForCurrentLevel,
			XPForNextLevel:    level.XPForNextLevel,
			XPProgress:        level.XPProgress,
			Streak:            out.Streak,
			LongestStreak:     out.LongestStreak,
			LastActiveDate:    lastActive,
			Badges:            badges,
			RecentXPGains:     recentGains(out),
			Title:             level.Title,
		},
		Data:        out,
		NewlyEarned: fresh,
	}
}
