package gamification

import "github.com/studyplatform/xpd/internal/domain"

// badgeMetrics is everything a badge rule can measure.
type badgeMetrics struct {
	activityCounts
	streak  int64
	longest int64
	level   int64
}

// badgeRule pairs a definition with its requirement and metric functions.
// earned is nil when the badge is earned on the same metric it displays.
type badgeRule struct {
	def         domain.BadgeDefinition
	requirement int64
	metric      func(m badgeMetrics) int64
	earned      func(m badgeMetrics) int64
}

func roadmapCount(m badgeMetrics) int64    { return m.roadmaps }
func completedTopics(m badgeMetrics) int64 { return m.completedTopics }
func doubtsAsked(m badgeMetrics) int64     { return m.doubts }
func activeRoadmaps(m badgeMetrics) int64  { return m.active }
func doneRoadmaps(m badgeMetrics) int64    { return m.completed }
func currentStreak(m badgeMetrics) int64   { return m.streak }
func longestStreak(m badgeMetrics) int64   { return m.longest }
func derivedLevel(m badgeMetrics) int64    { return m.level }

// badgeCatalog is the full badge set in display order. Streak badges show
// progress on the current streak but are earned on the longest one, so a
// broken streak never retracts them.
var badgeCatalog = []badgeRule{
	{
		def:         domain.BadgeDefinition{ID: "first_roadmap", Name: "Pathfinder", Description: "Create your first roadmap", Icon: "Map", Color: "text-accent-blue", Category: domain.CategoryLearning},
		requirement: 1,
		metric:      roadmapCount,
	},
	{
		def:         domain.BadgeDefinition{ID: "five_roadmaps", Name: "Cartographer", Description: "Create 5 roadmaps", Icon: "Map", Color: "text-accent-purple", Category: domain.CategoryExploration},
		requirement: 5,
		metric:      roadmapCount,
	},
	{
		def:         domain.BadgeDefinition{ID: "topic_starter", Name: "Topic Starter", Description: "Complete 5 topics", Icon: "BookOpen", Color: "text-accent-green", Category: domain.CategoryLearning},
		requirement: 5,
		metric:      completedTopics,
	},
	{
		def:         domain.BadgeDefinition{ID: "topic_crusher", Name: "Topic Crusher", Description: "Complete 25 topics", Icon: "Zap", Color: "text-accent-orange", Category: domain.CategoryMastery},
		requirement: 25,
		metric:      completedTopics,
	},
	{
		def:         domain.BadgeDefinition{ID: "curious_mind", Name: "Curious Mind", Description: "Ask 10 doubts", Icon: "MessageCircleQuestion", Color: "text-accent-cyan", Category: domain.CategoryExploration},
		requirement: 10,
		metric:      doubtsAsked,
	},
	{
		def:         domain.BadgeDefinition{ID: "streak_week", Name: "Streak Warrior", Description: "7-day login streak", Icon: "Flame", Color: "text-accent-orange", Category: domain.CategoryStreak},
		requirement: 7,
		metric:      currentStreak,
		earned:      longestStreak,
	},
	{
		def:         domain.BadgeDefinition{ID: "streak_month", Name: "Streak Legend", Description: "30-day login streak", Icon: "Flame", Color: "text-accent-red", Category: domain.CategoryStreak},
		requirement: 30,
		metric:      currentStreak,
		earned:      longestStreak,
	},
	{
		def:         domain.BadgeDefinition{ID: "multi_active", Name: "Multi-Tasker", Description: "Have 3 active roadmaps", Icon: "Layers", Color: "text-accent-purple", Category: domain.CategoryExploration},
		requirement: 3,
		metric:      activeRoadmaps,
	},
	{
		def:         domain.BadgeDefinition{ID: "completionist", Name: "Completionist", Description: "Complete a roadmap", Icon: "Trophy", Color: "text-accent-orange", Category: domain.CategoryMastery},
		requirement: 1,
		metric:      doneRoadmaps,
	},
	{
		def:         domain.BadgeDefinition{ID: "level_5", Name: "Scholar", Description: "Reach level 5", Icon: "Star", Color: "text-accent-cyan", Category: domain.CategoryMastery},
		requirement: 5,
		metric:      derivedLevel,
	},
}

// Catalog returns the static badge definitions in display order.
func Catalog() []domain.BadgeDefinition {
	defs := make([]domain.BadgeDefinition, len(badgeCatalog))
	for i, r := range badgeCatalog {
		defs[i] = r.def
	}
	return defs
}

// BuildBadges evaluates every badge against the record and snapshot.
// Earned is recomputed from live metrics; BadgesEarned only decides EarnedAt.
func BuildBadges(data domain.GamificationData, snap domain.ActivitySnapshot) []domain.Badge {
	m := badgeMetrics{
		activityCounts: countActivity(snap),
		streak:         int64(data.Streak),
		longest:        int64(data.LongestStreak),
		level:          int64(LevelInfo(data.XP).Level),
	}

	badges := make([]domain.Badge, 0, len(badgeCatalog))
	for _, r := range badgeCatalog {
		shown := r.metric(m)
		earnedOn := shown
		if r.earned != nil {
			earnedOn = r.earned(m)
		}

		progress := percent(shown, r.requirement)
		if shown >= r.requirement {
			progress = 100
		}

		badges = append(badges, domain.Badge{
			BadgeDefinition: r.def,
			Requirement:     r.requirement,
			Current:         min(shown, r.requirement),
			Earned:          earnedOn >= r.requirement,
			EarnedAt:        earnedAt(data, r.def.ID),
			Progress:        progress,
		})
	}
	return badges
}

// earnedAt prefers the recorded earn day and falls back to lastActiveDate
// for records written before earn days were kept.
func earnedAt(data domain.GamificationData, id string) *string {
	if !data.HasBadge(id) {
		return nil
	}
	day := data.BadgeEarnedDates[id]
	if day == "" {
		day = data.LastActiveDate
	}
	if day == "" {
		return nil
	}
	return &day
}
