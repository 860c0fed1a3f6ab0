package domain

// ─── Platform Activity ──────────────────────────────────────────────────────
// Read-only shapes reported by the platform backend. The engine never writes them.

// RoadmapStatus is the lifecycle state of a roadmap on the platform.
type RoadmapStatus string

const (
	RoadmapDraft     RoadmapStatus = "DRAFT"
	RoadmapActive    RoadmapStatus = "ACTIVE"
	RoadmapPaused    RoadmapStatus = "PAUSED"
	RoadmapCompleted RoadmapStatus = "COMPLETED"
	RoadmapArchived  RoadmapStatus = "ARCHIVED"
)

// RoadmapSummary is the subset of a platform roadmap the engine consumes.
// Missing numeric fields decode as zero.
type RoadmapSummary struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Status          RoadmapStatus `json:"status"`
	CompletedTopics int64         `json:"completedTopics"`
	TotalTopics     int64         `json:"totalTopics"`
}

// LearningInsights is the doubt analytics summary. Only DoubtCount feeds XP.
type LearningInsights struct {
	TotalInteractions int64    `json:"totalInteractions"`
	DoubtCount        int64    `json:"doubtCount"`
	UnresolvedCount   int64    `json:"unresolvedCount"`
	ChallengingTopics []string `json:"challengingTopics"`
	EngagementScore   float64  `json:"engagementScore"`
}

// ActivitySnapshot is everything fetched from the platform for one refresh.
// A nil Insights means no insight data and counts as zero doubts.
type ActivitySnapshot struct {
	Roadmaps []RoadmapSummary `json:"roadmaps"`
	Insights *LearningInsights `json:"insights"`
}

// EmptySnapshot is used whenever the platform cannot be reached.
func EmptySnapshot() ActivitySnapshot {
	return ActivitySnapshot{Roadmaps: []RoadmapSummary{}}
}
