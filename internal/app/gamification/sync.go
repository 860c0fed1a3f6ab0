package gamification

import "github.com/studyplatform/xpd/internal/domain"

// activityCounts aggregates a snapshot once per build. Negative values from
// the platform count as zero.
type activityCounts struct {
	roadmaps        int64
	started         int64 // status != DRAFT
	active          int64
	completed       int64
	completedTopics int64
	doubts          int64
}

func countActivity(snap domain.ActivitySnapshot) activityCounts {
	var c activityCounts
	for _, r := range snap.Roadmaps {
		c.roadmaps++
		if r.Status != domain.RoadmapDraft {
			c.started++
		}
		switch r.Status {
		case domain.RoadmapActive:
			c.active++
		case domain.RoadmapCompleted:
			c.completed++
		}
		c.completedTopics += max(r.CompletedTopics, 0)
	}
	if snap.Insights != nil {
		c.doubts = max(snap.Insights.DoubtCount, 0)
	}
	return c
}

// ActivityXP is the XP implied by verified platform activity.
func ActivityXP(snap domain.ActivitySnapshot) int64 {
	c := countActivity(snap)
	return c.roadmaps*domain.ActionCreateRoadmap.XP() +
		c.started*domain.ActionStartRoadmap.XP() +
		c.completedTopics*domain.ActionCompleteTopic.XP() +
		c.doubts*domain.ActionAskDoubt.XP()
}

// SyncXPFromActivity raises stored XP to what platform activity implies
// while keeping locally earned bonuses. It never lowers XP.
func SyncXPFromActivity(data domain.GamificationData, snap domain.ActivitySnapshot) domain.GamificationData {
	activity := ActivityXP(snap)
	local := data.XP - activity // login and streak bonuses the platform does not know about

	out := data.Clone()
	out.XP = max(data.XP, activity+max(0, local))
	return out
}
