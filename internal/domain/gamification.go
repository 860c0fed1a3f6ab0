// Package domain holds the pure types of the xpd gamification engine.
// Nothing here touches storage, the network, or the clock.
package domain

import "time"

// DateLayout is the calendar-day format used for lastActiveDate and badge
// earn dates. Days are always UTC.
const DateLayout = "2006-01-02"

// ─── Persisted Record ───────────────────────────────────────────────────────

// GamificationData is the per-user record kept in the key-value store.
// JSON keys match the records written by the browser client.
type GamificationData struct {
	XP             int64    `json:"xp"`
	Streak         int      `json:"streak"`
	LongestStreak  int      `json:"longestStreak"`
	LastActiveDate string   `json:"lastActiveDate"` // "" before the first login
	BadgesEarned   []string `json:"badgesEarned"`
	XPHistory      []XPGain `json:"xpHistory"` // newest first

	// BadgeEarnedDates maps a badge id to the UTC day it was first credited.
	// Records written before this field existed fall back to LastActiveDate.
	BadgeEarnedDates map[string]string `json:"badgeEarnedDates,omitempty"`
}

// NewGamificationData returns the zero-value record for a user with no history.
func NewGamificationData() GamificationData {
	return GamificationData{
		BadgesEarned: []string{},
		XPHistory:    []XPGain{},
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (d GamificationData) Clone() GamificationData {
	out := d
	out.BadgesEarned = append([]string{}, d.BadgesEarned...)
	out.XPHistory = append([]XPGain{}, d.XPHistory...)
	if d.BadgeEarnedDates != nil {
		out.BadgeEarnedDates = make(map[string]string, len(d.BadgeEarnedDates))
		for k, v := range d.BadgeEarnedDates {
			out.BadgeEarnedDates[k] = v
		}
	}
	return out
}

// HasBadge reports whether the badge id was already credited.
func (d GamificationData) HasBadge(id string) bool {
	for _, b := range d.BadgesEarned {
		if b == id {
			return true
		}
	}
	return false
}

// XPGain is one ledger entry. Entries are never modified after creation.
type XPGain struct {
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action,omitempty"`
}

// ─── Levels ─────────────────────────────────────────────────────────────────

// LevelThreshold is one row of the static level table.
type LevelThreshold struct {
	Level int    `json:"level"`
	XP    int64  `json:"xp"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

// LevelInfo is the level derived from an XP total.
type LevelInfo struct {
	Level             int    `json:"level"`
	LevelName         string `json:"levelName"`
	Title             string `json:"title"`
	XPForCurrentLevel int64  `json:"xpForCurrentLevel"`
	XPForNextLevel    int64  `json:"xpForNextLevel"`
	XPProgress        int    `json:"xpProgress"` // 0–100
}

// ─── Badges ─────────────────────────────────────────────────────────────────

// BadgeCategory groups badges by theme.
type BadgeCategory string

const (
	CategoryLearning    BadgeCategory = "learning"
	CategorySocial      BadgeCategory = "social"
	CategoryStreak      BadgeCategory = "streak"
	CategoryMastery     BadgeCategory = "mastery"
	CategoryExploration BadgeCategory = "exploration"
)

// BadgeDefinition is the static part of a badge. Icon and Color are opaque
// tags resolved by the rendering layer.
type BadgeDefinition struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	Category    BadgeCategory `json:"category"`
}

// Badge is a definition plus its status, derived fresh on every build.
type Badge struct {
	BadgeDefinition
	Requirement int64   `json:"requirement"`
	Current     int64   `json:"current"`
	Earned      bool    `json:"earned"`
	EarnedAt    *string `json:"earnedAt"`
	Progress    int     `json:"progress"` // 0–100
}

// ─── Read Model ─────────────────────────────────────────────────────────────

// GamificationState is the read model handed to the UI. It is never persisted.
type GamificationState struct {
	XP                int64    `json:"xp"`
	Level             int      `json:"level"`
	LevelName         string   `json:"levelName"`
	XPForCurrentLevel int64    `json:"xpForCurrentLevel"`
	XPForNextLevel    int64    `json:"xpForNextLevel"`
	XPProgress        int      `json:"xpProgress"`
	Streak            int      `json:"streak"`
	LongestStreak     int      `json:"longestStreak"`
	LastActiveDate    string   `json:"lastActiveDate"`
	Badges            []Badge  `json:"badges"`
	RecentXPGains     []XPGain `json:"recentXPGains"`
	Title             string   `json:"title"`
}

// ─── Rewards ────────────────────────────────────────────────────────────────

// Action is a key of the reward table.
type Action string

const (
	ActionCreateRoadmap   Action = "CREATE_ROADMAP"
	ActionCompleteTopic   Action = "COMPLETE_TOPIC"
	ActionAskDoubt        Action = "ASK_DOUBT"
	ActionDailyLogin      Action = "DAILY_LOGIN"
	ActionStreakBonus7    Action = "STREAK_BONUS_7"
	ActionStreakBonus30   Action = "STREAK_BONUS_30"
	ActionFirstRoadmap    Action = "FIRST_ROADMAP"
	ActionStartRoadmap    Action = "START_ROADMAP"
	ActionGenerateContent Action = "GENERATE_CONTENT"
)

// Reward is one row of the reward table.
type Reward struct {
	Action Action `json:"action"`
	XP     int64  `json:"xp"`
	Reason string `json:"reason"`
}

// rewardTable must match the browser client exactly.
var rewardTable = []Reward{
	{ActionCreateRoadmap, 100, "Created a roadmap"},
	{ActionCompleteTopic, 50, "Completed a topic"},
	{ActionAskDoubt, 25, "Asked a doubt"},
	{ActionDailyLogin, 15, "Daily login"},
	{ActionStreakBonus7, 75, "7-day streak bonus!"},
	{ActionStreakBonus30, 300, "30-day streak bonus!"},
	{ActionFirstRoadmap, 50, "First roadmap bonus"},
	{ActionStartRoadmap, 25, "Started a roadmap"},
	{ActionGenerateContent, 30, "Generated learning content"},
}

// Rewards returns a copy of the reward table in declaration order.
func Rewards() []Reward {
	return append([]Reward(nil), rewardTable...)
}

// Reward looks up the table row for an action.
func (a Action) Reward() (Reward, bool) {
	for _, r := range rewardTable {
		if r.Action == a {
			return r, true
		}
	}
	return Reward{}, false
}

// XP returns the fixed reward for an action, or 0 if the action is unknown.
func (a Action) XP() int64 {
	r, _ := a.Reward()
	return r.XP
}
