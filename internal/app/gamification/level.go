package gamification

import (
	"math"

	"github.com/studyplatform/xpd/internal/domain"
)

// levelTable is ordered by strictly increasing XP; the first row is 0.
var levelTable = []domain.LevelThreshold{
	{Level: 1, XP: 0, Name: "newbie", Title: "Terminal Newbie"},
	{Level: 2, XP: 150, Name: "learner", Title: "Code Learner"},
	{Level: 3, XP: 400, Name: "student", Title: "Eager Student"},
	{Level: 4, XP: 800, Name: "explorer", Title: "Knowledge Explorer"},
	{Level: 5, XP: 1500, Name: "scholar", Title: "Digital Scholar"},
	{Level: 6, XP: 2500, Name: "adept", Title: "Study Adept"},
	{Level: 7, XP: 4000, Name: "expert", Title: "Domain Expert"},
	{Level: 8, XP: 6000, Name: "master", Title: "Learning Master"},
	{Level: 9, XP: 9000, Name: "sage", Title: "Knowledge Sage"},
	{Level: 10, XP: 13000, Name: "legend", Title: "Platform Legend"},
}

// Levels returns a copy of the level table.
func Levels() []domain.LevelThreshold {
	return append([]domain.LevelThreshold(nil), levelTable...)
}

// MaxLevel is the terminal level; XP beyond its floor shows 100% progress.
func MaxLevel() int {
	return levelTable[len(levelTable)-1].Level
}

// LevelInfo derives the level for an XP total. Totals below zero resolve to
// level 1 with 0% progress.
func LevelInfo(xp int64) domain.LevelInfo {
	cur, next := levelTable[0], levelTable[1]
	for i := len(levelTable) - 1; i >= 0; i-- {
		if xp >= levelTable[i].XP {
			cur = levelTable[i]
			next = cur
			if i+1 < len(levelTable) {
				next = levelTable[i+1]
			}
			break
		}
	}

	progress := 100
	if span := next.XP - cur.XP; span > 0 {
		progress = percent(xp-cur.XP, span)
	}

	return domain.LevelInfo{
		Level:             cur.Level,
		LevelName:         cur.Name,
		Title:             cur.Title,
		XPForCurrentLevel: cur.XP,
		XPForNextLevel:    next.XP,
		XPProgress:        progress,
	}
}

// percent returns round(100*n/d) clamped to 0–100.
func percent(n, d int64) int {
	if d <= 0 {
		return 100
	}
	p := math.Round(float64(n) / float64(d) * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
