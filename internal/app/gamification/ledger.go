package gamification

import (
	"fmt"
	"time"

	"github.com/studyplatform/xpd/internal/domain"
)

const (
	// HistoryLimit caps the stored ledger.
	HistoryLimit = 50
	// RecentGainsLimit caps the gains shown in GamificationState.
	RecentGainsLimit = 10
)

// AddXP prepends a ledger entry and raises XP by amount. The amount is not
// validated here; the provider rejects negative grants.
func AddXP(data domain.GamificationData, amount int64, reason string, now time.Time) domain.GamificationData {
	return appendGain(data, domain.XPGain{
		Amount:    amount,
		Reason:    reason,
		Timestamp: now.UTC(),
	})
}

// AddActionXP grants the reward-table amount for action with its fixed reason.
func AddActionXP(data domain.GamificationData, action domain.Action, now time.Time) (domain.GamificationData, error) {
	r, ok := action.Reward()
	if !ok {
		return data, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}
	return grantReward(data, r, now), nil
}

// mustReward looks up a reward the engine grants on its own. It panics at
// package init if the reward table lost one of them.
func mustReward(action domain.Action) domain.Reward {
	r, ok := action.Reward()
	if !ok {
		panic(fmt.Sprintf("gamification: reward table has no %s", action))
	}
	return r
}

// grantReward credits a reward resolved by mustReward.
func grantReward(data domain.GamificationData, r domain.Reward, now time.Time) domain.GamificationData {
	return appendGain(data, domain.XPGain{
		Amount:    r.XP,
		Reason:    r.Reason,
		Timestamp: now.UTC(),
		Action:    r.Action,
	})
}

func appendGain(data domain.GamificationData, gain domain.XPGain) domain.GamificationData {
	out := data.Clone()
	n := min(len(data.XPHistory)+1, HistoryLimit)
	history := make([]domain.XPGain, 0, n)
	history = append(history, gain)
	history = append(history, data.XPHistory[:n-1]...)
	out.XPHistory = history
	out.XP += gain.Amount
	return out
}

// recentGains returns at most RecentGainsLimit entries, newest first.
func recentGains(data domain.GamificationData) []domain.XPGain {
	n := min(len(data.XPHistory), RecentGainsLimit)
	return append([]domain.XPGain{}, data.XPHistory[:n]...)
}
