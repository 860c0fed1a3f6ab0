// Package gamification implements the xpd gamification engine: levels,
// daily streaks, the XP ledger, activity sync and badges.
// The free functions are pure; Engine adds persistence and a clock.
package gamification

import (
	"errors"
	"fmt"
	"time"

	"github.com/studyplatform/xpd/internal/domain"
)

// Engine runs the engine steps against a Store with an injectable clock.
type Engine struct {
	store    *Store
	now      func() time.Time
	readOnly bool
}

// NewEngine creates an engine using the wall clock.
func NewEngine(store *Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// SetClock replaces the wall clock. Intended for tests and replay tools.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Now returns the engine's current time.
func (e *Engine) Now() time.Time { return e.now() }

// Store returns the underlying record store.
func (e *Engine) Store() *Store { return e.store }

// ReadOnly returns an engine sharing e's store and clock whose steps compute
// the same results but never save.
func (e *Engine) ReadOnly() *Engine {
	return &Engine{store: e.store, now: e.now, readOnly: true}
}

// Load returns the user's record, or the zero record on any failure.
func (e *Engine) Load(userID string) domain.GamificationData {
	return e.store.Load(userID)
}

// Read returns the user's record and whether it may be written back. After
// a backend read failure the zero record is returned with writable false.
func (e *Engine) Read(userID string) (domain.GamificationData, bool) {
	data, err := e.store.Read(userID)
	return data, err == nil
}

// For returns e when the record was read cleanly and a read-only engine
// otherwise.
func (e *Engine) For(writable bool) *Engine {
	if writable {
		return e
	}
	return e.ReadOnly()
}

func (e *Engine) save(userID string, data domain.GamificationData) error {
	if e.readOnly {
		return nil
	}
	return e.store.Save(userID, data)
}

// DailyLogin counts today's login and saves the record when it changed.
func (e *Engine) DailyLogin(userID string, data domain.GamificationData) (domain.GamificationData, bool, error) {
	out, changed := HandleDailyLogin(data, e.now())
	if !changed {
		return data, false, nil
	}
	if err := e.save(userID, out); err != nil {
		return out, true, fmt.Errorf("daily login: %w", err)
	}
	return out, true, nil
}

// Sync raises XP to match platform activity and saves when XP moved.
func (e *Engine) Sync(userID string, data domain.GamificationData, snap domain.ActivitySnapshot) (domain.GamificationData, error) {
	out := SyncXPFromActivity(data, snap)
	if out.XP == data.XP {
		return out, nil
	}
	if err := e.save(userID, out); err != nil {
		return out, fmt.Errorf("sync xp: %w", err)
	}
	return out, nil
}

// BuildState builds the read model and persists newly earned badges with one
// save. The result is complete even when the save fails; the error only
// reports that the credit was not stored.
func (e *Engine) BuildState(userID string, data domain.GamificationData, snap domain.ActivitySnapshot) (BuildResult, error) {
	res := BuildState(data, snap, e.now())
	if len(res.NewlyEarned) == 0 {
		return res, nil
	}
	if err := e.save(userID, res.Data); err != nil {
		return res, fmt.Errorf("credit badges: %w", err)
	}
	return res, nil
}

// Award loads the record, grants amount with reason, and saves it.
// Negative amounts are rejected; zero is recorded. When the record cannot
// be read the grant is applied to the zero record in memory only and the
// error wraps domain.ErrStoreUnavailable.
func (e *Engine) Award(userID string, amount int64, reason string) (domain.GamificationData, error) {
	if amount < 0 {
		return domain.GamificationData{}, fmt.Errorf("%w: %d", domain.ErrNegativeXP, amount)
	}
	data, err := e.store.Read(userID)
	out := AddXP(data, amount, reason, e.now())
	if err != nil {
		return out, fmt.Errorf("award xp: %w", err)
	}
	if err := e.save(userID, out); err != nil {
		return out, fmt.Errorf("award xp: %w", err)
	}
	return out, nil
}

// AwardAction grants the reward-table amount for action and saves it, with
// the same read-failure behavior as Award.
func (e *Engine) AwardAction(userID string, action domain.Action) (domain.GamificationData, error) {
	if _, ok := action.Reward(); !ok {
		return domain.GamificationData{}, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}
	data, readErr := e.store.Read(userID)
	out, err := AddActionXP(data, action, e.now())
	if err != nil {
		return domain.GamificationData{}, err
	}
	if readErr != nil {
		return out, fmt.Errorf("award %s: %w", action, readErr)
	}
	if err := e.save(userID, out); err != nil {
		return out, fmt.Errorf("award %s: %w", action, err)
	}
	return out, nil
}

// Unreadable reports whether err came from a failed record read, in which
// case nothing derived from the returned data may be saved.
func Unreadable(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable)
}
