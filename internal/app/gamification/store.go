package gamification

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/studyplatform/xpd/internal/domain"
)

// KeyPrefix scopes gamification records in the shared key-value store.
// It matches the browser client so records can be imported as-is.
const KeyPrefix = "studyplatform_gamification_"

// Key returns the storage key for a user's record.
func Key(userID string) string {
	return KeyPrefix + userID
}

// Store loads and saves per-user GamificationData records.
// There is no version field: concurrent writers from different processes
// or devices resolve as last writer wins.
type Store struct {
	kv domain.KVStore
}

// NewStore creates a store over any key-value backend.
func NewStore(kv domain.KVStore) *Store {
	return &Store{kv: kv}
}

// Load returns the user's record. Missing, unreadable and corrupt records all
// yield the zero-value record; Load never fails.
func (s *Store) Load(userID string) domain.GamificationData {
	data, _ := s.Read(userID)
	return data
}

// Read is Load that also reports a backend read failure, wrapped in
// domain.ErrStoreUnavailable. The zero record returned with that error must
// not be saved: the stored record still exists. Missing and corrupt records
// are not errors.
func (s *Store) Read(userID string) (domain.GamificationData, error) {
	raw, err := s.kv.Get(Key(userID))
	if err != nil {
		log.Printf("[gamification] load %s: %v (using empty record)", userID, err)
		return domain.NewGamificationData(), fmt.Errorf("%w: load %s: %v", domain.ErrStoreUnavailable, userID, err)
	}
	if raw == "" {
		return domain.NewGamificationData(), nil
	}

	var data domain.GamificationData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Printf("[gamification] corrupt record for %s: %v (resetting)", userID, err)
		return domain.NewGamificationData(), nil
	}
	return normalize(data), nil
}

// Save overwrites the user's record with a single key write.
func (s *Store) Save(userID string, data domain.GamificationData) error {
	raw, err := json.Marshal(normalize(data))
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.kv.Set(Key(userID), string(raw)); err != nil {
		return fmt.Errorf("save %s: %w", Key(userID), err)
	}
	return nil
}

// normalize repairs fields that older or hand-edited records may carry.
func normalize(d domain.GamificationData) domain.GamificationData {
	if d.BadgesEarned == nil {
		d.BadgesEarned = []string{}
	}
	if d.XPHistory == nil {
		d.XPHistory = []domain.XPGain{}
	}
	if len(d.XPHistory) > HistoryLimit {
		d.XPHistory = d.XPHistory[:HistoryLimit]
	}
	if d.XP < 0 {
		d.XP = 0
	}
	if d.Streak < 0 {
		d.Streak = 0
	}
	if d.LongestStreak < 0 {
		d.LongestStreak = 0
	}
	if d.LongestStreak < d.Streak {
		d.LongestStreak = d.Streak
	}
	return d
}
