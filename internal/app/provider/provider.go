// Package provider orchestrates the gamification engine for signed-in users:
// it fetches platform activity, runs the refresh pipeline, caches the
// resulting state, and publishes changes to live subscribers.
package provider

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/infra/metrics"
)

// Session identifies the signed-in user and the token used for platform calls.
type Session struct {
	UserID string
	Token  string
}

// EventType names a live feed event.
type EventType string

const (
	EventState EventType = "state"
	EventBadge EventType = "badge"
	EventXP    EventType = "xp"
)

// Event is pushed to subscribers of a user's live feed.
type Event struct {
	Type      EventType                 `json:"type"`
	UserID    string                    `json:"userId"`
	State     *domain.GamificationState `json:"state,omitempty"`
	Badge     *domain.Badge             `json:"badge,omitempty"`
	Gain      *domain.XPGain            `json:"gain,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Notifier receives events after each state change. Publish must not block.
type Notifier interface {
	Publish(Event)
}

// Provider runs the per-user pipelines. Within one process every mutation
// for a user is serialized; writers in other processes still race
// (last writer wins).
type Provider struct {
	engine   *gamification.Engine
	source   domain.ActivitySource
	notifier Notifier

	mu    sync.Mutex
	users map[string]*userEntry
}

// userEntry is the cached view for one user.
type userEntry struct {
	pipeline sync.Mutex // held for load → transform → save

	mu         sync.RWMutex
	state      *domain.GamificationState
	snapshot   domain.ActivitySnapshot
	refreshing int
}

// New creates a provider. A nil source always yields an empty snapshot.
func New(engine *gamification.Engine, source domain.ActivitySource) *Provider {
	return &Provider{
		engine: engine,
		source: source,
		users:  make(map[string]*userEntry),
	}
}

// SetNotifier sets the live feed sink.
func (p *Provider) SetNotifier(n Notifier) { p.notifier = n }

// Engine returns the underlying engine.
func (p *Provider) Engine() *gamification.Engine { return p.engine }

// lock returns the user's current entry with its pipeline held. An entry
// dropped by Forget while this caller waited is skipped, so at most one
// pipeline per user runs at a time.
func (p *Provider) lock(userID string) *userEntry {
	for {
		e := p.entry(userID)
		e.pipeline.Lock()

		p.mu.Lock()
		current := p.users[userID] == e
		p.mu.Unlock()
		if current {
			return e
		}
		e.pipeline.Unlock()
	}
}

func (p *Provider) entry(userID string) *userEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.users[userID]
	if !ok {
		e = &userEntry{snapshot: domain.EmptySnapshot()}
		p.users[userID] = e
	}
	return e
}

// ─── Refresh ────────────────────────────────────────────────────────────────

// Refresh runs a full cycle: fetch snapshot, daily login, activity sync,
// state build. Platform and storage failures degrade to local data and are
// logged; the only error is a missing user.
func (p *Provider) Refresh(ctx context.Context, sess Session) (domain.GamificationState, error) {
	if sess.UserID == "" {
		return domain.GamificationState{}, domain.ErrNotAuthenticated
	}
	pending := p.entry(sess.UserID)

	pending.mu.Lock()
	pending.refreshing++
	pending.mu.Unlock()
	defer func() {
		pending.mu.Lock()
		pending.refreshing--
		pending.mu.Unlock()
	}()

	snap, fellBack := p.fetchSnapshot(ctx, sess)

	uid := sess.UserID
	e := p.lock(uid)
	data, writable := p.engine.Read(uid)
	if !writable {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		log.Printf("[provider] record for %s unreadable, refreshing in memory only", uid)
	}
	engine := p.engine.For(writable)

	before := data.XP
	data, counted, err := engine.DailyLogin(uid, data)
	if err != nil {
		storeFailed("daily_login", uid, err)
	}
	if counted {
		metrics.DailyLogins.Inc()
		metrics.XPAwarded.WithLabelValues(string(domain.ActionDailyLogin)).Add(float64(data.XP - before))
	}

	before = data.XP
	data, err = engine.Sync(uid, data, snap)
	if err != nil {
		storeFailed("sync", uid, err)
	}
	if data.XP > before {
		metrics.XPAwarded.WithLabelValues("activity_sync").Add(float64(data.XP - before))
	}

	res, err := engine.BuildState(uid, data, snap)
	if err != nil {
		storeFailed("badges", uid, err)
	}
	p.cache(e, res.State, snap)
	e.pipeline.Unlock()

	outcome := "ok"
	if fellBack {
		outcome = "fallback"
	}
	metrics.Refreshes.WithLabelValues(outcome).Inc()

	for i := range res.NewlyEarned {
		b := res.NewlyEarned[i]
		metrics.BadgesEarned.WithLabelValues(b.ID).Inc()
		log.Printf("[provider] %s earned badge %s", uid, b.ID)
		p.publish(Event{Type: EventBadge, UserID: uid, Badge: &b})
	}
	p.publishState(uid, res.State)

	return res.State, nil
}

func (p *Provider) fetchSnapshot(ctx context.Context, sess Session) (domain.ActivitySnapshot, bool) {
	if p.source == nil {
		return domain.EmptySnapshot(), false
	}
	snap, err := p.source.Snapshot(ctx, sess.Token)
	if err != nil {
		log.Printf("[provider] snapshot for %s: %v (using local data)", sess.UserID, err)
		return domain.EmptySnapshot(), true
	}
	if snap.Roadmaps == nil {
		snap.Roadmaps = []domain.RoadmapSummary{}
	}
	return snap, false
}

// ─── Awards ─────────────────────────────────────────────────────────────────

// AwardXP grants amount with a free-form reason. Negative amounts fail with
// domain.ErrNegativeXP; zero is recorded.
func (p *Provider) AwardXP(sess Session, amount int64, reason string) (domain.GamificationState, error) {
	if sess.UserID == "" {
		return domain.GamificationState{}, domain.ErrNotAuthenticated
	}
	return p.award(sess.UserID, "custom", func() (domain.GamificationData, error) {
		return p.engine.Award(sess.UserID, amount, reason)
	})
}

// AwardAction grants the reward-table amount for action.
func (p *Provider) AwardAction(sess Session, action domain.Action) (domain.GamificationState, error) {
	if sess.UserID == "" {
		return domain.GamificationState{}, domain.ErrNotAuthenticated
	}
	return p.award(sess.UserID, string(action), func() (domain.GamificationData, error) {
		return p.engine.AwardAction(sess.UserID, action)
	})
}

func (p *Provider) award(uid, source string, grant func() (domain.GamificationData, error)) (domain.GamificationState, error) {
	e := p.lock(uid)

	data, err := grant()
	engine := p.engine
	switch {
	case errors.Is(err, domain.ErrNegativeXP):
		e.pipeline.Unlock()
		metrics.XPRejected.WithLabelValues("negative").Inc()
		return domain.GamificationState{}, err
	case errors.Is(err, domain.ErrUnknownAction):
		e.pipeline.Unlock()
		metrics.XPRejected.WithLabelValues("unknown_action").Inc()
		return domain.GamificationState{}, err
	case gamification.Unreadable(err):
		// Nothing derived from the zero record may reach the store.
		storeFailed("load", uid, err)
		engine = p.engine.ReadOnly()
	case err != nil:
		// The grant is applied in memory even if the write failed.
		storeFailed("award", uid, err)
	}

	var gain *domain.XPGain
	if len(data.XPHistory) > 0 {
		g := data.XPHistory[0]
		gain = &g
		metrics.XPAwarded.WithLabelValues(source).Add(float64(g.Amount))
	}

	e.mu.RLock()
	snap := e.snapshot
	e.mu.RUnlock()

	res, err := engine.BuildState(uid, data, snap)
	if err != nil {
		storeFailed("badges", uid, err)
	}
	p.cache(e, res.State, snap)
	e.pipeline.Unlock()

	if gain != nil {
		p.publish(Event{Type: EventXP, UserID: uid, Gain: gain})
	}
	for i := range res.NewlyEarned {
		b := res.NewlyEarned[i]
		metrics.BadgesEarned.WithLabelValues(b.ID).Inc()
		log.Printf("[provider] %s earned badge %s", uid, b.ID)
		p.publish(Event{Type: EventBadge, UserID: uid, Badge: &b})
	}
	p.publishState(uid, res.State)
	return res.State, nil
}

// ─── Cached View ────────────────────────────────────────────────────────────

// State returns the cached state, or nil before the first refresh, and
// whether a refresh is in flight.
func (p *Provider) State(userID string) (*domain.GamificationState, bool) {
	p.mu.Lock()
	e, ok := p.users[userID]
	p.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, e.refreshing > 0
	}
	st := *e.state
	return &st, e.refreshing > 0
}

// Forget drops the cached view for a user, as on logout. The stored record
// is kept. A pipeline in flight for the user finishes first.
func (p *Provider) Forget(userID string) {
	p.mu.Lock()
	e, ok := p.users[userID]
	p.mu.Unlock()
	if !ok {
		return
	}

	e.pipeline.Lock()
	defer e.pipeline.Unlock()
	p.mu.Lock()
	if p.users[userID] == e {
		delete(p.users, userID)
	}
	p.mu.Unlock()
}

// Sessions returns how many users have a cached view.
func (p *Provider) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}

func (p *Provider) cache(e *userEntry, st domain.GamificationState, snap domain.ActivitySnapshot) {
	e.mu.Lock()
	e.state = &st
	e.snapshot = snap
	e.mu.Unlock()
}

func (p *Provider) publishState(uid string, st domain.GamificationState) {
	p.publish(Event{Type: EventState, UserID: uid, State: &st})
}

func (p *Provider) publish(ev Event) {
	if p.notifier == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.engine.Now().UTC()
	}
	p.notifier.Publish(ev)
}

func storeFailed(op, uid string, err error) {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	log.Printf("[provider] %s for %s: %v", op, uid, err)
}
