package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/infra/metrics"
)

const (
	liveBuffer       = 16
	liveWriteTimeout = 10 * time.Second
)

// Hub fans provider events out to each user's websocket subscribers.
// It implements provider.Notifier.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// subscriber is one live connection. Only its writer goroutine touches conn
// for writes.
type subscriber struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan interface{}
	once   sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish queues ev for every subscriber of ev.UserID. Slow subscribers
// drop events rather than block the pipeline.
func (h *Hub) Publish(ev provider.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.UserID] {
		select {
		case sub.send <- ev:
		default:
			log.Printf("[live] subscriber %s lagging, dropped %s event", sub.id, ev.Type)
		}
	}
}

// Count returns the number of open subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	set, ok := h.subs[sub.userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sub.userID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	metrics.LiveSubscribers.Inc()
}

func (h *Hub) unregister(sub *subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs[sub.userID], sub)
		if len(h.subs[sub.userID]) == 0 {
			delete(h.subs, sub.userID)
		}
		close(sub.send)
		h.mu.Unlock()
		metrics.LiveSubscribers.Dec()
	})
}

// handleLive upgrades to a websocket and streams the user's events.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFrom(r.Context())

	upgrader := websocket.Upgrader{CheckOrigin: s.originAllowed}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade: %v", err)
		return
	}

	sub := &subscriber{
		id:     uuid.NewString(),
		userID: sess.UserID,
		conn:   conn,
		send:   make(chan interface{}, liveBuffer),
	}

	sub.send <- map[string]interface{}{
		"type":         "connected",
		"userId":       sess.UserID,
		"subscriberId": sub.id,
	}
	if st, _ := s.provider.State(sess.UserID); st != nil {
		sub.send <- provider.Event{Type: provider.EventState, UserID: sess.UserID, State: st, Timestamp: time.Now().UTC()}
	}
	s.hub.register(sub)

	go sub.writeLoop()

	// Read until the client goes away; inbound messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[live] subscriber %s: %v", sub.id, err)
			}
			break
		}
	}
	s.hub.unregister(sub)
}

func (sub *subscriber) writeLoop() {
	defer sub.conn.Close()
	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		if err := sub.conn.WriteJSON(msg); err != nil {
			log.Printf("[live] write to %s: %v", sub.id, err)
			return
		}
	}
	sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
