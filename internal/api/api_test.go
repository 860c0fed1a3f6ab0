package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/studyplatform/xpd/internal/app/gamification"
	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/domain"
	"github.com/studyplatform/xpd/internal/health"
	"github.com/studyplatform/xpd/internal/infra/memkv"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	srv      *Server
	provider *provider.Provider
	kv       *memkv.Store
	http     *httptest.Server
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	kv := memkv.New()
	engine := gamification.NewEngine(gamification.NewStore(kv))
	engine.SetClock(func() time.Time { return fixedNow })

	p := provider.New(engine, nil)
	srv := NewServer(p, NewAuthenticator(secret))
	srv.SetVersion("1.2.3")

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return &testEnv{srv: srv, provider: p, kv: kv, http: hs}
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req, _ := http.NewRequest(method, e.http.URL+path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env testEnvelope
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func decodeState(t *testing.T, raw json.RawMessage) domain.GamificationState {
	t.Helper()
	var st domain.GamificationState
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state: %v (%s)", err, raw)
	}
	return st
}

// ═══════════════════════════════════════════════════════════════════════════
// Public endpoints
// ═══════════════════════════════════════════════════════════════════════════

func TestHealth_NoChecker(t *testing.T) {
	env := newTestEnv(t, testSecret)
	resp, err := http.Get(env.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, testSecret)
	env.kv.Fail(errors.New("locked"))
	checker := health.NewChecker(env.kv, "", nil)
	checker.RunOnce(t.Context())
	env.srv.SetHealth(checker)

	resp, err := http.Get(env.http.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var body struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "degraded" || len(body.Checks) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, testSecret)
	code, body := env.do(t, "GET", "/api/version", "", nil)
	if code != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, body = %+v", code, body)
	}
	if !strings.Contains(string(body.Data), "1.2.3") {
		t.Errorf("data = %s, want version 1.2.3", body.Data)
	}
}

func TestStaticTables(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tests := []struct {
		path string
		want int
	}{
		{"/api/gamification/levels", len(gamification.Levels())},
		{"/api/gamification/rewards", len(domain.Rewards())},
		{"/api/gamification/badges", len(gamification.Catalog())},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := env.do(t, "GET", tt.path, "", nil)
			if code != http.StatusOK {
				t.Fatalf("status = %d, want 200", code)
			}
			var items []json.RawMessage
			if err := json.Unmarshal(body.Data, &items); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(items) != tt.want {
				t.Errorf("items = %d, want %d", len(items), tt.want)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Authentication
// ═══════════════════════════════════════════════════════════════════════════

func TestAuth(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", signToken(t, "other", jwt.MapClaims{"userId": "u1"}), http.StatusUnauthorized},
		{"no user claim", signToken(t, testSecret, jwt.MapClaims{"role": "student"}), http.StatusUnauthorized},
		{"userId claim", signToken(t, testSecret, jwt.MapClaims{"userId": "u1"}), http.StatusOK},
		{"sub claim", signToken(t, testSecret, jwt.MapClaims{"sub": "u2"}), http.StatusOK},
		{"numeric id", signToken(t, testSecret, jwt.MapClaims{"id": 42}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, "GET", "/api/gamification/", tt.token, nil)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, body.Message)
			}
		})
	}
}

func TestAuth_UserIDClaims(t *testing.T) {
	a := NewAuthenticator(testSecret)
	tests := []struct {
		claims jwt.MapClaims
		want   string
	}{
		{jwt.MapClaims{"userId": "abc", "sub": "zzz"}, "abc"},
		{jwt.MapClaims{"id": "def"}, "def"},
		{jwt.MapClaims{"id": 42.0}, "42"},
		{jwt.MapClaims{"userId": "", "sub": "ghi"}, "ghi"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, tt.claims))
		sess, err := a.Session(r)
		if err != nil {
			t.Fatalf("Session(%v): %v", tt.claims, err)
		}
		if sess.UserID != tt.want {
			t.Errorf("UserID = %q, want %q", sess.UserID, tt.want)
		}
	}
}

func TestAuth_Unverified(t *testing.T) {
	a := NewAuthenticator("")
	if a.Verifies() {
		t.Fatal("Verifies() = true with empty secret")
	}
	r := httptest.NewRequest("GET", "/?token="+signToken(t, "anything", jwt.MapClaims{"sub": "u9"}), nil)
	sess, err := a.Session(r)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.UserID != "u9" {
		t.Errorf("UserID = %q, want u9", sess.UserID)
	}
}

func TestAuth_InvalidTokenError(t *testing.T) {
	a := NewAuthenticator(testSecret)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "other", jwt.MapClaims{"sub": "u"}))
	if _, err := a.Session(r); !errors.Is(err, domain.ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if _, err := a.Session(r); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Gamification endpoints
// ═══════════════════════════════════════════════════════════════════════════

func TestGetState_FirstCallRefreshes(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	code, body := env.do(t, "GET", "/api/gamification/", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, body.Message)
	}
	var resp struct {
		State   *domain.GamificationState `json:"state"`
		Loading bool                      `json:"loading"`
	}
	json.Unmarshal(body.Data, &resp)
	if resp.State == nil {
		t.Fatal("state is nil")
	}
	if resp.Loading {
		t.Error("loading = true after a completed refresh")
	}
	// Empty snapshot: only the daily login counts.
	if resp.State.XP != 15 || resp.State.Streak != 1 {
		t.Errorf("xp=%d streak=%d, want 15/1", resp.State.XP, resp.State.Streak)
	}
	if env.kv.Len() != 1 {
		t.Errorf("stored records = %d, want 1", env.kv.Len())
	}
}

func TestRefresh_Idempotent(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	for i := 0; i < 3; i++ {
		code, body := env.do(t, "POST", "/api/gamification/refresh", tok, nil)
		if code != http.StatusOK {
			t.Fatalf("refresh %d: status = %d", i, code)
		}
		if st := decodeState(t, body.Data); st.XP != 15 {
			t.Errorf("refresh %d: xp = %d, want 15", i, st.XP)
		}
	}
}

func TestAwardXP(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	code, body := env.do(t, "POST", "/api/gamification/xp", tok, map[string]interface{}{"amount": 40, "reason": "Quiz"})
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, body.Message)
	}
	st := decodeState(t, body.Data)
	if st.XP != 40 {
		t.Errorf("xp = %d, want 40", st.XP)
	}
	if len(st.RecentXPGains) != 1 || st.RecentXPGains[0].Reason != "Quiz" {
		t.Errorf("recent gains = %+v", st.RecentXPGains)
	}
}

func TestAwardXP_BadRequests(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	tests := []struct {
		name string
		body interface{}
	}{
		{"negative", map[string]interface{}{"amount": -5, "reason": "x"}},
		{"missing amount", map[string]interface{}{"reason": "x"}},
		{"malformed", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, "POST", "/api/gamification/xp", tok, tt.body)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
			if body.Success {
				t.Error("success = true on a rejected request")
			}
		})
	}
	if env.kv.Len() != 0 {
		t.Errorf("stored records = %d, want 0", env.kv.Len())
	}
}

func TestAwardAction(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	code, body := env.do(t, "POST", "/api/gamification/actions/ASK_DOUBT", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d (%s)", code, body.Message)
	}
	st := decodeState(t, body.Data)
	if st.XP != 25 || st.RecentXPGains[0].Reason != "Asked a doubt" {
		t.Errorf("state = xp %d gains %+v", st.XP, st.RecentXPGains)
	}

	code, _ = env.do(t, "POST", "/api/gamification/actions/LEVEL_SKIP", tok, nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown action status = %d, want 404", code)
	}
}

func TestForgetSession(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	env.do(t, "POST", "/api/gamification/refresh", tok, nil)
	if env.provider.Sessions() != 1 {
		t.Fatalf("sessions = %d, want 1", env.provider.Sessions())
	}
	code, _ := env.do(t, "DELETE", "/api/gamification/session", tok, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if env.provider.Sessions() != 0 {
		t.Errorf("sessions = %d, want 0", env.provider.Sessions())
	}
	if env.kv.Len() != 1 {
		t.Error("forgetting a session must keep the stored record")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Transport
// ═══════════════════════════════════════════════════════════════════════════

func TestMetricsEndpoint(t *testing.T) {
	kv := memkv.New()
	p := provider.New(gamification.NewEngine(gamification.NewStore(kv)), nil)
	srv := NewServer(p, NewAuthenticator(testSecret))
	srv.EnableMetrics()
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	resp, err := http.Get(hs.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsDisabledByDefault(t *testing.T) {
	env := newTestEnv(t, testSecret)
	resp, err := http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, testSecret)
	env.srv.SetCORSOrigins([]string{"http://app.test"})
	hs := httptest.NewServer(env.srv.Handler())
	defer hs.Close()

	preflight := func(origin string) string {
		req, _ := http.NewRequest("OPTIONS", hs.URL+"/api/gamification/xp", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.Header.Get("Access-Control-Allow-Origin")
	}

	if got := preflight("http://app.test"); got != "http://app.test" {
		t.Errorf("allowed origin header = %q", got)
	}
	if got := preflight("http://evil.test"); got != "" {
		t.Errorf("disallowed origin header = %q, want empty", got)
	}
}

func TestOriginAllowed(t *testing.T) {
	s := &Server{corsOrigins: []string{"http://app.test"}}
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://app.test", true},
		{"http://evil.test", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := s.originAllowed(r); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestLiveFeed(t *testing.T) {
	env := newTestEnv(t, testSecret)
	tok := signToken(t, testSecret, jwt.MapClaims{"userId": "u1"})

	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/gamification/live?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]interface{}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello["type"] != "connected" || hello["userId"] != "u1" {
		t.Fatalf("hello = %v", hello)
	}
	if env.srv.Hub().Count() != 1 {
		t.Errorf("subscribers = %d, want 1", env.srv.Hub().Count())
	}

	if code, _ := env.do(t, "POST", "/api/gamification/actions/CREATE_ROADMAP", tok, nil); code != http.StatusOK {
		t.Fatalf("award status = %d", code)
	}

	var types []provider.EventType
	for len(types) < 2 {
		var ev provider.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		types = append(types, ev.Type)
		if ev.Type == provider.EventXP && (ev.Gain == nil || ev.Gain.Amount != 100) {
			t.Errorf("xp event gain = %+v", ev.Gain)
		}
		if ev.Type == provider.EventState && ev.State.XP != 100 {
			t.Errorf("state event xp = %d, want 100", ev.State.XP)
		}
	}
	if types[0] != provider.EventXP || types[1] != provider.EventState {
		t.Errorf("event order = %v, want [xp state]", types)
	}
}

func TestLiveFeed_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, testSecret)
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/api/gamification/live"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without a token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %v, want 401", resp)
	}
}

func TestHub_PublishDropsWhenFull(t *testing.T) {
	h := NewHub()
	sub := &subscriber{id: "s1", userID: "u1", send: make(chan interface{}, 1)}
	h.register(sub)
	defer h.unregister(sub)

	h.Publish(provider.Event{Type: provider.EventState, UserID: "u1"})
	h.Publish(provider.Event{Type: provider.EventState, UserID: "u1"})
	h.Publish(provider.Event{Type: provider.EventState, UserID: "other"})

	if len(sub.send) != 1 {
		t.Errorf("queued = %d, want 1", len(sub.send))
	}
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	h := NewHub()
	sub := &subscriber{id: "s1", userID: "u1", send: make(chan interface{}, 1)}
	h.register(sub)
	h.unregister(sub)
	h.unregister(sub)
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
}
