package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/auth"
	"github.com/dkeye/Proctor/internal/config"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/dkeye/Proctor/internal/metrics"
)

type testServer struct {
	srv      *httptest.Server
	verifier *auth.Verifier
	orch     *orch.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		PingPeriod: time.Second,
		PongWait:   2 * time.Second,
		WriteWait:  time.Second,
		SendBuffer: 16,
		Secret:     "cookie-secret-cookie-secret-1234",
	}
	rec := metrics.New()
	o := orch.New(app.NewRegistry(), app.NewGroupHub())
	o.Metrics = rec
	v := auth.NewVerifier("jwt-secret", "proctor")
	gate := &auth.Gate{Verifier: v, OnReject: rec.GateRejected}

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, o, gate, rec))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testServer{srv: srv, verifier: v, orch: o}
}

func (ts *testServer) token(t *testing.T, user string, role domain.Role) string {
	t.Helper()
	tok, err := ts.verifier.Issue(domain.Identity{UserID: domain.UserID(user), Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + path
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads messages until one of type ev arrives.
func next(t *testing.T, conn *websocket.Conn, ev orch.Event) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, conn.ReadJSON(&m))
		if m["type"] == string(ev) {
			return m
		}
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string       `json:"status"`
		Stats  domain.Stats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, domain.Stats{}, body.Stats)
}

func TestGateRefusesBeforeUpgrade(t *testing.T) {
	ts := newTestServer(t)
	base := "ws" + strings.TrimPrefix(ts.srv.URL, "http")

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{name: "exam without token", url: base + "/ws/exam", wantStatus: http.StatusUnauthorized},
		{name: "exam with bad token", url: base + "/ws/exam?token=bad", wantStatus: http.StatusUnauthorized},
		{name: "admin as student", url: base + "/ws/admin?token=" + ts.token(t, "s1", domain.RoleStudent), wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tt.url, nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, ts.orch.Stats().Total)
}

func TestRosterRequiresAdmin(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/exams/EX1/roster", nil)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, "s1", domain.RoleStudent))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer "+ts.token(t, "a1", domain.RoleAdmin))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExamFlowOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	admin := ts.dial(t, "/ws/admin", ts.token(t, "boss", domain.RoleAdmin))
	state := next(t, admin, orch.EventExamState)
	assert.Equal(t, 1.0, state["stats"].(map[string]any)["admins"])

	s1 := ts.dial(t, "/ws/exam", ts.token(t, "u1", domain.RoleStudent))
	require.NoError(t, s1.WriteJSON(map[string]any{"type": "join-exam", "examId": "EX1"}))
	ack := next(t, s1, orch.EventExamState)
	assert.Equal(t, "EX1", ack["examId"])
	joined := next(t, admin, orch.EventUserJoined)
	assert.Equal(t, "u1", joined["userId"])
	assert.Equal(t, 1.0, joined["totalInRoom"])

	s2 := ts.dial(t, "/ws/exam", ts.token(t, "u2", domain.RoleStudent))
	require.NoError(t, s2.WriteJSON(map[string]any{"type": "join-exam", "examId": "EX1"}))
	next(t, s2, orch.EventExamState)
	peer := next(t, s1, orch.EventUserJoined)
	assert.Equal(t, "u2", peer["userId"])
	assert.Equal(t, 2.0, next(t, admin, orch.EventUserJoined)["totalInRoom"])

	require.NoError(t, s2.Close())
	left := next(t, s1, orch.EventUserLeft)
	assert.Equal(t, "u2", left["userId"])
	assert.Equal(t, 1.0, next(t, admin, orch.EventUserLeft)["remainingInRoom"])

	roster := ts.orch.Roster("EX1")
	require.Len(t, roster, 1)
	assert.Equal(t, domain.UserID("u1"), roster[0].UserID)
}

func TestMobileBridgeOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	admin := ts.dial(t, "/ws/admin", ts.token(t, "boss", domain.RoleAdmin))
	next(t, admin, orch.EventExamState)
	require.NoError(t, admin.WriteJSON(map[string]any{"type": "monitor-exam", "examId": "EX1"}))
	next(t, admin, orch.EventExamState)

	laptop := ts.dial(t, "/ws/exam", ts.token(t, "u1", domain.RoleStudent))
	require.NoError(t, laptop.WriteJSON(map[string]any{"type": "mobile-join", "sessionId": "SID1"}))
	require.NoError(t, laptop.WriteJSON(map[string]any{"type": "ping"}))
	next(t, laptop, orch.EventPong)

	mobile := ts.dial(t, "/ws/mobile", "")
	require.NoError(t, mobile.WriteJSON(map[string]any{"type": "mobile-join", "sessionId": "SID1"}))
	connected := next(t, laptop, orch.EventMobileConnected)
	assert.NotEmpty(t, connected["deviceIdentifier"])

	require.NoError(t, mobile.WriteJSON(map[string]any{
		"type": "violation-alert", "sessionId": "SID1", "violation": "second_person",
		"confidence": 0.8, "timestamp": 1700000000000, "examId": "EX1",
	}))
	got := next(t, laptop, orch.EventViolationDetected)
	assert.Equal(t, "anonymous", got["userId"])
	adm := next(t, admin, orch.EventViolationDetected)
	assert.Equal(t, "second_person", adm["violation"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
