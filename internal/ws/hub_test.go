package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ranne1/guitar-codes/internal/game"
	"github.com/ranne1/guitar-codes/internal/service"
	"github.com/ranne1/guitar-codes/internal/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestHub(t *testing.T, opts game.Options) (*Hub, *game.SessionManager, *httptest.Server) {
	t.Helper()

	store := storage.NewMemoryScoreStore()
	rec := service.NewRecordService(store, service.Config{}, zap.NewNop())
	sessions := game.NewSessionManager(rec, opts)
	hub := NewHub(sessions, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, strings.TrimPrefix(r.URL.Path, "/ws/"))
	}))
	t.Cleanup(srv.Close)
	return hub, sessions, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg inbound
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, want, msg.Type, string(msg.Payload))
	return msg.Payload
}

func TestHub_PlayRoundAndComplete(t *testing.T) {
	_, sessions, srv := newTestHub(t, game.Options{})
	sess := sessions.Create(context.Background(), game.ModeFretboardMatch, "Ann")

	conn := dial(t, srv, sess.ID)
	readType(t, conn, "session_state")

	require.NoError(t, conn.WriteJSON(Envelope{Type: "start"}))
	var started game.SessionSnapshot
	require.NoError(t, json.Unmarshal(readType(t, conn, "session_state"), &started))
	require.Equal(t, game.StateTiming, started.State)
	require.True(t, started.IsActive)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "answer", Payload: AnswerPayload{Correct: true}}))
	var resolved RoundResolvedPayload
	require.NoError(t, json.Unmarshal(readType(t, conn, "round_resolved"), &resolved))
	require.True(t, resolved.Correct)
	require.Equal(t, 100, resolved.Points)
	require.Equal(t, 100, resolved.Session.TotalScore)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "bonus"}))
	readType(t, conn, "bonus_applied")

	require.NoError(t, conn.WriteJSON(Envelope{Type: "complete"}))
	var done game.Completion
	require.NoError(t, json.Unmarshal(readType(t, conn, "completed"), &done))
	require.True(t, done.Persisted)
	require.True(t, done.IsNewRecord)
	require.Equal(t, 150, done.FinalScore)
	require.Equal(t, 150, done.BestScore)
	require.Equal(t, 1, done.Rank)
	require.Equal(t, "Ann", done.PlayerName)
}

func TestHub_RoundTimesOut(t *testing.T) {
	_, sessions, srv := newTestHub(t, game.Options{MaxTime: 50 * time.Millisecond})
	sess := sessions.Create(context.Background(), game.ModeNoteMatch, "")

	conn := dial(t, srv, sess.ID)
	readType(t, conn, "session_state")

	require.NoError(t, conn.WriteJSON(Envelope{Type: "start"}))
	readType(t, conn, "session_state")

	var snap game.SessionSnapshot
	require.NoError(t, json.Unmarshal(readType(t, conn, "round_timeout"), &snap))
	require.Equal(t, game.StateResolved, snap.State)
	require.Equal(t, 0, snap.TotalScore)
}

func TestHub_RejectsBadMessages(t *testing.T) {
	_, sessions, srv := newTestHub(t, game.Options{})
	sess := sessions.Create(context.Background(), game.ModeChordInput, "")

	conn := dial(t, srv, sess.ID)
	readType(t, conn, "session_state")

	require.NoError(t, conn.WriteJSON(Envelope{Type: "answer", Payload: AnswerPayload{Correct: true}}))
	readType(t, conn, "error")

	require.NoError(t, conn.WriteJSON(Envelope{Type: "dance"}))
	readType(t, conn, "error")
}

func TestHub_DisconnectDiscardsSession(t *testing.T) {
	_, sessions, srv := newTestHub(t, game.Options{})
	sess := sessions.Create(context.Background(), game.ModeChordInput, "")

	conn := dial(t, srv, sess.ID)
	readType(t, conn, "session_state")
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, ok := sessions.Get(sess.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ConnectedSessionSurvivesSweep(t *testing.T) {
	_, sessions, srv := newTestHub(t, game.Options{})
	live := sessions.Create(context.Background(), game.ModeChordInput, "")
	idle := sessions.Create(context.Background(), game.ModeChordInput, "")

	conn := dial(t, srv, live.ID)
	readType(t, conn, "session_state")

	require.Equal(t, 1, sessions.SweepDetached(-time.Second))

	_, ok := sessions.Get(live.ID)
	require.True(t, ok)
	_, ok = sessions.Get(idle.ID)
	require.False(t, ok)
}
