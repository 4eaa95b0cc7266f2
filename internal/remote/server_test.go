// ABOUTME: Tests for the remote control server over a real websocket
// ABOUTME: Covers request forwarding, rejection replies, status fan-out and /metrics
package remote

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInjector struct {
	events chan ui.Event
	err    error
}

func (f *fakeInjector) Inject(ev ui.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events <- ev
	return nil
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, inj *fakeInjector) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Name: "test"}, inj, metrics.New())
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		hs.Close()
	})
	return s, hs
}

func controlURL(hs *httptest.Server) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + "/control"
}

func dial(t *testing.T, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(controlURL(hs), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func waitEvent(t *testing.T, inj *fakeInjector) ui.Event {
	t.Helper()
	select {
	case ev := <-inj.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event injected")
		return ui.Event{}
	}
}

func TestRequestBecomesRemoteEvent(t *testing.T) {
	inj := &fakeInjector{events: make(chan ui.Event, 4)}
	_, hs := newTestServer(t, inj)
	conn := dial(t, hs)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command":"seek","position_ms":7000}`)))

	ev := waitEvent(t, inj)
	assert.Equal(t, ui.EventRemote, ev.Kind)
	assert.Equal(t, protocol.RequestSeek, ev.Request.Command)
	assert.Equal(t, int64(7000), ev.Request.PositionMs)
}

func TestRejectedRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown", `{"command":"rewind"}`, "unknown command"},
		{"malformed", `{"command":`, "malformed request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := &fakeInjector{events: make(chan ui.Event, 4)}
			_, hs := newTestServer(t, inj)
			conn := dial(t, hs)

			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.body)))

			env := readEnvelope(t, conn)
			assert.Equal(t, TypeError, env.Type)
			var reply protocol.ErrorReply
			require.NoError(t, json.Unmarshal(env.Payload, &reply))
			assert.Contains(t, reply.Error, tt.want)
			assert.Empty(t, inj.events)
		})
	}
}

func TestInjectFailureReplies(t *testing.T) {
	inj := &fakeInjector{err: errors.New("terminal closed")}
	_, hs := newTestServer(t, inj)
	conn := dial(t, hs)

	require.NoError(t, conn.WriteJSON(protocol.Request{Command: protocol.RequestPause}))

	env := readEnvelope(t, conn)
	assert.Equal(t, TypeError, env.Type)
	assert.Contains(t, string(env.Payload), "terminal closed")
}

func TestLastStatusSentOnConnect(t *testing.T) {
	inj := &fakeInjector{events: make(chan ui.Event, 4)}
	s, hs := newTestServer(t, inj)
	s.Publish(protocol.Status{Session: "abc", State: "paused", PositionMs: 1500})

	conn := dial(t, hs)

	env := readEnvelope(t, conn)
	assert.Equal(t, TypeStatus, env.Type)
	var status protocol.Status
	require.NoError(t, json.Unmarshal(env.Payload, &status))
	assert.Equal(t, "abc", status.Session)
	assert.Equal(t, "paused", status.State)
	assert.Equal(t, int64(1500), status.PositionMs)
}

func TestPublishFansOut(t *testing.T) {
	inj := &fakeInjector{events: make(chan ui.Event, 4)}
	s, hs := newTestServer(t, inj)
	a := dial(t, hs)
	b := dial(t, hs)

	// a forwarded request proves each handler has registered its client
	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.WriteJSON(protocol.Request{Command: protocol.RequestToggle}))
		waitEvent(t, inj)
	}

	s.Publish(protocol.Status{State: "playing", PositionMs: 42})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, TypeStatus, env.Type)
		assert.Contains(t, string(env.Payload), `"position_ms":42`)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	inj := &fakeInjector{events: make(chan ui.Event, 1)}
	_, hs := newTestServer(t, inj)

	resp, err := http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "termvid_frames_rendered_total")
}

func TestStartOnEphemeralPort(t *testing.T) {
	s := New(Config{Port: 0, Name: "test"}, &fakeInjector{events: make(chan ui.Event, 1)}, nil)
	require.NoError(t, s.Start())
	defer s.Close()

	assert.NotZero(t, s.Port())

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(s.Port()) + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConnectAfterCloseRejected(t *testing.T) {
	s, hs := newTestServer(t, &fakeInjector{events: make(chan ui.Event, 1)})
	require.NoError(t, s.Close())

	conn := dial(t, hs)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	assert.Empty(t, s.clients)
}

func TestCloseWhileClientsConnect(t *testing.T) {
	s, hs := newTestServer(t, &fakeInjector{events: make(chan ui.Event, 8)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(controlURL(hs), nil)
			if err != nil {
				return
			}
			defer conn.Close()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, _ = conn.ReadMessage()
		}()
	}

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	wg.Wait()
}
