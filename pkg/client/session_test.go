package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gamelearn/analytics/internal/models"
)

// sessionServer records session lifecycle calls.
type sessionServer struct {
	mu       sync.Mutex
	pings    int
	closes   []models.CloseSessionRequest
	closedCh chan struct{}
}

func newSessionServer(t *testing.T) (*httptest.Server, *sessionServer) {
	t.Helper()
	state := &sessionServer{closedCh: make(chan struct{}, 4)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.OpenSessionResponse{
			SessionID: "sess-1",
			StartedAt: time.Now().UTC(),
		})
	})
	mux.HandleFunc("POST /api/sessions/{id}/activity", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		state.pings++
		state.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	mux.HandleFunc("POST /api/sessions/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		var req models.CloseSessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		state.mu.Lock()
		state.closes = append(state.closes, req)
		state.mu.Unlock()
		state.closedCh <- struct{}{}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, state
}

func sessionTestClient(t *testing.T, baseURL string, ping, idle time.Duration) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:             baseURL,
		APIKey:              "test-key",
		SessionPingInterval: ping,
		SessionIdleTimeout:  idle,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSessionCloseIdempotent(t *testing.T) {
	server, state := newSessionServer(t)
	c := sessionTestClient(t, server.URL, time.Hour, time.Hour)

	session, err := c.StartSession(context.Background(), "student-1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// Unmount cleanup and an unload handler both close; the end must be
	// reported exactly once.
	if err := session.Close(context.Background(), CloseReasonUnmount); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := session.Close(context.Background(), CloseReasonUnload); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.closes) != 1 {
		t.Fatalf("server saw %d close reports, want exactly 1", len(state.closes))
	}
	if state.closes[0].Reason != CloseReasonUnmount {
		t.Errorf("close reason = %q, want unmount (first close wins)", state.closes[0].Reason)
	}
}

func TestSessionInactivityWatchdog(t *testing.T) {
	server, state := newSessionServer(t)
	c := sessionTestClient(t, server.URL, 10*time.Millisecond, 30*time.Millisecond)

	_, err := c.StartSession(context.Background(), "student-2")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// No Touch: the watchdog must close the session with reason inactivity.
	select {
	case <-state.closedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog never closed the idle session")
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if len(state.closes) != 1 || state.closes[0].Reason != CloseReasonInactivity {
		t.Fatalf("closes = %+v, want one inactivity close", state.closes)
	}
}

func TestSessionPingsWhileActive(t *testing.T) {
	server, state := newSessionServer(t)
	c := sessionTestClient(t, server.URL, 10*time.Millisecond, time.Hour)

	session, err := c.StartSession(context.Background(), "student-3")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	defer session.Close(context.Background(), "")

	// Keep the session active across several ping intervals.
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		session.Touch()
		time.Sleep(5 * time.Millisecond)
	}

	state.mu.Lock()
	pings := state.pings
	state.mu.Unlock()
	if pings == 0 {
		t.Error("no activity pings reached the server")
	}
}

func TestSessionVisibilityChangePings(t *testing.T) {
	server, state := newSessionServer(t)
	c := sessionTestClient(t, server.URL, time.Hour, time.Hour)

	session, err := c.StartSession(context.Background(), "student-4")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	defer session.Close(context.Background(), "")

	// Tab going hidden reports activity immediately instead of closing.
	session.VisibilityChange(context.Background(), true)

	state.mu.Lock()
	pings := state.pings
	closes := len(state.closes)
	state.mu.Unlock()
	if pings != 1 {
		t.Errorf("pings = %d, want 1 immediate ping on hide", pings)
	}
	if closes != 0 {
		t.Errorf("visibility change closed the session")
	}
}
