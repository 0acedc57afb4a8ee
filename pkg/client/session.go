package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gamelearn/analytics/internal/models"
)

// Close reasons reported to the backend.
const (
	CloseReasonUnmount    = "unmount"
	CloseReasonUnload     = "unload"
	CloseReasonInactivity = "inactivity"
)

// Session is a tracked window of user activity. It pings the backend
// periodically while active, auto-closes after the inactivity timeout, and
// guarantees the session end is reported at most once no matter how many
// teardown paths race to close it.
type Session struct {
	client    *Client
	id        string
	subjectID string
	startedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu           sync.Mutex
	lastActivity time.Time
	closed       bool
}

// StartSession opens a session for subject and starts its background
// ping/watchdog loop. The caller must Close the session; a forgotten
// session is eventually closed server-side by the idle sweep.
func (c *Client) StartSession(ctx context.Context, subjectID string) (*Session, error) {
	req := models.OpenSessionRequest{SubjectID: subjectID}
	var resp models.OpenSessionResponse
	if err := c.doJSON(ctx, "POST", "/api/sessions", &req, &resp); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:       c,
		id:           resp.SessionID,
		subjectID:    subjectID,
		startedAt:    resp.StartedAt,
		cancel:       cancel,
		done:         make(chan struct{}),
		lastActivity: time.Now().UTC(),
	}
	go s.run(loopCtx)
	return s, nil
}

// ID returns the server-assigned session ID.
func (s *Session) ID() string { return s.id }

// StartedAt returns the server-recorded session start.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Touch records user activity. Cheap; call it from input event handlers.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now().UTC()
	s.mu.Unlock()
}

// VisibilityChange handles a tab/window visibility flip. Going hidden
// counts as activity, not as an exit: the user may come straight back, so
// the session pings immediately instead of closing.
func (s *Session) VisibilityChange(ctx context.Context, hidden bool) {
	s.Touch()
	if hidden {
		s.ping(ctx)
	}
}

// Close reports the session end exactly once with the given reason.
// Duration is measured from the session start. Subsequent calls (unmount
// cleanup and an unload handler both reach here) are no-ops.
func (s *Session) Close(ctx context.Context, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done

	if reason == "" {
		reason = CloseReasonUnmount
	}
	duration := int64(time.Since(s.startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	req := models.CloseSessionRequest{DurationSeconds: duration, Reason: reason}
	if err := s.client.doJSON(ctx, "POST", "/api/sessions/"+s.id+"/close", &req, nil); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// run pings the backend while the session is live and closes the session
// when the inactivity window lapses with no Touch.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.client.opts.SessionPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastActivity)
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}

			if idle >= s.client.opts.SessionIdleTimeout {
				// Watchdog close runs off the loop's own context; Close
				// cancels ctx, so give the final report a fresh deadline.
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = s.closeFromWatchdog(closeCtx)
				cancel()
				return
			}

			s.ping(ctx)
		}
	}
}

// closeFromWatchdog performs the inactivity close without waiting on the
// run loop (which is the caller).
func (s *Session) closeFromWatchdog(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	duration := int64(time.Since(s.startedAt).Seconds())
	req := models.CloseSessionRequest{DurationSeconds: duration, Reason: CloseReasonInactivity}
	return s.client.doJSON(ctx, "POST", "/api/sessions/"+s.id+"/close", &req, nil)
}

// ping reports liveness; failures are swallowed (the next tick retries and
// the server-side idle sweep is the backstop).
func (s *Session) ping(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = s.client.doJSON(pingCtx, "POST", "/api/sessions/"+s.id+"/activity", &struct{}{}, nil)
}
