package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDwell is how long an image must stay on screen to count as viewed
const DefaultDwell = 2 * time.Second

const markViewedTimeout = 10 * time.Second

// ViewState is the lifecycle state of one displayed image
type ViewState string

const (
	ViewStateLoading   ViewState = "loading"
	ViewStateReady     ViewState = "ready"
	ViewStateTiming    ViewState = "timing"
	ViewStateViewed    ViewState = "viewed"
	ViewStateCancelled ViewState = "cancelled"
)

// ViewSession tracks one image on one screen:
// loading -> ready -> timing -> viewed, or cancelled from any non-terminal state.
type ViewSession struct {
	mu          sync.Mutex
	imageID     string
	recipientID string
	dwell       time.Duration
	state       ViewState
	timer       *time.Timer
	onDwell     func(s *ViewSession)
	done        chan struct{}
}

func newViewSession(imageID, recipientID string, dwell time.Duration, onDwell func(s *ViewSession)) *ViewSession {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &ViewSession{
		imageID:     imageID,
		recipientID: recipientID,
		dwell:       dwell,
		state:       ViewStateLoading,
		onDwell:     onDwell,
		done:        make(chan struct{}),
	}
}

// ImageID returns the displayed image
func (s *ViewSession) ImageID() string { return s.imageID }

// State returns the current state
func (s *ViewSession) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reaches a terminal state
func (s *ViewSession) Done() <-chan struct{} {
	return s.done
}

// Ready marks the image as rendered and starts the dwell timer
func (s *ViewSession) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ViewStateLoading {
		return false
	}
	s.state = ViewStateReady
	s.startTimer()
	return true
}

// startTimer moves a ready session to timing. Caller holds s.mu.
func (s *ViewSession) startTimer() {
	s.state = ViewStateTiming
	s.timer = time.AfterFunc(s.dwell, s.fire)
}

// Cancel stops the session. The image stays undelivered.
func (s *ViewSession) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal() {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = ViewStateCancelled
	close(s.done)
	return true
}

func (s *ViewSession) fire() {
	s.mu.Lock()
	if s.state != ViewStateTiming {
		s.mu.Unlock()
		return
	}
	s.state = ViewStateViewed
	s.mu.Unlock()

	defer close(s.done)
	if s.onDwell != nil {
		s.onDwell(s)
	}
}

func (s *ViewSession) terminal() bool {
	return s.state == ViewStateViewed || s.state == ViewStateCancelled
}

type viewKey struct {
	connID      string
	recipientID string
	imageID     string
}

// ViewTracker owns the view sessions of every live connection
type ViewTracker struct {
	mu       sync.Mutex
	images   *ImageService
	dwell    time.Duration
	sessions map[viewKey]*ViewSession
}

// NewViewTracker creates a tracker marking images viewed after dwell
func NewViewTracker(images *ImageService, dwell time.Duration) *ViewTracker {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &ViewTracker{
		images:   images,
		dwell:    dwell,
		sessions: make(map[viewKey]*ViewSession),
	}
}

// Ready starts timing the image for the recipient on the connection.
// Calling it again while a session is live returns that session.
func (t *ViewTracker) Ready(ctx context.Context, connID, recipientID, imageID string) (*ViewSession, error) {
	key := viewKey{connID: connID, recipientID: recipientID, imageID: imageID}

	t.mu.Lock()
	if existing, ok := t.sessions[key]; ok {
		t.mu.Unlock()
		return existing, nil
	}
	t.mu.Unlock()

	if _, err := t.images.pendingShare(ctx, imageID, recipientID); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.sessions[key]; ok {
		return existing, nil
	}

	session := newViewSession(imageID, recipientID, t.dwell, func(s *ViewSession) {
		t.remove(key, s)
		markCtx, cancel := context.WithTimeout(context.Background(), markViewedTimeout)
		defer cancel()
		if _, err := t.images.MarkViewed(markCtx, s.imageID, s.recipientID); err != nil {
			log.Error().
				Err(err).
				Str("image_id", s.imageID).
				Str("recipient_id", s.recipientID).
				Msg("Failed to mark image viewed after dwell")
		}
	})
	t.sessions[key] = session
	session.Ready()
	return session, nil
}

// Hidden cancels the session of an image that left the screen
func (t *ViewTracker) Hidden(connID, recipientID, imageID string) bool {
	key := viewKey{connID: connID, recipientID: recipientID, imageID: imageID}

	t.mu.Lock()
	session, ok := t.sessions[key]
	delete(t.sessions, key)
	t.mu.Unlock()

	if !ok {
		return false
	}
	return session.Cancel()
}

// CancelConnection cancels every session of a closed connection
func (t *ViewTracker) CancelConnection(connID string) int {
	t.mu.Lock()
	var sessions []*ViewSession
	for key, session := range t.sessions {
		if key.connID == connID {
			sessions = append(sessions, session)
			delete(t.sessions, key)
		}
	}
	t.mu.Unlock()

	cancelled := 0
	for _, session := range sessions {
		if session.Cancel() {
			cancelled++
		}
	}
	return cancelled
}

// Close cancels every session
func (t *ViewTracker) Close() {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = make(map[viewKey]*ViewSession)
	t.mu.Unlock()

	for _, session := range sessions {
		session.Cancel()
	}
}

func (t *ViewTracker) remove(key viewKey, session *ViewSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions[key] == session {
		delete(t.sessions, key)
	}
}
