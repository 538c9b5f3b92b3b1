// Package session tracks connected users. Each session owns a goroutine that
// runs posted tasks one at a time, so presenting to a user never races with itself.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/ilindan-dev/auction-watchlist/internal/notifiers"
	"github.com/ilindan-dev/auction-watchlist/internal/notify"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

const (
	mailboxSize = 64
	sendTimeout = 10 * time.Second
)

var _ notify.Session = (*Session)(nil)

// Session is one connected user and its task mailbox.
type Session struct {
	info     model.Session
	mu       sync.RWMutex
	closed   bool
	tasks    chan func(notify.Presenter)
	notifier notifiers.Notifier
	logger   zerolog.Logger
}

// UserID returns the connected user's ID.
func (s *Session) UserID() uuid.UUID {
	return s.info.UserID
}

// Info returns a copy of the session details.
func (s *Session) Info() model.Session {
	return s.info
}

// Post queues task for the session goroutine. It returns false once the session is closed.
// Post blocks while the mailbox is full.
func (s *Session) Post(task func(p notify.Presenter)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	s.tasks <- task
	return true
}

// Present sends text through the session's channel. Failures are logged.
func (s *Session) Present(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, &s.info, text); err != nil {
		s.logger.Warn().Err(err).Msg("failed to present message")
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.tasks)
}

// run drains the mailbox until the session is closed. Tasks posted before close still run.
func (s *Session) run() {
	for task := range s.tasks {
		var pc panics.Catcher
		pc.Try(func() { task(s) })
		if r := pc.Recovered(); r != nil {
			s.logger.Error().Str("panic", r.String()).Msg("session task panicked")
		}
	}
}

// Hub owns every connected session.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	wg       conc.WaitGroup
	notifier notifiers.Notifier
	logger   zerolog.Logger
}

// NewHub creates a new instance of Hub.
func NewHub(notifier notifiers.Notifier, logger *zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]*Session),
		notifier: notifier,
		logger:   logger.With().Str("component", "session_hub").Logger(),
	}
}

// Join opens a session for the user. A previous session of the same user is closed first.
func (h *Hub) Join(info *model.Session) *Session {
	s := &Session{
		info:     *info,
		tasks:    make(chan func(notify.Presenter), mailboxSize),
		notifier: h.notifier,
		logger: h.logger.With().
			Stringer("user_id", info.UserID).
			Str("channel", string(info.Channel)).
			Logger(),
	}

	h.mu.Lock()
	prev := h.sessions[info.UserID]
	h.sessions[info.UserID] = s
	h.wg.Go(s.run)
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	s.logger.Info().Bool("replaced", prev != nil).Msg("session joined")
	return s
}

// Leave closes the user's session. It reports whether one was open.
func (h *Hub) Leave(userID uuid.UUID) bool {
	h.mu.Lock()
	s, ok := h.sessions[userID]
	delete(h.sessions, userID)
	h.mu.Unlock()

	if !ok {
		return false
	}
	s.close()
	s.logger.Info().Msg("session left")
	return true
}

// Get returns the user's open session.
func (h *Hub) Get(userID uuid.UUID) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[userID]
	return s, ok
}

// Online reports whether the user has an open session.
func (h *Hub) Online(userID uuid.UUID) bool {
	_, ok := h.Get(userID)
	return ok
}

// Close closes every session and waits until their pending tasks have run or ctx ends.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[uuid.UUID]*Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Int("sessions", len(sessions)).Msg("session hub closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
