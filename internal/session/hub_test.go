package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	"github.com/ilindan-dev/auction-watchlist/internal/notify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	userID uuid.UUID
	text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Send(_ context.Context, recipient *model.Session, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{userID: recipient.UserID, text: text})
	return nil
}

func (r *recordingNotifier) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, s := range r.sent {
		out[i] = s.text
	}
	return out
}

func newTestHub() (*Hub, *recordingNotifier) {
	logger := zerolog.Nop()
	n := &recordingNotifier{}
	return NewHub(n, &logger), n
}

func closeHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Close(ctx))
}

func TestHub_JoinPostPresent(t *testing.T) {
	h, n := newTestHub()
	user := uuid.New()

	s := h.Join(&model.Session{UserID: user, Channel: model.ChannelLog})
	require.True(t, h.Online(user))

	ok := s.Post(func(p notify.Presenter) {
		p.Present("one")
		p.Present("two")
	})
	require.True(t, ok)
	require.True(t, s.Post(func(p notify.Presenter) { p.Present("three") }))

	closeHub(t, h)
	assert.Equal(t, []string{"one", "two", "three"}, n.texts(), "tasks run in post order")
}

func TestHub_PostAfterLeave(t *testing.T) {
	h, n := newTestHub()
	user := uuid.New()
	s := h.Join(&model.Session{UserID: user, Channel: model.ChannelLog})

	require.True(t, h.Leave(user))
	assert.False(t, h.Leave(user))
	assert.False(t, h.Online(user))

	assert.False(t, s.Post(func(p notify.Presenter) { p.Present("late") }))
	closeHub(t, h)
	assert.Empty(t, n.texts())
}

func TestHub_RejoinReplacesSession(t *testing.T) {
	h, _ := newTestHub()
	user := uuid.New()

	first := h.Join(&model.Session{UserID: user, Channel: model.ChannelLog})
	second := h.Join(&model.Session{UserID: user, Channel: model.ChannelEmail, Email: &model.EmailDetails{To: "a@b.c"}})

	got, ok := h.Get(user)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, model.ChannelEmail, got.Info().Channel)
	assert.False(t, first.Post(func(notify.Presenter) {}))

	closeHub(t, h)
}

func TestHub_PanickingTaskDoesNotKillSession(t *testing.T) {
	h, n := newTestHub()
	s := h.Join(&model.Session{UserID: uuid.New(), Channel: model.ChannelLog})

	s.Post(func(notify.Presenter) { panic("boom") })
	s.Post(func(p notify.Presenter) { p.Present("still alive") })

	closeHub(t, h)
	assert.Equal(t, []string{"still alive"}, n.texts())
}

func TestHub_CloseTimesOut(t *testing.T) {
	h, _ := newTestHub()
	s := h.Join(&model.Session{UserID: uuid.New(), Channel: model.ChannelLog})

	release := make(chan struct{})
	s.Post(func(notify.Presenter) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Close(ctx), context.DeadlineExceeded)

	close(release)
}
