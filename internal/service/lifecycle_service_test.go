package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
	repo "github.com/ilindan-dev/auction-watchlist/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockListings struct {
	saved   []*model.Listing
	saveErr error
}

func (m *mockListings) Save(_ context.Context, l *model.Listing) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, l)
	return nil
}

func (m *mockListings) LoadActive(context.Context) ([]*model.Listing, error) { return m.saved, nil }

func (m *mockListings) MarkEnded(context.Context, uuid.UUID) error { return nil }

type mockCatalog struct{ put []*model.Listing }

func (m *mockCatalog) Put(l *model.Listing) { m.put = append(m.put, l) }

type mockEvents struct {
	joined []*model.Session
	left   []uuid.UUID
	ended  []string
	err    error
}

func (m *mockEvents) PublishSessionJoined(_ context.Context, s *model.Session) error {
	if m.err != nil {
		return m.err
	}
	m.joined = append(m.joined, s)
	return nil
}

func (m *mockEvents) PublishSessionLeft(_ context.Context, userID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.left = append(m.left, userID)
	return nil
}

func (m *mockEvents) PublishListingEnded(_ context.Context, listingID uuid.UUID, reason string) error {
	if m.err != nil {
		return m.err
	}
	m.ended = append(m.ended, listingID.String()+":"+reason)
	return nil
}

func newTestService() (*LifecycleService, *mockListings, *mockCatalog, *mockEvents) {
	logger := zerolog.Nop()
	listings, cat, events := &mockListings{}, &mockCatalog{}, &mockEvents{}
	return NewLifecycleService(listings, cat, events, &logger), listings, cat, events
}

func TestLifecycleService_JoinSession(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("email", func(t *testing.T) {
		s, _, _, events := newTestService()
		session, err := s.JoinSession(ctx, user, model.ChannelEmail, "bidder@example.com", 0)
		require.NoError(t, err)
		require.NotNil(t, session.Email)
		assert.Equal(t, "bidder@example.com", session.Email.To)
		assert.Nil(t, session.Telegram)
		require.Len(t, events.joined, 1)
		assert.Same(t, session, events.joined[0])
	})

	t.Run("telegram", func(t *testing.T) {
		s, _, _, _ := newTestService()
		session, err := s.JoinSession(ctx, user, model.ChannelTelegram, "", 42)
		require.NoError(t, err)
		require.NotNil(t, session.Telegram)
		assert.Equal(t, int64(42), session.Telegram.ChatID)
	})

	t.Run("log", func(t *testing.T) {
		s, _, _, _ := newTestService()
		session, err := s.JoinSession(ctx, user, model.ChannelLog, "", 0)
		require.NoError(t, err)
		assert.Equal(t, model.ChannelLog, session.Channel)
	})

	for name, tc := range map[string]struct {
		user    uuid.UUID
		channel model.Channel
		email   string
		chatID  int64
	}{
		"missing user":    {uuid.Nil, model.ChannelLog, "", 0},
		"bad email":       {user, model.ChannelEmail, "not-an-address", 0},
		"missing chat id": {user, model.ChannelTelegram, "", 0},
		"unknown channel": {user, model.Channel("pigeon"), "", 0},
	} {
		t.Run(name, func(t *testing.T) {
			s, _, _, events := newTestService()
			_, err := s.JoinSession(ctx, tc.user, tc.channel, tc.email, tc.chatID)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, events.joined)
		})
	}

	t.Run("publish failure", func(t *testing.T) {
		s, _, _, events := newTestService()
		events.err = errors.New("broker down")
		_, err := s.JoinSession(ctx, user, model.ChannelLog, "", 0)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLifecycleService_LeaveSession(t *testing.T) {
	s, _, _, events := newTestService()
	user := uuid.New()

	require.NoError(t, s.LeaveSession(context.Background(), user))
	assert.Equal(t, []uuid.UUID{user}, events.left)

	events.err = errors.New("broker down")
	assert.Error(t, s.LeaveSession(context.Background(), user))
}

func TestLifecycleService_CreateListing(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	t.Run("saved and put into the catalog", func(t *testing.T) {
		s, listings, cat, _ := newTestService()
		l, err := s.CreateListing(ctx, seller, "  Enchanted Bow ", 1500, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "Enchanted Bow", l.Title)
		assert.WithinDuration(t, time.Now().Add(time.Hour), l.ExpiresAt, time.Minute)
		assert.Equal(t, []*model.Listing{l}, listings.saved)
		assert.Equal(t, []*model.Listing{l}, cat.put)
	})

	for name, tc := range map[string]struct {
		seller   uuid.UUID
		title    string
		price    int64
		duration time.Duration
	}{
		"missing seller":   {uuid.Nil, "x", 1, time.Hour},
		"blank title":      {seller, "   ", 1, time.Hour},
		"negative price":   {seller, "x", -1, time.Hour},
		"non-positive ttl": {seller, "x", 1, 0},
	} {
		t.Run(name, func(t *testing.T) {
			s, listings, cat, _ := newTestService()
			_, err := s.CreateListing(ctx, tc.seller, tc.title, tc.price, tc.duration)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, listings.saved)
			assert.Empty(t, cat.put)
		})
	}

	t.Run("save failure keeps the catalog untouched", func(t *testing.T) {
		s, listings, cat, _ := newTestService()
		listings.saveErr = repo.ErrDuplicateRecord
		_, err := s.CreateListing(ctx, seller, "x", 1, time.Hour)
		assert.ErrorIs(t, err, repo.ErrDuplicateRecord)
		assert.Empty(t, cat.put)
	})
}

func TestLifecycleService_EndListing(t *testing.T) {
	s, _, _, events := newTestService()
	id := uuid.New()

	require.NoError(t, s.EndListing(context.Background(), id, " sold "))
	assert.Equal(t, []string{id.String() + ":sold"}, events.ended)

	assert.ErrorIs(t, s.EndListing(context.Background(), id, " "), ErrInvalidInput)

	events.err = errors.New("broker down")
	assert.Error(t, s.EndListing(context.Background(), id, "expired"))
}
