package rabbitmq

import (
	"time"

	"github.com/google/uuid"
	"github.com/ilindan-dev/auction-watchlist/internal/domain/model"
)

// Routing keys of the events exchange.
const (
	KeySessionJoined = "session.joined"
	KeySessionLeft   = "session.left"
	KeyListingEnded  = "listing.ended"
)

// HeaderAttempts counts how many times a message has already failed.
const HeaderAttempts = "x-attempts"

// SessionJoinedEvent is the body of a session.joined message.
type SessionJoinedEvent struct {
	UserID         uuid.UUID `json:"user_id"`
	Channel        string    `json:"channel"`
	Email          string    `json:"email,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
}

// SessionLeftEvent is the body of a session.left message.
type SessionLeftEvent struct {
	UserID uuid.UUID `json:"user_id"`
}

// ListingEndedEvent is the body of a listing.ended message.
type ListingEndedEvent struct {
	ListingID uuid.UUID `json:"listing_id"`
	Reason    string    `json:"reason"`
	EndedAt   time.Time `json:"ended_at"`
}

// NewSessionJoinedEvent converts a domain session to its wire form.
func NewSessionJoinedEvent(s *model.Session) SessionJoinedEvent {
	e := SessionJoinedEvent{
		UserID:   s.UserID,
		Channel:  string(s.Channel),
		JoinedAt: s.JoinedAt,
	}
	if s.Email != nil {
		e.Email = s.Email.To
	}
	if s.Telegram != nil {
		e.TelegramChatID = s.Telegram.ChatID
	}
	return e
}

// Session converts the event back to a domain session.
func (e SessionJoinedEvent) Session() *model.Session {
	s := &model.Session{
		UserID:   e.UserID,
		Channel:  model.Channel(e.Channel),
		JoinedAt: e.JoinedAt,
	}
	switch s.Channel {
	case model.ChannelEmail:
		s.Email = &model.EmailDetails{To: e.Email}
	case model.ChannelTelegram:
		s.Telegram = &model.TelegramDetails{ChatID: e.TelegramChatID}
	}
	return s
}
