package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel represents how a connected user is reached (e.g., email, telegram).
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelLog      Channel = "log" // Sessions that only exist in the service log, used in development.
)

// EmailDetails contains recipient information specific to the email channel.
type EmailDetails struct {
	To string // The recipient's email address.
}

// TelegramDetails contains recipient information specific to the telegram channel.
type TelegramDetails struct {
	ChatID int64 // The recipient's Telegram Chat ID.
}

// Session describes a user who has just become active and where messages for them are presented.
type Session struct {
	UserID  uuid.UUID
	Channel Channel

	// Recipient details are mutually exclusive based on the Channel.
	Email    *EmailDetails
	Telegram *TelegramDetails

	JoinedAt time.Time
}
