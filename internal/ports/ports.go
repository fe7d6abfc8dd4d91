package ports

import (
	"context"
	"errors"
	"time"

	"attendance.service/internal/core/model"
)

var (
	// ErrNotFound is returned by a ChatGateway when the referenced user or
	// channel does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParentNotFound is returned by CreatePrivateChannel when the parent
	// grouping does not exist.
	ErrParentNotFound = errors.New("parent grouping not found")
)

// User is a chat platform member.
type User struct {
	ID   string
	Name string
}

// Mention renders the platform mention markup for the user.
func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Channel is a handle to a chat channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
}

// Mention renders the platform mention markup for the channel.
func (c Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// MessageHandle identifies a sent message.
type MessageHandle struct {
	ID        string
	ChannelID string
}

// Attachment is a file attached to a chat message.
type Attachment struct {
	Filename    string
	URL         string
	ContentType string
	Size        int
}

// Message is an inbound chat message.
type Message struct {
	ID          string
	ChannelID   string
	Author      User
	Content     string
	Attachments []Attachment
	JumpURL     string
}

// ChatGateway is the output port to the chat platform.
type ChatGateway interface {
	SendMessage(ctx context.Context, channelID, text string, attachments []Attachment) (MessageHandle, error)
	CreatePrivateChannel(ctx context.Context, parentID, name, allowedUserID string) (Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	// FetchUser returns nil without error when the user does not exist.
	FetchUser(ctx context.Context, userID string) (*User, error)
	ListChildChannels(ctx context.Context, parentID string) ([]Channel, error)
}

// AdminNotifier escalates operational problems to a human. Implementations
// swallow their own failures.
type AdminNotifier interface {
	Notify(ctx context.Context, adminUserID, text string)
}

// AuditEvent is a structured attendance log entry.
type AuditEvent struct {
	ID        string            `json:"id"`
	Kind      model.EventKind   `json:"kind"`
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// AuditLog records audit events, fire-and-forget.
type AuditLog interface {
	Record(ctx context.Context, event AuditEvent)
}
