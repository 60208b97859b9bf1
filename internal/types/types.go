package types

import (
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// User is the identity attached to a live connection. IsActive is only
// meaningful when the record was loaded from the store.
type User struct {
	Id          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	IsActive    bool   `json:"-"`
}

type MessageKind string

const (
	MessageKindPlain        MessageKind = "plain"
	MessageKindQuestion     MessageKind = "question"
	MessageKindAnswer       MessageKind = "answer"
	MessageKindAnnouncement MessageKind = "announcement"
)

// ValidMessageKind reports whether k is a member of the closed kind set.
func ValidMessageKind(k MessageKind) bool {
	switch k {
	case MessageKindPlain, MessageKindQuestion, MessageKindAnswer, MessageKindAnnouncement:
		return true
	}
	return false
}

// Message is the outbound representation of a persisted message including
// the author's display attributes.
type Message struct {
	Id         string      `json:"id"`
	AuthorId   string      `json:"author_id"`
	AuthorName string      `json:"author_name"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"kind"`
	ChannelId  string      `json:"channel_id,omitempty"`
	Edited     bool        `json:"edited,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}
