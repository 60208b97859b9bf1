package chat

import (
	"encoding/json"
	"time"

	"github.com/campuskit/campus-chat/internal/types"
)

// Inbound event names.
const (
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventSendMessage    = "send_message"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
	EventGetOnlineUsers = "get_online_users"
)

// Outbound event names.
const (
	EventRoomJoined        = "room_joined"
	EventMessageHistory    = "message_history"
	EventRoomOnlineUsers   = "room_online_users"
	EventOnlineUsers       = "online_users"
	EventNewMessage        = "new_message"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventUserTyping        = "user_typing"
	EventUserStatusChanged = "user_status_changed"
	EventError             = "error"
)

// ClientEvent is one inbound frame: an event name plus its payload,
// decoded lazily by the handler that knows its shape.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`

	client *Client
}

// RoomRequest is the payload of join_room, leave_room, typing_start and
// typing_stop.
type RoomRequest struct {
	RoomKind string `json:"roomKind"`
	RoomId   string `json:"roomId"`
}

type SendMessageRequest struct {
	RoomKind string `json:"roomKind"`
	RoomId   string `json:"roomId"`
	Content  string `json:"content"`
	Kind     string `json:"kind,omitempty"`
}

// ServerEvent is one outbound frame.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type RoomJoined struct {
	RoomKind      string `json:"roomKind"`
	RoomId        string `json:"roomId"`
	CanonicalName string `json:"canonicalName"`
	ChannelId     string `json:"channelId,omitempty"`
}

type MessageHistory struct {
	ChannelId string          `json:"channelId,omitempty"`
	Messages  []types.Message `json:"messages"`
}

type RoomUser struct {
	UserId      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Role        types.Role `json:"role"`
}

type RoomOnlineUsers struct {
	Users []RoomUser `json:"users"`
}

// OnlineUser is one entry of the global roster snapshot.
type OnlineUser struct {
	UserId          string     `json:"userId"`
	DisplayName     string     `json:"displayName"`
	Role            types.Role `json:"role"`
	ConnectionCount int        `json:"connectionCount"`
}

type UserPresence struct {
	UserId      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type UserTyping struct {
	UserId      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

type UserStatusChanged struct {
	UserId   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func errEvent(message string) *ServerEvent {
	return &ServerEvent{
		Event: EventError,
		Data:  ErrorPayload{Message: message},
	}
}

func errInternal() *ServerEvent {
	return errEvent("internal server error")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
