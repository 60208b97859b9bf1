package database

import "time"

type User struct {
	Id          string
	DisplayName string
	Role        string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrivateRoom is an access-gated room. Slug is the human-assigned
// identifier clients address the room by; Id is the internal key
// messages are stored against.
type PrivateRoom struct {
	Id          string
	Slug        string
	CreatorId   string
	Memberships []RoomMembership
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type RoomMembership struct {
	UserId   string
	RoomId   string
	Role     string
	IsActive bool
	IsBanned bool
}

// Message rows target exactly one of CourseId, LessonId, PrivateRoomId
// or DmRoomId; the caller sets the target, the store never infers it.
type Message struct {
	Id            string
	AuthorId      string
	AuthorName    string
	Content       string
	Kind          string
	CourseId      string
	LessonId      string
	PrivateRoomId string
	DmRoomId      string
	ChannelId     string
	Edited        bool
	CreatedAt     time.Time
}

type CreateMessageParams struct {
	AuthorId      string
	Content       string
	Kind          string
	CourseId      string
	LessonId      string
	PrivateRoomId string
	DmRoomId      string
	ChannelId     string
}

// MessageQuery selects recent messages for one room target. Exactly one
// of the target fields is non-empty. ChannelId only applies to course
// and lesson targets.
type MessageQuery struct {
	CourseId      string
	LessonId      string
	PrivateRoomId string
	DmRoomId      string
	ChannelId     string
	Limit         int
}
