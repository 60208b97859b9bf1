package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campuskit/campus-chat/internal/database"
	"github.com/campuskit/campus-chat/internal/rooms"
	"github.com/campuskit/campus-chat/internal/types"
)

// MessageTarget names the foreign key a message is stored against.
// Exactly one field is set; the session handler resolves it from the
// room descriptor once, so the mutually-exclusive-target invariant lives
// in a single place.
type MessageTarget struct {
	CourseId      string
	LessonId      string
	PrivateRoomId string
	DmRoomId      string
}

func (t MessageTarget) count() int {
	n := 0
	for _, v := range []string{t.CourseId, t.LessonId, t.PrivateRoomId, t.DmRoomId} {
		if v != "" {
			n++
		}
	}
	return n
}

// MessageStore persists messages and replays room history.
type MessageStore struct {
	db database.ChatRepository
}

func NewMessageStore(db database.ChatRepository) *MessageStore {
	return &MessageStore{db: db}
}

// Save persists one message. The target must already be resolved; this
// adapter never infers it from a room kind.
func (s *MessageStore) Save(ctx context.Context, authorId, content string, kind types.MessageKind, target MessageTarget, channelId string) (database.Message, error) {
	if target.count() != 1 {
		return database.Message{}, fmt.Errorf("message target must name exactly one room, got %d", target.count())
	}

	return s.db.CreateMessage(ctx, database.CreateMessageParams{
		AuthorId:      authorId,
		Content:       content,
		Kind:          string(kind),
		CourseId:      target.CourseId,
		LessonId:      target.LessonId,
		PrivateRoomId: target.PrivateRoomId,
		DmRoomId:      target.DmRoomId,
		ChannelId:     channelId,
	})
}

// ResolvePrivateRoom maps a slug or internal id to the room record.
func (s *MessageStore) ResolvePrivateRoom(ctx context.Context, slugOrId string) (database.PrivateRoom, error) {
	return s.db.GetPrivateRoom(ctx, slugOrId)
}

// Recent returns up to limit messages for the room in chronological
// display order. The store is queried newest-first and the page is
// reversed before returning, so callers always see oldest-first.
func (s *MessageStore) Recent(ctx context.Context, desc rooms.Descriptor, limit int) ([]types.Message, error) {
	query := database.MessageQuery{Limit: limit}

	switch desc.Kind {
	case rooms.KindCourse:
		query.CourseId = desc.RoomId
		query.ChannelId = desc.Channel
	case rooms.KindLesson:
		query.LessonId = desc.RoomId
		query.ChannelId = desc.Channel
	case rooms.KindDM:
		// the canonical composite id is the stored key, no resolution
		query.DmRoomId = desc.RoomId
	case rooms.KindPrivate:
		room, err := s.db.GetPrivateRoom(ctx, desc.RoomId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// a not-yet-existent slug means no history, not a failure
				return []types.Message{}, nil
			}
			return nil, fmt.Errorf("resolve private room %q: %w", desc.RoomId, err)
		}
		query.PrivateRoomId = room.Id
	default:
		return nil, fmt.Errorf("unknown room kind %q", desc.Kind)
	}

	records, err := s.db.GetMessages(ctx, query)
	if err != nil {
		return nil, err
	}

	// newest-first from the store, oldest-first for display
	messages := make([]types.Message, len(records))
	for i, rec := range records {
		messages[len(records)-1-i] = types.Message{
			Id:         rec.Id,
			AuthorId:   rec.AuthorId,
			AuthorName: rec.AuthorName,
			Content:    rec.Content,
			Kind:       types.MessageKind(rec.Kind),
			ChannelId:  rec.ChannelId,
			Edited:     rec.Edited,
			Timestamp:  rec.CreatedAt,
		}
	}

	return messages, nil
}
