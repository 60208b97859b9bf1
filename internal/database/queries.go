package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teris-io/shortid"
)

const defaultMessageLimit = 50

func (db *PgChatRepository) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *PgChatRepository) GetUserById(ctx context.Context, userId string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, display_name, role, is_active, created_at, updated_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.DisplayName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetPrivateRoom(ctx context.Context, slugOrId string) (PrivateRoom, error) {
	query := `
		SELECT
				r.id,
				r.slug,
				r.creator_id,
				r.created_at,
				r.updated_at,
				m.user_id,
				m.role,
				m.is_active,
				m.is_banned
		FROM private_rooms r
		LEFT JOIN room_memberships m ON r.id = m.room_id
		WHERE r.slug = $1 OR r.id = $1;
`

	rows, err := db.conn.QueryContext(ctx, query, slugOrId)
	if err != nil {
		return PrivateRoom{}, fmt.Errorf("query private room: %w", err)
	}
	defer rows.Close()

	var room *PrivateRoom
	for rows.Next() {
		var (
			id        string
			slug      string
			creatorId string
			createdAt time.Time
			updatedAt time.Time
			userId    sql.NullString
			role      sql.NullString
			isActive  sql.NullBool
			isBanned  sql.NullBool
		)

		if err := rows.Scan(&id, &slug, &creatorId, &createdAt, &updatedAt,
			&userId, &role, &isActive, &isBanned); err != nil {
			return PrivateRoom{}, fmt.Errorf("scan row: %w", err)
		}

		if room == nil {
			room = &PrivateRoom{
				Id:          id,
				Slug:        slug,
				CreatorId:   creatorId,
				CreatedAt:   createdAt,
				UpdatedAt:   updatedAt,
				Memberships: make([]RoomMembership, 0),
			}
		}

		if userId.Valid {
			room.Memberships = append(room.Memberships, RoomMembership{
				UserId:   userId.String,
				RoomId:   id,
				Role:     role.String,
				IsActive: isActive.Bool,
				IsBanned: isBanned.Bool,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return PrivateRoom{}, fmt.Errorf("rows error: %w", err)
	}

	if room == nil {
		return PrivateRoom{}, sql.ErrNoRows
	}

	return *room, nil
}

func (db *PgChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	id, err := shortid.Generate()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}

	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages (id, author_id, content, kind, course_id, lesson_id, private_room_id, dm_room_id, channel_id, created_at) "+
			"VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10) "+
			"RETURNING id, author_id, content, kind, created_at",
		id,
		params.AuthorId,
		params.Content,
		params.Kind,
		params.CourseId,
		params.LessonId,
		params.PrivateRoomId,
		params.DmRoomId,
		params.ChannelId,
		time.Now().UTC(),
	)

	var msg Message
	err = row.Scan(
		&msg.Id,
		&msg.AuthorId,
		&msg.Content,
		&msg.Kind,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	msg.CourseId = params.CourseId
	msg.LessonId = params.LessonId
	msg.PrivateRoomId = params.PrivateRoomId
	msg.DmRoomId = params.DmRoomId
	msg.ChannelId = params.ChannelId

	return msg, nil
}

func (db *PgChatRepository) GetMessages(ctx context.Context, query MessageQuery) ([]Message, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	var target, value string
	switch {
	case query.CourseId != "":
		target, value = "course_id", query.CourseId
	case query.LessonId != "":
		target, value = "lesson_id", query.LessonId
	case query.PrivateRoomId != "":
		target, value = "private_room_id", query.PrivateRoomId
	case query.DmRoomId != "":
		target, value = "dm_room_id", query.DmRoomId
	default:
		return nil, fmt.Errorf("message query has no target")
	}

	q := "SELECT m.id, m.author_id, u.display_name, m.content, m.kind, " +
		"COALESCE(m.channel_id, ''), m.edited, m.created_at FROM messages m " +
		"JOIN users u ON m.author_id = u.id " +
		"WHERE m." + target + " = $1"
	args := []any{value}

	// channel only partitions course and lesson history
	if query.ChannelId != "" && (query.CourseId != "" || query.LessonId != "") {
		q += " AND m.channel_id = $2"
		args = append(args, query.ChannelId)
	}

	q += fmt.Sprintf(" ORDER BY m.created_at DESC LIMIT %d", limit)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.AuthorId, &msg.AuthorName, &msg.Content,
			&msg.Kind, &msg.ChannelId, &msg.Edited, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}
