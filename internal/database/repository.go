package database

import "context"

type ChatRepository interface {
	Ping(ctx context.Context) error
	GetUserById(ctx context.Context, userId string) (User, error)
	// GetPrivateRoom resolves a slug or internal id to the room record
	// including its memberships.
	GetPrivateRoom(ctx context.Context, slugOrId string) (PrivateRoom, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	// GetMessages returns up to query.Limit rows newest-first.
	GetMessages(ctx context.Context, query MessageQuery) ([]Message, error)
}
