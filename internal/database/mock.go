package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockChatRepository) GetUserById(ctx context.Context, userId string) (User, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(User), args.Error(1)
}

func (m *MockChatRepository) GetPrivateRoom(ctx context.Context, slugOrId string) (PrivateRoom, error) {
	args := m.Called(ctx, slugOrId)
	return args.Get(0).(PrivateRoom), args.Error(1)
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}

func (m *MockChatRepository) GetMessages(ctx context.Context, query MessageQuery) ([]Message, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]Message), args.Error(1)
}
