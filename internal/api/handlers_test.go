package api

import (
	"database/sql"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuskit/campus-chat/internal/access"
	"github.com/campuskit/campus-chat/internal/auth"
	"github.com/campuskit/campus-chat/internal/chat"
	"github.com/campuskit/campus-chat/internal/config"
	"github.com/campuskit/campus-chat/internal/database"
	"github.com/campuskit/campus-chat/internal/stats"
	"github.com/campuskit/campus-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestApp(t *testing.T, repo database.ChatRepository, verifier auth.Verifier) *CampusChatApp {
	t.Helper()

	if repo == nil {
		repo = &database.MockChatRepository{}
	}

	cfg, err := config.NewConfig("localhost:0", "postgres://test",
		base64.StdEncoding.EncodeToString([]byte("test-secret")),
		[]string{"http://localhost:3000"}, 10)
	assert.NoError(t, err)

	logger := testutil.TestLogger(t)
	statsProvider := &stats.MockStatsUpdater{}
	statsProvider.On("RegisterMetric", mock.Anything).Maybe()

	cs, err := chat.NewChatServer(logger, chat.NewMessageStore(repo),
		access.NewEvaluator(logger, repo, nil), statsProvider, cfg.HistoryLimit)
	assert.NoError(t, err)

	return NewCampusChatApp(http.NewServeMux(), logger, cs, repo, verifier, cfg)
}

func TestHealthCheck(t *testing.T) {
	t.Run("reports healthy when the store answers", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("Ping", mock.Anything).Return(nil).Once()
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo, &stubVerifier{})

		w := httptest.NewRecorder()
		app.healthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("reports unhealthy on a store error", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("Ping", mock.Anything).Return(sql.ErrConnDone).Once()
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo, &stubVerifier{})

		w := httptest.NewRecorder()
		app.healthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServeWs(t *testing.T) {
	identity := auth.Identity{UserId: "u-1", DisplayName: "alice"}

	t.Run("rejects a request without an identity", func(t *testing.T) {
		app := newTestApp(t, nil, &stubVerifier{})

		w := httptest.NewRecorder()
		app.serveWs(w, httptest.NewRequest(http.MethodGet, "/ws", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a token for an unknown user", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("GetUserById", mock.Anything, "u-1").
			Return(database.User{}, sql.ErrNoRows).Once()
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo, &stubVerifier{})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r = r.WithContext(WithIdentity(r.Context(), identity))
		w := httptest.NewRecorder()
		app.serveWs(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("store failure is an internal error", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("GetUserById", mock.Anything, "u-1").
			Return(database.User{}, sql.ErrConnDone).Once()
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo, &stubVerifier{})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r = r.WithContext(WithIdentity(r.Context(), identity))
		w := httptest.NewRecorder()
		app.serveWs(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("rejects a deactivated user", func(t *testing.T) {
		mockRepo := &database.MockChatRepository{}
		mockRepo.On("GetUserById", mock.Anything, "u-1").
			Return(database.User{Id: "u-1", DisplayName: "alice", IsActive: false}, nil).Once()
		defer mockRepo.AssertExpectations(t)

		app := newTestApp(t, mockRepo, &stubVerifier{})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r = r.WithContext(WithIdentity(r.Context(), identity))
		w := httptest.NewRecorder()
		app.serveWs(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
