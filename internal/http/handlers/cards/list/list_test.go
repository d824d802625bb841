package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/festiva/festiva/internal/http/middlewarectx"
	"github.com/festiva/festiva/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, userID string) ([]*models.Card, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Card), args.Error(1)
}

func TestListHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "empty list",
			userID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("List", mock.Anything, "user-1").Return([]*models.Card{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name:           "missing user",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:   "service error",
			userID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("List", mock.Anything, "user-1").Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"failed to list cards"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), service)
			tt.setupMocks(service)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, tt.userID))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			service.AssertExpectations(t)
		})
	}
}
