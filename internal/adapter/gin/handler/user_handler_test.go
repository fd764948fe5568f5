package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
)

// MockUserService is a mock implementation of user.Service
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, in usecase.CreateUserRequest) (*usecase.UserResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UserResponse), args.Error(1)
}

func (m *MockUserService) GetAll(ctx context.Context) ([]usecase.UserResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.UserResponse), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id int64) (*usecase.UserResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UserResponse), args.Error(1)
}

func (m *MockUserService) Replace(ctx context.Context, id int64, in usecase.ReplaceUserRequest) (*usecase.UserResponse, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UserResponse), args.Error(1)
}

func (m *MockUserService) Patch(ctx context.Context, id int64, in usecase.PatchUserRequest) (*usecase.UserResponse, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UserResponse), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTest(t *testing.T) (*gin.Engine, *MockUserService) {
	gin.SetMode(gin.TestMode)
	mockService := new(MockUserService)
	h := NewUserHandler(mockService, zaptest.NewLogger(t))

	r := gin.New()
	users := r.Group("/api/users")
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.ReplaceUser)
		users.PATCH("/:id", h.PatchUser)
		users.DELETE("/:id", h.DeleteUser)
	}
	return r, mockService
}

func perform(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleResponse() *usecase.UserResponse {
	now := time.Now().Truncate(time.Second)
	return &usecase.UserResponse{
		ID:        1,
		Name:      "Juan Pérez",
		Email:     "juan@x.com",
		Password:  "secret1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Create", mock.Anything, usecase.CreateUserRequest{
			Name:     "Juan Pérez",
			Email:    "juan@x.com",
			Password: "secret1",
		}).Return(sampleResponse(), nil)

		w := perform(r, http.MethodPost, "/api/users", map[string]string{
			"name":     "Juan Pérez",
			"email":    "juan@x.com",
			"password": "secret1",
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.ID)
		assert.Equal(t, "juan@x.com", resp.Email)
		assert.Equal(t, "secret1", resp.Password)

		mockService.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Create", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewValidationError(map[string]string{"name": "name must be at least 2 characters"}))

		w := perform(r, http.MethodPost, "/api/users", map[string]string{
			"name": "J", "email": "juan@x.com", "password": "secret1",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Contains(t, resp.Errors, "name")
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Create", mock.Anything, mock.Anything).Return(nil,
			pkgerrors.NewAlreadyExistsError("email", "juan@x.com"))

		w := perform(r, http.MethodPost, "/api/users", map[string]string{
			"name": "Juan Pérez", "email": "juan@x.com", "password": "secret1",
		})

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "EMAIL_ALREADY_EXISTS", resp.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		r, _ := setupTest(t)

		req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("GetByID", mock.Anything, int64(1)).Return(sampleResponse(), nil)

		w := perform(r, http.MethodGet, "/api/users/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("GetByID", mock.Anything, int64(42)).Return(nil,
			pkgerrors.NewNotFoundError("user", 42))

		w := perform(r, http.MethodGet, "/api/users/42", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "USER_NOT_FOUND", resp.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		r, _ := setupTest(t)

		w := perform(r, http.MethodGet, "/api/users/abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InternalError", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("GetByID", mock.Anything, int64(1)).Return(nil,
			pkgerrors.NewInternalError("failed to get user", errors.New("connection refused")))

		w := perform(r, http.MethodGet, "/api/users/1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		// storage details must not leak to the client
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", resp.Code)
		assert.NotContains(t, resp.Message, "connection refused")
	})
}

func TestListUsers(t *testing.T) {
	r, mockService := setupTest(t)

	mockService.On("GetAll", mock.Anything).Return([]usecase.UserResponse{
		*sampleResponse(),
	}, nil)

	w := perform(r, http.MethodGet, "/api/users", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "juan@x.com", resp[0].Email)
}

func TestReplaceUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Replace", mock.Anything, int64(1), usecase.ReplaceUserRequest{
			Name:     "Juan Actualizado",
			Email:    "new@x.com",
			Password: "newsecret",
		}).Return(sampleResponse(), nil)

		w := perform(r, http.MethodPut, "/api/users/1", map[string]string{
			"name": "Juan Actualizado", "email": "new@x.com", "password": "newsecret",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Replace", mock.Anything, int64(42), mock.Anything).Return(nil,
			pkgerrors.NewNotFoundError("user", 42))

		w := perform(r, http.MethodPut, "/api/users/42", map[string]string{
			"name": "Juan", "email": "juan@x.com", "password": "secret1",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPatchUser(t *testing.T) {
	t.Run("OnlySuppliedFieldsForwarded", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Patch", mock.Anything, int64(1), mock.MatchedBy(func(in usecase.PatchUserRequest) bool {
			return in.Email != nil && *in.Email == "new@x.com" && in.Name == nil && in.Password == nil
		})).Return(sampleResponse(), nil)

		w := perform(r, http.MethodPatch, "/api/users/1", map[string]string{
			"email": "new@x.com",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Patch", mock.Anything, int64(1), mock.Anything).Return(nil,
			pkgerrors.NewAlreadyExistsError("email", "taken@x.com"))

		w := perform(r, http.MethodPatch, "/api/users/1", map[string]string{
			"email": "taken@x.com",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Delete", mock.Anything, int64(1)).Return(nil)

		w := perform(r, http.MethodDelete, "/api/users/1", nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("NotFound", func(t *testing.T) {
		r, mockService := setupTest(t)

		mockService.On("Delete", mock.Anything, int64(42)).Return(
			pkgerrors.NewNotFoundError("user", 42))

		w := perform(r, http.MethodDelete, "/api/users/42", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
