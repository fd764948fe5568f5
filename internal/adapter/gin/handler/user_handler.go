package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  usecase.Service
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc usecase.Service, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user.
// Field constraints are enforced by the service layer so every violation
// is reported in one response.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ReplaceUserRequest represents the HTTP request body for a full update
type ReplaceUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PatchUserRequest represents the HTTP request body for a partial update.
// Absent fields stay nil and are distinguishable from empty strings.
type PatchUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UserResponse represents the HTTP response for user data.
// The password is returned verbatim, mirroring the system this replaces.
type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response body
type ErrorResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Code      string            `json:"code"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func toHTTPResponse(u *usecase.UserResponse) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "request body must be valid JSON")
		return
	}

	resp, err := h.uc.Create(c.Request.Context(), usecase.CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toHTTPResponse(resp))
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.uc.GetAll(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = toHTTPResponse(&users[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetUser handles GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHTTPResponse(resp))
}

// ReplaceUser handles PUT /api/users/:id
func (h *UserHandler) ReplaceUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ReplaceUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "request body must be valid JSON")
		return
	}

	resp, err := h.uc.Replace(c.Request.Context(), id, usecase.ReplaceUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHTTPResponse(resp))
}

// PatchUser handles PATCH /api/users/:id
func (h *UserHandler) PatchUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req PatchUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "request body must be valid JSON")
		return
	}

	resp, err := h.uc.Patch(c.Request.Context(), id, usecase.PatchUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHTTPResponse(resp))
}

// DeleteUser handles DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseID extracts the numeric id path parameter, responding 400 when invalid.
func (h *UserHandler) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.log.Warn("invalid user id", zap.String("id", idStr))
		h.badRequest(c, "user id must be a valid number")
		return 0, false
	}
	return id, true
}

func (h *UserHandler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Timestamp: time.Now(),
		Message:   message,
		Path:      c.Request.URL.Path,
		Code:      "VALIDATION_ERROR",
	})
}

// handleError maps service error kinds to HTTP responses. This is the only
// place where error kinds meet status codes; the service itself stays
// transport-agnostic.
func (h *UserHandler) handleError(c *gin.Context, err error) {
	path := c.Request.URL.Path

	var validationErr *pkgerrors.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Timestamp: time.Now(),
			Message:   "validation failed",
			Path:      path,
			Code:      "VALIDATION_ERROR",
			Errors:    validationErr.Fields,
		})
		return
	}

	var notFoundErr *pkgerrors.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Timestamp: time.Now(),
			Message:   notFoundErr.Error(),
			Path:      path,
			Code:      "USER_NOT_FOUND",
		})
		return
	}

	var existsErr *pkgerrors.AlreadyExistsError
	if errors.As(err, &existsErr) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Timestamp: time.Now(),
			Message:   existsErr.Error(),
			Path:      path,
			Code:      "EMAIL_ALREADY_EXISTS",
		})
		return
	}

	// Storage and other unexpected failures: generic body, details stay in logs
	h.log.Error("internal error", zap.String("path", path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Timestamp: time.Now(),
		Message:   "an internal error occurred",
		Path:      path,
		Code:      "INTERNAL_SERVER_ERROR",
	})
}
