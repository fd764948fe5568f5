package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
	pkgerrors "user-service/pkg/errors"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, a cached decorator) to be used interchangeably.
type Repository interface {
	Insert(ctx context.Context, u *domain.User) (*domain.User, error)    // Insert a new user, returns record with generated id
	GetByID(ctx context.Context, id int64) (*domain.User, error)         // Retrieve user by ID, (nil, nil) when absent
	GetAll(ctx context.Context) ([]domain.User, error)                   // Retrieve every user in storage order
	ExistsByEmail(ctx context.Context, email string) (bool, error)       // Uniqueness lookup by email
	ExistsByID(ctx context.Context, id int64) (bool, error)              // Existence lookup by id
	Update(ctx context.Context, u *domain.User) (*domain.User, error)    // Persist changes to an existing user
	Delete(ctx context.Context, id int64) error                          // Remove user by ID
	Transact(ctx context.Context, fn func(repo Repository) error) error  // Run fn inside a transaction
}

// Usecase implements the business logic for user management operations.
// It applies the rules around uniqueness, existence and partial-update
// semantics; the repository is the only data source it trusts.
type Usecase struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Usecase {
	v := validator.New()
	// required rejects the empty string but not whitespace
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Usecase{repo: r, log: log, validate: v}
}

var _ Service = (*Usecase)(nil)

// fieldMessage converts a single validator.FieldError into a client-facing message.
func fieldMessage(e validator.FieldError) string {
	name := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", name)
	case "email":
		return fmt.Sprintf("%s must be a valid email", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// validateRequest runs struct validation and converts failures into a
// ValidationError carrying the full field→message map.
func (uc *Usecase) validateRequest(in any) error {
	err := uc.validate.Struct(in)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			fields[strings.ToLower(e.Field())] = fieldMessage(e)
		}
		return pkgerrors.NewValidationError(fields)
	}
	return err
}

// Create creates a new user after validating the request and checking email
// uniqueness. Both timestamps are stamped with the same instant.
func (uc *Usecase) Create(ctx context.Context, in CreateUserRequest) (*UserResponse, error) {
	uc.log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validateRequest(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	var created *domain.User
	err := uc.repo.Transact(ctx, func(repo Repository) error {
		exists, err := repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			uc.log.Error("failed to check email uniqueness", zap.String("email", in.Email), zap.Error(err))
			return pkgerrors.NewInternalError("failed to check email uniqueness", err)
		}
		if exists {
			uc.log.Warn("email already exists", zap.String("email", in.Email))
			return pkgerrors.NewAlreadyExistsError("email", in.Email)
		}

		now := time.Now()
		created, err = repo.Insert(ctx, &domain.User{
			Name:      in.Name,
			Email:     in.Email,
			Password:  in.Password,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("user created", zap.Int64("id", created.ID))
	resp := toResponse(created)
	return &resp, nil
}

// GetAll returns every user in storage order. An empty slice is a valid result.
func (uc *Usecase) GetAll(ctx context.Context) ([]UserResponse, error) {
	users, err := uc.repo.GetAll(ctx)
	if err != nil {
		uc.log.Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = toResponse(&users[i])
	}
	return resp, nil
}

// GetByID retrieves a user by ID.
func (uc *Usecase) GetByID(ctx context.Context, id int64) (*UserResponse, error) {
	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		uc.log.Error("failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}
	if u == nil {
		uc.log.Warn("user not found", zap.Int64("id", id))
		return nil, pkgerrors.NewNotFoundError("user", id)
	}

	resp := toResponse(u)
	return &resp, nil
}

// Replace overwrites name, email and password unconditionally, even for
// fields textually identical to the current values. The uniqueness check
// runs only when the email actually changes.
func (uc *Usecase) Replace(ctx context.Context, id int64, in ReplaceUserRequest) (*UserResponse, error) {
	uc.log.Info("replacing user", zap.Int64("id", id), zap.String("email", in.Email))

	if err := uc.validateRequest(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	var updated *domain.User
	err := uc.repo.Transact(ctx, func(repo Repository) error {
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			uc.log.Error("failed to load user", zap.Int64("id", id), zap.Error(err))
			return pkgerrors.NewInternalError("failed to load user", err)
		}
		if current == nil {
			uc.log.Warn("user not found", zap.Int64("id", id))
			return pkgerrors.NewNotFoundError("user", id)
		}

		if in.Email != current.Email {
			exists, err := repo.ExistsByEmail(ctx, in.Email)
			if err != nil {
				uc.log.Error("failed to check email uniqueness", zap.String("email", in.Email), zap.Error(err))
				return pkgerrors.NewInternalError("failed to check email uniqueness", err)
			}
			if exists {
				uc.log.Warn("email already exists", zap.String("email", in.Email))
				return pkgerrors.NewAlreadyExistsError("email", in.Email)
			}
		}

		current.Name = in.Name
		current.Email = in.Email
		current.Password = in.Password
		current.UpdatedAt = time.Now()

		updated, err = repo.Update(ctx, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("user replaced", zap.Int64("id", updated.ID))
	resp := toResponse(updated)
	return &resp, nil
}

// Patch applies only the supplied fields. A supplied email that differs from
// the stored one re-runs the uniqueness check before being applied.
// UpdatedAt is stamped unconditionally; it is idempotent metadata.
func (uc *Usecase) Patch(ctx context.Context, id int64, in PatchUserRequest) (*UserResponse, error) {
	uc.log.Info("patching user", zap.Int64("id", id))

	if err := uc.validateRequest(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	var updated *domain.User
	err := uc.repo.Transact(ctx, func(repo Repository) error {
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			uc.log.Error("failed to load user", zap.Int64("id", id), zap.Error(err))
			return pkgerrors.NewInternalError("failed to load user", err)
		}
		if current == nil {
			uc.log.Warn("user not found", zap.Int64("id", id))
			return pkgerrors.NewNotFoundError("user", id)
		}

		if in.Name != nil {
			current.Name = *in.Name
		}

		if in.Email != nil && *in.Email != current.Email {
			exists, err := repo.ExistsByEmail(ctx, *in.Email)
			if err != nil {
				uc.log.Error("failed to check email uniqueness", zap.String("email", *in.Email), zap.Error(err))
				return pkgerrors.NewInternalError("failed to check email uniqueness", err)
			}
			if exists {
				uc.log.Warn("email already exists", zap.String("email", *in.Email))
				return pkgerrors.NewAlreadyExistsError("email", *in.Email)
			}
			current.Email = *in.Email
		}

		if in.Password != nil {
			current.Password = *in.Password
		}

		current.UpdatedAt = time.Now()

		updated, err = repo.Update(ctx, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("user patched", zap.Int64("id", updated.ID))
	resp := toResponse(updated)
	return &resp, nil
}

// Delete removes a user permanently.
func (uc *Usecase) Delete(ctx context.Context, id int64) error {
	uc.log.Info("deleting user", zap.Int64("id", id))

	return uc.repo.Transact(ctx, func(repo Repository) error {
		exists, err := repo.ExistsByID(ctx, id)
		if err != nil {
			uc.log.Error("failed to check user existence", zap.Int64("id", id), zap.Error(err))
			return pkgerrors.NewInternalError("failed to check user existence", err)
		}
		if !exists {
			uc.log.Warn("user not found", zap.Int64("id", id))
			return pkgerrors.NewNotFoundError("user", id)
		}

		if err := repo.Delete(ctx, id); err != nil {
			uc.log.Error("failed to delete user", zap.Int64("id", id), zap.Error(err))
			return err
		}

		uc.log.Info("user deleted", zap.Int64("id", id))
		return nil
	})
}

// toResponse maps a domain user to the service response shape.
func toResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
