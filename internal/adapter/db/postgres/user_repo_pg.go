package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-service/internal/domain/user"
	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
)

// UserRepoPG implements the Repository interface using PostgreSQL and GORM.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

var _ usecase.Repository = (*UserRepoPG)(nil)

// UserSchema represents the database schema for the users table.
// The unique index on email is the authoritative uniqueness guard; the
// service-level existence check is only an optimization for the common case.
// Timestamps are stamped by the service, so GORM auto-tracking is disabled.
type UserSchema struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func toSchema(u *domain.User) UserSchema {
	return UserSchema{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.Password,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toDomain(m *UserSchema) *domain.User {
	return &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Password:  m.Password,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Insert inserts a new user into the database and returns the record with
// its generated id. A unique-index violation from a concurrent writer is
// surfaced as an AlreadyExistsError.
func (r *UserRepoPG) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toSchema(u)
	model.ID = 0 // the store assigns the id

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return nil, pkgerrors.NewAlreadyExistsError("email", u.Email)
		}
		r.log.Error("failed to insert user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, pkgerrors.NewInternalError("failed to insert user", err)
	}

	r.log.Info("user inserted in db", zap.Int64("id", model.ID))
	return toDomain(&model), nil
}

// Update persists changes to an existing user. The caller is expected to
// have verified existence already, but a lost race is reported as not found.
func (r *UserRepoPG) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toSchema(u)

	result := r.db.WithContext(ctx).Save(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on update", zap.String("email", u.Email))
			return nil, pkgerrors.NewAlreadyExistsError("email", u.Email)
		}
		r.log.Error("failed to update user in db", zap.Error(result.Error), zap.Int64("id", u.ID))
		return nil, pkgerrors.NewInternalError("failed to update user", result.Error)
	}
	if result.RowsAffected == 0 {
		r.log.Warn("user vanished before update", zap.Int64("id", u.ID))
		return nil, pkgerrors.NewNotFoundError("user", u.ID)
	}

	r.log.Info("user updated in db", zap.Int64("id", model.ID))
	return toDomain(&model), nil
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&UserSchema{}, id).Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return pkgerrors.NewInternalError("failed to delete user", err)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

// GetByID retrieves a user by their unique ID. Returns (nil, nil) when absent.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, pkgerrors.NewInternalError("failed to get user", err)
	}

	return toDomain(&model), nil
}

// GetAll retrieves every user in primary key order.
func (r *UserRepoPG) GetAll(ctx context.Context) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	users := make([]domain.User, len(models))
	for i := range models {
		users[i] = *toDomain(&models[i])
	}
	return users, nil
}

// ExistsByEmail reports whether any user holds the given email.
func (r *UserRepoPG) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("email = ?", email).Count(&count).Error; err != nil {
		r.log.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, err
	}
	return count > 0, nil
}

// ExistsByID reports whether a user with the given id exists.
func (r *UserRepoPG) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Error("failed to check user existence", zap.Error(err), zap.Int64("id", id))
		return false, err
	}
	return count > 0, nil
}

// Transact runs fn inside a database transaction. The callback receives a
// repository scoped to the transaction; any error rolls the whole unit back.
func (r *UserRepoPG) Transact(ctx context.Context, fn func(repo usecase.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepoPG{db: tx, log: r.log})
	})
}
