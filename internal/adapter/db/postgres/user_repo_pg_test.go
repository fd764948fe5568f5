package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	domain "user-service/internal/domain/user"
	usecase "user-service/internal/usecase/user"
	pkgerrors "user-service/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&UserSchema{}))

	return db
}

func setupRepo(t *testing.T) *UserRepoPG {
	return NewUserRepoPG(setupTestDB(t), zaptest.NewLogger(t))
}

func newUser(name, email string) *domain.User {
	now := time.Now()
	return &domain.User{
		Name:      name,
		Email:     email,
		Password:  "secret1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserRepo_InsertAssignsID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Juan Pérez", created.Name)

	second, err := repo.Insert(ctx, newUser("Ana Gómez", "ana@x.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestUserRepo_Insert_DuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	// the unique index is the authoritative guard
	_, err = repo.Insert(ctx, newUser("Otro Juan", "juan@x.com"))
	assert.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))
}

func TestUserRepo_GetByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "juan@x.com", found.Email)
	assert.Equal(t, "secret1", found.Password)
}

func TestUserRepo_GetByID_Absent(t *testing.T) {
	repo := setupRepo(t)

	found, err := repo.GetByID(context.Background(), 99)
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestUserRepo_GetAll_StorageOrder(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	emails := []string{"a@x.com", "b@x.com", "c@x.com"}
	for _, email := range emails {
		_, err := repo.Insert(ctx, newUser("User "+email, email))
		require.NoError(t, err)
	}

	users, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i, email := range emails {
		assert.Equal(t, email, users[i].Email)
		assert.Equal(t, int64(i+1), users[i].ID)
	}
}

func TestUserRepo_GetAll_Empty(t *testing.T) {
	repo := setupRepo(t)

	users, err := repo.GetAll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepo_ExistsByEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	exists, err := repo.ExistsByEmail(ctx, "juan@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepo_ExistsByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	exists, err := repo.ExistsByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByID(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepo_Update(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	created.Name = "Juan Actualizado"
	created.Email = "new@x.com"
	created.UpdatedAt = time.Now()

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Juan Actualizado", updated.Name)

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", found.Email)
}

func TestUserRepo_Update_DuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)
	second, err := repo.Insert(ctx, newUser("Ana Gómez", "ana@x.com"))
	require.NoError(t, err)

	second.Email = "juan@x.com"
	_, err = repo.Update(ctx, second)
	assert.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))
}

func TestUserRepo_Delete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))

	found, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUserRepo_Transact_RollbackOnError(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := repo.Transact(ctx, func(txRepo usecase.Repository) error {
		_, err := txRepo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
		require.NoError(t, err)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// the insert inside the failed transaction must not be visible
	exists, err := repo.ExistsByEmail(ctx, "juan@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepo_Transact_Commit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	err := repo.Transact(ctx, func(txRepo usecase.Repository) error {
		_, err := txRepo.Insert(ctx, newUser("Juan Pérez", "juan@x.com"))
		return err
	})
	require.NoError(t, err)

	exists, err := repo.ExistsByEmail(ctx, "juan@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
}
