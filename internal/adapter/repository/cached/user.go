package cached

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-service/internal/adapter/cache"
	domain "user-service/internal/domain/user"
	usecase "user-service/internal/usecase/user"
)

// CachedUserRepository implements user.Repository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
// Only GetByID is cached; writes invalidate the cached record.
type CachedUserRepository struct {
	dbRepo usecase.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group

	// set on transaction-scoped instances so Transact can re-invalidate
	// written records after the transaction commits
	recordWrite func(id int64)
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo usecase.Repository, cache cache.UserCache, log *zap.Logger) usecase.Repository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Insert delegates to the DB repository.
func (r *CachedUserRepository) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.dbRepo.Insert(ctx, u)
}

// GetByID retrieves a user by ID using the cache-aside pattern.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	key := fmt.Sprintf("user:%d", id)
	result, err, _ := r.group.Do(key, func() (any, error) {
		// Double-check cache in case another request populated it while we were waiting
		if r.cache != nil {
			cachedUser, err := r.cache.Get(ctx, id)
			if err == nil && cachedUser != nil {
				return cachedUser, nil
			}
		}

		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		// Absent users are not cached
		if u != nil && r.cache != nil {
			if err := r.cache.Set(ctx, u); err != nil {
				r.log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.User), nil
}

// GetAll delegates to the DB repository.
func (r *CachedUserRepository) GetAll(ctx context.Context) ([]domain.User, error) {
	return r.dbRepo.GetAll(ctx)
}

// ExistsByEmail delegates to the DB repository.
func (r *CachedUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.dbRepo.ExistsByEmail(ctx, email)
}

// ExistsByID delegates to the DB repository.
func (r *CachedUserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.dbRepo.ExistsByID(ctx, id)
}

// Update updates the user in DB and invalidates the cache.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	updated, err := r.dbRepo.Update(ctx, u)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, u.ID); err != nil {
			r.log.Warn("failed to invalidate cache after update", zap.Int64("id", u.ID), zap.Error(err))
		}
	}
	if r.recordWrite != nil {
		r.recordWrite(u.ID)
	}

	return updated, nil
}

// Delete deletes the user from DB and invalidates the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) error {
	if err := r.dbRepo.Delete(ctx, id); err != nil {
		return err
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, id); err != nil {
			r.log.Warn("failed to invalidate cache after delete", zap.Int64("id", id), zap.Error(err))
		}
	}
	if r.recordWrite != nil {
		r.recordWrite(id)
	}

	return nil
}

// Transact runs fn inside a DB transaction, wrapping the transaction-scoped
// repository so writes made inside the transaction still invalidate the cache.
// In-transaction invalidation can lose a race with a concurrent read that
// re-populates the cache from the not-yet-committed row, so written records
// are invalidated a second time once the transaction has committed.
func (r *CachedUserRepository) Transact(ctx context.Context, fn func(repo usecase.Repository) error) error {
	var written []int64
	err := r.dbRepo.Transact(ctx, func(txRepo usecase.Repository) error {
		return fn(&CachedUserRepository{
			dbRepo:      txRepo,
			cache:       r.cache,
			log:         r.log,
			recordWrite: func(id int64) { written = append(written, id) },
		})
	})
	if err != nil {
		return err
	}

	if r.cache != nil {
		for _, id := range written {
			if derr := r.cache.Delete(ctx, id); derr != nil {
				r.log.Warn("failed to invalidate cache after commit", zap.Int64("id", id), zap.Error(derr))
			}
		}
	}

	return nil
}
