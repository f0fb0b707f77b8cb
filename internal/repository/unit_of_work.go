package repository

import (
	"context"
	"sync"

	"github.com/jt828/users-api/pkg/circuitbreaker"
	"gorm.io/gorm"
)

type UnitOfWork interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
	UserRepository() UserRepository
}

type transactionDbUnitOfWork struct {
	tx                 *gorm.DB
	cb                 circuitbreaker.CircuitBreaker
	userRepository     UserRepository
	userRepositoryOnce sync.Once
}

func (u *transactionDbUnitOfWork) UserRepository() UserRepository {
	u.userRepositoryOnce.Do(func() {
		u.userRepository = NewUserRepository(u.tx, u.cb, false)
	})
	return u.userRepository
}

func (u *transactionDbUnitOfWork) Commit(ctx context.Context) error {
	return u.tx.WithContext(ctx).Commit().Error
}

func (u *transactionDbUnitOfWork) Abort(ctx context.Context) error {
	return u.tx.WithContext(ctx).Rollback().Error
}
