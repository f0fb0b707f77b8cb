package repository

import (
	"context"

	"errors"

	"github.com/jt828/users-api/pkg/circuitbreaker"
	"github.com/jt828/users-api/pkg/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	Get(ctx context.Context, id model.ObjectID) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Insert(ctx context.Context, user *model.User) error
}

type UserRepositoryImpl struct {
	db              *gorm.DB
	cb              circuitbreaker.CircuitBreaker
	notFoundAsError bool
}

// NewUserRepository binds a repository to db, usually a transaction. Calls go
// through the circuit breaker only.
func NewUserRepository(db *gorm.DB, cb circuitbreaker.CircuitBreaker, notFoundAsError bool) UserRepository {
	return &UserRepositoryImpl{db: db, cb: cb, notFoundAsError: notFoundAsError}
}

func (r *UserRepositoryImpl) Get(ctx context.Context, id model.ObjectID) (*model.User, error) {
	result, err := r.cb.Execute(func() (any, error) {
		var entity model.UserDataEntity
		if err := r.db.WithContext(ctx).First(&entity, int64(id)).Error; err != nil {
			if !r.notFoundAsError && errors.Is(err, gorm.ErrRecordNotFound) {
				return (*model.User)(nil), nil
			}
			return nil, err
		}
		user := entity.ToDomain()
		return &user, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.User), nil
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]*model.User, error) {
	result, err := r.cb.Execute(func() (any, error) {
		var entities []model.UserDataEntity
		if err := r.db.WithContext(ctx).Order("id").Find(&entities).Error; err != nil {
			return nil, err
		}
		users := make([]*model.User, len(entities))
		for i := range entities {
			u := entities[i].ToDomain()
			users[i] = &u
		}
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*model.User), nil
}

func (r *UserRepositoryImpl) Insert(ctx context.Context, user *model.User) error {
	_, err := r.cb.Execute(func() (any, error) {
		entity := model.UserDataEntity{
			Id:        int64(user.Id),
			Name:      user.Name,
			CreatedAt: user.CreatedAt,
		}
		return nil, r.db.WithContext(ctx).Create(&entity).Error
	})
	return err
}
