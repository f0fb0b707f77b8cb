package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jt828/users-api/internal/repository"
	"github.com/jt828/users-api/pkg/apperror"
	"github.com/jt828/users-api/pkg/model"
	"github.com/jt828/users-api/pkg/observability"
	"github.com/jt828/users-api/pkg/retry"
	"github.com/jt828/users-api/pkg/snowflake"
)

type UserService interface {
	GetUser(ctx context.Context, id model.ObjectID) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	CreateUser(ctx context.Context, name string) (*model.User, error)
}

type userService struct {
	uowFactory repository.UnitOfWorkFactory
	snowflake  snowflake.Snowflake
	retry      retry.Retry
	tracer     observability.Tracer
}

func NewUserService(
	uowFactory repository.UnitOfWorkFactory,
	snowflake snowflake.Snowflake,
	retry retry.Retry,
	tracer observability.Tracer,
) UserService {
	return &userService{uowFactory: uowFactory, snowflake: snowflake, retry: retry, tracer: tracer}
}

// transact runs fn in a fresh unit of work under one span and commits it. A
// failed attempt is aborted and retryable failures replay fn in a new
// transaction.
func (s *userService) transact(ctx context.Context, name string, fn func(ctx context.Context, uow repository.UnitOfWork) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()

	err := s.retry.Execute(ctx, func() error {
		uow, err := s.uowFactory.New(ctx)
		if err != nil {
			return err
		}

		if err := fn(ctx, uow); err != nil {
			_ = uow.Abort(ctx)
			return err
		}

		return uow.Commit(ctx)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (s *userService) GetUser(ctx context.Context, id model.ObjectID) (*model.User, error) {
	var user *model.User
	err := s.transact(ctx, "UserService.GetUser", func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		user, err = uow.UserRepository().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := s.transact(ctx, "UserService.ListUsers", func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		users, err = uow.UserRepository().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (s *userService) CreateUser(ctx context.Context, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", apperror.ErrInvalidArgument)
	}

	user := &model.User{
		Id:        model.ObjectID(s.snowflake.Generate()),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	err := s.transact(ctx, "UserService.CreateUser", func(ctx context.Context, uow repository.UnitOfWork) error {
		return uow.UserRepository().Insert(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}
