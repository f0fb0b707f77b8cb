package repository

import (
	"context"

	"github.com/jt828/users-api/pkg/circuitbreaker"
	"gorm.io/gorm"
)

// UnitOfWorkFactory starts one transaction per New. Callers that retry must
// retry the whole unit of work, since a failed statement aborts the transaction.
type UnitOfWorkFactory interface {
	New(ctx context.Context) (UnitOfWork, error)
}

type transactionDbUnitOfWorkFactory struct {
	db *gorm.DB
	cb circuitbreaker.CircuitBreaker
}

func NewTransactionDbUnitOfWorkFactory(db *gorm.DB, cb circuitbreaker.CircuitBreaker) UnitOfWorkFactory {
	return &transactionDbUnitOfWorkFactory{db: db, cb: cb}
}

func (f *transactionDbUnitOfWorkFactory) New(ctx context.Context) (UnitOfWork, error) {
	tx := f.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &transactionDbUnitOfWork{tx: tx, cb: f.cb}, nil
}

type unavailableUnitOfWorkFactory struct {
	err error
}

// NewUnavailableUnitOfWorkFactory returns a factory whose New always fails with err.
func NewUnavailableUnitOfWorkFactory(err error) UnitOfWorkFactory {
	return &unavailableUnitOfWorkFactory{err: err}
}

func (f *unavailableUnitOfWorkFactory) New(context.Context) (UnitOfWork, error) {
	return nil, f.err
}
