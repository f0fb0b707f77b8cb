package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jt828/users-api/internal/repository"
	"github.com/jt828/users-api/pkg/apperror"
	"github.com/jt828/users-api/pkg/circuitbreaker"
	cbImpl "github.com/jt828/users-api/pkg/circuitbreaker/implementation"
	"github.com/jt828/users-api/pkg/observability"
	obsImpl "github.com/jt828/users-api/pkg/observability/implementation"
	"github.com/jt828/users-api/pkg/retry"
	retryImpl "github.com/jt828/users-api/pkg/retry/implementation"
	"github.com/sony/gobreaker/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB                *gorm.DB
	CircuitBreaker    circuitbreaker.CircuitBreaker
	UnitOfWorkFactory repository.UnitOfWorkFactory
	Retry             retry.Retry

	openErr error
}

// InitializeDatabase opens the connection pool without dialing; the first
// query or Ping establishes the connection. An error here means the DSN
// itself is unusable.
func InitializeDatabase(dsn string, meter observability.Meter) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		return nil, err
	}

	plugin, err := obsImpl.NewGormMetricsPlugin(meter)
	if err != nil {
		return nil, err
	}
	if err := db.Use(plugin); err != nil {
		return nil, err
	}

	circuitState, err := obsImpl.CircuitStateGauge(meter, "database_circuit_state")
	if err != nil {
		return nil, err
	}

	cb := cbImpl.NewCircuitBreaker(gobreaker.Settings{
		Name: "postgresql",
	}, circuitState)

	return &Database{
		DB:                db,
		CircuitBreaker:    cb,
		UnitOfWorkFactory: repository.NewTransactionDbUnitOfWorkFactory(db, cb),
		Retry:             newTransactionRetry(),
	}, nil
}

// UnavailableDatabase stands in for a database that could not be opened so
// the process keeps serving; every store call fails with apperror.ErrUnavailable.
func UnavailableDatabase(cause error) *Database {
	err := fmt.Errorf("database: %v: %w", cause, apperror.ErrUnavailable)
	return &Database{
		UnitOfWorkFactory: repository.NewUnavailableUnitOfWorkFactory(err),
		Retry:             newTransactionRetry(),
		openErr:           err,
	}
}

// newTransactionRetry replays a whole unit of work, never a single statement.
func newTransactionRetry() retry.Retry {
	return retryImpl.NewRetry(3, retry.WithInterval(100*time.Millisecond), retry.WithRetryable(IsRetryable))
}

func (d *Database) Ping(ctx context.Context) error {
	if d.openErr != nil {
		return d.openErr
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001": // serialization_failure
			return true
		case "40P01": // deadlock_detected
			return true
		case "08006": // connection_failure
			return true
		case "08001": // sqlclient_unable_to_establish_sqlconnection
			return true
		case "08004": // sqlserver_rejected_establishment_of_sqlconnection
			return true
		}
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
