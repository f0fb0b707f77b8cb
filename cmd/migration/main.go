package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jt828/users-api/internal/config"
	"github.com/jt828/users-api/pkg/observability"
	"github.com/jt828/users-api/pkg/observability/implementation"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps to migrate (0 = all)")
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := implementation.NewZapLogger(implementation.LoggerConfig{
		Level:   cfg.LogLevel,
		Console: true,
		Fields:  []observability.Field{observability.String("app", cfg.AppName)},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	m, err := migrate.New(*source, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to create migrate instance", observability.Err(err))
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatal("unknown direction", observability.String("direction", *direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migration failed", observability.Err(err))
	}

	version, dirty, _ := m.Version()
	log.Info("migration completed",
		observability.String("direction", *direction),
		observability.Int("version", int(version)),
		observability.Any("dirty", dirty),
	)
}
