package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/events"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	paymentdomain "github.com/smallbiznis/utilitybill/internal/payment/domain"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	// migrator.Close would close the shared *sql.DB.
	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&mohalladomain.Mohalla{},
		&housedomain.House{},
		&readingdomain.MeterReading{},
		&tariffdomain.TariffRate{},
		&billdomain.Bill{},
		&paymentdomain.Payment{},
		&events.BillingEvent{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema from the gorm models. It serves sqlite and
// mysql, which the embedded SQL does not target.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
