package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations to db.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.
	return nil
}

// Rollback reverts the most recent steps migrations.
func Rollback(db *sql.DB, steps int) error {
	if steps <= 0 {
		return errors.New("rollback steps must be positive")
	}
	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := migrator.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&customerdomain.CustomerSite{},
		&dailyvolumedomain.DailyVolume{},
		&ngmlaccountdomain.NgmlAccount{},
		&lettertemplatedomain.LetterTemplate{},
		&auditdomain.AuditLog{},
		&gccdomain.Gcc{},
		&gccdomain.GccListItem{},
		&gccdomain.GccApprovedByAdmin{},
		&gccdomain.GccApprovedByCustomer{},
		&invoiceadvicedomain.InvoiceAdvice{},
		&invoiceadvicedomain.InvoiceAdviceListItem{},
		&invoiceadvicedomain.InvoiceAdviceApproval{},
		&invoicedomain.Invoice{},
	}
}

// Apply runs the SQL migrations on postgres and gorm AutoMigrate on the other
// supported dialects.
func Apply(conn *gorm.DB, dbType string) error {
	if strings.EqualFold(strings.TrimSpace(dbType), "postgres") {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
