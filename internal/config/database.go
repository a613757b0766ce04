package config

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db, cfg.TablePrefix()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database.
// All table names carry the environment prefix (dev_ outside production).
func createTables(db *sqlx.DB, prefix string) error {
	// Create users table
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %susers (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			expo_push_token TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create couples table
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]scouples (
			id VARCHAR(36) PRIMARY KEY,
			user1_id VARCHAR(36) NOT NULL REFERENCES %[1]susers(id),
			user2_id VARCHAR(36) NOT NULL REFERENCES %[1]susers(id),
			created_at TIMESTAMP NOT NULL,
			CHECK (user1_id <> user2_id)
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create monthly_invoices table
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]smonthly_invoices (
			id VARCHAR(36) PRIMARY KEY,
			couple_id VARCHAR(36) NOT NULL REFERENCES %[1]scouples(id) ON DELETE CASCADE,
			year INT NOT NULL,
			month INT NOT NULL CHECK (month BETWEEN 1 AND 12),
			active BOOLEAN NOT NULL,
			is_paid BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create payments table
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]spayments (
			id VARCHAR(36) PRIMARY KEY,
			monthly_invoice_id VARCHAR(36) NOT NULL REFERENCES %[1]smonthly_invoices(id) ON DELETE CASCADE,
			owner_id VARCHAR(36) NOT NULL REFERENCES %[1]susers(id),
			item VARCHAR(255) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			memo TEXT,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create couple_subscriptions table
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]scouple_subscriptions (
			id VARCHAR(36) PRIMARY KEY,
			couple_id VARCHAR(36) NOT NULL REFERENCES %[1]scouples(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES %[1]susers(id),
			service_name VARCHAR(255) NOT NULL,
			monthly_amount BIGINT NOT NULL CHECK (monthly_amount > 0),
			billing_cycle VARCHAR(10) NOT NULL CHECK (billing_cycle IN ('monthly', 'yearly')),
			next_billing_date DATE NOT NULL,
			is_active BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create recurring_rules table (per-couple seeding catalog)
	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]srecurring_rules (
			id VARCHAR(36) PRIMARY KEY,
			couple_id VARCHAR(36) NOT NULL REFERENCES %[1]scouples(id) ON DELETE CASCADE,
			owner_id VARCHAR(36) NOT NULL REFERENCES %[1]susers(id),
			item VARCHAR(255) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			memo TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`, prefix))
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]sinvoices_couple_id ON %[1]smonthly_invoices(couple_id)", prefix),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]sinvoices_couple_active ON %[1]smonthly_invoices(couple_id, active)", prefix),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]spayments_invoice_id ON %[1]spayments(monthly_invoice_id)", prefix),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]ssubscriptions_couple_id ON %[1]scouple_subscriptions(couple_id)", prefix),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]srules_couple_id ON %[1]srecurring_rules(couple_id)", prefix),
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			slog.Warn("Failed to create index", "error", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
