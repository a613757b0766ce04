package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nekoneko/seisan-server/internal/models"
)

// Payment repository methods
func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, monthly_invoice_id, owner_id, item, amount, memo, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.table("payments"))

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.MonthlyInvoiceID, payment.OwnerID, payment.Item,
		payment.Amount, payment.Memo, payment.DeletedAt,
		payment.CreatedAt, payment.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, r.table("payments"))

	var payment models.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Payment not found
		}
		return nil, err
	}

	return &payment, nil
}

// UpdatePayment overwrites item, amount and memo of an existing payment.
func (r *PostgresRepository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	query := fmt.Sprintf(`
		UPDATE %s SET item = $1, amount = $2, memo = $3, updated_at = $4 WHERE id = $5
	`, r.table("payments"))

	result, err := r.db.ExecContext(ctx, query,
		payment.Item, payment.Amount, payment.Memo, time.Now().UTC(), payment.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("payment not found")
	}

	return nil
}

// SoftDeletePayment sets deleted_at; the row is retained for history.
func (r *PostgresRepository) SoftDeletePayment(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted_at = $1, updated_at = $1 WHERE id = $2
	`, r.table("payments"))

	result, err := r.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("payment not found")
	}

	return nil
}

// ListLivePaymentsByInvoiceID returns all payments on an invoice whose
// deleted_at is null. Unordered at this layer; consumers sort by recency.
func (r *PostgresRepository) ListLivePaymentsByInvoiceID(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE monthly_invoice_id = $1 AND deleted_at IS NULL
	`, r.table("payments"))

	var payments []models.Payment
	err := r.db.SelectContext(ctx, &payments, query, invoiceID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

// SeedRecurringPayments inserts one live payment per rule into the invoice.
// There is intentionally no uniqueness guard; running it twice against the
// same invoice duplicates the rows.
func (r *PostgresRepository) SeedRecurringPayments(ctx context.Context, invoiceID string, rules []models.RecurringRule, at time.Time) error {
	return seedRecurringPaymentsTx(ctx, r.db, r.table("payments"), invoiceID, rules, at)
}

// execer covers both *sqlx.DB and *sqlx.Tx so seeding can run standalone or
// inside the month-close transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var _ execer = (*sqlx.DB)(nil)
var _ execer = (*sqlx.Tx)(nil)

func seedRecurringPaymentsTx(ctx context.Context, e execer, paymentsTable, invoiceID string, rules []models.RecurringRule, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, monthly_invoice_id, owner_id, item, amount, memo, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7)
	`, paymentsTable)

	for _, rule := range rules {
		_, err := e.ExecContext(ctx, query,
			uuid.New().String(), invoiceID, rule.OwnerID, rule.Item,
			rule.Amount, rule.Memo, at.UTC())
		if err != nil {
			return fmt.Errorf("failed to seed recurring payment %q: %w", rule.Item, err)
		}
	}

	return nil
}
