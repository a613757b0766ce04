package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
)

// Invoice repository methods
func (r *PostgresRepository) CreateInvoice(ctx context.Context, invoice *models.MonthlyInvoice) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, couple_id, year, month, active, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.table("monthly_invoices"))

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID, invoice.CoupleID, invoice.Year, invoice.Month,
		invoice.Active, invoice.IsPaid, invoice.CreatedAt, invoice.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetInvoice(ctx context.Context, id string) (*models.MonthlyInvoice, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, r.table("monthly_invoices"))

	var invoice models.MonthlyInvoice
	err := r.db.GetContext(ctx, &invoice, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Invoice not found
		}
		return nil, err
	}

	return &invoice, nil
}

func (r *PostgresRepository) GetActiveInvoiceByCoupleID(ctx context.Context, coupleID string) (*models.MonthlyInvoice, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE couple_id = $1 AND active = true
	`, r.table("monthly_invoices"))

	var invoice models.MonthlyInvoice
	err := r.db.GetContext(ctx, &invoice, query, coupleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No active invoice
		}
		return nil, err
	}

	return &invoice, nil
}

func (r *PostgresRepository) ListInvoicesByCoupleID(ctx context.Context, coupleID string) ([]models.MonthlyInvoice, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE couple_id = $1 ORDER BY year DESC, month DESC
	`, r.table("monthly_invoices"))

	var invoices []models.MonthlyInvoice
	err := r.db.SelectContext(ctx, &invoices, query, coupleID)
	if err != nil {
		return nil, err
	}

	return invoices, nil
}

// DeactivateInvoices sets active=false on all of a couple's invoices.
// Bulk update guards against duplicate actives.
func (r *PostgresRepository) DeactivateInvoices(ctx context.Context, coupleID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET active = false, updated_at = $1 WHERE couple_id = $2
	`, r.table("monthly_invoices"))

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), coupleID)
	return err
}

func (r *PostgresRepository) MarkInvoicePaid(ctx context.Context, invoiceID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_paid = true, updated_at = $1 WHERE id = $2
	`, r.table("monthly_invoices"))

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), invoiceID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("invoice not found")
	}

	return nil
}

// CloseMonth performs the whole month-close sequence within a single
// transaction so a partial failure can never leave the couple without an
// active invoice. The active invoice is re-read with a row lock first; a
// concurrent close makes the recheck fail with ErrStaleActiveInvoice.
func (r *PostgresRepository) CloseMonth(
	ctx context.Context,
	coupleID string,
	activeInvoiceID string,
	next *models.MonthlyInvoice,
	rules []models.RecurringRule,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Recheck the active invoice under lock
	var currentActiveID string
	query := fmt.Sprintf(`
		SELECT id FROM %s WHERE couple_id = $1 AND active = true FOR UPDATE
	`, r.table("monthly_invoices"))
	err = tx.GetContext(ctx, &currentActiveID, query, coupleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrStaleActiveInvoice
		}
		return err
	}
	if currentActiveID != activeInvoiceID {
		err = ErrStaleActiveInvoice
		return err
	}

	now := time.Now().UTC()

	// Deactivate all invoices for the couple
	query = fmt.Sprintf(`
		UPDATE %s SET active = false, updated_at = $1 WHERE couple_id = $2
	`, r.table("monthly_invoices"))
	_, err = tx.ExecContext(ctx, query, now, coupleID)
	if err != nil {
		return err
	}

	// Mark the closed invoice paid
	query = fmt.Sprintf(`
		UPDATE %s SET is_paid = true, updated_at = $1 WHERE id = $2
	`, r.table("monthly_invoices"))
	_, err = tx.ExecContext(ctx, query, now, activeInvoiceID)
	if err != nil {
		return err
	}

	// Create the next month's invoice
	if next.ID == "" {
		next.ID = uuid.New().String()
	}
	next.CreatedAt = now
	next.UpdatedAt = now
	query = fmt.Sprintf(`
		INSERT INTO %s (id, couple_id, year, month, active, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.table("monthly_invoices"))
	_, err = tx.ExecContext(ctx, query,
		next.ID, next.CoupleID, next.Year, next.Month,
		next.Active, next.IsPaid, next.CreatedAt, next.UpdatedAt)
	if err != nil {
		return err
	}

	// Seed recurring payments into the new invoice
	err = seedRecurringPaymentsTx(ctx, tx, r.table("payments"), next.ID, rules, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}
