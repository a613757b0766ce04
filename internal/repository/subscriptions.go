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

// Subscription repository methods
func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, couple_id, user_id, service_name, monthly_amount, billing_cycle, next_billing_date, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.table("couple_subscriptions"))

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.CoupleID, sub.UserID, sub.ServiceName, sub.MonthlyAmount,
		sub.BillingCycle, sub.NextBillingDate, sub.IsActive,
		sub.CreatedAt, sub.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, r.table("couple_subscriptions"))

	var sub models.Subscription
	err := r.db.GetContext(ctx, &sub, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Subscription not found
		}
		return nil, err
	}

	return &sub, nil
}

func (r *PostgresRepository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	query := fmt.Sprintf(`
		UPDATE %s SET service_name = $1, monthly_amount = $2, billing_cycle = $3, next_billing_date = $4, updated_at = $5
		WHERE id = $6
	`, r.table("couple_subscriptions"))

	result, err := r.db.ExecContext(ctx, query,
		sub.ServiceName, sub.MonthlyAmount, sub.BillingCycle,
		sub.NextBillingDate, time.Now().UTC(), sub.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("subscription not found")
	}

	return nil
}

// DeactivateSubscription soft-deletes by flipping is_active.
func (r *PostgresRepository) DeactivateSubscription(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_active = false, updated_at = $1 WHERE id = $2
	`, r.table("couple_subscriptions"))

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("subscription not found")
	}

	return nil
}

func (r *PostgresRepository) ListActiveSubscriptionsByCoupleID(ctx context.Context, coupleID string) ([]models.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE couple_id = $1 AND is_active = true ORDER BY created_at DESC
	`, r.table("couple_subscriptions"))

	var subs []models.Subscription
	err := r.db.SelectContext(ctx, &subs, query, coupleID)
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// Recurring rule repository methods
func (r *PostgresRepository) CreateRecurringRule(ctx context.Context, rule *models.RecurringRule) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, couple_id, owner_id, item, amount, memo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.table("recurring_rules"))

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.CoupleID, rule.OwnerID, rule.Item, rule.Amount,
		rule.Memo, rule.CreatedAt)

	return err
}

func (r *PostgresRepository) DeleteRecurringRule(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table("recurring_rules"))

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("recurring rule not found")
	}

	return nil
}

func (r *PostgresRepository) ListRecurringRulesByCoupleID(ctx context.Context, coupleID string) ([]models.RecurringRule, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE couple_id = $1 ORDER BY created_at
	`, r.table("recurring_rules"))

	var rules []models.RecurringRule
	err := r.db.SelectContext(ctx, &rules, query, coupleID)
	if err != nil {
		return nil, err
	}

	return rules, nil
}
