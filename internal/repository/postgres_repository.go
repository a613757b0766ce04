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

// ErrStaleActiveInvoice is returned by CloseMonth when the invoice the
// caller intended to close is no longer the couple's active invoice, e.g.
// because a concurrent close already ran.
var ErrStaleActiveInvoice = errors.New("active invoice changed since it was read")

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserPushToken(ctx context.Context, userID, token string) error

	// Couple operations
	CreateCouple(ctx context.Context, couple *models.Couple) error
	GetCoupleByID(ctx context.Context, id string) (*models.Couple, error)
	GetCoupleByUserID(ctx context.Context, userID string) (*models.Couple, error)

	// Invoice operations
	CreateInvoice(ctx context.Context, invoice *models.MonthlyInvoice) error
	GetInvoice(ctx context.Context, id string) (*models.MonthlyInvoice, error)
	GetActiveInvoiceByCoupleID(ctx context.Context, coupleID string) (*models.MonthlyInvoice, error)
	ListInvoicesByCoupleID(ctx context.Context, coupleID string) ([]models.MonthlyInvoice, error)
	DeactivateInvoices(ctx context.Context, coupleID string) error
	MarkInvoicePaid(ctx context.Context, invoiceID string) error

	// Payment operations
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	SoftDeletePayment(ctx context.Context, id string, at time.Time) error
	ListLivePaymentsByInvoiceID(ctx context.Context, invoiceID string) ([]models.Payment, error)

	// Subscription operations
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	DeactivateSubscription(ctx context.Context, id string) error
	ListActiveSubscriptionsByCoupleID(ctx context.Context, coupleID string) ([]models.Subscription, error)

	// Recurring rule operations
	CreateRecurringRule(ctx context.Context, rule *models.RecurringRule) error
	DeleteRecurringRule(ctx context.Context, id string) error
	ListRecurringRulesByCoupleID(ctx context.Context, coupleID string) ([]models.RecurringRule, error)

	// SeedRecurringPayments inserts one live payment per rule into the
	// invoice. No uniqueness guard: calling it twice duplicates rows.
	SeedRecurringPayments(ctx context.Context, invoiceID string, rules []models.RecurringRule, at time.Time) error

	// CloseMonth runs the whole month-close sequence in one transaction:
	// verify activeInvoiceID is still active, deactivate all invoices for
	// the couple, mark the closed one paid, insert next, seed rules.
	CloseMonth(ctx context.Context, coupleID, activeInvoiceID string, next *models.MonthlyInvoice, rules []models.RecurringRule) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db     *sqlx.DB
	prefix string
}

// NewPostgresRepository creates a new PostgreSQL repository. prefix is the
// environment table prefix ("dev_" outside production).
func NewPostgresRepository(db *sqlx.DB, prefix string) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		prefix: prefix,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// table returns the prefixed table name.
func (r *PostgresRepository) table(name string) string {
	return r.prefix + name
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, name, password, expo_push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.table("users"))

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.ExpoPushToken,
		user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE email = $1`, r.table("users"))

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, r.table("users"))

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) UpdateUserPushToken(ctx context.Context, userID, token string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET expo_push_token = $1, updated_at = $2 WHERE id = $3
	`, r.table("users"))

	result, err := r.db.ExecContext(ctx, query, token, time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.New("user not found")
	}

	return nil
}

// Couple repository methods
func (r *PostgresRepository) CreateCouple(ctx context.Context, couple *models.Couple) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.table("couples"))

	if couple.ID == "" {
		couple.ID = uuid.New().String()
	}
	couple.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		couple.ID, couple.User1ID, couple.User2ID, couple.CreatedAt)

	return err
}

func (r *PostgresRepository) GetCoupleByID(ctx context.Context, id string) (*models.Couple, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, r.table("couples"))

	var couple models.Couple
	err := r.db.GetContext(ctx, &couple, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Couple not found
		}
		return nil, err
	}

	return &couple, nil
}

func (r *PostgresRepository) GetCoupleByUserID(ctx context.Context, userID string) (*models.Couple, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s WHERE user1_id = $1 OR user2_id = $1
	`, r.table("couples"))

	var couple models.Couple
	err := r.db.GetContext(ctx, &couple, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Couple not found
		}
		return nil, err
	}

	return &couple, nil
}
