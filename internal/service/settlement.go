package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/nekoneko/seisan-server/internal/repository"
)

// ActiveInvoice returns the couple's single active invoice.
func (s *DefaultService) ActiveInvoice(ctx context.Context, userID string) (*models.MonthlyInvoice, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	invoice, err := s.repo.GetActiveInvoiceByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting active invoice: %w", err)
	}
	if invoice == nil {
		return nil, ErrNoActiveInvoice
	}

	return invoice, nil
}

// InvoiceHistory lists every invoice for the couple, newest first. Closed
// invoices carry the caller's settled balance; the active invoice's balance
// is computed live from its payment list, not here.
func (s *DefaultService) InvoiceHistory(ctx context.Context, userID string) ([]models.InvoiceWithBalance, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	invoices, err := s.repo.ListInvoicesByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}

	history := make([]models.InvoiceWithBalance, 0, len(invoices))
	for _, inv := range invoices {
		entry := models.InvoiceWithBalance{MonthlyInvoice: inv}
		if !inv.Active {
			payments, err := s.repo.ListLivePaymentsByInvoiceID(ctx, inv.ID)
			if err != nil {
				return nil, fmt.Errorf("error listing payments for invoice %s: %w", inv.ID, err)
			}
			balance := calculateBalance(payments, userID)
			entry.Balance = &balance
		}
		history = append(history, entry)
	}

	return history, nil
}

// CloseMonth finalizes the active invoice and opens the next month's. The
// sequence (deactivate all, mark paid, create next, seed recurring) runs as
// one transaction; a concurrent close loses the active-invoice recheck.
// Notifications go out only after the transaction commits.
func (s *DefaultService) CloseMonth(ctx context.Context, userID string) (*models.CloseMonthResponse, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	active, err := s.repo.GetActiveInvoiceByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting active invoice: %w", err)
	}
	if active == nil {
		return nil, ErrNoActiveInvoice
	}

	// Closing balance from the caller's perspective
	payments, err := s.repo.ListLivePaymentsByInvoiceID(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	balance := calculateBalance(payments, userID)

	rules, err := s.repo.ListRecurringRulesByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing recurring rules: %w", err)
	}

	nextYear, nextMonth := nextBillingMonth(time.Now().UTC())
	next := &models.MonthlyInvoice{
		ID:       uuid.New().String(),
		CoupleID: couple.ID,
		Year:     nextYear,
		Month:    nextMonth,
		Active:   true,
		IsPaid:   false,
	}

	if err := s.repo.CloseMonth(ctx, couple.ID, active.ID, next, rules); err != nil {
		if errors.Is(err, repository.ErrStaleActiveInvoice) {
			return nil, ErrCloseConflict
		}
		return nil, fmt.Errorf("error closing month: %w", err)
	}

	// Re-fetch the new active invoice for the response
	newActive, err := s.repo.GetActiveInvoiceByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error fetching new active invoice: %w", err)
	}

	closed := *active
	closed.Active = false
	closed.IsPaid = true

	s.notifyMonthClosed(ctx, couple, userID, &closed, balance)

	return &models.CloseMonthResponse{
		Status:        "success",
		ClosedInvoice: &closed,
		NewInvoice:    newActive,
		Balance:       balance,
	}, nil
}

// nextBillingMonth returns the year and month following now, wrapping
// December into January of the next year.
func nextBillingMonth(now time.Time) (int, int) {
	year, month := now.Year(), int(now.Month())
	month++
	if month > 12 {
		month = 1
		year++
	}
	return year, month
}

// notifyMonthClosed pushes a completion notice to both partners and emails
// a settlement summary. All failures are logged only.
func (s *DefaultService) notifyMonthClosed(ctx context.Context, couple *models.Couple, userID string, closed *models.MonthlyInvoice, balance int64) {
	if s.notifier == nil {
		return
	}

	monthLabel := fmt.Sprintf("%04d-%02d", closed.Year, closed.Month)
	title := "Monthly settlement completed"
	body := fmt.Sprintf("The %s invoice has been settled.", monthLabel)

	for _, memberID := range []string{couple.User1ID, couple.User2ID} {
		member, err := s.repo.GetUserByID(ctx, memberID)
		if err != nil || member == nil || member.ExpoPushToken == "" {
			continue
		}
		if err := s.notifier.SendPush(ctx, member.ExpoPushToken, title, body); err != nil {
			slog.Warn("Failed to send close-month push notification", "user_id", memberID, "error", err)
		}
	}

	amountText := fmt.Sprintf("<strong>you receive %d from your partner</strong>", balance)
	if balance < 0 {
		amountText = fmt.Sprintf("<strong>you pay %d to your partner</strong>", -balance)
	} else if balance == 0 {
		amountText = "<strong>you are all settled up</strong>"
	}
	html := fmt.Sprintf(
		`<div><h2>Monthly settlement</h2><p>The %s invoice has been settled.</p><p>%s</p></div>`,
		monthLabel, amountText,
	)
	if err := s.notifier.SendEmail(ctx, fmt.Sprintf("Settlement summary %s", monthLabel), html); err != nil {
		slog.Warn("Failed to send close-month email", "error", err)
	}
}

// SeedRecurringPayments inserts the couple's recurring catalog into the
// given invoice. Exposed for manual re-seeding; note it carries no
// uniqueness guard, so repeated calls duplicate rows.
func (s *DefaultService) SeedRecurringPayments(ctx context.Context, userID, invoiceID string) error {
	couple, invoice, err := s.invoiceForUser(ctx, userID, invoiceID)
	if err != nil {
		return err
	}

	rules, err := s.repo.ListRecurringRulesByCoupleID(ctx, couple.ID)
	if err != nil {
		return fmt.Errorf("error listing recurring rules: %w", err)
	}

	if err := s.repo.SeedRecurringPayments(ctx, invoice.ID, rules, time.Now()); err != nil {
		return fmt.Errorf("error seeding recurring payments: %w", err)
	}

	return nil
}
