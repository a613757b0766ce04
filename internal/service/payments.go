package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
)

// ListPayments returns all live payments on the invoice. The invoice must
// belong to the caller's couple.
func (s *DefaultService) ListPayments(ctx context.Context, userID, invoiceID string) ([]models.Payment, error) {
	if _, _, err := s.invoiceForUser(ctx, userID, invoiceID); err != nil {
		return nil, err
	}

	payments, err := s.repo.ListLivePaymentsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}

	return payments, nil
}

// AddPayment records an expense against the couple's active invoice, owned
// by the caller. Validation failures never reach the store.
func (s *DefaultService) AddPayment(ctx context.Context, userID string, req models.AddPaymentRequest) (*models.Payment, error) {
	if req.Item == "" {
		return nil, fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

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

	payment := &models.Payment{
		ID:               uuid.New().String(),
		MonthlyInvoiceID: invoice.ID,
		OwnerID:          userID,
		Item:             req.Item,
		Amount:           req.Amount,
		Memo:             req.Memo,
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("error creating payment: %w", err)
	}

	s.notifyPartnerPayment(ctx, couple, userID, payment, false)

	return payment, nil
}

// UpdatePayment overwrites item, amount and memo. Only the payment's owner
// may edit it; the check lives here rather than in the UI.
func (s *DefaultService) UpdatePayment(ctx context.Context, userID, paymentID string, req models.UpdatePaymentRequest) (*models.Payment, error) {
	if req.Item == "" {
		return nil, fmt.Errorf("%w: item is required", ErrInvalidInput)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("error getting payment: %w", err)
	}
	if payment == nil || payment.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if payment.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the owner can edit a payment", ErrForbidden)
	}

	payment.Item = req.Item
	payment.Amount = req.Amount
	payment.Memo = req.Memo

	if err := s.repo.UpdatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("error updating payment: %w", err)
	}

	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err == nil && couple != nil {
		s.notifyPartnerPayment(ctx, couple, userID, payment, true)
	}

	return payment, nil
}

// DeletePayment soft-deletes: deleted_at is set and the row is retained.
func (s *DefaultService) DeletePayment(ctx context.Context, userID, paymentID string) error {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("error getting payment: %w", err)
	}
	if payment == nil || payment.DeletedAt != nil {
		return ErrNotFound
	}
	if payment.OwnerID != userID {
		return fmt.Errorf("%w: only the owner can delete a payment", ErrForbidden)
	}

	if err := s.repo.SoftDeletePayment(ctx, paymentID, time.Now()); err != nil {
		return fmt.Errorf("error deleting payment: %w", err)
	}

	return nil
}

// InvoiceBalance computes the caller's signed net balance over the
// invoice's live payments. Positive means the partner owes the caller.
func (s *DefaultService) InvoiceBalance(ctx context.Context, userID, invoiceID string) (int64, error) {
	if _, _, err := s.invoiceForUser(ctx, userID, invoiceID); err != nil {
		return 0, err
	}

	payments, err := s.repo.ListLivePaymentsByInvoiceID(ctx, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("error listing payments: %w", err)
	}

	return calculateBalance(payments, userID), nil
}

// calculateBalance sums +amount for payments the user owns and -amount for
// the partner's payments. Exact integer arithmetic; zero-sum between the
// two members.
func calculateBalance(payments []models.Payment, userID string) int64 {
	var balance int64
	for _, p := range payments {
		if p.OwnerID == userID {
			balance += p.Amount
		} else {
			balance -= p.Amount
		}
	}
	return balance
}

// invoiceForUser loads the invoice and verifies it belongs to the caller's
// couple.
func (s *DefaultService) invoiceForUser(ctx context.Context, userID, invoiceID string) (*models.Couple, *models.MonthlyInvoice, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, nil, ErrNoCouple
	}

	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting invoice: %w", err)
	}
	if invoice == nil || invoice.CoupleID != couple.ID {
		return nil, nil, ErrNotFound
	}

	return couple, invoice, nil
}

// notifyPartnerPayment sends a fire-and-forget push to the other member.
// Failures are logged and never block the mutation.
func (s *DefaultService) notifyPartnerPayment(ctx context.Context, couple *models.Couple, userID string, payment *models.Payment, isEdit bool) {
	if s.notifier == nil {
		return
	}

	partnerID := couple.PartnerOf(userID)
	if partnerID == "" {
		return
	}

	partner, err := s.repo.GetUserByID(ctx, partnerID)
	if err != nil || partner == nil || partner.ExpoPushToken == "" {
		return
	}

	sender, err := s.repo.GetUserByID(ctx, userID)
	if err != nil || sender == nil {
		return
	}

	title := fmt.Sprintf("%s added a payment", sender.Name)
	if isEdit {
		title = fmt.Sprintf("%s updated a payment", sender.Name)
	}
	body := fmt.Sprintf("%s %d", payment.Item, payment.Amount)

	if err := s.notifier.SendPush(ctx, partner.ExpoPushToken, title, body); err != nil {
		slog.Warn("Failed to send payment push notification", "user_id", partnerID, "error", err)
	}
}
