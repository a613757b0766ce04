package service

import (
	"context"
	"testing"

	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBalance(t *testing.T) {
	payments := []models.Payment{
		{OwnerID: "a", Amount: 1000},
		{OwnerID: "b", Amount: 400},
	}

	// Signed from each member's perspective, zero-sum between the two
	assert.Equal(t, int64(600), calculateBalance(payments, "a"))
	assert.Equal(t, int64(-600), calculateBalance(payments, "b"))
	assert.Equal(t, int64(0), calculateBalance(payments, "a")+calculateBalance(payments, "b"))

	assert.Equal(t, int64(0), calculateBalance(nil, "a"))
}

func TestAddPaymentValidation(t *testing.T) {
	f := setupCoupleFixture(t)
	ctx := context.Background()

	// Missing item
	_, err := f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Amount: 500})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Non-positive amount
	_, err = f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Item: "Groceries", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Item: "Refund", Amount: -100})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Rejected requests never reach the store
	payments, err := f.repo.ListLivePaymentsByInvoiceID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 0)
}

func TestAddPaymentWithoutCouple(t *testing.T) {
	ctx := context.Background()
	svc := NewDefaultService(newFakeRepository(), nil, "test-secret")

	resp, err := svc.SignUp(ctx, models.SignUpRequest{
		Email: "solo@example.com", Password: "password123", Name: "Solo",
	})
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, resp.UserID, models.AddPaymentRequest{Item: "Groceries", Amount: 500})
	assert.ErrorIs(t, err, ErrNoCouple)
}

func TestAddPaymentNotifiesPartner(t *testing.T) {
	f := setupCoupleFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RegisterPushToken(ctx, f.user2ID, "ExponentPushToken[sam]"))

	payment, err := f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Item: "Groceries", Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, f.user1ID, payment.OwnerID)
	assert.Equal(t, f.invoice.ID, payment.MonthlyInvoiceID)

	require.Len(t, f.notifier.pushes, 1)
	assert.Equal(t, "Alex added a payment", f.notifier.pushes[0])

	// Partner without a registered token gets nothing
	_, err = f.svc.AddPayment(ctx, f.user2ID, models.AddPaymentRequest{Item: "Utilities", Amount: 400})
	require.NoError(t, err)
	assert.Len(t, f.notifier.pushes, 1)
}

func TestUpdatePaymentOwnerOnly(t *testing.T) {
	f := setupCoupleFixture(t)
	ctx := context.Background()

	payment, err := f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Item: "Dinner", Amount: 800})
	require.NoError(t, err)

	req := models.UpdatePaymentRequest{Item: "Dinner out", Amount: 900}

	_, err = f.svc.UpdatePayment(ctx, f.user2ID, payment.ID, req)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdatePayment(ctx, f.user1ID, payment.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Dinner out", updated.Item)
	assert.Equal(t, int64(900), updated.Amount)

	_, err = f.svc.UpdatePayment(ctx, f.user1ID, "missing", req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePaymentIsSoft(t *testing.T) {
	f := setupCoupleFixture(t)
	ctx := context.Background()

	payment, err := f.svc.AddPayment(ctx, f.user1ID, models.AddPaymentRequest{Item: "Coffee", Amount: 500})
	require.NoError(t, err)
	_, err = f.svc.AddPayment(ctx, f.user2ID, models.AddPaymentRequest{Item: "Snacks", Amount: 300})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeletePayment(ctx, f.user2ID, payment.ID), ErrForbidden)

	require.NoError(t, f.svc.DeletePayment(ctx, f.user1ID, payment.ID))

	// Row retained with deleted_at set
	stored, err := f.repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotNil(t, stored.DeletedAt)

	// Excluded from listings and the balance
	live, err := f.svc.ListPayments(ctx, f.user1ID, f.invoice.ID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "Snacks", live[0].Item)

	balance, err := f.svc.InvoiceBalance(ctx, f.user1ID, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-300), balance)

	// Deleting again reports not found
	assert.ErrorIs(t, f.svc.DeletePayment(ctx, f.user1ID, payment.ID), ErrNotFound)
}

func TestInvoiceScopedToCouple(t *testing.T) {
	f := setupCoupleFixture(t)
	ctx := context.Background()

	// A second couple cannot read the first couple's invoice
	other, err := f.svc.SignUp(ctx, models.SignUpRequest{
		Email: "kim@example.com", Password: "password123", Name: "Kim",
	})
	require.NoError(t, err)
	_, err = f.svc.SignUp(ctx, models.SignUpRequest{
		Email: "jo@example.com", Password: "password123", Name: "Jo",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateCouple(ctx, other.UserID, models.CreateCoupleRequest{PartnerEmail: "jo@example.com"})
	require.NoError(t, err)

	_, err = f.svc.ListPayments(ctx, other.UserID, f.invoice.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.InvoiceBalance(ctx, other.UserID, f.invoice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
