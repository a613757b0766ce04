package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/nekoneko/seisan-server/internal/repository"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	mu            sync.Mutex
	users         map[string]*models.User
	couples       map[string]*models.Couple
	invoices      map[string]*models.MonthlyInvoice
	payments      map[string]*models.Payment
	subscriptions map[string]*models.Subscription
	rules         map[string]*models.RecurringRule
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:         make(map[string]*models.User),
		couples:       make(map[string]*models.Couple),
		invoices:      make(map[string]*models.MonthlyInvoice),
		payments:      make(map[string]*models.Payment),
		subscriptions: make(map[string]*models.Subscription),
		rules:         make(map[string]*models.RecurringRule),
	}
}

var _ repository.Repository = (*fakeRepository)(nil)

func (f *fakeRepository) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepository) UpdateUserPushToken(ctx context.Context, userID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.ExpoPushToken = token
	return nil
}

func (f *fakeRepository) CreateCouple(ctx context.Context, couple *models.Couple) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if couple.ID == "" {
		couple.ID = uuid.New().String()
	}
	c := *couple
	f.couples[couple.ID] = &c
	return nil
}

func (f *fakeRepository) GetCoupleByID(ctx context.Context, id string) (*models.Couple, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.couples[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepository) GetCoupleByUserID(ctx context.Context, userID string) (*models.Couple, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.couples {
		if c.User1ID == userID || c.User2ID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) CreateInvoice(ctx context.Context, invoice *models.MonthlyInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createInvoiceLocked(invoice)
	return nil
}

func (f *fakeRepository) createInvoiceLocked(invoice *models.MonthlyInvoice) {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	invoice.CreatedAt = time.Now().UTC()
	inv := *invoice
	f.invoices[invoice.ID] = &inv
}

func (f *fakeRepository) GetInvoice(ctx context.Context, id string) (*models.MonthlyInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeRepository) GetActiveInvoiceByCoupleID(ctx context.Context, coupleID string) (*models.MonthlyInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.CoupleID == coupleID && inv.Active {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) ListInvoicesByCoupleID(ctx context.Context, coupleID string) ([]models.MonthlyInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MonthlyInvoice
	for _, inv := range f.invoices {
		if inv.CoupleID == coupleID {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (f *fakeRepository) DeactivateInvoices(ctx context.Context, coupleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.CoupleID == coupleID {
			inv.Active = false
		}
	}
	return nil
}

func (f *fakeRepository) MarkInvoicePaid(ctx context.Context, invoiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return errors.New("invoice not found")
	}
	inv.IsPaid = true
	return nil
}

func (f *fakeRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createPaymentLocked(payment)
	return nil
}

func (f *fakeRepository) createPaymentLocked(payment *models.Payment) {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	payment.CreatedAt = time.Now().UTC()
	p := *payment
	f.payments[payment.ID] = &p
}

func (f *fakeRepository) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.payments[payment.ID]
	if !ok {
		return errors.New("payment not found")
	}
	existing.Item = payment.Item
	existing.Amount = payment.Amount
	existing.Memo = payment.Memo
	return nil
}

func (f *fakeRepository) SoftDeletePayment(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return errors.New("payment not found")
	}
	p.DeletedAt = &at
	return nil
}

func (f *fakeRepository) ListLivePaymentsByInvoiceID(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.MonthlyInvoiceID == invoiceID && p.DeletedAt == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	s := *sub
	f.subscriptions[sub.ID] = &s
	return nil
}

func (f *fakeRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subscriptions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepository) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.subscriptions[sub.ID]
	if !ok {
		return errors.New("subscription not found")
	}
	existing.ServiceName = sub.ServiceName
	existing.MonthlyAmount = sub.MonthlyAmount
	existing.BillingCycle = sub.BillingCycle
	existing.NextBillingDate = sub.NextBillingDate
	return nil
}

func (f *fakeRepository) DeactivateSubscription(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subscriptions[id]
	if !ok {
		return errors.New("subscription not found")
	}
	s.IsActive = false
	return nil
}

func (f *fakeRepository) ListActiveSubscriptionsByCoupleID(ctx context.Context, coupleID string) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subscriptions {
		if s.CoupleID == coupleID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateRecurringRule(ctx context.Context, rule *models.RecurringRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	r := *rule
	f.rules[rule.ID] = &r
	return nil
}

func (f *fakeRepository) DeleteRecurringRule(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rules[id]; !ok {
		return errors.New("rule not found")
	}
	delete(f.rules, id)
	return nil
}

func (f *fakeRepository) ListRecurringRulesByCoupleID(ctx context.Context, coupleID string) ([]models.RecurringRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecurringRule
	for _, r := range f.rules {
		if r.CoupleID == coupleID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepository) SeedRecurringPayments(ctx context.Context, invoiceID string, rules []models.RecurringRule, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seedLocked(invoiceID, rules)
	return nil
}

func (f *fakeRepository) seedLocked(invoiceID string, rules []models.RecurringRule) {
	for _, rule := range rules {
		f.createPaymentLocked(&models.Payment{
			MonthlyInvoiceID: invoiceID,
			OwnerID:          rule.OwnerID,
			Item:             rule.Item,
			Amount:           rule.Amount,
			Memo:             rule.Memo,
		})
	}
}

func (f *fakeRepository) CloseMonth(ctx context.Context, coupleID, activeInvoiceID string, next *models.MonthlyInvoice, rules []models.RecurringRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var active *models.MonthlyInvoice
	for _, inv := range f.invoices {
		if inv.CoupleID == coupleID && inv.Active {
			active = inv
			break
		}
	}
	if active == nil || active.ID != activeInvoiceID {
		return repository.ErrStaleActiveInvoice
	}

	for _, inv := range f.invoices {
		if inv.CoupleID == coupleID {
			inv.Active = false
		}
	}
	active.IsPaid = true

	f.createInvoiceLocked(next)
	f.seedLocked(next.ID, rules)
	return nil
}

// fakeNotifier records outbound notifications.
type fakeNotifier struct {
	mu     sync.Mutex
	pushes []string
	emails []string
}

func (n *fakeNotifier) SendPush(ctx context.Context, expoPushToken, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, title)
	return nil
}

func (n *fakeNotifier) SendEmail(ctx context.Context, subject, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, subject)
	return nil
}
