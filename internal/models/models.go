package models

import (
	"time"
)

// User represents a registered account. ExpoPushToken is empty until the
// device registers for notifications and is overwritten on re-registration.
type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	Password      string    `db:"password" json:"-"` // Password hash, not returned in JSON
	ExpoPushToken string    `db:"expo_push_token" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Couple pairs exactly two users and scopes the shared ledger.
// Immutable after creation.
type Couple struct {
	ID        string    `db:"id" json:"id"`
	User1ID   string    `db:"user1_id" json:"user1Id"`
	User2ID   string    `db:"user2_id" json:"user2Id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PartnerOf returns the other member of the couple, or "" if userID is not
// a member.
func (c *Couple) PartnerOf(userID string) string {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return ""
}

// HasMember reports whether userID is one of the couple's two users.
func (c *Couple) HasMember(userID string) bool {
	return userID == c.User1ID || userID == c.User2ID
}

// MonthlyInvoice represents one calendar month's settlement cycle for a
// couple. At most one invoice per couple is active at a time. Lifecycle:
// created active/unpaid, closed to inactive/paid, terminal after that.
type MonthlyInvoice struct {
	ID        string    `db:"id" json:"id"`
	CoupleID  string    `db:"couple_id" json:"coupleId"`
	Year      int       `db:"year" json:"year"`
	Month     int       `db:"month" json:"month"` // 1-12
	Active    bool      `db:"active" json:"active"`
	IsPaid    bool      `db:"is_paid" json:"isPaid"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Payment is a single expense entry on an invoice. Amount is a positive
// integer in the smallest currency unit. Deletion is logical: DeletedAt is
// set and the row is retained.
type Payment struct {
	ID               string     `db:"id" json:"id"`
	MonthlyInvoiceID string     `db:"monthly_invoice_id" json:"monthlyInvoiceId"`
	OwnerID          string     `db:"owner_id" json:"ownerId"`
	Item             string     `db:"item" json:"item"`
	Amount           int64      `db:"amount" json:"amount"`
	Memo             *string    `db:"memo" json:"memo,omitempty"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Billing cycles for subscriptions.
const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// Subscription is a recurring couple-level expense not tied to an invoice.
// Soft-deleted by setting IsActive to false.
type Subscription struct {
	ID              string    `db:"id" json:"id"`
	CoupleID        string    `db:"couple_id" json:"coupleId"`
	UserID          string    `db:"user_id" json:"userId"`
	ServiceName     string    `db:"service_name" json:"serviceName"`
	MonthlyAmount   int64     `db:"monthly_amount" json:"monthlyAmount"`
	BillingCycle    string    `db:"billing_cycle" json:"billingCycle"` // "monthly" or "yearly"
	NextBillingDate time.Time `db:"next_billing_date" json:"nextBillingDate"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// MonthlyEquivalent returns the subscription's cost normalized to one
// month. Yearly cycles divide by 12 with integer rounding.
func (s *Subscription) MonthlyEquivalent() int64 {
	if s.BillingCycle == BillingCycleYearly {
		return (s.MonthlyAmount + 6) / 12
	}
	return s.MonthlyAmount
}

// RecurringRule is one line of a couple's recurring-payment catalog. Each
// month close seeds one payment per rule into the freshly created invoice.
type RecurringRule struct {
	ID        string    `db:"id" json:"id"`
	CoupleID  string    `db:"couple_id" json:"coupleId"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	Item      string    `db:"item" json:"item"`
	Amount    int64     `db:"amount" json:"amount"`
	Memo      *string   `db:"memo" json:"memo,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
