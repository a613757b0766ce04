package models

// Request models
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterPushTokenRequest struct {
	ExpoPushToken string `json:"expoPushToken" binding:"required"`
}

type CreateCoupleRequest struct {
	PartnerEmail string `json:"partnerEmail" binding:"required,email"`
}

type AddPaymentRequest struct {
	Item   string  `json:"item" binding:"required"`
	Amount int64   `json:"amount" binding:"required,gt=0"`
	Memo   *string `json:"memo"`
}

type UpdatePaymentRequest struct {
	Item   string  `json:"item" binding:"required"`
	Amount int64   `json:"amount" binding:"required,gt=0"`
	Memo   *string `json:"memo"`
}

type AddSubscriptionRequest struct {
	ServiceName     string `json:"serviceName" binding:"required"`
	MonthlyAmount   int64  `json:"monthlyAmount" binding:"required,gt=0"`
	BillingCycle    string `json:"billingCycle" binding:"required,oneof=monthly yearly"`
	NextBillingDate string `json:"nextBillingDate" binding:"required"` // YYYY-MM-DD
}

type UpdateSubscriptionRequest struct {
	ServiceName     string `json:"serviceName" binding:"required"`
	MonthlyAmount   int64  `json:"monthlyAmount" binding:"required,gt=0"`
	BillingCycle    string `json:"billingCycle" binding:"required,oneof=monthly yearly"`
	NextBillingDate string `json:"nextBillingDate" binding:"required"` // YYYY-MM-DD
}

type AddRecurringRuleRequest struct {
	Item    string  `json:"item" binding:"required"`
	Amount  int64   `json:"amount" binding:"required,gt=0"`
	Memo    *string `json:"memo"`
	OwnerID string  `json:"ownerId" binding:"required"`
}

// Response models
type AuthResponse struct {
	Status    string `json:"status"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

type CoupleResponse struct {
	Status string  `json:"status"`
	Couple *Couple `json:"couple,omitempty"`
}

type InvoiceResponse struct {
	Status  string          `json:"status"`
	Invoice *MonthlyInvoice `json:"invoice,omitempty"`
}

// InvoiceWithBalance annotates a closed invoice with the requesting user's
// settled balance. Balance is nil for the active invoice; clients compute
// that live from the payment list.
type InvoiceWithBalance struct {
	MonthlyInvoice
	Balance *int64 `json:"balance,omitempty"`
}

type InvoiceHistoryResponse struct {
	Status   string               `json:"status"`
	Invoices []InvoiceWithBalance `json:"invoices"`
}

type PaymentResponse struct {
	Status  string   `json:"status"`
	Payment *Payment `json:"payment,omitempty"`
}

type PaymentListResponse struct {
	Status   string    `json:"status"`
	Payments []Payment `json:"payments"`
}

type BalanceResponse struct {
	Status    string `json:"status"`
	InvoiceID string `json:"invoiceId"`
	// Balance is signed: positive means the requesting user is owed money
	// by the partner, negative means they owe the partner.
	Balance int64 `json:"balance"`
}

type CloseMonthResponse struct {
	Status        string          `json:"status"`
	ClosedInvoice *MonthlyInvoice `json:"closedInvoice"`
	NewInvoice    *MonthlyInvoice `json:"newInvoice"`
	Balance       int64           `json:"balance"`
}

type SubscriptionResponse struct {
	Status       string        `json:"status"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type SubscriptionListResponse struct {
	Status        string         `json:"status"`
	Subscriptions []Subscription `json:"subscriptions"`
}

type SubscriptionSummaryResponse struct {
	Status string `json:"status"`
	// MonthlyTotal sums the monthly-equivalent amount of every active
	// subscription (yearly amounts divided by 12, rounded).
	MonthlyTotal int64 `json:"monthlyTotal"`
	Count        int   `json:"count"`
}

type RecurringRuleResponse struct {
	Status string         `json:"status"`
	Rule   *RecurringRule `json:"rule,omitempty"`
}

type RecurringRuleListResponse struct {
	Status string          `json:"status"`
	Rules  []RecurringRule `json:"rules"`
}

type VersionResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
