package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
	"github.com/nekoneko/seisan-server/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors, mapped to HTTP status codes by the API layer.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrNoCouple        = errors.New("no couple found for user")
	ErrNoActiveInvoice = errors.New("no active invoice for couple")
	ErrCloseConflict   = errors.New("month close already in progress or completed")
)

// Notifier dispatches fire-and-forget notifications. Failures are logged by
// the service and never propagated to the caller.
type Notifier interface {
	SendPush(ctx context.Context, expoPushToken, title, body string) error
	SendEmail(ctx context.Context, subject, html string) error
}

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	RegisterPushToken(ctx context.Context, userID, token string) error

	// Couples
	CreateCouple(ctx context.Context, userID string, req models.CreateCoupleRequest) (*models.Couple, error)
	GetCouple(ctx context.Context, userID string) (*models.Couple, error)

	// Invoice lifecycle
	ActiveInvoice(ctx context.Context, userID string) (*models.MonthlyInvoice, error)
	InvoiceHistory(ctx context.Context, userID string) ([]models.InvoiceWithBalance, error)

	// Payment ledger
	ListPayments(ctx context.Context, userID, invoiceID string) ([]models.Payment, error)
	AddPayment(ctx context.Context, userID string, req models.AddPaymentRequest) (*models.Payment, error)
	UpdatePayment(ctx context.Context, userID, paymentID string, req models.UpdatePaymentRequest) (*models.Payment, error)
	DeletePayment(ctx context.Context, userID, paymentID string) error
	InvoiceBalance(ctx context.Context, userID, invoiceID string) (int64, error)

	// Settlement
	CloseMonth(ctx context.Context, userID string) (*models.CloseMonthResponse, error)
	SeedRecurringPayments(ctx context.Context, userID, invoiceID string) error

	// Subscriptions
	ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error)
	AddSubscription(ctx context.Context, userID string, req models.AddSubscriptionRequest) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, userID, subscriptionID string, req models.UpdateSubscriptionRequest) (*models.Subscription, error)
	DeleteSubscription(ctx context.Context, userID, subscriptionID string) error
	SubscriptionSummary(ctx context.Context, userID string) (*models.SubscriptionSummaryResponse, error)

	// Recurring rules
	ListRecurringRules(ctx context.Context, userID string) ([]models.RecurringRule, error)
	AddRecurringRule(ctx context.Context, userID string, req models.AddRecurringRuleRequest) (*models.RecurringRule, error)
	DeleteRecurringRule(ctx context.Context, userID, ruleID string) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	notifier      Notifier
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, notifier Notifier, jwtSecret string) Service {
	return &DefaultService{
		repo:          repo,
		notifier:      notifier,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrInvalidInput)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user
	user := &models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, errors.New("invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

func (s *DefaultService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// RegisterPushToken stores the device's push token. The token is
// overwritten whenever the device re-registers.
func (s *DefaultService) RegisterPushToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return fmt.Errorf("%w: push token is required", ErrInvalidInput)
	}
	if err := s.repo.UpdateUserPushToken(ctx, userID, token); err != nil {
		return fmt.Errorf("error updating push token: %w", err)
	}
	return nil
}

// Couple methods
func (s *DefaultService) CreateCouple(ctx context.Context, userID string, req models.CreateCoupleRequest) (*models.Couple, error) {
	partner, err := s.repo.GetUserByEmail(ctx, req.PartnerEmail)
	if err != nil {
		return nil, fmt.Errorf("error getting partner: %w", err)
	}
	if partner == nil {
		return nil, fmt.Errorf("%w: partner is not registered", ErrNotFound)
	}
	if partner.ID == userID {
		return nil, fmt.Errorf("%w: cannot pair with yourself", ErrInvalidInput)
	}

	// Neither user may already belong to a couple
	for _, id := range []string{userID, partner.ID} {
		existing, err := s.repo.GetCoupleByUserID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error checking couple membership: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: user already belongs to a couple", ErrInvalidInput)
		}
	}

	couple := &models.Couple{
		ID:      uuid.New().String(),
		User1ID: userID,
		User2ID: partner.ID,
	}

	if err := s.repo.CreateCouple(ctx, couple); err != nil {
		return nil, fmt.Errorf("error creating couple: %w", err)
	}

	// Open the first invoice for the current month
	now := time.Now().UTC()
	invoice := &models.MonthlyInvoice{
		ID:       uuid.New().String(),
		CoupleID: couple.ID,
		Year:     now.Year(),
		Month:    int(now.Month()),
		Active:   true,
		IsPaid:   false,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, fmt.Errorf("error creating first invoice: %w", err)
	}

	return couple, nil
}

func (s *DefaultService) GetCouple(ctx context.Context, userID string) (*models.Couple, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}
	return couple, nil
}

// generateJWT creates a signed token carrying the user id in the sub claim.
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(s.tokenDuration).Unix(),
		"iat": time.Now().Unix(),
	})

	return token.SignedString(s.jwtSecret)
}
