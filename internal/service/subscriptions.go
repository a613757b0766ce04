package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nekoneko/seisan-server/internal/models"
)

const billingDateLayout = "2006-01-02"

// ListSubscriptions returns the couple's active subscriptions, newest
// first. Deactivated rows are excluded.
func (s *DefaultService) ListSubscriptions(ctx context.Context, userID string) ([]models.Subscription, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	subs, err := s.repo.ListActiveSubscriptionsByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	return subs, nil
}

func (s *DefaultService) AddSubscription(ctx context.Context, userID string, req models.AddSubscriptionRequest) (*models.Subscription, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	nextBilling, err := time.Parse(billingDateLayout, req.NextBillingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: nextBillingDate must be YYYY-MM-DD", ErrInvalidInput)
	}

	sub := &models.Subscription{
		ID:              uuid.New().String(),
		CoupleID:        couple.ID,
		UserID:          userID,
		ServiceName:     req.ServiceName,
		MonthlyAmount:   req.MonthlyAmount,
		BillingCycle:    req.BillingCycle,
		NextBillingDate: nextBilling,
		IsActive:        true,
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("error creating subscription: %w", err)
	}

	s.notifyPartnerSubscription(ctx, couple, userID, sub.ServiceName, "added")

	return sub, nil
}

// UpdateSubscription overwrites the editable fields. Either member of the
// couple may edit a shared subscription.
func (s *DefaultService) UpdateSubscription(ctx context.Context, userID, subscriptionID string, req models.UpdateSubscriptionRequest) (*models.Subscription, error) {
	couple, sub, err := s.subscriptionForUser(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	nextBilling, err := time.Parse(billingDateLayout, req.NextBillingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: nextBillingDate must be YYYY-MM-DD", ErrInvalidInput)
	}

	sub.ServiceName = req.ServiceName
	sub.MonthlyAmount = req.MonthlyAmount
	sub.BillingCycle = req.BillingCycle
	sub.NextBillingDate = nextBilling

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("error updating subscription: %w", err)
	}

	s.notifyPartnerSubscription(ctx, couple, userID, sub.ServiceName, "updated")

	return sub, nil
}

// DeleteSubscription soft-deletes by deactivating the row.
func (s *DefaultService) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	couple, sub, err := s.subscriptionForUser(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	if err := s.repo.DeactivateSubscription(ctx, subscriptionID); err != nil {
		return fmt.Errorf("error deactivating subscription: %w", err)
	}

	s.notifyPartnerSubscription(ctx, couple, userID, sub.ServiceName, "removed")

	return nil
}

// SubscriptionSummary totals the couple's active subscriptions as a monthly
// figure. Yearly cycles count as their amount divided by 12, rounded.
func (s *DefaultService) SubscriptionSummary(ctx context.Context, userID string) (*models.SubscriptionSummaryResponse, error) {
	subs, err := s.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total int64
	for i := range subs {
		total += subs[i].MonthlyEquivalent()
	}

	return &models.SubscriptionSummaryResponse{
		Status:       "success",
		MonthlyTotal: total,
		Count:        len(subs),
	}, nil
}

// Recurring rule methods
func (s *DefaultService) ListRecurringRules(ctx context.Context, userID string) ([]models.RecurringRule, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	rules, err := s.repo.ListRecurringRulesByCoupleID(ctx, couple.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing recurring rules: %w", err)
	}

	return rules, nil
}

// AddRecurringRule appends one line to the couple's seeding catalog. The
// owner must be one of the couple's two users.
func (s *DefaultService) AddRecurringRule(ctx context.Context, userID string, req models.AddRecurringRuleRequest) (*models.RecurringRule, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, ErrNoCouple
	}

	if !couple.HasMember(req.OwnerID) {
		return nil, fmt.Errorf("%w: ownerId must be one of the couple's users", ErrInvalidInput)
	}

	rule := &models.RecurringRule{
		ID:       uuid.New().String(),
		CoupleID: couple.ID,
		OwnerID:  req.OwnerID,
		Item:     req.Item,
		Amount:   req.Amount,
		Memo:     req.Memo,
	}

	if err := s.repo.CreateRecurringRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("error creating recurring rule: %w", err)
	}

	return rule, nil
}

func (s *DefaultService) DeleteRecurringRule(ctx context.Context, userID, ruleID string) error {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return ErrNoCouple
	}

	rules, err := s.repo.ListRecurringRulesByCoupleID(ctx, couple.ID)
	if err != nil {
		return fmt.Errorf("error listing recurring rules: %w", err)
	}

	for _, rule := range rules {
		if rule.ID == ruleID {
			if err := s.repo.DeleteRecurringRule(ctx, ruleID); err != nil {
				return fmt.Errorf("error deleting recurring rule: %w", err)
			}
			return nil
		}
	}

	return ErrNotFound
}

// subscriptionForUser loads the subscription and verifies it belongs to the
// caller's couple.
func (s *DefaultService) subscriptionForUser(ctx context.Context, userID, subscriptionID string) (*models.Couple, *models.Subscription, error) {
	couple, err := s.repo.GetCoupleByUserID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting couple: %w", err)
	}
	if couple == nil {
		return nil, nil, ErrNoCouple
	}

	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting subscription: %w", err)
	}
	if sub == nil || !sub.IsActive || sub.CoupleID != couple.ID {
		return nil, nil, ErrNotFound
	}

	return couple, sub, nil
}

func (s *DefaultService) notifyPartnerSubscription(ctx context.Context, couple *models.Couple, userID, serviceName, action string) {
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

	title := fmt.Sprintf("%s %s a subscription", sender.Name, action)
	if err := s.notifier.SendPush(ctx, partner.ExpoPushToken, title, serviceName); err != nil {
		slog.Warn("Failed to send subscription push notification", "user_id", partnerID, "error", err)
	}
}
