package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/annazecevic/subscription-tracker/domain"
	"github.com/annazecevic/subscription-tracker/dto"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/annazecevic/subscription-tracker/repository"
)

const historyLimit = 100

type SubscriptionService interface {
	Create(ctx context.Context, ownerID string, req *dto.CreateSubscriptionRequest) (*domain.Subscription, error)
	ListByOwner(ctx context.Context, requesterID, ownerID string) ([]domain.Subscription, error)
	Update(ctx context.Context, requesterID, id string, req *dto.UpdateSubscriptionRequest) (*domain.Subscription, error)
	Delete(ctx context.Context, requesterID, id string) error
	Cancel(ctx context.Context, requesterID, id string) (*domain.Subscription, error)
	History(ctx context.Context, requesterID, id string) ([]domain.ActivityEvent, error)
}

// ReminderDispatcher schedules the renewal reminder of a new subscription without
// blocking the caller.
type ReminderDispatcher interface {
	Dispatch(subscriptionID string)
}

type subscriptionService struct {
	repo      repository.SubscriptionRepository
	activity  repository.ActivityRepository
	reminders ReminderDispatcher
}

// NewSubscriptionService wires the service. activity and reminders may be nil, which
// disables the activity log and reminder scheduling respectively.
func NewSubscriptionService(repo repository.SubscriptionRepository, activity repository.ActivityRepository, reminders ReminderDispatcher) SubscriptionService {
	return &subscriptionService{
		repo:      repo,
		activity:  activity,
		reminders: reminders,
	}
}

func (s *subscriptionService) Create(ctx context.Context, ownerID string, req *dto.CreateSubscriptionRequest) (*domain.Subscription, error) {
	subscription := req.ToDomain(ownerID)

	if err := s.repo.Create(ctx, subscription); err != nil {
		return nil, err
	}

	logger.Info(logger.EventSubscription, "Subscription created", logger.Fields(
		"user_id", ownerID,
		"subscription_id", subscription.ID,
		"frequency", string(subscription.Frequency),
	))

	s.recordActivity(ctx, subscription, ownerID, domain.ActionCreated, map[string]string{
		"name":   subscription.Name,
		"status": string(subscription.Status),
	})

	if s.reminders != nil {
		s.reminders.Dispatch(subscription.ID)
	}

	return subscription, nil
}

func (s *subscriptionService) ListByOwner(ctx context.Context, requesterID, ownerID string) ([]domain.Subscription, error) {
	if requesterID == "" || requesterID != ownerID {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.FindByUserID(ctx, ownerID)
}

func (s *subscriptionService) Update(ctx context.Context, requesterID, id string, req *dto.UpdateSubscriptionRequest) (*domain.Subscription, error) {
	existing, err := s.findOwned(ctx, requesterID, id, "update")
	if err != nil {
		return nil, err
	}

	merged := *existing
	changed := req.Apply(&merged)
	merged.ID = existing.ID
	merged.UserID = existing.UserID

	updated, err := s.repo.Update(ctx, &merged, changed)
	if err != nil {
		return nil, err
	}

	logger.Info(logger.EventSubscription, "Subscription updated", logger.Fields(
		"user_id", requesterID,
		"subscription_id", id,
		"fields", strings.Join(changed, ","),
	))

	s.recordActivity(ctx, updated, requesterID, domain.ActionUpdated, map[string]string{
		"fields": strings.Join(changed, ","),
	})

	return updated, nil
}

func (s *subscriptionService) Delete(ctx context.Context, requesterID, id string) error {
	existing, err := s.findOwned(ctx, requesterID, id, "delete")
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info(logger.EventSubscription, "Subscription deleted", logger.Fields(
		"user_id", requesterID,
		"subscription_id", id,
	))

	s.recordActivity(ctx, existing, requesterID, domain.ActionDeleted, map[string]string{
		"name": existing.Name,
	})

	return nil
}

func (s *subscriptionService) Cancel(ctx context.Context, requesterID, id string) (*domain.Subscription, error) {
	existing, err := s.findOwned(ctx, requesterID, id, "cancel")
	if err != nil {
		return nil, err
	}
	if existing.IsCancelled() {
		return nil, domain.ErrAlreadyCancelled
	}

	cancelled, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Info(logger.EventSubscription, "Subscription cancelled", logger.Fields(
		"user_id", requesterID,
		"subscription_id", id,
	))

	s.recordActivity(ctx, cancelled, requesterID, domain.ActionCancelled, map[string]string{
		"previous_status": string(existing.Status),
	})

	return cancelled, nil
}

func (s *subscriptionService) History(ctx context.Context, requesterID, id string) ([]domain.ActivityEvent, error) {
	if _, err := s.findOwned(ctx, requesterID, id, "view the history of"); err != nil {
		return nil, err
	}
	if s.activity == nil {
		return []domain.ActivityEvent{}, nil
	}

	events, err := s.activity.ListBySubscription(ctx, id, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription history: %w", err)
	}
	return events, nil
}

// findOwned loads the subscription and checks ownership. A missing record is
// reported as not found regardless of who is asking; action names the operation in
// the forbidden error.
func (s *subscriptionService) findOwned(ctx context.Context, requesterID, id, action string) (*domain.Subscription, error) {
	subscription, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !subscription.OwnedBy(requesterID) {
		return nil, &domain.ForbiddenError{Action: action}
	}
	return subscription, nil
}

func (s *subscriptionService) recordActivity(ctx context.Context, sub *domain.Subscription, userID string, action domain.ActivityAction, details map[string]string) {
	if s.activity == nil || sub == nil {
		return
	}

	event := &domain.ActivityEvent{
		SubscriptionID: sub.ID,
		UserID:         userID,
		Action:         action,
		Details:        details,
	}
	if err := s.activity.Record(ctx, event); err != nil {
		logger.Warn(logger.EventSubscription, "Failed to record subscription activity", logger.Fields(
			"subscription_id", sub.ID,
			"action", string(action),
			"error", err.Error(),
		))
	}
}
