package repository

import (
	"context"
	"fmt"

	"github.com/annazecevic/subscription-tracker/domain"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/gocql/gocql"
)

const activityTableCQL = `CREATE TABLE IF NOT EXISTS subscription_activity (
	subscription_id text,
	event_id timeuuid,
	user_id text,
	action text,
	created_at timestamp,
	details map<text, text>,
	PRIMARY KEY (subscription_id, event_id)
) WITH CLUSTERING ORDER BY (event_id DESC)`

type ActivityRepository interface {
	Record(ctx context.Context, event *domain.ActivityEvent) error
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]domain.ActivityEvent, error)
}

type activityRepository struct {
	session *gocql.Session
}

func NewActivityRepository(session *gocql.Session) ActivityRepository {
	return &activityRepository{session: session}
}

// EnsureActivitySchema creates the activity table in the session's keyspace.
func EnsureActivitySchema(session *gocql.Session) error {
	if err := session.Query(activityTableCQL).Exec(); err != nil {
		return fmt.Errorf("failed to create activity table: %w", err)
	}
	return nil
}

func (r *activityRepository) Record(ctx context.Context, event *domain.ActivityEvent) error {
	eventID := gocql.TimeUUID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = eventID.Time()
	}
	event.EventID = eventID.String()

	query := `INSERT INTO subscription_activity
	          (subscription_id, event_id, user_id, action, created_at, details)
	          VALUES (?, ?, ?, ?, ?, ?)`

	err := r.session.Query(query,
		event.SubscriptionID, eventID, event.UserID, string(event.Action), event.CreatedAt, event.Details,
	).WithContext(ctx).Exec()
	if err != nil {
		logger.Error(logger.EventDBError, "Error recording subscription activity", logger.Fields(
			"subscription_id", event.SubscriptionID,
			"action", string(event.Action),
			"error", err.Error(),
		))
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT subscription_id, event_id, user_id, action, created_at, details
	          FROM subscription_activity
	          WHERE subscription_id = ?
	          LIMIT ?`

	iter := r.session.Query(query, subscriptionID, limit).WithContext(ctx).Iter()

	events := []domain.ActivityEvent{}
	var (
		e       domain.ActivityEvent
		eventID gocql.UUID
		action  string
	)
	for iter.Scan(&e.SubscriptionID, &eventID, &e.UserID, &action, &e.CreatedAt, &e.Details) {
		e.EventID = eventID.String()
		e.Action = domain.ActivityAction(action)
		events = append(events, e)
		e = domain.ActivityEvent{}
	}

	if err := iter.Close(); err != nil {
		logger.Error(logger.EventDBError, "Error fetching subscription activity", logger.Fields(
			"subscription_id", subscriptionID,
			"error", err.Error(),
		))
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}

	return events, nil
}
