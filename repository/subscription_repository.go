package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annazecevic/subscription-tracker/domain"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	subscriptionsCollection = "subscriptions"
	queryTimeout            = 5 * time.Second
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *domain.Subscription) error
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.Subscription, error)
	Update(ctx context.Context, subscription *domain.Subscription, fields []string) (*domain.Subscription, error)
	Cancel(ctx context.Context, id string) (*domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

type subscriptionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewSubscriptionRepository(db *mongo.Database) SubscriptionRepository {
	collection := db.Collection(subscriptionsCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "renewalDate", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn(logger.EventDBError, "Failed to create indexes", logger.Fields("error", err.Error()))
	}

	return newSubscriptionRepository(collection)
}

func newSubscriptionRepository(collection *mongo.Collection) *subscriptionRepository {
	return &subscriptionRepository{collection: collection, now: time.Now}
}

func (r *subscriptionRepository) Create(ctx context.Context, subscription *domain.Subscription) error {
	now := r.now().UTC()
	subscription.ApplyDefaults()
	if err := subscription.Validate(now); err != nil {
		return err
	}
	if subscription.ID == "" {
		subscription.ID = uuid.New().String()
	}
	subscription.CreatedAt = now
	subscription.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, subscription); err != nil {
		logger.Error(logger.EventDBError, "Error creating subscription", logger.Fields(
			"user_id", subscription.UserID,
			"error", err.Error(),
		))
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var subscription domain.Subscription
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&subscription)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSubscriptionNotFound
		}
		logger.Error(logger.EventDBError, "Error fetching subscription", logger.Fields(
			"subscription_id", id,
			"error", err.Error(),
		))
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}

	return &subscription, nil
}

func (r *subscriptionRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		logger.Error(logger.EventDBError, "Error fetching user subscriptions", logger.Fields(
			"user_id", userID,
			"error", err.Error(),
		))
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	subscriptions := []domain.Subscription{}
	if err := cursor.All(ctx, &subscriptions); err != nil {
		return nil, fmt.Errorf("failed to decode subscriptions: %w", err)
	}

	return subscriptions, nil
}

// Update validates the merged record and writes only the named fields, so values
// read before the update (such as a status cancelled in the meantime) are never
// written back. Optional fields that were emptied are removed from the document.
// The owner and creation time cannot be updated.
func (r *subscriptionRepository) Update(ctx context.Context, subscription *domain.Subscription, fields []string) (*domain.Subscription, error) {
	now := r.now().UTC()
	if err := subscription.Validate(now); err != nil {
		return nil, err
	}

	update, err := buildUpdate(subscription, fields, now)
	if err != nil {
		return nil, err
	}

	return r.findOneAndUpdate(ctx, bson.M{"id": subscription.ID}, update)
}

func buildUpdate(subscription *domain.Subscription, fields []string, now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}

	setOrUnset := func(key string, value interface{}, empty bool) {
		if empty {
			unset[key] = ""
			return
		}
		set[key] = value
	}

	for _, field := range fields {
		switch field {
		case "name":
			set["name"] = subscription.Name
		case "price":
			set["price"] = subscription.Price
		case "currency":
			set["currency"] = subscription.Currency
		case "status":
			set["status"] = subscription.Status
		case "frequency":
			setOrUnset("frequency", subscription.Frequency, subscription.Frequency == "")
		case "category":
			setOrUnset("category", subscription.Category, subscription.Category == "")
		case "paymentMethod":
			setOrUnset("paymentMethod", subscription.PaymentMethod, subscription.PaymentMethod == "")
		case "startDate":
			setOrUnset("startDate", subscription.StartDate, subscription.StartDate == nil)
		case "renewalDate":
			setOrUnset("renewalDate", subscription.RenewalDate, subscription.RenewalDate == nil)
		default:
			return nil, fmt.Errorf("field %q cannot be updated", field)
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

// Cancel flips the status to cancelled only if it is not cancelled already, so two
// concurrent cancellations cannot both succeed.
func (r *subscriptionRepository) Cancel(ctx context.Context, id string) (*domain.Subscription, error) {
	filter := bson.M{"id": id, "status": bson.M{"$ne": domain.StatusCancelled}}
	set := bson.M{"status": domain.StatusCancelled, "updatedAt": r.now().UTC()}

	updated, err := r.findOneAndUpdate(ctx, filter, bson.M{"$set": set})
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		return nil, err
	}

	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrAlreadyCancelled
}

func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		logger.Error(logger.EventDBError, "Error deleting subscription", logger.Fields(
			"subscription_id", id,
			"error", err.Error(),
		))
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	if result.DeletedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}

func (r *subscriptionRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update bson.M) (*domain.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Subscription
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSubscriptionNotFound
		}
		logger.Error(logger.EventDBError, "Error updating subscription", logger.Fields(
			"filter", fmt.Sprint(filter),
			"error", err.Error(),
		))
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	return &updated, nil
}
