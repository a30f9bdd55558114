package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

const DefaultCurrency = "USD"

var (
	validStatuses    = map[SubscriptionStatus]bool{StatusActive: true, StatusCancelled: true, StatusExpired: true}
	validFrequencies = map[Frequency]bool{FrequencyDaily: true, FrequencyWeekly: true, FrequencyMonthly: true, FrequencyYearly: true}
	validCurrencies  = map[string]bool{"USD": true, "EUR": true, "GBP": true}
)

type Subscription struct {
	ID            string             `bson:"id" json:"id"`
	UserID        string             `bson:"user" json:"user"`
	Name          string             `bson:"name" json:"name"`
	Price         float64            `bson:"price" json:"price"`
	Currency      string             `bson:"currency" json:"currency"`
	Frequency     Frequency          `bson:"frequency,omitempty" json:"frequency,omitempty"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"`
	PaymentMethod string             `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Status        SubscriptionStatus `bson:"status" json:"status"`
	StartDate     *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	RenewalDate   *time.Time         `bson:"renewalDate,omitempty" json:"renewalDate,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

func (s *Subscription) OwnedBy(userID string) bool {
	return s.UserID != "" && s.UserID == userID
}

// ApplyDefaults fills the fields the store would default on insert.
func (s *Subscription) ApplyDefaults() {
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
}

// Validate checks the record the way the store's schema validators do.
func (s *Subscription) Validate(now time.Time) error {
	verr := &ValidationError{Fields: map[string]string{}}

	if s.UserID == "" {
		verr.Fields["user"] = "subscription user is required"
	}

	name := strings.TrimSpace(s.Name)
	switch {
	case name == "":
		verr.Fields["name"] = "subscription name is required"
	case len(name) < 2 || len(name) > 100:
		verr.Fields["name"] = "subscription name must be between 2 and 100 characters"
	}

	if s.Price < 0 {
		verr.Fields["price"] = "price must be greater than or equal to 0"
	}
	if !validCurrencies[s.Currency] {
		verr.Fields["currency"] = fmt.Sprintf("currency %q is not supported", s.Currency)
	}
	if s.Frequency != "" && !validFrequencies[s.Frequency] {
		verr.Fields["frequency"] = fmt.Sprintf("frequency %q is not supported", s.Frequency)
	}
	if !validStatuses[s.Status] {
		verr.Fields["status"] = fmt.Sprintf("status %q is not supported", s.Status)
	}
	if len(s.Category) > 50 {
		verr.Fields["category"] = "category must be at most 50 characters"
	}
	if len(s.PaymentMethod) > 50 {
		verr.Fields["paymentMethod"] = "payment method must be at most 50 characters"
	}
	if s.StartDate != nil && s.StartDate.After(now) {
		verr.Fields["startDate"] = "start date must be in the past"
	}
	if s.StartDate != nil && s.RenewalDate != nil && !s.RenewalDate.After(*s.StartDate) {
		verr.Fields["renewalDate"] = "renewal date must be after the start date"
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ValidationError is a field-level constraint violation reported by the store.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, ", ")
}
