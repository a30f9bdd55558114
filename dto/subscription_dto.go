package dto

import (
	"time"

	"github.com/annazecevic/subscription-tracker/domain"
)

// CreateSubscriptionRequest carries the client-supplied fields of a new subscription.
// The owner is never read from the body.
type CreateSubscriptionRequest struct {
	Name          string     `json:"name"`
	Price         float64    `json:"price"`
	Currency      string     `json:"currency"`
	Frequency     string     `json:"frequency"`
	Category      string     `json:"category"`
	PaymentMethod string     `json:"paymentMethod"`
	Status        string     `json:"status"`
	StartDate     *time.Time `json:"startDate"`
	RenewalDate   *time.Time `json:"renewalDate"`
}

func (r *CreateSubscriptionRequest) ToDomain(ownerID string) *domain.Subscription {
	return &domain.Subscription{
		UserID:        ownerID,
		Name:          r.Name,
		Price:         r.Price,
		Currency:      r.Currency,
		Frequency:     domain.Frequency(r.Frequency),
		Category:      r.Category,
		PaymentMethod: r.PaymentMethod,
		Status:        domain.SubscriptionStatus(r.Status),
		StartDate:     r.StartDate,
		RenewalDate:   r.RenewalDate,
	}
}

// UpdateSubscriptionRequest is a partial update; nil fields are left untouched.
type UpdateSubscriptionRequest struct {
	Name          *string    `json:"name"`
	Price         *float64   `json:"price"`
	Currency      *string    `json:"currency"`
	Frequency     *string    `json:"frequency"`
	Category      *string    `json:"category"`
	PaymentMethod *string    `json:"paymentMethod"`
	Status        *string    `json:"status"`
	StartDate     *time.Time `json:"startDate"`
	RenewalDate   *time.Time `json:"renewalDate"`
}

// Apply merges the supplied fields into sub and returns the names of the changed fields.
func (r *UpdateSubscriptionRequest) Apply(sub *domain.Subscription) []string {
	var changed []string
	if r.Name != nil {
		sub.Name = *r.Name
		changed = append(changed, "name")
	}
	if r.Price != nil {
		sub.Price = *r.Price
		changed = append(changed, "price")
	}
	if r.Currency != nil {
		sub.Currency = *r.Currency
		changed = append(changed, "currency")
	}
	if r.Frequency != nil {
		sub.Frequency = domain.Frequency(*r.Frequency)
		changed = append(changed, "frequency")
	}
	if r.Category != nil {
		sub.Category = *r.Category
		changed = append(changed, "category")
	}
	if r.PaymentMethod != nil {
		sub.PaymentMethod = *r.PaymentMethod
		changed = append(changed, "paymentMethod")
	}
	if r.Status != nil {
		sub.Status = domain.SubscriptionStatus(*r.Status)
		changed = append(changed, "status")
	}
	if r.StartDate != nil {
		sub.StartDate = r.StartDate
		changed = append(changed, "startDate")
	}
	if r.RenewalDate != nil {
		sub.RenewalDate = r.RenewalDate
		changed = append(changed, "renewalDate")
	}
	return changed
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type CreateSubscriptionResponse struct {
	Subscription *domain.Subscription `json:"subscription"`
}

type StubResponse struct {
	Title string `json:"title"`
}
