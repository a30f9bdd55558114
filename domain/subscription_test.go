package domain

import (
	"errors"
	"testing"
	"time"
)

func validSubscription() *Subscription {
	return &Subscription{
		UserID:   "u1",
		Name:     "Netflix Premium",
		Price:    15.99,
		Currency: "USD",
		Status:   StatusActive,
	}
}

func TestValidateAcceptsMinimalRecord(t *testing.T) {
	if err := validSubscription().Validate(time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	s := &Subscription{UserID: "u1", Name: "Spotify"}
	s.ApplyDefaults()
	if s.Currency != DefaultCurrency {
		t.Fatalf("expected default currency %s, got %s", DefaultCurrency, s.Currency)
	}
	if s.Status != StatusActive {
		t.Fatalf("expected status active, got %s", s.Status)
	}
}

func TestValidateReportsEveryBrokenField(t *testing.T) {
	now := time.Now()
	future := now.Add(48 * time.Hour)
	s := &Subscription{
		Name:      "x",
		Price:     -1,
		Currency:  "JPY",
		Frequency: "hourly",
		Status:    "paused",
		StartDate: &future,
	}

	err := s.Validate(now)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"user", "name", "price", "currency", "frequency", "status", "startDate"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected violation for %s, got %v", field, verr.Fields)
		}
	}
}

func TestValidateRenewalMustFollowStart(t *testing.T) {
	now := time.Now()
	start := now.Add(-24 * time.Hour)
	renewal := start.Add(-time.Hour)
	s := validSubscription()
	s.StartDate = &start
	s.RenewalDate = &renewal

	err := s.Validate(now)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["renewalDate"]; !ok {
		t.Fatalf("expected renewalDate violation, got %v", verr.Fields)
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"price": "b", "name": "a"}}
	if got := err.Error(); got != "a, b" {
		t.Fatalf("expected %q, got %q", "a, b", got)
	}
}

func TestOwnedBy(t *testing.T) {
	s := validSubscription()
	if !s.OwnedBy("u1") {
		t.Fatalf("expected u1 to own the subscription")
	}
	if s.OwnedBy("u2") || s.OwnedBy("") {
		t.Fatalf("expected only u1 to own the subscription")
	}
}
