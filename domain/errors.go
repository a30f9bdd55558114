package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrForbidden            = errors.New("you are not the owner of this subscription")
	ErrUnauthorized         = errors.New("you are not the owner of this account")
	ErrAlreadyCancelled     = errors.New("subscription is already cancelled")
)

// ForbiddenError is an ownership failure for a specific operation. It matches
// ErrForbidden with errors.Is.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	if e.Action == "" {
		return ErrForbidden.Error()
	}
	return fmt.Sprintf("You are not authorized to %s this subscription", e.Action)
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
