package domain

import (
	"errors"
	"fmt"
)

// ValidationError is a rejected request, e.g. a malformed title. The
// originating optimistic mutation is rolled back and the message surfaced
// inline near the control that caused it.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// AuthorizationError is an owner-gated action attempted by a non-owner or an
// expired session. Owner-gated actions are never applied optimistically, so no
// local state needs rolling back.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// NotFoundError means the entity was deleted concurrently by another user.
// The stale entity is removed from the local store rather than retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NetworkError wraps a transport failure or timeout. The optimistic mutation
// is rolled back and the user must re-trigger the action; there is no
// automatic retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
