package services

import (
	"errors"
	"fmt"
)

// ErrAccountNotConnected is returned when an operation requires an active
// engine account link and the user has none.
var ErrAccountNotConnected = errors.New("n8n account not connected")

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports an absent template, service or workflow.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ForbiddenError reports an access attempt by a non-owner. Reads of foreign
// workflows also get this error so existence is not disclosed.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}
