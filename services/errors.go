// services/errors.go - Service failure results
package services

import (
	"errors"
	"log"

	"gorm.io/gorm"
)

// ServiceError is a structured failure returned by every service
// operation. Status follows the HTTP convention the clients branch on:
// 401 unauthenticated, 403 forbidden, 404 not found, 409 state conflict,
// 422 invalid input, 500 unexpected. Message is always actionable and
// never contains raw storage error text.
type ServiceError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func errUnauthenticated() *ServiceError {
	return &ServiceError{Status: 401, Message: "Not authenticated"}
}

func errForbidden(msg string) *ServiceError {
	return &ServiceError{Status: 403, Message: msg}
}

func errNotFound(msg string) *ServiceError {
	return &ServiceError{Status: 404, Message: msg}
}

func errConflict(msg string) *ServiceError {
	return &ServiceError{Status: 409, Message: msg}
}

func errInvalid(msg string) *ServiceError {
	return &ServiceError{Status: 422, Message: msg}
}

// errInternal logs the underlying storage error with enough context to
// reproduce and returns a generic failure to the caller.
func errInternal(op string, err error, ids ...uint) *ServiceError {
	log.Printf("ERROR %s ids=%v: %v", op, ids, err)
	return &ServiceError{Status: 500, Message: "Something went wrong. Please try again."}
}

// notFoundOrInternal maps gorm.ErrRecordNotFound to a 404 and everything
// else to a logged 500.
func notFoundOrInternal(op, msg string, err error, ids ...uint) *ServiceError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound(msg)
	}
	return errInternal(op, err, ids...)
}
