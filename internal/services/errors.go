package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmconnect/contracts-api/internal/repository"
	"github.com/farmconnect/contracts-api/internal/statemachine"
)

// Kind classifies an error for callers
type Kind string

// Error kinds
const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindAuthorization         Kind = "authorization"
	KindInvalidTransition     Kind = "invalid_transition"
	KindDependencyTimeout     Kind = "dependency_timeout"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindPartialFailure        Kind = "partial_failure"
	KindInternal              Kind = "internal"
)

// Machine-readable codes for eligibility and conflict failures
const (
	CodeSelfBidForbidden      = "SelfBidForbidden"
	CodeAlreadyParty          = "AlreadyParty"
	CodeNotATender            = "NotATender"
	CodeTenderClosed          = "TenderClosed"
	CodeAlreadyBid            = "AlreadyBid"
	CodeRoleNotEligible       = "RoleNotEligible"
	CodeInsufficientLand      = "InsufficientLand"
	CodeQualificationNotMet   = "QualificationNotMet"
	CodeSecondPartyAlreadySet = "SecondPartyAlreadySet"
	CodeSelfContract          = "SelfContract"
	CodeVersionConflict       = "VersionConflict"
	CodeNotBilateral          = "NotBilateral"
)

// Error is the error type returned by every service operation. It carries a
// kind, an optional code, a human-readable reason and, for partial
// failures, the steps that completed.
type Error struct {
	Kind   Kind     `json:"kind"`
	Code   string   `json:"code,omitempty"`
	Reason string   `json:"reason"`
	Steps  []string `json:"completedSteps,omitempty"`
	Err    error    `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if len(e.Steps) > 0 {
		msg += " (completed: " + strings.Join(e.Steps, ", ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, and by code when the target has one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks by kind
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrConflict              = &Error{Kind: KindConflict}
	ErrUnauthorized          = &Error{Kind: KindAuthorization}
	ErrInvalidState          = &Error{Kind: KindInvalidTransition}
	ErrDependencyTimeout     = &Error{Kind: KindDependencyTimeout}
	ErrDependencyUnavailable = &Error{Kind: KindDependencyUnavailable}
	ErrPartialFailure        = &Error{Kind: KindPartialFailure}
)

// CodeError returns a sentinel matching errors of the given kind and code
func CodeError(kind Kind, code string) error {
	return &Error{Kind: kind, Code: code}
}

// KindOf returns the kind of err; unknown errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindDependencyTimeout
	}
	return KindInternal
}

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundErr(what string) *Error {
	return &Error{Kind: KindNotFound, Reason: what + " not found"}
}

func conflictErr(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Reason: fmt.Sprintf(format, args...)}
}

func unauthorizedErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Reason: fmt.Sprintf(format, args...)}
}

func invalidTransitionErr(err error) *Error {
	return &Error{Kind: KindInvalidTransition, Reason: err.Error(), Err: err}
}

func partialFailureErr(steps []string, cause error) *Error {
	return &Error{
		Kind:   KindPartialFailure,
		Reason: fmt.Sprintf("operation stopped after a write: %v", cause),
		Steps:  append([]string(nil), steps...),
		Err:    cause,
	}
}

// dependencyErr classifies a collaborator failure as timeout or unavailable
func dependencyErr(what string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindDependencyTimeout, Reason: what + " timed out", Err: err}
	}
	return &Error{Kind: KindDependencyUnavailable, Reason: fmt.Sprintf("%s unavailable: %v", what, err), Err: err}
}

// storeErr translates repository sentinels into service errors
func storeErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return notFoundErr(what)
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Reason: what + " already exists", Err: err}
	case repository.IsVersionConflict(err):
		return &Error{Kind: KindConflict, Code: CodeVersionConflict, Reason: what + " was modified concurrently, retry", Err: err}
	case errors.Is(err, repository.ErrInvalid):
		return &Error{Kind: KindValidation, Reason: err.Error(), Err: err}
	case errors.Is(err, statemachine.ErrInvalidTransition):
		return invalidTransitionErr(err)
	}
	return dependencyErr("contract store", err)
}
