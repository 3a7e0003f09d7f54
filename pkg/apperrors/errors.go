// Copyright 2025 Certen Protocol
//
// Package apperrors implements the tagged-variant error taxonomy described
// in the platform's error-handling design: every failure inside the core
// carries a Kind, and the outermost transport boundary is the only place
// that knows how a Kind maps onto a wire status code.
package apperrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Kind tags an Error with the taxonomy category it belongs to.
type Kind string

const (
	Attestation        Kind = "attestation"
	KeyBroker          Kind = "key_broker"
	Container          Kind = "container"
	Config             Kind = "config"
	Validation         Kind = "validation"
	ServiceUnavailable Kind = "service_unavailable"
	PermissionDenied   Kind = "permission_denied"
	NotFound           Kind = "not_found"
	Internal           Kind = "internal"
)

// Error is the tagged-variant error carried through the core. Field and Op
// are optional structured context that only ever reach logs; Message is the
// single human-readable string user-facing responses are allowed to carry.
type Error struct {
	Kind    Kind
	Op      string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Op, e.Message, e.Field)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a plain message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error of the given kind around an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// InvalidParameter is the spec's canonical Validation-kind constructor for a
// single bad field.
func InvalidParameter(op, field, reason string) *Error {
	return &Error{
		Kind:    Validation,
		Op:      op,
		Field:   field,
		Message: fmt.Sprintf("invalid parameter %q: %s", field, reason),
	}
}

// ContainerOperationFailed matches the Container{operation, reason} variant.
func ContainerOperationFailed(operation, reason string) *Error {
	return &Error{
		Kind:    Container,
		Op:      operation,
		Message: fmt.Sprintf("%s failed: %s", operation, reason),
	}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Internal for anything else — the catch-all the taxonomy names.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// ToGRPCCode implements the Kind -> transport status code table from the
// error-handling design. It takes the error itself (not just the Kind)
// because PermissionDenied and NotFound always map the same way regardless
// of which underlying Kind produced them — the privileged key path and the
// "unknown app" paths both reach this function with those Kinds set
// directly rather than through a nested classification.
func ToGRPCCode(err error) codes.Code {
	var e *Error
	if !errors.As(err, &e) {
		return codes.Internal
	}
	switch e.Kind {
	case Validation:
		return codes.InvalidArgument
	case ServiceUnavailable:
		return codes.Unavailable
	case Config:
		return codes.FailedPrecondition
	case PermissionDenied:
		return codes.PermissionDenied
	case NotFound:
		return codes.NotFound
	case Attestation:
		if e.Field == "tee_unsupported" {
			return codes.FailedPrecondition
		}
		return codes.Internal
	case KeyBroker:
		switch e.Field {
		case "auth_failed":
			return codes.Unauthenticated
		case "resource_not_found":
			return codes.NotFound
		default:
			return codes.Internal
		}
	case Container:
		if e.Field == "service_not_found" {
			return codes.NotFound
		}
		return codes.Internal
	default:
		return codes.Internal
	}
}

// Message returns the single human-readable string that is safe to place in
// a user-facing response; structured fields (Op, Field) never leave here.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
