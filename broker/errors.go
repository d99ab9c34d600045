// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"errors"
	"fmt"
)

// ErrParse is the uniform coercion failure. Callers only need to know
// that the input did not match the declared type; the wrapped detail is
// for display.
var ErrParse = errors.New("parse error")

// StatusError is a remote rejection: the broker received the request
// and refused it. Code and Message come verbatim from the broker.
// Callers use errors.As to extract the structured information:
//
//	var statusErr *broker.StatusError
//	if errors.As(err, &statusErr) { ... }
type StatusError struct {
	// Code is the broker's status code.
	Code int
	// Message is the human-readable detail from the broker.
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Broker status codes, mirroring the usual RPC code space.
const (
	StatusInvalidArgument = 3
	StatusNotFound        = 5
	StatusPermissionDenied = 7
	StatusUnavailable     = 14
	StatusUnauthenticated = 16
)

// ConnectionError is a transport-level failure: the request never
// reached the broker, or the connection dropped mid-call.
type ConnectionError struct {
	Message string
	// Cause is the underlying transport error, when one exists.
	Cause error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// FunctionError is a local, client-side failure: bad arguments, a
// missing transport, an unusable credential. The broker was never
// involved.
type FunctionError struct {
	Message string
}

func (e *FunctionError) Error() string { return e.Message }

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == code
	}
	return false
}
