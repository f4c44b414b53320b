/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package errors

import (
	"errors"
)

// StatusError represents an error that carries a status.
type StatusError interface {
	error
	Status() StatusCode
	Code() string
	WithCode(code string) StatusError
}

type errorWithStatus struct {
	err    error
	status StatusCode
	code   string
}

// Error returns the error message.
func (e errorWithStatus) Error() string {
	return e.err.Error()
}

// Status returns the error status.
func (e errorWithStatus) Status() StatusCode {
	return e.status
}

// Code returns the machine readable code of the error.
func (e errorWithStatus) Code() string {
	return e.code
}

// Unwrap returns the underlying error.
func (e errorWithStatus) Unwrap() error {
	return e.err
}

// WithCode returns a new StatusError with the given code.
func (e errorWithStatus) WithCode(code string) StatusError {
	return errorWithStatus{
		err:    e.err,
		status: e.status,
		code:   code,
	}
}

func newErrorWithStatus(message string, status StatusCode) StatusError {
	return errorWithStatus{
		err:    errors.New(message),
		status: status,
	}
}

// NotFound creates a new "not found" error.
func NotFound(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeNotFound)
}

// InvalidArgument creates a new "invalid argument" error.
func InvalidArgument(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeInvalidArgument)
}

// FailedPrecond creates a new "failed precondition" error.
func FailedPrecond(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeFailedPrecondition)
}

// Internal creates a new "internal" error.
func Internal(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeInternal)
}

// Structural creates a new structural error. Use this when an operation path
// does not resolve in the document or when a value has an unexpected shape.
func Structural(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeStructural)
}

// Desync creates a new desync error. Use this when the pending queue and the
// remote history can no longer be reconciled.
func Desync(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeDesync)
}

// Conflict creates a new conflict error.
func Conflict(message string) StatusError {
	return newErrorWithStatus(message, ErrCodeConflict)
}

// Persistence creates a new persistence error.
func Persistence(message string) StatusError {
	return newErrorWithStatus(message, ErrCodePersistence)
}

// StatusOf extracts the status from the given error chain. It returns 0 when
// no StatusError is found.
func StatusOf(err error) StatusCode {
	if err == nil {
		return 0
	}

	var statusErr StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status()
	}

	return 0
}

// IsStatus checks whether the given error carries the given status.
func IsStatus(err error, code StatusCode) bool {
	return StatusOf(err) == code
}

// Is is a shortcut of the standard errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a shortcut of the standard errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is a shortcut of the standard errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
