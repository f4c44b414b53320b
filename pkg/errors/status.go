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

// Package errors provides the error taxonomy of the synchronization engine.
// Every error that crosses a package boundary carries a StatusCode so that
// callers can tell recoverable per-operation failures from failures that need
// a resynchronization or a retry.
package errors

import "fmt"

// StatusCode represents the kind of failure.
type StatusCode int

const (
	// ErrCodeInvalidArgument indicates that the caller passed an invalid argument.
	ErrCodeInvalidArgument StatusCode = 3

	// ErrCodeNotFound indicates that a requested entity was not found.
	ErrCodeNotFound StatusCode = 5

	// ErrCodeFailedPrecondition indicates that the system is not in a state
	// required for the operation, e.g. a rollback is already in flight.
	ErrCodeFailedPrecondition StatusCode = 9

	// ErrCodeInternal indicates that an invariant of the engine was broken.
	ErrCodeInternal StatusCode = 13

	// ErrCodeStructural indicates that an operation path does not resolve or
	// that a value has an incompatible shape. It is recovered by rejecting the
	// single operation.
	ErrCodeStructural StatusCode = 100

	// ErrCodeDesync indicates that local and remote history diverged beyond
	// reconciliation. It is recovered only by a forced sync.
	ErrCodeDesync StatusCode = 101

	// ErrCodeConflict indicates that a rollback has unresolved conflicts.
	ErrCodeConflict StatusCode = 102

	// ErrCodePersistence indicates that the storage boundary failed.
	ErrCodePersistence StatusCode = 103
)

// String returns the string representation of the status code.
func (c StatusCode) String() string {
	switch c {
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeFailedPrecondition:
		return "failed_precondition"
	case ErrCodeInternal:
		return "internal"
	case ErrCodeStructural:
		return "structural"
	case ErrCodeDesync:
		return "desync"
	case ErrCodeConflict:
		return "conflict"
	case ErrCodePersistence:
		return "persistence"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// IsRecoverable returns whether the failure is recovered per operation
// without caller intervention.
func (c StatusCode) IsRecoverable() bool {
	return c == ErrCodeStructural
}
