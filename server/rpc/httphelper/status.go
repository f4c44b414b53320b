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


// Package httphelper maps errors to HTTP responses.
package httphelper

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

// statusToHTTPCode maps the status of an error to an HTTP status code.
var statusToHTTPCode = map[errors.StatusCode]int{
	// InvalidArgument means the request is malformed.
	errors.ErrCodeInvalidArgument: http.StatusBadRequest,

	// NotFound means the requested resource does not exist.
	errors.ErrCodeNotFound: http.StatusNotFound,

	// FailedPrecondition means the request is rejected because the state of
	// the system is not the desired state.
	errors.ErrCodeFailedPrecondition: http.StatusPreconditionFailed,

	// Conflict means the request needs conflicts to be resolved first.
	errors.ErrCodeConflict: http.StatusConflict,
	errors.ErrCodeDesync:   http.StatusConflict,

	// Structural means an edit does not apply to the current data.
	errors.ErrCodeStructural: http.StatusUnprocessableEntity,

	errors.ErrCodePersistence: http.StatusServiceUnavailable,
	errors.ErrCodeInternal:    http.StatusInternalServerError,
}

// StatusCodeOf returns the HTTP status code of the given error.
func StatusCodeOf(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout
	}

	if code, ok := statusToHTTPCode[errors.StatusOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code of the first error in the chain that carries one.
func CodeOf(err error) string {
	var statusErr errors.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code()
	}
	return ""
}

// WriteJSON writes the value as the JSON body of the response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error as an ErrorResponse with the status code of
// the error.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusCodeOf(err), &types.ErrorResponse{
		Code:    CodeOf(err),
		Message: err.Error(),
	})
}
