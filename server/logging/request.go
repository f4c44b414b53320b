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

package logging

import (
	"context"
	"errors"
	"time"

	tserrors "github.com/yorkie-team/tripsync/pkg/errors"
)

// RequestLogLevel is the severity a failed request is logged with.
type RequestLogLevel int

// Below are the levels of requests.
const (
	RequestLogDebug RequestLogLevel = iota
	RequestLogInfo
	RequestLogWarn
	RequestLogError
)

// String returns the string representation of RequestLogLevel.
func (l RequestLogLevel) String() string {
	switch l {
	case RequestLogDebug:
		return "debug"
	case RequestLogInfo:
		return "info"
	case RequestLogError:
		return "error"
	}
	return "warn"
}

// toRequestLogLevel classifies a request error by the status it carries.
func toRequestLogLevel(err error) RequestLogLevel {
	if err == nil || errors.Is(err, context.Canceled) {
		return RequestLogDebug
	}

	switch tserrors.StatusOf(err) {
	case tserrors.ErrCodeInvalidArgument, tserrors.ErrCodeNotFound:
		// the client sent something wrong
		return RequestLogInfo
	case tserrors.ErrCodeStructural, tserrors.ErrCodeConflict, tserrors.ErrCodeFailedPrecondition:
		// expected outcomes of concurrent editing
		return RequestLogInfo
	case tserrors.ErrCodeDesync:
		return RequestLogWarn
	case tserrors.ErrCodePersistence, tserrors.ErrCodeInternal:
		return RequestLogError
	default:
		return RequestLogWarn
	}
}

// LogRequestError logs a failed request with the level its error calls for.
func LogRequestError(logger Logger, method string, duration time.Duration, err error) {
	const template = "REQ : %q %s => %q"
	switch toRequestLogLevel(err) {
	case RequestLogDebug:
		logger.Debugf(template, method, duration, err)
	case RequestLogInfo:
		logger.Infof(template, method, duration, err)
	case RequestLogError:
		logger.Errorf(template, method, duration, err)
	default:
		logger.Warnf(template, method, duration, err)
	}
}

// LogRequestSuccess logs a successful request at debug level.
func LogRequestSuccess(logger Logger, method string, duration time.Duration) {
	logger.Debugf("REQ : %q %s", method, duration)
}
