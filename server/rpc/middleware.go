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


package rpc

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	gotime "time"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/tripsync/server/logging"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
	"github.com/yorkie-team/tripsync/server/rpc/httphelper"
)

// SlowThreshold is the threshold for slow requests.
const SlowThreshold = 100 * gotime.Millisecond

// requestID is used to generate a unique request ID.
type requestID struct {
	prefix string
	id     int32
}

// newRequestID creates a new requestID.
func newRequestID(prefix string) *requestID {
	return &requestID{prefix: prefix}
}

// next generates a new request ID.
func (r *requestID) next() string {
	next := atomic.AddInt32(&r.id, 1)
	return r.prefix + strconv.Itoa(int(next))
}

// statusRecorder remembers the status code written to the response. It
// lets websocket upgrades hijack the connection.
type statusRecorder struct {
	http.ResponseWriter
	status int
	err    error
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// newRequestMiddleware attaches a request logger to the context of every
// request, and records the request in the logs and the metrics once it is
// handled.
func newRequestMiddleware(metrics *prometheus.Metrics) mux.MiddlewareFunc {
	ids := newRequestID("r")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := r.Method + " " + routeName(r)
			reqLogger := logging.New(ids.next())
			ctx := logging.With(r.Context(), reqLogger)

			start := gotime.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))
			duration := gotime.Since(start)

			if metrics != nil {
				metrics.AddRequest(method, strconv.Itoa(rec.status))
			}

			switch {
			case rec.err != nil:
				logging.LogRequestError(reqLogger, method, duration, rec.err)
			case duration > SlowThreshold && rec.status != http.StatusSwitchingProtocols:
				reqLogger.Infof("REQ : %q %s", method, duration)
			default:
				logging.LogRequestSuccess(reqLogger, method, duration)
			}
		})
	}
}

// fail writes the error response and hands the error to the request
// middleware for logging.
func fail(w http.ResponseWriter, err error) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.err = err
	}
	httphelper.WriteError(w, err)
}

// routeName returns the path template of the matched route.
func routeName(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unknown"
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if tpl, err := route.GetPathTemplate(); err == nil {
		return tpl
	}
	return "unknown"
}
