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

package client

import (
	gotime "time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/pkg/rollback"
)

const (
	// DefaultMinRetryInterval is the first wait before reconnecting.
	DefaultMinRetryInterval = 200 * gotime.Millisecond

	// DefaultMaxRetryInterval is the longest wait between reconnections.
	DefaultMaxRetryInterval = 10 * gotime.Second

	// DefaultWriteTimeout is the deadline of a single websocket write.
	DefaultWriteTimeout = 10 * gotime.Second

	// DefaultOutboxSize is the number of messages buffered for the writer.
	DefaultOutboxSize = 256
)

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the client.
type Options struct {
	// Logger is the Logger of the client.
	Logger *zap.Logger

	// Dialer is the websocket dialer used to reach the server.
	Dialer *websocket.Dialer

	// MinRetryInterval and MaxRetryInterval bound the exponential backoff
	// between reconnections.
	MinRetryInterval gotime.Duration
	MaxRetryInterval gotime.Duration

	// WriteTimeout is the deadline of a single websocket write.
	WriteTimeout gotime.Duration

	// OutboxSize is the number of messages buffered for the writer. The
	// connection is reset when the buffer overflows.
	OutboxSize int

	// OnRollback is called when the server announces a rollback.
	OnRollback func(rollback.Notification)
}

// WithLogger configures the Logger of the client.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithDialer configures the websocket dialer of the client.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(o *Options) { o.Dialer = dialer }
}

// WithRetryInterval configures the bounds of the reconnection backoff.
func WithRetryInterval(min, max gotime.Duration) Option {
	return func(o *Options) {
		o.MinRetryInterval = min
		o.MaxRetryInterval = max
	}
}

// WithWriteTimeout configures the deadline of a websocket write.
func WithWriteTimeout(timeout gotime.Duration) Option {
	return func(o *Options) { o.WriteTimeout = timeout }
}

// WithOutboxSize configures the number of messages buffered for the writer.
func WithOutboxSize(size int) Option {
	return func(o *Options) { o.OutboxSize = size }
}

// WithRollbackHandler configures the function called on rollbacks.
func WithRollbackHandler(fn func(rollback.Notification)) Option {
	return func(o *Options) { o.OnRollback = fn }
}

func newOptions(opts []Option) Options {
	options := Options{
		Dialer:           websocket.DefaultDialer,
		MinRetryInterval: DefaultMinRetryInterval,
		MaxRetryInterval: DefaultMaxRetryInterval,
		WriteTimeout:     DefaultWriteTimeout,
		OutboxSize:       DefaultOutboxSize,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.MaxRetryInterval < options.MinRetryInterval {
		options.MaxRetryInterval = options.MinRetryInterval
	}
	if options.OutboxSize <= 0 {
		options.OutboxSize = DefaultOutboxSize
	}
	return options
}
