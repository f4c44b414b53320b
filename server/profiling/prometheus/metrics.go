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

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/tripsync/internal/version"
)

const (
	namespace    = "tripsync"
	methodLabel  = "method"
	codeLabel    = "code"
	resultLabel  = "result"
	kindLabel    = "kind"
	messageLabel = "message_type"
	taskLabel    = "task_type"
)

// Below are the values of the result label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics manages the metric information that tripsync is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	requestsTotal   *prometheus.CounterVec
	operationsTotal *prometheus.CounterVec
	versionsTotal   *prometheus.CounterVec
	rollbacksTotal  *prometheus.CounterVec
	rollbackSeconds prometheus.Histogram
	connections     prometheus.Gauge
	broadcastsTotal *prometheus.CounterVec
	openItineraries prometheus.Gauge

	backgroundGoroutines *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "server_handled_total",
			Help:      "Total number of requests completed on the server, regardless of success or failure.",
		}, []string{methodLabel, codeLabel}),
		operationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "operations_total",
			Help:      "The total count of operations received from clients.",
		}, []string{resultLabel}),
		versionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "version",
			Name:      "created_total",
			Help:      "The total count of versions created.",
		}, []string{kindLabel}),
		rollbacksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollback",
			Name:      "executed_total",
			Help:      "The total count of rollbacks executed.",
		}, []string{kindLabel, resultLabel}),
		rollbackSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rollback",
			Name:      "duration_seconds",
			Help:      "The time spent executing rollbacks.",
		}),
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "The number of open websocket connections.",
		}),
		broadcastsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "broadcasts_total",
			Help:      "The total count of messages broadcast to collaborators.",
		}, []string{messageLabel}),
		openItineraries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "itinerary",
			Name:      "open",
			Help:      "The number of itineraries held in memory.",
		}),
		backgroundGoroutines: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by the backend.",
		}, []string{taskLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddRequest adds the count of requests handled with the given code.
func (m *Metrics) AddRequest(method, code string) {
	m.requestsTotal.With(prometheus.Labels{
		methodLabel: method,
		codeLabel:   code,
	}).Inc()
}

// AddOperation adds the count of operations with the given result.
func (m *Metrics) AddOperation(result string) {
	m.operationsTotal.With(prometheus.Labels{resultLabel: result}).Inc()
}

// AddVersions adds the count of versions created with the given kind.
func (m *Metrics) AddVersions(kind string, count int) {
	m.versionsTotal.With(prometheus.Labels{kindLabel: kind}).Add(float64(count))
}

// ObserveRollback records a rollback of the given kind.
func (m *Metrics) ObserveRollback(kind string, success bool, duration time.Duration) {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.rollbacksTotal.With(prometheus.Labels{
		kindLabel:   kind,
		resultLabel: result,
	}).Inc()
	m.rollbackSeconds.Observe(duration.Seconds())
}

// AddConnections adds the delta to the number of open connections.
func (m *Metrics) AddConnections(delta int) {
	m.connections.Add(float64(delta))
}

// AddBroadcast adds the count of broadcast messages of the given type.
func (m *Metrics) AddBroadcast(messageType string) {
	m.broadcastsTotal.With(prometheus.Labels{messageLabel: messageType}).Inc()
}

// SetOpenItineraries sets the number of itineraries held in memory.
func (m *Metrics) SetOpenItineraries(n int) {
	m.openItineraries.Set(float64(n))
}

// AddBackgroundGoroutines adds the number of goroutines attached by the backend.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutines.With(prometheus.Labels{taskLabel: taskType}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by the backend.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutines.With(prometheus.Labels{taskLabel: taskType}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
