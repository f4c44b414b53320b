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


// Package server provides the tripsync server which is the main entry point
// of the tripsync system. The server is responsible for starting the RPC
// server and the profiling server.
package server

import (
	"context"
	gosync "sync"

	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/backend/housekeeping"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/profiling"
	"github.com/yorkie-team/tripsync/server/profiling/prometheus"
	"github.com/yorkie-team/tripsync/server/rpc"
)

// Tripsync is a server of tripsync.
// The server receives operations from the clients, integrates them into the
// authoritative itineraries, and relays them to the collaborators.
type Tripsync struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	registry        *itineraries.Registry
	housekeeping    *housekeeping.Housekeeping
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of Tripsync.
func New(conf *Config) (*Tripsync, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(conf.Backend, conf.DatabaseConfigs(), metrics)
	if err != nil {
		return nil, err
	}

	registry, err := itineraries.New(be)
	if err != nil {
		return nil, err
	}

	hk, err := housekeeping.New(conf.Housekeeping, registry)
	if err != nil {
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &Tripsync{
		conf:            conf,
		backend:         be,
		registry:        registry,
		housekeeping:    hk,
		rpcServer:       rpc.NewServer(conf.RPC, be, registry),
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (r *Tripsync) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if err := r.backend.Start(context.Background()); err != nil {
		return err
	}
	r.registry.Start()
	if err := r.housekeeping.Start(); err != nil {
		return err
	}

	if r.profilingServer != nil {
		if err := r.profilingServer.Start(); err != nil {
			return err
		}
	}

	return r.rpcServer.Start()
}

// Shutdown shuts down this tripsync server. The open itineraries are stored
// before the database is closed.
func (r *Tripsync) Shutdown(graceful bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.shutdown {
		return nil
	}

	r.rpcServer.Shutdown(graceful)
	if r.profilingServer != nil {
		r.profilingServer.Shutdown(graceful)
	}

	if err := r.housekeeping.Stop(); err != nil {
		return err
	}
	closeErr := r.registry.Close(context.Background())
	if err := r.backend.Shutdown(); err != nil {
		return err
	}

	close(r.shutdownCh)
	r.shutdown = true
	return closeErr
}

// ShutdownCh returns the shutdown channel.
func (r *Tripsync) ShutdownCh() <-chan struct{} {
	return r.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (r *Tripsync) RPCAddr() string {
	return r.conf.RPCAddr()
}

// Registry returns the itineraries of this server. It is used for testing.
func (r *Tripsync) Registry() *itineraries.Registry {
	return r.registry
}
