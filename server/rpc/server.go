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


// Package rpc serves the websocket protocol and the REST API of the
// itineraries.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	gotime "time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/tripsync/server/backend"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/logging"
	"github.com/yorkie-team/tripsync/server/rpc/httphealth"
)

// shutdownTimeout is how long a graceful shutdown waits for requests.
const shutdownTimeout = 10 * gotime.Second

// Server is a normal server that processes the logic requested by the client.
type Server struct {
	conf       *Config
	be         *backend.Backend
	registry   *itineraries.Registry
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, registry *itineraries.Registry) *Server {
	s := &Server{
		conf:     conf,
		be:       be,
		registry: registry,
		upgrader: newUpgrader(conf),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           s.newRouter(),
		ReadHeaderTimeout: 5 * gotime.Second,
	}
	return s
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(newRequestMiddleware(s.be.Metrics))

	path, health := httphealth.NewHandler(func(context.Context) error {
		if s.registry.Closed() {
			return itineraries.ErrRegistryClosed
		}
		return nil
	})
	r.Handle(path, health)

	r.HandleFunc("/ws/{itinerary}", s.serveWebSocket).Methods(http.MethodGet).Name("ws")

	r.HandleFunc("/api/version", s.serverVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api/itineraries").Subrouter()
	api.HandleFunc("", s.listItineraries).Methods(http.MethodGet)
	api.HandleFunc("/{itinerary}", s.getItinerary).Methods(http.MethodGet)
	api.HandleFunc("/{itinerary}", s.deleteItinerary).Methods(http.MethodDelete)

	api.HandleFunc("/{itinerary}/versions", s.listVersions).Methods(http.MethodGet)
	api.HandleFunc("/{itinerary}/versions", s.createVersion).Methods(http.MethodPost)
	api.HandleFunc("/{itinerary}/versions/number/{number:[0-9]+}", s.getVersionByNumber).Methods(http.MethodGet)
	api.HandleFunc("/{itinerary}/versions/{version}", s.getVersion).Methods(http.MethodGet)
	api.HandleFunc("/{itinerary}/versions/{version}", s.deleteVersion).Methods(http.MethodDelete)
	api.HandleFunc("/{itinerary}/compare", s.compareVersions).Methods(http.MethodGet)

	api.HandleFunc("/{itinerary}/rollback/preview", s.previewRollback).Methods(http.MethodPost)
	api.HandleFunc("/{itinerary}/rollback/partial", s.executePartialRollback).Methods(http.MethodPost)
	api.HandleFunc("/{itinerary}/rollback", s.executeRollback).Methods(http.MethodPost)

	return r
}

// Handler returns the HTTP handler of this server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		var err error
		if s.conf.CertFile != "" && s.conf.KeyFile != "" {
			err = s.httpServer.ServeTLS(lis, s.conf.CertFile, s.conf.KeyFile)
		} else {
			err = s.httpServer.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server. Websockets are not waited for; they end
// when the registry is closed.
func (s *Server) Shutdown(graceful bool) {
	if !graceful {
		if err := s.httpServer.Close(); err != nil {
			logging.DefaultLogger().Error(err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.DefaultLogger().Error(err)
	}
}
