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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/internal/validation"
	"github.com/yorkie-team/tripsync/pkg/errors"
	"github.com/yorkie-team/tripsync/pkg/rollback"
	"github.com/yorkie-team/tripsync/server/itineraries"
	"github.com/yorkie-team/tripsync/server/rpc/httphelper"
)

// ErrInvalidRequest is returned when a request body or query is malformed.
var ErrInvalidRequest = errors.InvalidArgument("invalid request").WithCode("ErrInvalidRequest")

// decode reads the JSON body of the request into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.conf.MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %s: %w", err.Error(), ErrInvalidRequest)
	}
	if err := validation.ValidateStruct(v); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest)
	}
	return nil
}

func (s *Server) openItinerary(w http.ResponseWriter, r *http.Request) (*itineraries.Itinerary, bool) {
	itinerary, err := s.registry.Open(r.Context(), mux.Vars(r)["itinerary"])
	if err != nil {
		fail(w, err)
		return nil, false
	}
	return itinerary, true
}

func (s *Server) serverVersion(w http.ResponseWriter, _ *http.Request) {
	httphelper.WriteJSON(w, http.StatusOK, types.NewVersionDetail())
}

func (s *Server) listItineraries(w http.ResponseWriter, r *http.Request) {
	infos, err := s.registry.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}

	summaries := make([]*types.ItinerarySummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, &types.ItinerarySummary{
			ID:            info.ID,
			ServerVersion: info.ServerVersion,
			UpdatedAt:     info.UpdatedAt,
		})
	}
	httphelper.WriteJSON(w, http.StatusOK, summaries)
}

func (s *Server) getItinerary(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	httphelper.WriteJSON(w, http.StatusOK, &types.ItineraryState{
		ID:       itinerary.ID(),
		Version:  itinerary.Version(),
		State:    itinerary.Snapshot(),
		Sessions: itinerary.Sessions(),
	})
}

func (s *Server) deleteItinerary(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), mux.Vars(r)["itinerary"]); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listVersions lists the versions of an itinerary. The `q` query searches
// them and the `from` and `to` queries select a range of numbers.
func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	switch {
	case query.Has("q"):
		httphelper.WriteJSON(w, http.StatusOK, itinerary.SearchVersions(query.Get("q")))
	case query.Has("from") || query.Has("to"):
		from, err := parseNumber(query.Get("from"), 1)
		if err != nil {
			fail(w, err)
			return
		}
		to, err := parseNumber(query.Get("to"), from)
		if err != nil {
			fail(w, err)
			return
		}
		httphelper.WriteJSON(w, http.StatusOK, itinerary.VersionsInRange(from, to))
	default:
		httphelper.WriteJSON(w, http.StatusOK, itinerary.ListVersions())
	}
}

func (s *Server) createVersion(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	req := &types.CreateVersionRequest{}
	if err := s.decode(w, r, req); err != nil {
		fail(w, err)
		return
	}

	v, err := itinerary.CreateVersion(r.Context(), req.Meta())
	if err != nil {
		fail(w, err)
		return
	}
	httphelper.WriteJSON(w, http.StatusCreated, v)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	v, err := itinerary.GetVersion(mux.Vars(r)["version"])
	if err != nil {
		fail(w, err)
		return
	}
	httphelper.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) getVersionByNumber(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	number, err := parseNumber(mux.Vars(r)["number"], 0)
	if err != nil {
		fail(w, err)
		return
	}
	v, err := itinerary.GetVersionByNumber(number)
	if err != nil {
		fail(w, err)
		return
	}
	httphelper.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVersion(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	if err := itinerary.DeleteVersion(r.Context(), mux.Vars(r)["version"]); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) compareVersions(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		fail(w, fmt.Errorf("from and to are required: %w", ErrInvalidRequest))
		return
	}

	changes, err := itinerary.CompareVersions(from, to)
	if err != nil {
		fail(w, err)
		return
	}
	httphelper.WriteJSON(w, http.StatusOK, &types.CompareResponse{From: from, To: to, Changes: changes})
}

func (s *Server) previewRollback(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	req := &types.PreviewRequest{}
	if err := s.decode(w, r, req); err != nil {
		fail(w, err)
		return
	}
	touched, err := types.ParsePaths(req.TouchedPaths)
	if err != nil {
		fail(w, fmt.Errorf("%s: %w", err.Error(), ErrInvalidRequest))
		return
	}

	resp, err := itinerary.PreviewRollback(req.TargetVersionID, touched)
	if err != nil {
		fail(w, err)
		return
	}
	httphelper.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) executeRollback(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	req := &types.RollbackRequest{}
	if err := s.decode(w, r, req); err != nil {
		fail(w, err)
		return
	}

	result, err := itinerary.ExecuteRollback(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeResult(w, result)
}

func (s *Server) executePartialRollback(w http.ResponseWriter, r *http.Request) {
	itinerary, ok := s.openItinerary(w, r)
	if !ok {
		return
	}

	req := &types.PartialRollbackRequest{}
	if err := s.decode(w, r, req); err != nil {
		fail(w, err)
		return
	}

	result, err := itinerary.ExecutePartialRollback(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeResult(w, result)
}

// writeResult writes a rollback result with the status of its errors.
func writeResult(w http.ResponseWriter, result *rollback.Result) {
	if result.Success {
		httphelper.WriteJSON(w, http.StatusOK, result)
		return
	}

	err := result.Err()
	if err == nil {
		err = errors.Internal("rollback failed")
	}
	if rec, ok := w.(*statusRecorder); ok {
		rec.err = err
	}
	httphelper.WriteJSON(w, httphelper.StatusCodeOf(err), result)
}

func parseNumber(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", s, ErrInvalidRequest)
	}
	return n, nil
}
