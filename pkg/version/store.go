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

package version

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	gotime "time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/yorkie-team/tripsync/internal/log"
	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

// DefaultMaxVersions is the default number of versions kept per itinerary.
const DefaultMaxVersions = 50

var (
	// ErrVersionNotFound is returned when a version does not exist.
	ErrVersionNotFound = errors.NotFound("version not found").WithCode("ErrVersionNotFound")

	// ErrPersistence is returned when the version list could not be stored
	// or loaded. The store is left as it was.
	ErrPersistence = errors.Persistence("version persistence failed").WithCode("ErrPersistence")

	// ErrCorruptedVersions is returned when the stored version list cannot
	// be decoded.
	ErrCorruptedVersions = errors.Internal("corrupted version list").WithCode("ErrCorruptedVersions")

	// ErrEmptyDraft is returned when a version is created without data.
	ErrEmptyDraft = errors.InvalidArgument("version data is missing").WithCode("ErrEmptyDraft")
)

// Storage is the durable key-value store the version lists are kept in,
// keyed by itinerary id. Get returns nil data when nothing was stored.
type Storage interface {
	PutVersions(ctx context.Context, itineraryID string, data []byte) error
	GetVersions(ctx context.Context, itineraryID string) ([]byte, error)
}

// Option configures Options.
type Option func(*Options)

// Options configures a Store.
type Options struct {
	// MaxVersions is the number of versions kept. Older ones are evicted.
	MaxVersions int

	// Clock returns the creation time of new versions.
	Clock func() gotime.Time

	// Logger is the logger of the store.
	Logger *zap.SugaredLogger
}

// WithMaxVersions configures the retention bound of the store.
func WithMaxVersions(n int) Option {
	return func(o *Options) { o.MaxVersions = n }
}

// WithClock configures the clock of the store.
func WithClock(clock func() gotime.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// WithLogger configures the logger of the store.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *Options) { o.Logger = logger }
}

// state is the persisted form of a store.
type state struct {
	CurrentID  string     `json:"currentId"`
	NextNumber int64      `json:"nextNumber"`
	Versions   []*Version `json:"versions"`
}

func (s *state) clone() *state {
	return &state{
		CurrentID:  s.CurrentID,
		NextNumber: s.NextNumber,
		Versions:   append([]*Version{}, s.Versions...),
	}
}

func (s *state) find(id string) (int, *Version) {
	for i, v := range s.Versions {
		if v.ID == id {
			return i, v
		}
	}
	return -1, nil
}

// Store keeps the versions of one itinerary. Versions are ordered by their
// strictly increasing numbers; deleting one never renumbers the others.
type Store struct {
	mu          sync.RWMutex
	itineraryID string
	storage     Storage
	options     Options
	logger      *zap.SugaredLogger
	state       *state
}

// Open loads the versions of the itinerary from the storage.
func Open(ctx context.Context, storage Storage, itineraryID string, opts ...Option) (*Store, error) {
	options := Options{
		MaxVersions: DefaultMaxVersions,
		Clock:       gotime.Now,
		Logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(&options)
	}

	data, err := storage.GetVersions(ctx, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("load versions of %s: %s: %w", itineraryID, err.Error(), ErrPersistence)
	}

	st := &state{NextNumber: 1}
	if len(data) > 0 {
		if err := json.Unmarshal(data, st); err != nil {
			return nil, fmt.Errorf("decode versions of %s: %s: %w", itineraryID, err.Error(), ErrCorruptedVersions)
		}
		sort.Slice(st.Versions, func(i, j int) bool {
			return st.Versions[i].VersionNumber < st.Versions[j].VersionNumber
		})
	}

	return &Store{
		itineraryID: itineraryID,
		storage:     storage,
		options:     options,
		logger:      options.Logger.With("itinerary", itineraryID),
		state:       st,
	}, nil
}

// ItineraryID returns the id of the itinerary this store belongs to.
func (s *Store) ItineraryID() string {
	return s.itineraryID
}

// CreateVersion snapshots the given data as the next version and makes it
// the current one.
func (s *Store) CreateVersion(ctx context.Context, data *tree.Object, meta Meta) (*Version, error) {
	versions, err := s.CreateVersions(ctx, Draft{Data: data, Meta: meta})
	if err != nil {
		return nil, err
	}
	return versions[0], nil
}

// CreateVersions creates the given versions in order in one write: either
// all of them are stored or none is. The last one becomes current.
func (s *Store) CreateVersions(ctx context.Context, drafts ...Draft) ([]*Version, error) {
	for _, d := range drafts {
		if d.Data == nil {
			return nil, ErrEmptyDraft
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	created := make([]*Version, 0, len(drafts))
	for _, d := range drafts {
		v := &Version{
			ID:            xid.New().String(),
			ItineraryID:   s.itineraryID,
			VersionNumber: next.NextNumber,
			Name:          d.Meta.Name,
			Data:          tree.CloneObject(d.Data),
			CreatedAt:     s.options.Clock().UTC(),
			CreatedBy:     d.Meta.CreatedBy,
			ChangeNotes:   d.Meta.ChangeNotes,
			Tags:          append([]string{}, d.Meta.Tags...),
		}
		if v.Name == "" {
			v.Name = fmt.Sprintf("Version %d", v.VersionNumber)
		}

		next.NextNumber++
		next.Versions = append(next.Versions, v)
		next.CurrentID = v.ID
		created = append(created, v)
	}

	if s.options.MaxVersions > 0 && len(next.Versions) > s.options.MaxVersions {
		evicted := len(next.Versions) - s.options.MaxVersions
		next.Versions = append([]*Version{}, next.Versions[evicted:]...)
		s.logger.Debugf("evicted %d versions", evicted)
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}

	result := make([]*Version, len(created))
	for i, v := range created {
		result[i] = s.view(v)
	}
	return result, nil
}

// DeleteVersion removes the version. When it was the current one, the
// latest remaining version becomes current.
func (s *Store) DeleteVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, _ := s.state.find(id)
	if idx < 0 {
		return fmt.Errorf("delete %s: %w", id, ErrVersionNotFound)
	}

	next := s.state.clone()
	next.Versions = append(next.Versions[:idx:idx], next.Versions[idx+1:]...)
	if next.CurrentID == id {
		next.CurrentID = ""
		if len(next.Versions) > 0 {
			next.CurrentID = next.Versions[len(next.Versions)-1].ID
		}
	}

	return s.persist(ctx, next)
}

// SetCurrent makes the given version the current one.
func (s *Store) SetCurrent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, _ := s.state.find(id); idx < 0 {
		return fmt.Errorf("set current %s: %w", id, ErrVersionNotFound)
	}

	next := s.state.clone()
	next.CurrentID = id
	return s.persist(ctx, next)
}

// GetVersion returns the version with the given id.
func (s *Store) GetVersion(id string) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, v := s.state.find(id)
	if v == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrVersionNotFound)
	}
	return s.view(v), nil
}

// GetVersionByNumber returns the version with the given number.
func (s *Store) GetVersionByNumber(number int64) (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.state.Versions {
		if v.VersionNumber == number {
			return s.view(v), nil
		}
	}
	return nil, fmt.Errorf("version %d: %w", number, ErrVersionNotFound)
}

// GetVersionsInRange returns the versions numbered from start to end, both
// included, in order.
func (s *Store) GetVersionsInRange(start, end int64) []*Version {
	return s.filter(func(v *Version) bool {
		return v.VersionNumber >= start && v.VersionNumber <= end
	})
}

// SearchVersions returns the versions matching the query in order.
func (s *Store) SearchVersions(query string) []*Version {
	return s.filter(func(v *Version) bool {
		return v.Matches(query)
	})
}

// Versions returns every version in order.
func (s *Store) Versions() []*Version {
	return s.filter(func(*Version) bool { return true })
}

// Len returns the number of versions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Versions)
}

// Current returns the current version, or ErrVersionNotFound when the
// store is empty.
func (s *Store) Current() (*Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, v := s.state.find(s.state.CurrentID)
	if v == nil {
		return nil, fmt.Errorf("current version: %w", ErrVersionNotFound)
	}
	return s.view(v), nil
}

// CompareVersions returns the differences from the data of version a to the
// data of version b.
func (s *Store) CompareVersions(a, b string) ([]diff.Change, error) {
	va, err := s.GetVersion(a)
	if err != nil {
		return nil, err
	}
	vb, err := s.GetVersion(b)
	if err != nil {
		return nil, err
	}
	return diff.Diff(va.Data, vb.Data), nil
}

func (s *Store) filter(keep func(*Version) bool) []*Version {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Version
	for _, v := range s.state.Versions {
		if keep(v) {
			result = append(result, s.view(v))
		}
	}
	return result
}

// view returns a copy of the stored version with its IsActive flag set.
// The data is shared; versions are immutable.
func (s *Store) view(v *Version) *Version {
	view := *v
	view.Tags = append([]string{}, v.Tags...)
	view.IsActive = v.ID == s.state.CurrentID
	return &view
}

// persist stores the next state and swaps it in on success.
func (s *Store) persist(ctx context.Context, next *state) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode versions: %s: %w", err.Error(), ErrPersistence)
	}
	if err := s.storage.PutVersions(ctx, s.itineraryID, data); err != nil {
		s.logger.Warnf("persist versions: %v", err)
		return fmt.Errorf("store versions of %s: %s: %w", s.itineraryID, err.Error(), ErrPersistence)
	}

	s.state = next
	return nil
}
