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

package rollback

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

var (
	// ErrInvalidPattern is returned when a schema pattern cannot be parsed.
	ErrInvalidPattern = errors.InvalidArgument("invalid path pattern").WithCode("ErrInvalidPattern")

	// ErrUnknownCategory is returned when a field category name is unknown.
	ErrUnknownCategory = errors.InvalidArgument("unknown field category").WithCode("ErrUnknownCategory")
)

// FieldCategory tells how a field reacts to being rolled back.
type FieldCategory int

// Below are the categories of fields.
const (
	// Other fields are restored to the rolled back value.
	Other FieldCategory = iota

	// Text fields merge both versions of the text.
	Text

	// Numeric fields keep the larger value when both are close.
	Numeric

	// Financial fields keep the current value.
	Financial

	// Temporal fields keep the current value.
	Temporal
)

// String returns the name of the category.
func (c FieldCategory) String() string {
	switch c {
	case Text:
		return "text"
	case Numeric:
		return "numeric"
	case Financial:
		return "financial"
	case Temporal:
		return "temporal"
	default:
		return "other"
	}
}

// MarshalText encodes the category as its name.
func (c FieldCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category from its name.
func (c *FieldCategory) UnmarshalText(text []byte) error {
	category, err := ParseFieldCategory(string(text))
	if err != nil {
		return err
	}
	*c = category
	return nil
}

// ParseFieldCategory returns the category of the given name.
func ParseFieldCategory(name string) (FieldCategory, error) {
	for _, c := range []FieldCategory{Other, Text, Numeric, Financial, Temporal} {
		if c.String() == name {
			return c, nil
		}
	}
	return Other, fmt.Errorf("%q: %w", name, ErrUnknownCategory)
}

// Schema maps the fields of a document to their categories.
type Schema interface {
	// Categorize returns the category of the field at the path. It reports
	// false when the schema does not know the field.
	Categorize(path tree.Path) (FieldCategory, bool)
}

// categorize returns the category of a field, falling back to the kind of
// its values when the schema does not know it.
func categorize(schema Schema, path tree.Path, values ...any) FieldCategory {
	if schema != nil {
		if category, ok := schema.Categorize(path); ok {
			return category
		}
	}

	for _, v := range values {
		switch tree.KindOf(v) {
		case tree.KindString:
			return Text
		case tree.KindNumber:
			return Numeric
		case tree.KindNull:
			continue
		default:
			return Other
		}
	}
	return Other
}

// PatternSchema categorizes fields by path patterns. In a pattern `*`
// matches one segment, `[*]` one index and `**` any number of segments,
// e.g. `days[*].activities[*].time` or `**.cost`. The first matching rule
// wins.
type PatternSchema struct {
	rules []rule
}

type rule struct {
	pattern  string
	segments []patternSegment
	category FieldCategory
}

// NewPatternSchema creates an empty PatternSchema.
func NewPatternSchema() *PatternSchema {
	return &PatternSchema{}
}

// Add adds a rule mapping the fields matching the pattern to the category.
func (s *PatternSchema) Add(pattern string, category FieldCategory) error {
	segments, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{pattern: pattern, segments: segments, category: category})
	return nil
}

// MustAdd is like Add but panics on an invalid pattern.
func (s *PatternSchema) MustAdd(pattern string, category FieldCategory) *PatternSchema {
	if err := s.Add(pattern, category); err != nil {
		panic(err)
	}
	return s
}

// Categorize returns the category of the first rule matching the path.
func (s *PatternSchema) Categorize(path tree.Path) (FieldCategory, bool) {
	for _, r := range s.rules {
		if matchPattern(r.segments, path) {
			return r.category, true
		}
	}
	return Other, false
}

// ItinerarySchema returns the schema of the itinerary documents.
func ItinerarySchema() *PatternSchema {
	return NewPatternSchema().
		MustAdd("budget", Financial).
		MustAdd("budget.**", Financial).
		MustAdd("**.cost", Financial).
		MustAdd("**.price", Financial).
		MustAdd("startDate", Temporal).
		MustAdd("endDate", Temporal).
		MustAdd("**.date", Temporal).
		MustAdd("**.time", Temporal).
		MustAdd("**.startTime", Temporal).
		MustAdd("**.endTime", Temporal).
		MustAdd("title", Text).
		MustAdd("description", Text).
		MustAdd("destination", Other).
		MustAdd("**.name", Text).
		MustAdd("**.notes", Text).
		MustAdd("**.description", Text)
}

// SubstringSchema categorizes a field as Financial when its path contains
// "budget" or "cost" and as Temporal when it contains "date" or "time".
// It reproduces how older hosts categorized fields; "runtime" counts as a
// time field and "costume" as a cost.
type SubstringSchema struct{}

// Categorize implements Schema.
func (SubstringSchema) Categorize(path tree.Path) (FieldCategory, bool) {
	s := strings.ToLower(path.String())
	switch {
	case strings.Contains(s, "budget"), strings.Contains(s, "cost"):
		return Financial, true
	case strings.Contains(s, "date"), strings.Contains(s, "time"):
		return Temporal, true
	default:
		return Other, false
	}
}

type patternKind int

const (
	patternKey patternKind = iota
	patternIndex
	patternAnyOne
	patternAnyIndex
	patternAnyMany
)

type patternSegment struct {
	kind  patternKind
	key   string
	index int
}

func parsePattern(pattern string) ([]patternSegment, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern: %w", ErrInvalidPattern)
	}

	var segments []patternSegment
	for _, part := range strings.Split(pattern, ".") {
		name, rest, hasIndex := strings.Cut(part, "[")
		switch name {
		case "**":
			segments = append(segments, patternSegment{kind: patternAnyMany})
		case "*":
			segments = append(segments, patternSegment{kind: patternAnyOne})
		case "":
			if !hasIndex {
				return nil, fmt.Errorf("%q: empty segment: %w", pattern, ErrInvalidPattern)
			}
		default:
			segments = append(segments, patternSegment{kind: patternKey, key: name})
		}

		for hasIndex {
			inner, after, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, fmt.Errorf("%q: unterminated bracket: %w", pattern, ErrInvalidPattern)
			}
			if inner == "*" {
				segments = append(segments, patternSegment{kind: patternAnyIndex})
			} else {
				index, err := strconv.Atoi(inner)
				if err != nil || index < 0 {
					return nil, fmt.Errorf("%q: bad index %q: %w", pattern, inner, ErrInvalidPattern)
				}
				segments = append(segments, patternSegment{kind: patternIndex, index: index})
			}

			if after == "" {
				break
			}
			if !strings.HasPrefix(after, "[") {
				return nil, fmt.Errorf("%q: unexpected %q: %w", pattern, after, ErrInvalidPattern)
			}
			rest = after[1:]
		}
	}
	return segments, nil
}

func matchPattern(pattern []patternSegment, path tree.Path) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	head := pattern[0]
	if head.kind == patternAnyMany {
		for i := 0; i <= len(path); i++ {
			if matchPattern(pattern[1:], path[i:]) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 {
		return false
	}
	seg := path[0]
	switch head.kind {
	case patternKey:
		if !seg.IsKey() || seg.KeyName() != head.key {
			return false
		}
	case patternIndex:
		if !seg.IsIndex() || seg.IndexValue() != head.index {
			return false
		}
	case patternAnyIndex:
		if !seg.IsIndex() {
			return false
		}
	}
	return matchPattern(pattern[1:], path[1:])
}
