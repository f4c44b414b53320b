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

package tree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// ErrInvalidPath is returned when a path string or a JSON path cannot be parsed.
var ErrInvalidPath = errors.InvalidArgument("invalid path").WithCode("ErrInvalidPath")

// SegmentKind is the tag of a PathSegment.
type SegmentKind int

const (
	// KeySegment addresses a member of an Object.
	KeySegment SegmentKind = iota

	// IndexSegment addresses an element of an Array.
	IndexSegment
)

// PathSegment is one step of a Path: either Key(string) or Index(int).
type PathSegment struct {
	kind  SegmentKind
	key   string
	index int
}

// Key returns a segment addressing the member of an Object.
func Key(key string) PathSegment {
	return PathSegment{kind: KeySegment, key: key}
}

// Index returns a segment addressing the element of an Array.
func Index(index int) PathSegment {
	return PathSegment{kind: IndexSegment, index: index}
}

// Kind returns the tag of this segment.
func (s PathSegment) Kind() SegmentKind {
	return s.kind
}

// IsKey returns whether this segment is a Key.
func (s PathSegment) IsKey() bool {
	return s.kind == KeySegment
}

// IsIndex returns whether this segment is an Index.
func (s PathSegment) IsIndex() bool {
	return s.kind == IndexSegment
}

// KeyName returns the key of a Key segment.
func (s PathSegment) KeyName() string {
	return s.key
}

// IndexValue returns the index of an Index segment.
func (s PathSegment) IndexValue() int {
	return s.index
}

// String returns the segment as it appears inside a path string.
func (s PathSegment) String() string {
	switch s.kind {
	case KeySegment:
		return s.key
	case IndexSegment:
		return "[" + strconv.Itoa(s.index) + "]"
	default:
		panic(fmt.Sprintf("tree: unknown segment kind %d", s.kind))
	}
}

// Path addresses a location in a document tree.
type Path []PathSegment

// NewPath builds a path from strings (keys) and ints (indices).
func NewPath(segments ...any) Path {
	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		switch v := seg.(type) {
		case string:
			path = append(path, Key(v))
		case int:
			path = append(path, Index(v))
		case PathSegment:
			path = append(path, v)
		default:
			panic(fmt.Sprintf("tree: unsupported path segment %T", seg))
		}
	}
	return path
}

// MustParsePath is like ParsePath but panics on malformed input.
func MustParsePath(s string) Path {
	path, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return path
}

// ParsePath parses the dotted form, e.g. `days[0].activities[2].name`.
// Keys that contain `.`, `[` or `]` are written as `["key"]`.
func ParsePath(s string) (Path, error) {
	path := Path{}
	i := 0
	expectKey := true
	for i < len(s) {
		switch s[i] {
		case '.':
			if expectKey {
				return nil, fmt.Errorf("%q: empty key at %d: %w", s, i, ErrInvalidPath)
			}
			expectKey = true
			i++
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%q: unterminated bracket: %w", s, ErrInvalidPath)
			}
			inner := s[i+1 : i+end]
			if strings.HasPrefix(inner, `"`) {
				end = strings.Index(s[i:], `"]`)
				if end < 0 {
					return nil, fmt.Errorf("%q: unterminated quoted key: %w", s, ErrInvalidPath)
				}
				key, err := strconv.Unquote(s[i+1 : i+end+1])
				if err != nil {
					return nil, fmt.Errorf("%q: %s: %w", s, err.Error(), ErrInvalidPath)
				}
				path = append(path, Key(key))
				i += end + 2
			} else {
				index, err := strconv.Atoi(inner)
				if err != nil || index < 0 {
					return nil, fmt.Errorf("%q: bad index %q: %w", s, inner, ErrInvalidPath)
				}
				path = append(path, Index(index))
				i += end + 1
			}
			expectKey = false
		default:
			if !expectKey {
				return nil, fmt.Errorf("%q: missing separator at %d: %w", s, i, ErrInvalidPath)
			}
			end := strings.IndexAny(s[i:], ".[")
			if end < 0 {
				end = len(s) - i
			}
			path = append(path, Key(s[i:i+end]))
			i += end
			expectKey = false
		}
	}
	if expectKey && len(s) > 0 {
		return nil, fmt.Errorf("%q: trailing separator: %w", s, ErrInvalidPath)
	}
	return path, nil
}

// String returns the dotted form of this path. The empty path is "".
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		switch seg.kind {
		case KeySegment:
			if strings.ContainsAny(seg.key, ".[]") || seg.key == "" {
				sb.WriteString("[" + strconv.Quote(seg.key) + "]")
				continue
			}
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(seg.key)
		case IndexSegment:
			sb.WriteString(seg.String())
		}
	}
	return sb.String()
}

// Append returns a new path with the given segments appended. The receiver
// is never modified.
func (p Path) Append(segments ...PathSegment) Path {
	path := make(Path, 0, len(p)+len(segments))
	path = append(path, p...)
	return append(path, segments...)
}

// Clone returns a copy of this path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path{}, p...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1].Clone()
}

// Last returns the last segment. It panics on the empty path.
func (p Path) Last() PathSegment {
	return p[len(p)-1]
}

// Equal returns whether both paths address the same location.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix returns whether prefix is an ancestor of, or equal to, p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// MarshalJSON encodes the path as an array of strings and numbers.
func (p Path) MarshalJSON() ([]byte, error) {
	raw := make([]any, len(p))
	for i, seg := range p {
		switch seg.kind {
		case KeySegment:
			raw[i] = seg.key
		case IndexSegment:
			raw[i] = seg.index
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes either the array form or the dotted string form.
func (p *Path) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		path, err := ParsePath(str)
		if err != nil {
			return err
		}
		*p = path
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode path: %w", ErrInvalidPath)
	}

	path := make(Path, 0, len(raw))
	for _, item := range raw {
		var key string
		if err := json.Unmarshal(item, &key); err == nil {
			path = append(path, Key(key))
			continue
		}
		var index int
		if err := json.Unmarshal(item, &index); err != nil || index < 0 {
			return fmt.Errorf("decode path segment %s: %w", string(item), ErrInvalidPath)
		}
		path = append(path, Index(index))
	}
	*p = path
	return nil
}
