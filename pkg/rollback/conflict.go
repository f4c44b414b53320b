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
	"math"
	"strings"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// ConflictType is the reason a change was judged to be a conflict.
type ConflictType string

// Below are the types of conflicts.
const (
	// ModifiedAfterVersion means the field was modified after the target
	// version was created.
	ModifiedAfterVersion ConflictType = "modified_after_version"

	// ConcurrentEdit means the field is known to be edited since the target
	// version was created.
	ConcurrentEdit ConflictType = "concurrent_edit"

	// DependencyConflict means a container was replaced by a scalar or the
	// other way around.
	DependencyConflict ConflictType = "dependency_conflict"
)

// Strategy is how a conflict is resolved.
type Strategy string

// Below are the strategies to resolve conflicts.
const (
	UseCurrent  Strategy = "use_current"
	UseRollback Strategy = "use_rollback"
	Merge       Strategy = "merge"
	Skip        Strategy = "skip"
)

// IsValid returns whether the strategy is known.
func (s Strategy) IsValid() bool {
	switch s {
	case UseCurrent, UseRollback, Merge, Skip:
		return true
	default:
		return false
	}
}

// Conflict is a change that needs a resolution before it is rolled back.
type Conflict struct {
	Path                tree.Path     `json:"path"`
	Type                ConflictType  `json:"type"`
	ChangeType          diff.Type     `json:"changeType"`
	Category            FieldCategory `json:"category"`
	CurrentValue        any           `json:"currentValue"`
	RollbackValue       any           `json:"rollbackValue"`
	Description         string        `json:"description"`
	CanAutoResolve      bool          `json:"canAutoResolve"`
	AutoResolveStrategy Strategy      `json:"autoResolveStrategy,omitempty"`
}

// annotate decides the type of the conflict and how it can be resolved
// automatically.
func (e *Engine) annotate(c *Conflict) {
	currentKind := tree.KindOf(c.CurrentValue)
	rollbackKind := tree.KindOf(c.RollbackValue)
	if currentKind.IsContainer() != rollbackKind.IsContainer() ||
		(currentKind.IsContainer() && currentKind != rollbackKind) {
		c.Type = DependencyConflict
		c.Category = Other
		c.Description = fmt.Sprintf(
			"%s changed from %s to %s", c.Path, rollbackKind, currentKind,
		)
		return
	}

	c.Category = categorize(e.options.Schema, c.Path, c.CurrentValue, c.RollbackValue)
	c.Description = fmt.Sprintf(
		"%s field %s was modified after the target version", c.Category, c.Path,
	)
	if c.Type == ConcurrentEdit {
		c.Description = fmt.Sprintf("%s field %s was edited concurrently", c.Category, c.Path)
	}

	switch c.Category {
	case Text:
		if currentKind == tree.KindString && rollbackKind == tree.KindString {
			c.CanAutoResolve, c.AutoResolveStrategy = true, Merge
			return
		}
		c.CanAutoResolve, c.AutoResolveStrategy = true, UseRollback
	case Numeric:
		cur, ok1 := c.CurrentValue.(float64)
		rb, ok2 := c.RollbackValue.(float64)
		if ok1 && ok2 && relativeDelta(cur, rb) <= e.options.SmallDeltaRatio {
			c.CanAutoResolve, c.AutoResolveStrategy = true, Merge
			return
		}
		c.CanAutoResolve, c.AutoResolveStrategy = true, UseRollback
	case Financial, Temporal:
		c.CanAutoResolve, c.AutoResolveStrategy = true, UseCurrent
	default:
		c.CanAutoResolve, c.AutoResolveStrategy = true, UseRollback
	}
}

// merge returns the content-aware merge of the values of the conflict. A
// field missing on one side keeps its current state.
func (e *Engine) merge(c Conflict) any {
	switch cur := c.CurrentValue.(type) {
	case string:
		rb, ok := c.RollbackValue.(string)
		if !ok {
			break
		}
		switch {
		case strings.Contains(cur, rb):
			return cur
		case strings.Contains(rb, cur):
			return rb
		default:
			return cur + e.options.MergeSeparator + rb
		}
	case float64:
		if rb, ok := c.RollbackValue.(float64); ok {
			return math.Max(cur, rb)
		}
	}
	return tree.Clone(c.CurrentValue)
}

func relativeDelta(a, b float64) float64 {
	if a == b {
		return 0
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) / scale
}
