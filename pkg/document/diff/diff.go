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

// Package diff computes the path level differences between two document
// trees.
package diff

import (
	"fmt"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// Type is the kind of a difference.
type Type string

// Below are the kinds of differences.
const (
	Added    Type = "added"
	Removed  Type = "removed"
	Modified Type = "modified"
)

// Change is one difference between two trees. OldValue is set for removed
// and modified changes, NewValue for added and modified ones.
type Change struct {
	Path     tree.Path `json:"path"`
	Type     Type      `json:"type"`
	OldValue any       `json:"oldValue,omitempty"`
	NewValue any       `json:"newValue,omitempty"`
}

// String returns a short description of this change.
func (c Change) String() string {
	switch c.Type {
	case Added:
		return fmt.Sprintf("+ %s: %s", c.Path.String(), tree.Describe(c.NewValue))
	case Removed:
		return fmt.Sprintf("- %s: %s", c.Path.String(), tree.Describe(c.OldValue))
	default:
		return fmt.Sprintf("~ %s: %s -> %s", c.Path.String(), tree.Describe(c.OldValue), tree.Describe(c.NewValue))
	}
}

// Diff compares two trees and returns their differences depth first: object
// members in the insertion order of the old tree followed by members only
// the new tree has, array elements by index. A value whose kind changes is
// reported as one modified change. Cyclic trees panic.
func Diff(oldTree, newTree any) []Change {
	d := &differ{visiting: make(map[any]bool)}
	d.diff(tree.Path{}, oldTree, newTree)
	return d.changes
}

type differ struct {
	changes  []Change
	visiting map[any]bool
}

func (d *differ) diff(path tree.Path, oldValue, newValue any) {
	switch o := oldValue.(type) {
	case *tree.Object:
		if n, ok := newValue.(*tree.Object); ok {
			d.enter(o)
			defer d.leave(o)
			d.diffObject(path, o, n)
			return
		}
	case *tree.Array:
		if n, ok := newValue.(*tree.Array); ok {
			d.enter(o)
			defer d.leave(o)
			d.diffArray(path, o, n)
			return
		}
	}

	if !tree.Equal(oldValue, newValue) {
		d.emit(path, Modified, oldValue, newValue)
	}
}

func (d *differ) diffObject(path tree.Path, o, n *tree.Object) {
	for _, key := range o.Keys() {
		oldMember, _ := o.Get(key)
		newMember, ok := n.Get(key)
		if !ok {
			d.emit(path.Append(tree.Key(key)), Removed, oldMember, nil)
			continue
		}
		d.diff(path.Append(tree.Key(key)), oldMember, newMember)
	}
	for _, key := range n.Keys() {
		if o.Has(key) {
			continue
		}
		newMember, _ := n.Get(key)
		d.emit(path.Append(tree.Key(key)), Added, nil, newMember)
	}
}

func (d *differ) diffArray(path tree.Path, o, n *tree.Array) {
	length := max(o.Len(), n.Len())
	for i := 0; i < length; i++ {
		oldElem, inOld := o.Get(i)
		newElem, inNew := n.Get(i)
		switch {
		case !inNew:
			d.emit(path.Append(tree.Index(i)), Removed, oldElem, nil)
		case !inOld:
			d.emit(path.Append(tree.Index(i)), Added, nil, newElem)
		default:
			d.diff(path.Append(tree.Index(i)), oldElem, newElem)
		}
	}
}

func (d *differ) emit(path tree.Path, typ Type, oldValue, newValue any) {
	d.changes = append(d.changes, Change{
		Path:     path,
		Type:     typ,
		OldValue: tree.Clone(oldValue),
		NewValue: tree.Clone(newValue),
	})
}

func (d *differ) enter(container any) {
	if d.visiting[container] {
		panic("diff: cyclic value")
	}
	d.visiting[container] = true
}

func (d *differ) leave(container any) {
	delete(d.visiting, container)
}

// Reverse returns the changes that lead back from the new tree to the old
// one: added and removed are swapped along with the old and new values.
func Reverse(changes []Change) []Change {
	reversed := make([]Change, len(changes))
	for i, c := range changes {
		r := Change{Path: c.Path.Clone(), OldValue: c.NewValue, NewValue: c.OldValue}
		switch c.Type {
		case Added:
			r.Type = Removed
		case Removed:
			r.Type = Added
		default:
			r.Type = Modified
		}
		reversed[i] = r
	}
	return reversed
}

// Paths returns the paths of the given changes.
func Paths(changes []Change) []tree.Path {
	paths := make([]tree.Path, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	return paths
}
