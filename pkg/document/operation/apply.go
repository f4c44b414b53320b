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

package operation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

// Apply executes this operation on the given root and returns the
// operation that structurally reverts it. The root is left untouched when
// an error is returned.
func (o *Operation) Apply(root *tree.Object) (*Operation, error) {
	var inverse *Operation
	var err error

	switch {
	case o.Type.IsText():
		inverse, err = o.applyText(root)
	case o.Type == ObjectSet:
		inverse, err = o.applyObjectSet(root)
	case o.Type == ObjectDelete:
		inverse, err = o.applyObjectDelete(root)
	case o.Type.IsArray():
		inverse, err = o.applyArray(root)
	case o.Type == Noop:
		inverse = o.derive(Noop, o.Path, Payload{})
	default:
		return nil, fmt.Errorf("%s: unknown type: %w", o.Type, ErrNotApplicable)
	}
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", o.String(), err)
	}

	return inverse, nil
}

// derive creates an operation issued by the same user at the same time.
func (o *Operation) derive(typ Type, path tree.Path, payload Payload) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		UserID:    o.UserID,
		Timestamp: o.Timestamp,
		Path:      path.Clone(),
		Type:      typ,
		Payload:   payload,
	}
}

func (o *Operation) applyText(root *tree.Object) (*Operation, error) {
	v, err := tree.Get(root, o.Path)
	if err != nil {
		if o.Type != TextInsert || !errors.Is(err, tree.ErrPathNotFound) {
			return nil, err
		}
		v = ""
		if err := tree.Set(root, o.Path, ""); err != nil {
			return nil, err
		}
	}

	var text []rune
	switch s := v.(type) {
	case string:
		text = []rune(s)
	case nil:
	default:
		return nil, fmt.Errorf("%s is %s: %w", o.Path.String(), tree.KindOf(v), ErrNotApplicable)
	}

	pos := clamp(o.Payload.Position, 0, len(text))
	length := 0
	if o.Type != TextInsert {
		length = clamp(o.Payload.Length, 0, len(text)-pos)
	}
	content := ""
	if o.Type != TextDelete {
		content = o.Payload.Content
	}

	removed := string(text[pos : pos+length])
	result := string(text[:pos]) + content + string(text[pos+length:])
	if err := tree.Set(root, o.Path, result); err != nil {
		return nil, err
	}

	return o.derive(textType(len([]rune(content)), removed), o.Path, Payload{
		Position: pos,
		Length:   len([]rune(content)),
		Content:  removed,
	}), nil
}

func (o *Operation) applyObjectSet(root *tree.Object) (*Operation, error) {
	target := o.Target()
	if len(target) == 0 {
		return nil, fmt.Errorf("object-set on root: %w", tree.ErrEmptyPath)
	}

	old, err := tree.Get(root, target)
	existed := err == nil
	if err != nil && !errors.Is(err, tree.ErrPathNotFound) {
		return nil, err
	}

	if err := tree.Set(root, target, tree.Clone(o.Payload.Value)); err != nil {
		return nil, err
	}

	if !existed {
		return o.derive(ObjectDelete, o.Path, Payload{Key: o.Payload.Key}), nil
	}
	return o.derive(ObjectSet, o.Path, Payload{Key: o.Payload.Key, Value: old}), nil
}

func (o *Operation) applyObjectDelete(root *tree.Object) (*Operation, error) {
	target := o.Target()
	if len(target) == 0 || !target.Last().IsKey() {
		return nil, fmt.Errorf("object-delete on %q: %w", target.String(), ErrNotApplicable)
	}

	old, err := tree.Delete(root, target)
	if err != nil {
		return nil, err
	}
	return o.derive(ObjectSet, o.Path, Payload{Key: o.Payload.Key, Value: old}), nil
}

func (o *Operation) applyArray(root *tree.Object) (*Operation, error) {
	arr, err := tree.GetArray(root, o.Path)
	if err != nil {
		return nil, err
	}

	switch o.Type {
	case ArrayInsert:
		if !arr.Insert(o.Payload.Index, tree.Clone(o.Payload.Value)) {
			return nil, fmt.Errorf("insert at %d of %d: %w", o.Payload.Index, arr.Len(), ErrIndexOutOfRange)
		}
		return o.derive(ArrayDelete, o.Path, Payload{Index: o.Payload.Index}), nil
	case ArrayDelete:
		old, ok := arr.Remove(o.Payload.Index)
		if !ok {
			return nil, fmt.Errorf("delete at %d of %d: %w", o.Payload.Index, arr.Len(), ErrIndexOutOfRange)
		}
		return o.derive(ArrayInsert, o.Path, Payload{Index: o.Payload.Index, Value: old}), nil
	default:
		if !arr.Move(o.Payload.From, o.Payload.To) {
			return nil, fmt.Errorf("move %d to %d of %d: %w", o.Payload.From, o.Payload.To, arr.Len(), ErrIndexOutOfRange)
		}
		return o.derive(ArrayMove, o.Path, Payload{From: o.Payload.To, To: o.Payload.From}), nil
	}
}

// textType returns the text type for an edit deleting length runes and
// inserting content.
func textType(length int, content string) Type {
	switch {
	case length == 0 && content == "":
		return Noop
	case length == 0:
		return TextInsert
	case content == "":
		return TextDelete
	default:
		return TextReplace
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
