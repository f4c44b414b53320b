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

// Package operation implements the atomic edits that are exchanged between
// the replicas of a document.
package operation

import (
	"encoding/json"
	"fmt"
	gotime "time"

	"github.com/google/uuid"

	"github.com/yorkie-team/tripsync/internal/validation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

var (
	// ErrNotApplicable is returned when an operation does not fit the value
	// found at its path, e.g. a text edit on a number.
	ErrNotApplicable = errors.Structural("operation not applicable").WithCode("ErrNotApplicable")

	// ErrIndexOutOfRange is returned when an array operation addresses an
	// index beyond the array.
	ErrIndexOutOfRange = errors.Structural("index out of range").WithCode("ErrIndexOutOfRange")

	// ErrInvalidOperation is returned when an operation fails validation.
	ErrInvalidOperation = errors.InvalidArgument("invalid operation").WithCode("ErrInvalidOperation")
)

// Type is the kind of edit an operation performs.
type Type string

// Below are the types of operations.
const (
	TextInsert  Type = "text-insert"
	TextDelete  Type = "text-delete"
	TextReplace Type = "text-replace"

	ObjectSet    Type = "object-set"
	ObjectDelete Type = "object-delete"

	ArrayInsert Type = "array-insert"
	ArrayDelete Type = "array-delete"
	ArrayMove   Type = "array-move"

	// Noop has no effect. Transform produces it for an edit whose target was
	// removed or overwritten by a concurrent edit.
	Noop Type = "noop"
)

// IsText returns whether the type edits a string value.
func (t Type) IsText() bool {
	return t == TextInsert || t == TextDelete || t == TextReplace
}

// IsObject returns whether the type sets or removes a member.
func (t Type) IsObject() bool {
	return t == ObjectSet || t == ObjectDelete
}

// IsArray returns whether the type edits the elements of an array.
func (t Type) IsArray() bool {
	return t == ArrayInsert || t == ArrayDelete || t == ArrayMove
}

// IsValid returns whether the type is known.
func (t Type) IsValid() bool {
	return t.IsText() || t.IsObject() || t.IsArray() || t == Noop
}

// Payload holds the arguments of an operation. Which fields are meaningful
// depends on the type.
type Payload struct {
	// Position and Length are rune offsets into a string for text edits.
	Position int    `json:"position,omitempty" validate:"gte=0"`
	Length   int    `json:"length,omitempty" validate:"gte=0"`
	Content  string `json:"content,omitempty"`

	// Key is the member key for object edits. When empty, the path of the
	// operation addresses the value directly.
	Key   string `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`

	// Index addresses an array element; From and To are used by moves.
	Index int `json:"index,omitempty" validate:"gte=0"`
	From  int `json:"from,omitempty" validate:"gte=0"`
	To    int `json:"to,omitempty" validate:"gte=0"`
}

// UnmarshalJSON decodes the payload keeping the value as a tree value.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type payload Payload
	var raw struct {
		payload
		Value json.RawMessage `json:"value,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	*p = Payload(raw.payload)
	p.Value = nil
	if len(raw.Value) > 0 {
		value, err := tree.Unmarshal(raw.Value)
		if err != nil {
			return fmt.Errorf("decode payload value: %w", err)
		}
		p.Value = value
	}
	return nil
}

// Operation is one atomic edit to one location of a document. Operations are
// never modified once created; Transform and Apply return new operations.
type Operation struct {
	ID        string      `json:"id" validate:"required"`
	UserID    string      `json:"userId" validate:"required"`
	Timestamp gotime.Time `json:"timestamp" validate:"required"`
	Path      tree.Path   `json:"path"`
	Type      Type        `json:"type" validate:"required,operation_type"`
	Payload   Payload     `json:"payload"`
}

// New creates an operation with a fresh id stamped with the current time.
// The value in the payload is normalized into a tree value.
func New(userID string, typ Type, path tree.Path, payload Payload) *Operation {
	if payload.Value != nil {
		payload.Value = tree.MustNormalize(payload.Value)
	}

	return &Operation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: gotime.Now().UTC(),
		Path:      path.Clone(),
		Type:      typ,
		Payload:   payload,
	}
}

// NewTextInsert creates an operation inserting content at the rune position.
func NewTextInsert(userID string, path tree.Path, position int, content string) *Operation {
	return New(userID, TextInsert, path, Payload{Position: position, Content: content})
}

// NewTextDelete creates an operation deleting length runes at the position.
func NewTextDelete(userID string, path tree.Path, position, length int) *Operation {
	return New(userID, TextDelete, path, Payload{Position: position, Length: length})
}

// NewTextReplace creates an operation replacing length runes at the position
// with content.
func NewTextReplace(userID string, path tree.Path, position, length int, content string) *Operation {
	return New(userID, TextReplace, path, Payload{Position: position, Length: length, Content: content})
}

// NewObjectSet creates an operation setting the value at the given path.
func NewObjectSet(userID string, path tree.Path, value any) *Operation {
	if len(path) > 0 && path.Last().IsKey() {
		return New(userID, ObjectSet, path.Parent(), Payload{Key: path.Last().KeyName(), Value: value})
	}
	return New(userID, ObjectSet, path, Payload{Value: value})
}

// NewObjectDelete creates an operation removing the member at the given path.
func NewObjectDelete(userID string, path tree.Path) *Operation {
	if len(path) > 0 && path.Last().IsKey() {
		return New(userID, ObjectDelete, path.Parent(), Payload{Key: path.Last().KeyName()})
	}
	return New(userID, ObjectDelete, path, Payload{})
}

// NewArrayInsert creates an operation inserting value before index.
func NewArrayInsert(userID string, path tree.Path, index int, value any) *Operation {
	return New(userID, ArrayInsert, path, Payload{Index: index, Value: value})
}

// NewArrayDelete creates an operation removing the element at index.
func NewArrayDelete(userID string, path tree.Path, index int) *Operation {
	return New(userID, ArrayDelete, path, Payload{Index: index})
}

// NewArrayMove creates an operation moving the element at from to to.
func NewArrayMove(userID string, path tree.Path, from, to int) *Operation {
	return New(userID, ArrayMove, path, Payload{From: from, To: to})
}

// Target returns the path of the value this operation writes. For object
// edits with a key it is the path extended with the key; for array edits it
// is the array itself.
func (o *Operation) Target() tree.Path {
	if o.Type.IsObject() && o.Payload.Key != "" {
		return o.Path.Append(tree.Key(o.Payload.Key))
	}
	return o.Path.Clone()
}

// IsNoop returns whether this operation has no effect.
func (o *Operation) IsNoop() bool {
	return o.Type == Noop
}

// OverwritesValue returns whether this operation replaces the value at its
// target as a whole, which is where concurrent writers collide.
func (o *Operation) OverwritesValue() bool {
	return o.Type == ObjectSet || o.Type == ObjectDelete || o.Type == TextReplace
}

// Validate checks that the operation is well formed.
func (o *Operation) Validate() error {
	if err := validation.ValidateStruct(o); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), ErrInvalidOperation)
	}
	if o.Type == ObjectDelete && o.Payload.Key == "" && (len(o.Path) == 0 || !o.Path.Last().IsKey()) {
		return fmt.Errorf("object-delete needs a key: %w", ErrInvalidOperation)
	}
	return nil
}

// Clone returns a copy of this operation sharing nothing with it.
func (o *Operation) Clone() *Operation {
	clone := *o
	clone.Path = o.Path.Clone()
	clone.Payload.Value = tree.Clone(o.Payload.Value)
	return &clone
}

// WithIdentity returns a copy of this operation with a fresh id issued by
// the given user at the given time.
func (o *Operation) WithIdentity(userID string, at gotime.Time) *Operation {
	clone := o.Clone()
	clone.ID = uuid.NewString()
	clone.UserID = userID
	clone.Timestamp = at
	return clone
}

// String returns a short description of this operation for logs.
func (o *Operation) String() string {
	switch {
	case o.Type.IsText():
		return fmt.Sprintf("%s %s@%d-%d %q", o.Type, o.Path.String(), o.Payload.Position, o.Payload.Length, o.Payload.Content)
	case o.Type.IsObject():
		return fmt.Sprintf("%s %s = %s", o.Type, o.Target().String(), tree.Describe(o.Payload.Value))
	case o.Type == ArrayMove:
		return fmt.Sprintf("%s %s[%d->%d]", o.Type, o.Path.String(), o.Payload.From, o.Payload.To)
	case o.Type.IsArray():
		return fmt.Sprintf("%s %s[%d]", o.Type, o.Path.String(), o.Payload.Index)
	default:
		return string(o.Type)
	}
}

func init() {
	if err := validation.RegisterValidation("operation_type", func(level validation.FieldLevel) bool {
		return Type(level.Field().String()).IsValid()
	}); err != nil {
		panic(err)
	}
	if err := validation.RegisterTranslation("operation_type", "{0} is not a known operation type"); err != nil {
		panic(err)
	}
}
