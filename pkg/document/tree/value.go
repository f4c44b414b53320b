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
	"fmt"
)

// Kind is the shape of a value stored in a tree.
type Kind int

// Below are the kinds a tree value can have.
const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// IsContainer returns whether values of this kind hold other values.
func (k Kind) IsContainer() bool {
	return k == KindObject || k == KindArray
}

// KindOf returns the kind of the given tree value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	case *Object:
		return KindObject
	case *Array:
		return KindArray
	default:
		return KindInvalid
	}
}

// Object is a mapping that keeps its members in insertion order.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Len returns the number of members.
func (o *Object) Len() int {
	return len(o.keys)
}

// Keys returns the member keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string{}, o.keys...)
}

// Has returns whether the key is a member.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Get returns the member value.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set sets the member value. A new key is appended to the key order; an
// existing key keeps its position.
func (o *Object) Set(key string, value any) *Object {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
	return o
}

// Delete removes the member and returns its previous value.
func (o *Object) Delete(key string) (any, bool) {
	v, ok := o.values[key]
	if !ok {
		return nil, false
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Array is an ordered sequence of values.
type Array struct {
	elems []any
}

// NewArray creates an Array holding the given elements.
func NewArray(elems ...any) *Array {
	return &Array{elems: append([]any{}, elems...)}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.elems)
}

// Elements returns the elements. The slice is a copy; the elements are not.
func (a *Array) Elements() []any {
	return append([]any{}, a.elems...)
}

// Get returns the element at the given index.
func (a *Array) Get(index int) (any, bool) {
	if index < 0 || index >= len(a.elems) {
		return nil, false
	}
	return a.elems[index], true
}

// Set replaces the element at the given index.
func (a *Array) Set(index int, value any) bool {
	if index < 0 || index >= len(a.elems) {
		return false
	}
	a.elems[index] = value
	return true
}

// Insert inserts the value before the given index; index == Len appends.
func (a *Array) Insert(index int, value any) bool {
	if index < 0 || index > len(a.elems) {
		return false
	}
	a.elems = append(a.elems, nil)
	copy(a.elems[index+1:], a.elems[index:])
	a.elems[index] = value
	return true
}

// Append appends values to the end.
func (a *Array) Append(values ...any) *Array {
	a.elems = append(a.elems, values...)
	return a
}

// Remove removes and returns the element at the given index.
func (a *Array) Remove(index int) (any, bool) {
	if index < 0 || index >= len(a.elems) {
		return nil, false
	}
	v := a.elems[index]
	a.elems = append(a.elems[:index], a.elems[index+1:]...)
	return v, true
}

// Move removes the element at from and inserts it so that it ends up at to.
func (a *Array) Move(from, to int) bool {
	if from < 0 || from >= len(a.elems) || to < 0 || to >= len(a.elems) {
		return false
	}
	v, _ := a.Remove(from)
	return a.Insert(to, v)
}

// Clone returns a deep copy of the given value. A value that contains itself
// is a precondition violation and panics instead of looping.
func Clone(v any) any {
	return clone(v, make(map[any]bool))
}

func clone(v any, visiting map[any]bool) any {
	switch val := v.(type) {
	case *Object:
		if val == nil {
			return nil
		}
		if visiting[val] {
			panic("tree: cyclic value")
		}
		visiting[val] = true
		defer delete(visiting, val)

		o := &Object{keys: append([]string{}, val.keys...), values: make(map[string]any, len(val.values))}
		for k, member := range val.values {
			o.values[k] = clone(member, visiting)
		}
		return o
	case *Array:
		if val == nil {
			return nil
		}
		if visiting[val] {
			panic("tree: cyclic value")
		}
		visiting[val] = true
		defer delete(visiting, val)

		a := &Array{elems: make([]any, len(val.elems))}
		for i, elem := range val.elems {
			a.elems[i] = clone(elem, visiting)
		}
		return a
	default:
		return v
	}
}

// CloneObject is Clone for an Object root.
func CloneObject(o *Object) *Object {
	if o == nil {
		return NewObject()
	}
	return Clone(o).(*Object)
}

// Equal returns whether both values are deeply equal. Object member order is
// not significant.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case *Object:
		y, ok := b.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.values[k]
			if !ok || !Equal(x.values[k], yv) {
				return false
			}
		}
		return true
	case *Array:
		y, ok := b.(*Array)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i := range x.elems {
			if !Equal(x.elems[i], y.elems[i]) {
				return false
			}
		}
		return true
	default:
		kind := KindOf(a)
		if kind == KindInvalid || kind != KindOf(b) {
			return false
		}
		return a == b
	}
}

// Describe returns a short human readable form of a value for logs and
// error messages.
func Describe(v any) string {
	switch val := v.(type) {
	case *Object:
		return fmt.Sprintf("object(%d)", val.Len())
	case *Array:
		return fmt.Sprintf("array(%d)", val.Len())
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
