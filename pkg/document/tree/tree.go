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

// Package tree implements the document tree shared by the synchronization
// engine: insertion-ordered objects, arrays, scalars and typed paths that
// address locations inside them.
package tree

import (
	"fmt"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

var (
	// ErrPathNotFound is returned when a path does not resolve in the tree.
	ErrPathNotFound = errors.Structural("path not found").WithCode("ErrPathNotFound")

	// ErrTypeMismatch is returned when a segment kind does not match the
	// container it is applied to, e.g. an index into an object.
	ErrTypeMismatch = errors.Structural("type mismatch").WithCode("ErrTypeMismatch")

	// ErrEmptyPath is returned when a mutation addresses the root itself.
	ErrEmptyPath = errors.InvalidArgument("empty path").WithCode("ErrEmptyPath")
)

// Get returns the value at the given path.
func Get(root any, path Path) (any, error) {
	current := root
	for i, seg := range path {
		next, err := child(current, seg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path[:i+1].String(), err)
		}
		current = next
	}
	return current, nil
}

// Has returns whether the path resolves in the tree.
func Has(root any, path Path) bool {
	_, err := Get(root, path)
	return err == nil
}

// Set stores the value at the given path. Missing objects on key segments
// are created on the way; index segments must already resolve.
func Set(root any, path Path, value any) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}

	parent, err := ensureParent(root, path)
	if err != nil {
		return err
	}

	last := path.Last()
	switch container := parent.(type) {
	case *Object:
		if !last.IsKey() {
			return fmt.Errorf("%s: %w", path.String(), ErrTypeMismatch)
		}
		container.Set(last.KeyName(), value)
		return nil
	case *Array:
		if !last.IsIndex() {
			return fmt.Errorf("%s: %w", path.String(), ErrTypeMismatch)
		}
		if !container.Set(last.IndexValue(), value) {
			return fmt.Errorf("%s: %w", path.String(), ErrPathNotFound)
		}
		return nil
	default:
		return fmt.Errorf("%s: %w", path.Parent().String(), ErrTypeMismatch)
	}
}

// Delete removes the value at the given path and returns it. Deleting an
// array element shifts the following elements.
func Delete(root any, path Path) (any, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}

	parent, err := Get(root, path.Parent())
	if err != nil {
		return nil, err
	}

	last := path.Last()
	switch container := parent.(type) {
	case *Object:
		if !last.IsKey() {
			return nil, fmt.Errorf("%s: %w", path.String(), ErrTypeMismatch)
		}
		old, ok := container.Delete(last.KeyName())
		if !ok {
			return nil, fmt.Errorf("%s: %w", path.String(), ErrPathNotFound)
		}
		return old, nil
	case *Array:
		if !last.IsIndex() {
			return nil, fmt.Errorf("%s: %w", path.String(), ErrTypeMismatch)
		}
		old, ok := container.Remove(last.IndexValue())
		if !ok {
			return nil, fmt.Errorf("%s: %w", path.String(), ErrPathNotFound)
		}
		return old, nil
	default:
		return nil, fmt.Errorf("%s: %w", path.Parent().String(), ErrTypeMismatch)
	}
}

// GetObject returns the Object at the given path.
func GetObject(root any, path Path) (*Object, error) {
	v, err := Get(root, path)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%s is %s: %w", path.String(), KindOf(v), ErrTypeMismatch)
	}
	return o, nil
}

// GetArray returns the Array at the given path.
func GetArray(root any, path Path) (*Array, error) {
	v, err := Get(root, path)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*Array)
	if !ok {
		return nil, fmt.Errorf("%s is %s: %w", path.String(), KindOf(v), ErrTypeMismatch)
	}
	return a, nil
}

// Walk visits every value depth-first, containers before their children,
// object members in insertion order.
func Walk(root any, fn func(path Path, value any) error) error {
	return walk(Path{}, root, fn)
}

func walk(path Path, v any, fn func(Path, any) error) error {
	if err := fn(path, v); err != nil {
		return err
	}
	switch val := v.(type) {
	case *Object:
		for _, k := range val.keys {
			if err := walk(path.Append(Key(k)), val.values[k], fn); err != nil {
				return err
			}
		}
	case *Array:
		for i, elem := range val.elems {
			if err := walk(path.Append(Index(i)), elem, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func child(v any, seg PathSegment) (any, error) {
	switch seg.Kind() {
	case KeySegment:
		o, ok := v.(*Object)
		if !ok {
			return nil, ErrTypeMismatch
		}
		member, ok := o.Get(seg.KeyName())
		if !ok {
			return nil, ErrPathNotFound
		}
		return member, nil
	case IndexSegment:
		a, ok := v.(*Array)
		if !ok {
			return nil, ErrTypeMismatch
		}
		elem, ok := a.Get(seg.IndexValue())
		if !ok {
			return nil, ErrPathNotFound
		}
		return elem, nil
	default:
		panic(fmt.Sprintf("tree: unknown segment kind %d", seg.Kind()))
	}
}

func ensureParent(root any, path Path) (any, error) {
	if err := checkCreatable(root, path); err != nil {
		return nil, err
	}

	current := root
	for i, seg := range path[:len(path)-1] {
		next, err := child(current, seg)
		if err == nil {
			current = next
			continue
		}
		if !errors.Is(err, ErrPathNotFound) || !seg.IsKey() {
			return nil, fmt.Errorf("%s: %w", path[:i+1].String(), err)
		}

		created := NewObject()
		current.(*Object).Set(seg.KeyName(), created)
		current = created
	}
	return current, nil
}

// checkCreatable fails, before anything is created, when ensureParent would
// have to create a container for an index segment. Created containers are
// objects, so the last segment must be a key as well.
func checkCreatable(root any, path Path) error {
	current := root
	for i, seg := range path[:len(path)-1] {
		next, err := child(current, seg)
		if err == nil {
			current = next
			continue
		}
		if !errors.Is(err, ErrPathNotFound) {
			return fmt.Errorf("%s: %w", path[:i+1].String(), err)
		}
		for j, rest := range path[i:] {
			if rest.IsIndex() {
				return fmt.Errorf("%s: %w", path[:i+j+1].String(), ErrPathNotFound)
			}
		}
		return nil
	}
	return nil
}
