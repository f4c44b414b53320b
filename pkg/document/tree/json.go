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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// ErrUnsupportedValue is returned when a Go value has no tree representation.
var ErrUnsupportedValue = errors.InvalidArgument("unsupported value").WithCode("ErrUnsupportedValue")

// MarshalJSON encodes the object keeping the member order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping the member order of the input.
func (o *Object) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("expected object, got %s: %w", KindOf(v), ErrTypeMismatch)
	}
	*o = *decoded
	return nil
}

// MarshalJSON encodes the array.
func (a *Array) MarshalJSON() ([]byte, error) {
	if a.elems == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.elems)
}

// UnmarshalJSON decodes an array.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Array)
	if !ok {
		return fmt.Errorf("expected array, got %s: %w", KindOf(v), ErrTypeMismatch)
	}
	*a = *decoded
	return nil
}

// Marshal encodes a tree value as JSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON into a tree value. Object member order follows the
// input and every number becomes a float64.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after value: %w", ErrUnsupportedValue)
	}
	return v, nil
}

// UnmarshalObject decodes JSON that must hold an object.
func UnmarshalObject(data []byte) (*Object, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s: %w", KindOf(v), ErrTypeMismatch)
	}
	return o, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("decode key: %w", err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("non-string key %v: %w", keyTok, ErrUnsupportedValue)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				o.Set(key, member)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode object end: %w", err)
			}
			return o, nil
		case '[':
			a := NewArray()
			for dec.More() {
				elem, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				a.Append(elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode array end: %w", err)
			}
			return a, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v: %w", t, ErrUnsupportedValue)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode number %s: %w", t.String(), err)
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("unexpected token %v: %w", tok, ErrUnsupportedValue)
	}
}

// Normalize converts a Go value into a tree value. Tree values are deep
// copied, integers become float64, maps become objects with sorted keys, and
// anything else, such as structs, goes through JSON so that struct field
// order is kept.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string, float64:
		return val, nil
	case *Object, *Array:
		return Clone(val), nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.RawMessage:
		return Unmarshal(val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		o := NewObject()
		for _, k := range keys {
			member, err := Normalize(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			o.Set(k, member)
		}
		return o, nil
	case []any:
		a := NewArray()
		for i, elem := range val {
			normalized, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			a.Append(normalized)
		}
		return a, nil
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func || rv.Kind() == reflect.Chan {
		return nil, fmt.Errorf("%T: %w", v, ErrUnsupportedValue)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%T: %s: %w", v, err.Error(), ErrUnsupportedValue)
	}
	return Unmarshal(data)
}

// MustNormalize is like Normalize but panics on failure. It is meant for
// literals in tests and defaults.
func MustNormalize(v any) any {
	normalized, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return normalized
}

// NewObjectFrom builds an Object from alternating key and value arguments,
// normalizing each value.
func NewObjectFrom(keyValues ...any) *Object {
	if len(keyValues)%2 != 0 {
		panic("tree: odd number of key-value arguments")
	}
	o := NewObject()
	for i := 0; i < len(keyValues); i += 2 {
		o.Set(keyValues[i].(string), MustNormalize(keyValues[i+1]))
	}
	return o
}

// NewArrayFrom builds an Array normalizing each element.
func NewArrayFrom(elems ...any) *Array {
	a := NewArray()
	for _, elem := range elems {
		a.Append(MustNormalize(elem))
	}
	return a
}
