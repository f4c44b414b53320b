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

package tree_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/errors"
)

func sampleItinerary(t *testing.T) *tree.Object {
	root, err := tree.UnmarshalObject([]byte(`{
		"title": "Kyoto",
		"budget": {"amount": 1000, "currency": "JPY"},
		"days": [
			{"name": "Day 1", "activities": [{"name": "Fushimi Inari"}]},
			{"name": "Day 2", "activities": []}
		]
	}`))
	assert.NoError(t, err)
	return root
}

func TestPath(t *testing.T) {
	t.Run("parse and string round trip test", func(t *testing.T) {
		for _, s := range []string{
			"title",
			"days[0].name",
			"days[1].activities[12].notes",
			`meta["a.b"].c`,
			`[""]`,
		} {
			path, err := tree.ParsePath(s)
			assert.NoError(t, err)
			assert.Equal(t, s, path.String())
		}
	})

	t.Run("parse segments test", func(t *testing.T) {
		path := tree.MustParsePath("days[0].activities[2].name")
		assert.Equal(t, tree.NewPath("days", 0, "activities", 2, "name"), path)
		assert.True(t, path[1].IsIndex())
		assert.Equal(t, 2, path[3].IndexValue())
		assert.Equal(t, "name", path.Last().KeyName())
	})

	t.Run("parse invalid path test", func(t *testing.T) {
		for _, s := range []string{"days[", "days[-1]", "days[x]", "a..b", "a."} {
			_, err := tree.ParsePath(s)
			assert.ErrorIs(t, err, tree.ErrInvalidPath, s)
		}
	})

	t.Run("empty path test", func(t *testing.T) {
		path, err := tree.ParsePath("")
		assert.NoError(t, err)
		assert.Len(t, path, 0)
		assert.Equal(t, "", path.String())
	})

	t.Run("prefix and parent test", func(t *testing.T) {
		path := tree.NewPath("days", 0, "name")
		assert.True(t, path.HasPrefix(tree.NewPath("days")))
		assert.True(t, path.HasPrefix(tree.NewPath("days", 0)))
		assert.False(t, path.HasPrefix(tree.NewPath("days", 1)))
		assert.Equal(t, tree.NewPath("days", 0), path.Parent())
		assert.Equal(t, tree.NewPath("days", 0, "name"), path)
	})

	t.Run("append does not alias test", func(t *testing.T) {
		base := make(tree.Path, 0, 8)
		base = append(base, tree.Key("days"))
		p1 := base.Append(tree.Index(0))
		p2 := base.Append(tree.Index(1))
		assert.Equal(t, "days[0]", p1.String())
		assert.Equal(t, "days[1]", p2.String())
	})

	t.Run("json test", func(t *testing.T) {
		path := tree.NewPath("days", 0, "name")
		data, err := json.Marshal(path)
		assert.NoError(t, err)
		assert.Equal(t, `["days",0,"name"]`, string(data))

		var decoded tree.Path
		assert.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, path, decoded)

		assert.NoError(t, json.Unmarshal([]byte(`"days[1].name"`), &decoded))
		assert.Equal(t, tree.NewPath("days", 1, "name"), decoded)
	})
}

func TestTree(t *testing.T) {
	t.Run("get test", func(t *testing.T) {
		root := sampleItinerary(t)

		v, err := tree.Get(root, tree.MustParsePath("days[0].activities[0].name"))
		assert.NoError(t, err)
		assert.Equal(t, "Fushimi Inari", v)

		v, err = tree.Get(root, tree.MustParsePath("budget.amount"))
		assert.NoError(t, err)
		assert.Equal(t, float64(1000), v)

		v, err = tree.Get(root, tree.Path{})
		assert.NoError(t, err)
		assert.Same(t, root, v)
	})

	t.Run("get missing path test", func(t *testing.T) {
		root := sampleItinerary(t)

		_, err := tree.Get(root, tree.MustParsePath("days[5].name"))
		assert.ErrorIs(t, err, tree.ErrPathNotFound)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeStructural))

		_, err = tree.Get(root, tree.MustParsePath("title.length"))
		assert.ErrorIs(t, err, tree.ErrTypeMismatch)

		_, err = tree.Get(root, tree.MustParsePath("budget[0]"))
		assert.ErrorIs(t, err, tree.ErrTypeMismatch)
	})

	t.Run("set creates intermediate objects test", func(t *testing.T) {
		root := tree.NewObject()
		assert.NoError(t, tree.Set(root, tree.MustParsePath("budget.amount"), float64(1200)))

		data, err := tree.Marshal(root)
		assert.NoError(t, err)
		assert.Equal(t, `{"budget":{"amount":1200}}`, string(data))
	})

	t.Run("set through missing index test", func(t *testing.T) {
		root := sampleItinerary(t)
		err := tree.Set(root, tree.MustParsePath("days[3].name"), "Day 4")
		assert.ErrorIs(t, err, tree.ErrPathNotFound)

		err = tree.Set(root, tree.MustParsePath("days[2]"), "Day 3")
		assert.ErrorIs(t, err, tree.ErrPathNotFound)
	})

	t.Run("failed set leaves the tree untouched test", func(t *testing.T) {
		for _, p := range []string{"days[0]", "meta.days[0]", "meta.days[0].name", "meta.list[2]"} {
			root, err := tree.UnmarshalObject([]byte(`{"title":"a"}`))
			assert.NoError(t, err)

			err = tree.Set(root, tree.MustParsePath(p), "x")
			assert.ErrorIs(t, err, tree.ErrPathNotFound, p)
			data, err := tree.Marshal(root)
			assert.NoError(t, err)
			assert.Equal(t, `{"title":"a"}`, string(data), p)
		}
	})

	t.Run("set empty path test", func(t *testing.T) {
		assert.ErrorIs(t, tree.Set(tree.NewObject(), tree.Path{}, "x"), tree.ErrEmptyPath)
	})

	t.Run("delete test", func(t *testing.T) {
		root := sampleItinerary(t)

		old, err := tree.Delete(root, tree.MustParsePath("days[0]"))
		assert.NoError(t, err)
		name, _ := old.(*tree.Object).Get("name")
		assert.Equal(t, "Day 1", name)

		v, err := tree.Get(root, tree.MustParsePath("days[0].name"))
		assert.NoError(t, err)
		assert.Equal(t, "Day 2", v)

		_, err = tree.Delete(root, tree.MustParsePath("budget.tax"))
		assert.ErrorIs(t, err, tree.ErrPathNotFound)
	})

	t.Run("walk order test", func(t *testing.T) {
		root := sampleItinerary(t)
		var paths []string
		assert.NoError(t, tree.Walk(root, func(path tree.Path, _ any) error {
			paths = append(paths, path.String())
			return nil
		}))
		assert.Equal(t, []string{
			"",
			"title",
			"budget",
			"budget.amount",
			"budget.currency",
			"days",
			"days[0]",
			"days[0].name",
			"days[0].activities",
			"days[0].activities[0]",
			"days[0].activities[0].name",
			"days[1]",
			"days[1].name",
			"days[1].activities",
		}, paths)
	})
}

func TestValue(t *testing.T) {
	t.Run("object keeps insertion order test", func(t *testing.T) {
		o := tree.NewObject().Set("b", 1.0).Set("a", 2.0).Set("b", 3.0)
		assert.Equal(t, []string{"b", "a"}, o.Keys())

		_, ok := o.Delete("b")
		assert.True(t, ok)
		assert.Equal(t, []string{"a"}, o.Keys())
	})

	t.Run("array operations test", func(t *testing.T) {
		a := tree.NewArray("a", "b", "c")
		assert.True(t, a.Insert(3, "d"))
		assert.False(t, a.Insert(5, "x"))
		assert.True(t, a.Move(0, 3))
		assert.Equal(t, []any{"b", "c", "d", "a"}, a.Elements())

		v, ok := a.Remove(1)
		assert.True(t, ok)
		assert.Equal(t, "c", v)
		assert.Equal(t, 3, a.Len())
	})

	t.Run("clone is deep test", func(t *testing.T) {
		root := sampleItinerary(t)
		cloned := tree.CloneObject(root)
		assert.True(t, tree.Equal(root, cloned))

		assert.NoError(t, tree.Set(cloned, tree.MustParsePath("days[0].name"), "changed"))
		assert.False(t, tree.Equal(root, cloned))

		v, _ := tree.Get(root, tree.MustParsePath("days[0].name"))
		assert.Equal(t, "Day 1", v)
	})

	t.Run("clone cyclic value test", func(t *testing.T) {
		o := tree.NewObject()
		o.Set("self", o)
		assert.PanicsWithValue(t, "tree: cyclic value", func() {
			tree.Clone(o)
		})
	})

	t.Run("equal ignores member order test", func(t *testing.T) {
		a := tree.NewObjectFrom("x", 1, "y", "z")
		b := tree.NewObjectFrom("y", "z", "x", 1)
		assert.True(t, tree.Equal(a, b))
		assert.False(t, tree.Equal(a, tree.NewObjectFrom("x", 1)))
		assert.False(t, tree.Equal(1.0, "1"))
		assert.True(t, tree.Equal(nil, nil))
	})
}

func TestJSON(t *testing.T) {
	t.Run("ordered round trip test", func(t *testing.T) {
		input := `{"z":1,"a":{"c":[1,"two",true,null],"b":{}},"m":[]}`
		v, err := tree.Unmarshal([]byte(input))
		assert.NoError(t, err)

		data, err := tree.Marshal(v)
		assert.NoError(t, err)
		assert.Equal(t, input, string(data))
	})

	t.Run("numbers become float64 test", func(t *testing.T) {
		v, err := tree.Unmarshal([]byte(`[1, 2.5, -3]`))
		assert.NoError(t, err)
		assert.Equal(t, []any{1.0, 2.5, -3.0}, v.(*tree.Array).Elements())
	})

	t.Run("trailing data test", func(t *testing.T) {
		_, err := tree.Unmarshal([]byte(`{} {}`))
		assert.ErrorIs(t, err, tree.ErrUnsupportedValue)
	})

	t.Run("embedded in struct test", func(t *testing.T) {
		type envelope struct {
			Data *tree.Object `json:"data"`
		}
		var env envelope
		assert.NoError(t, json.Unmarshal([]byte(`{"data":{"b":1,"a":2}}`), &env))
		assert.Equal(t, []string{"b", "a"}, env.Data.Keys())

		data, err := json.Marshal(env)
		assert.NoError(t, err)
		assert.Equal(t, `{"data":{"b":1,"a":2}}`, string(data))
	})

	t.Run("normalize test", func(t *testing.T) {
		type activity struct {
			Name     string `json:"name"`
			Duration int    `json:"duration"`
		}

		v, err := tree.Normalize(map[string]any{
			"b":          3,
			"a":          []any{int64(1), "x"},
			"activities": []activity{{Name: "walk", Duration: 30}},
		})
		assert.NoError(t, err)

		data, err := tree.Marshal(v)
		assert.NoError(t, err)
		assert.Equal(t, `{"a":[1,"x"],"activities":[{"name":"walk","duration":30}],"b":3}`, string(data))

		n, err := tree.Get(v, tree.MustParsePath("activities[0].duration"))
		assert.NoError(t, err)
		assert.Equal(t, 30.0, n)

		_, err = tree.Normalize(make(chan int))
		assert.ErrorIs(t, err, tree.ErrUnsupportedValue)
	})
}
