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

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/pkg/document/diff"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

func parse(t *testing.T, data string) any {
	v, err := tree.Unmarshal([]byte(data))
	assert.NoError(t, err)
	return v
}

func describe(changes []diff.Change) []string {
	var result []string
	for _, c := range changes {
		result = append(result, c.String())
	}
	return result
}

func TestDiff(t *testing.T) {
	t.Run("identical trees test", func(t *testing.T) {
		v := parse(t, `{"title":"Kyoto","days":[{"name":"d1"}]}`)
		assert.Empty(t, diff.Diff(v, tree.Clone(v)))
	})

	t.Run("objects test", func(t *testing.T) {
		changes := diff.Diff(
			parse(t, `{"title":"Kyoto","budget":{"amount":1000},"notes":"x"}`),
			parse(t, `{"title":"Osaka","budget":{"amount":1000,"currency":"JPY"},"destination":"Japan"}`),
		)
		assert.Equal(t, []string{
			`~ title: "Kyoto" -> "Osaka"`,
			`+ budget.currency: "JPY"`,
			`- notes: "x"`,
			`+ destination: "Japan"`,
		}, describe(changes))
	})

	t.Run("arrays test", func(t *testing.T) {
		changes := diff.Diff(parse(t, `{"days":[]}`), parse(t, `{"days":[{"name":"d1"}]}`))
		assert.Len(t, changes, 1)
		assert.Equal(t, diff.Added, changes[0].Type)
		assert.Equal(t, "days[0]", changes[0].Path.String())

		changes = diff.Diff(parse(t, `[1,2,3]`), parse(t, `[1,5]`))
		assert.Equal(t, []string{"~ [1]: 2 -> 5", "- [2]: 3"}, describe(changes))
	})

	t.Run("kind change test", func(t *testing.T) {
		changes := diff.Diff(parse(t, `{"budget":{"amount":1}}`), parse(t, `{"budget":"1"}`))
		assert.Len(t, changes, 1)
		assert.Equal(t, diff.Modified, changes[0].Type)
		assert.Equal(t, "1", changes[0].NewValue)
		assert.IsType(t, &tree.Object{}, changes[0].OldValue)

		changes = diff.Diff(parse(t, `{"n":1}`), parse(t, `{"n":"1"}`))
		assert.Len(t, changes, 1)
	})

	t.Run("deterministic order test", func(t *testing.T) {
		a := parse(t, `{"z":1,"a":[1,{"k":true}],"m":{"x":null}}`)
		b := parse(t, `{"a":[2,{"k":false},3],"z":2,"m":{"y":1}}`)
		first := describe(diff.Diff(a, b))
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, describe(diff.Diff(a, b)))
		}
		assert.Equal(t, []string{
			"~ z: 1 -> 2",
			"~ a[0]: 1 -> 2",
			"~ a[1].k: true -> false",
			"+ a[2]: 3",
			"- m.x: <nil>",
			"+ m.y: 1",
		}, first)
	})

	t.Run("symmetry test", func(t *testing.T) {
		pairs := [][2]string{
			{`{"title":"Kyoto","days":[{"name":"d1"},{"name":"d2"}]}`, `{"title":"Osaka","days":[{"name":"d1","notes":"x"}],"budget":1}`},
			{`{"a":{"b":[1,2,{"c":"d"}]}}`, `{"a":{"b":"flat"}}`},
			{`{}`, `{"x":[[],{}]}`},
			{`[null,true,"s"]`, `[false]`},
		}
		for _, pair := range pairs {
			a, b := parse(t, pair[0]), parse(t, pair[1])
			assert.ElementsMatch(t, describe(diff.Reverse(diff.Diff(a, b))), describe(diff.Diff(b, a)))
		}
	})

	t.Run("values are copied test", func(t *testing.T) {
		newTree := parse(t, `{"days":[{"name":"d1"}]}`).(*tree.Object)
		changes := diff.Diff(tree.NewObject(), newTree)
		assert.NoError(t, tree.Set(newTree, tree.MustParsePath("days[0].name"), "changed"))

		v, err := tree.Get(changes[0].NewValue, tree.MustParsePath("[0].name"))
		assert.NoError(t, err)
		assert.Equal(t, "d1", v)
	})

	t.Run("cyclic tree test", func(t *testing.T) {
		a := tree.NewObject()
		a.Set("self", a)
		b := tree.NewObject()
		b.Set("self", b)
		assert.Panics(t, func() {
			diff.Diff(a, b)
		})
	})
}
