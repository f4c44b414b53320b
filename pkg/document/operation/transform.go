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
	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// Transform rebases two concurrent operations on each other. It returns a'
// that has the effect of a once b was applied, and b' that has the effect of
// b once a was applied, so that applying b then a' leaves the same tree as
// applying a then b'. b has priority: when both insert at the same place,
// b's content ends up first.
//
// Text edits on the same string and index edits on the same array converge.
// An operation whose path goes through an array element is re-addressed when
// the other operation shifts that element, and becomes a no-op when the
// element is removed. An operation under a value the other one overwrites
// becomes a no-op. Two operations overwriting the same target are returned
// unchanged; deciding between them is left to the conflict resolver.
func Transform(a, b *Operation) (*Operation, *Operation) {
	a2, b2 := a.Clone(), b.Clone()
	if a.IsNoop() || b.IsNoop() {
		return a2, b2
	}

	switch {
	case a.Type.IsText() && b.Type.IsText() && a.Path.Equal(b.Path):
		transformText(a2, b2, a, b)
	case a.Type.IsArray() && b.Type.IsArray() && a.Path.Equal(b.Path):
		transformArray(a2, b2, a, b)
	default:
		rebase(a2, b)
		rebase(b2, a)
	}

	return a2, b2
}

// edit is a text operation seen as: delete del runes at pos, then insert ins.
type edit struct {
	pos int
	del int
	ins []rune
}

func editOf(o *Operation) edit {
	e := edit{pos: o.Payload.Position}
	if o.Type != TextInsert {
		e.del = o.Payload.Length
	}
	if o.Type != TextDelete {
		e.ins = []rune(o.Payload.Content)
	}
	return e
}

func (e edit) end() int {
	return e.pos + e.del
}

func (e edit) writeTo(o *Operation) {
	o.Type = textType(e.del, string(e.ins))
	o.Payload.Position = e.pos
	o.Payload.Length = e.del
	o.Payload.Content = string(e.ins)
}

func transformText(a2, b2, a, b *Operation) {
	ea, eb := editOf(a), editOf(b)
	transformEdit(ea, eb, false).writeTo(a2)
	transformEdit(eb, ea, true).writeTo(b2)
}

// transformEdit returns x rebased on y. xWins tells which insert goes first
// when both insert at the same position.
func transformEdit(x, y edit, xWins bool) edit {
	if x.del == 0 && y.del == 0 && x.pos == y.pos {
		if !xWins {
			x.pos += len(y.ins)
		}
		return x
	}

	if x.end() <= y.pos {
		return x
	}
	if x.pos >= y.end() {
		x.pos += len(y.ins) - y.del
		return x
	}

	// An insert inside the other's range is kept right after the other's
	// content, so the range is replaced around it.
	if x.del == 0 {
		return edit{pos: y.pos + len(y.ins), ins: x.ins}
	}
	if y.del == 0 {
		return edit{
			pos: x.pos,
			del: x.del + len(y.ins),
			ins: append(append([]rune{}, x.ins...), y.ins...),
		}
	}

	// The ranges overlap. Both sides replace the union of the two ranges
	// with the same content.
	start := min(x.pos, y.pos)
	end := max(x.end(), y.end())

	var content []rune
	switch {
	case xWins:
		content = append(append([]rune{}, x.ins...), y.ins...)
	default:
		content = append(append([]rune{}, y.ins...), x.ins...)
	}

	return edit{
		pos: start,
		del: end - start - y.del + len(y.ins),
		ins: content,
	}
}

func transformArray(a2, b2, a, b *Operation) {
	pa, pb := placement(a, b), placement(b, a)

	// Both remove the same element. A delete wins over a move, and b wins
	// over a when both move it.
	if ra, ok := removedOf(a); ok {
		if rb, ok := removedOf(b); ok && ra == rb {
			switch {
			case a.Type == ArrayDelete || b.Type == ArrayDelete:
				pa, pb = -1, -1
			default:
				pa = -1
			}
		}
	}

	rebuildArray(a2, a, b, pa, pb, false)
	rebuildArray(b2, b, a, pb, pa, true)
}

// removedOf returns the index of the element the operation takes out of
// the array, if any.
func removedOf(o *Operation) (int, bool) {
	switch o.Type {
	case ArrayDelete:
		return o.Payload.Index, true
	case ArrayMove:
		return o.Payload.From, true
	}
	return 0, false
}

// placement returns the gap where x puts an element, counted in the array
// left once both x and y took their elements out. It is -1 when x puts
// nothing.
//
// A move is a removal followed by an insertion: its To is a gap of the
// array without the moved element.
func placement(x, y *Operation) int {
	var gap int
	switch x.Type {
	case ArrayInsert:
		gap = x.Payload.Index
	case ArrayMove:
		gap = x.Payload.To
	default:
		return -1
	}

	ry, ok := removedOf(y)
	if !ok {
		return gap
	}
	rx, hasRx := removedOf(x)
	if hasRx && rx == ry {
		return gap
	}
	if hasRx && ry > rx {
		ry--
	}
	if gap > ry {
		gap--
	}
	return gap
}

// finalIndex returns where the element x places ends up once the element
// y places is there as well. xFirst wins the tie.
func finalIndex(px, py int, xFirst bool) int {
	if py >= 0 && (py < px || (py == px && !xFirst)) {
		return px + 1
	}
	return px
}

// rebuildArray writes to x2 the operation that takes the array y produced
// to the merged result.
func rebuildArray(x2, x, y *Operation, px, py int, xFirst bool) {
	switch x.Type {
	case ArrayInsert:
		x2.Payload.Index = finalIndex(px, py, xFirst)
	case ArrayDelete:
		index, ok := mapElem(x.Payload.Index, y)
		if !ok {
			toNoop(x2)
			return
		}
		x2.Payload.Index = index
	case ArrayMove:
		from, ok := mapElem(x.Payload.From, y)
		if !ok || px < 0 {
			toNoop(x2)
			return
		}
		x2.Payload.From = from
		x2.Payload.To = finalIndex(px, py, xFirst)
	}
}

// mapElem returns where the element at index ends up once y is applied.
// It reports false when y removes the element.
func mapElem(index int, y *Operation) (int, bool) {
	switch y.Type {
	case ArrayInsert:
		if index >= y.Payload.Index {
			return index + 1, true
		}
	case ArrayDelete:
		if index == y.Payload.Index {
			return 0, false
		}
		if index > y.Payload.Index {
			return index - 1, true
		}
	case ArrayMove:
		from, to := y.Payload.From, y.Payload.To
		if index == from {
			return to, true
		}
		if index > from {
			index--
		}
		if index >= to {
			index++
		}
	}
	return index, true
}

// rebase adjusts x2 for y having been applied first, for operations on
// different locations of the tree.
func rebase(x2, y *Operation) {
	if x2.IsNoop() {
		return
	}

	// An overwrite of an ancestor, or of the value x edits in place, wins.
	if y.Type.IsObject() {
		yt := y.Target()
		xt := x2.Target()
		if len(xt) > len(yt) && xt.HasPrefix(yt) {
			toNoop(x2)
			return
		}
		if xt.Equal(yt) && !x2.OverwritesValue() {
			toNoop(x2)
			return
		}
	}

	if !y.Type.IsArray() || len(x2.Path) <= len(y.Path) || !x2.Path.HasPrefix(y.Path) {
		return
	}

	seg := x2.Path[len(y.Path)]
	if !seg.IsIndex() {
		return
	}
	index, ok := mapElem(seg.IndexValue(), y)
	if !ok {
		toNoop(x2)
		return
	}
	x2.Path[len(y.Path)] = tree.Index(index)
}

func toNoop(o *Operation) {
	o.Type = Noop
	o.Payload = Payload{}
}
