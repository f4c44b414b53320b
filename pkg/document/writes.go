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

package document

import (
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
)

// writes remembers, per target path, the last operation that overwrote the
// value there. It is what concurrent writes are resolved against.
type writes map[string]*operation.Operation

func (w writes) clone() writes {
	cloned := make(writes, len(w))
	for k, v := range w {
		cloned[k] = v
	}
	return cloned
}

// admits returns whether op may be applied given the writes seen so far.
// Only overwrites of a value last written by another user are contended.
func (w writes) admits(op *operation.Operation, localUserID string, resolver ConflictResolver) bool {
	if !op.OverwritesValue() {
		return true
	}
	existing, ok := w[op.Target().String()]
	if !ok || existing.UserID == op.UserID {
		return true
	}
	return resolver.Resolve(Collision{
		Existing:    existing,
		Incoming:    op,
		LocalUserID: localUserID,
	})
}

// record remembers op as the last write of its target. Writes under the
// target are forgotten since the value they wrote is gone.
func (w writes) record(op *operation.Operation) {
	if !op.OverwritesValue() {
		return
	}

	target := op.Target()
	for key, existing := range w {
		path := existing.Target()
		if len(path) > len(target) && path.HasPrefix(target) {
			delete(w, key)
		}
	}
	w[target.String()] = op
}

// applyAdmitted applies op on root if the writes admit it and records it.
// It reports whether op was applied.
func (w writes) applyAdmitted(
	root *tree.Object,
	op *operation.Operation,
	localUserID string,
	resolver ConflictResolver,
) (*operation.Operation, bool, error) {
	if !w.admits(op, localUserID, resolver) {
		return nil, false, nil
	}
	inverse, err := op.Apply(root)
	if err != nil {
		return nil, false, err
	}
	w.record(op)
	return inverse, true, nil
}
