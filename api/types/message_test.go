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

package types_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/tripsync/api/types"
	"github.com/yorkie-team/tripsync/pkg/document/operation"
	"github.com/yorkie-team/tripsync/pkg/document/tree"
	"github.com/yorkie-team/tripsync/pkg/rollback"
)

func TestMessage(t *testing.T) {
	t.Run("operation message round trip test", func(t *testing.T) {
		op := operation.NewObjectSet("alice", tree.MustParsePath("budget.amount"), 1200)
		data, err := json.Marshal(types.NewOperationMessage("lisbon", op))
		assert.NoError(t, err)

		msg, err := types.DecodeMessage(data)
		assert.NoError(t, err)
		assert.Equal(t, types.MessageOperation, msg.Type)
		assert.Equal(t, "lisbon", msg.DocumentID)
		assert.Equal(t, op.ID, msg.Operation.ID)
		assert.Equal(t, 1200.0, msg.Operation.Payload.Value)
		assert.Equal(t, "budget.amount", msg.Operation.Target().String())
	})

	t.Run("wire format test", func(t *testing.T) {
		msg, err := types.DecodeMessage([]byte(`{"type": "ack", "operationId": "op-1"}`))
		assert.NoError(t, err)
		assert.Equal(t, "op-1", msg.OperationID)

		msg, err = types.DecodeMessage([]byte(`{"type": "reject", "operationId": "op-2", "reason": "path not found"}`))
		assert.NoError(t, err)
		assert.Equal(t, "path not found", msg.Reason)

		msg, err = types.DecodeMessage([]byte(`{"type": "full-sync", "state": {"title": "Lisbon", "days": []}}`))
		assert.NoError(t, err)
		assert.Equal(t, []string{"title", "days"}, msg.State.Keys())

		data, err := json.Marshal(types.NewRequestSyncMessage("lisbon", 4))
		assert.NoError(t, err)
		assert.JSONEq(t, `{"type": "request-sync", "documentId": "lisbon", "since": 4}`, string(data))
	})

	t.Run("invalid message test", func(t *testing.T) {
		for _, data := range []string{
			`{"type": "operation"}`,
			`{"type": "ack"}`,
			`{"type": "full-sync"}`,
			`{"type": "rollback"}`,
			`{"type": "subscribe"}`,
			`not json`,
		} {
			_, err := types.DecodeMessage([]byte(data))
			assert.ErrorIs(t, err, types.ErrInvalidMessage, data)
		}

		_, err := types.DecodeMessage([]byte(`{"type": "operation", "operation": {"type": "teleport"}}`))
		assert.Error(t, err)
	})

	t.Run("rollback message test", func(t *testing.T) {
		msg := types.NewRollbackMessage(rollback.Notification{ItineraryID: "lisbon"})
		assert.NoError(t, msg.Validate())
		assert.Equal(t, "lisbon", msg.DocumentID)
	})
}

func TestRequest(t *testing.T) {
	t.Run("rollback options test", func(t *testing.T) {
		req := &types.RollbackRequest{
			TargetVersionID:      "v1",
			AutoResolveConflicts: true,
			TouchedPaths:         []string{"days[0].activities[1].name"},
			Resolutions:          map[string]rollback.Strategy{"budget.amount": rollback.UseCurrent},
		}
		opts, err := req.Options()
		assert.NoError(t, err)
		assert.True(t, opts.AutoResolveConflicts)
		assert.Equal(t, "days[0].activities[1].name", opts.TouchedPaths[0].String())
		assert.Equal(t, rollback.UseCurrent, opts.Resolutions["budget.amount"])

		req.TouchedPaths = []string{"days[x"}
		_, err = req.Options()
		assert.ErrorIs(t, err, tree.ErrInvalidPath)
	})
}
