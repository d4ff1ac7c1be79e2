// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ID SEQUENCE TESTS
// =============================================================================

func TestIDSequence_StrictlyIncreasing(t *testing.T) {
	var ids IDSequence
	prev := ""
	var prevSeq uint64
	for i := 0; i < 1000; i++ {
		id := ids.Next()
		seq, ok := Seq(id)
		require.True(t, ok, "Seq(%q) should parse", id)
		if i > 0 {
			assert.Greater(t, id, prev, "ids must sort lexically")
			assert.Equal(t, prevSeq+1, seq)
		}
		prev, prevSeq = id, seq
	}
}

func TestSeq_ForeignIDs(t *testing.T) {
	for _, id := range []string{"", "42", "msg_", "msg_abc", "srv_000000000001"} {
		_, ok := Seq(id)
		assert.False(t, ok, "Seq(%q)", id)
	}
}

// =============================================================================
// ID JSON TESTS
// =============================================================================

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"string", `"c_123"`, "c_123"},
		{"number", `42`, "42"},
		{"null", `null`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got struct {
				ID ID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"id":`+tc.in+`}`), &got))
			assert.Equal(t, tc.want, got.ID)
		})
	}
}

func TestID_UnmarshalJSONRejectsObjects(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestID_MarshalZeroAsNull(t *testing.T) {
	data, err := json.Marshal(struct {
		ID ID `json:"conversationId"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"conversationId":null}`, string(data))
}

// =============================================================================
// MESSAGE LIST TESTS
// =============================================================================

func TestMessageList_AppendRemovePreservesOrder(t *testing.T) {
	var l MessageList
	l.Append(
		NewMessage("a", RoleUser, "1"),
		NewMessage("b", RoleAssistant, "2"),
		NewMessage("c", RoleUser, "3"),
		NewMessage("d", RoleAssistant, "4"),
	)

	assert.Equal(t, 2, l.Remove("b", "d", "missing"))

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "c", snap[1].ID)
}

func TestMessageList_SnapshotIsCopy(t *testing.T) {
	var l MessageList
	msg := NewPlaceholder("p")
	l.Append(msg)

	snap := l.Snapshot()
	msg.Content = "changed"

	assert.Equal(t, "", snap[0].Content)
	assert.True(t, snap[0].Pending)
}

func TestMessageList_ClearAndLast(t *testing.T) {
	var l MessageList
	assert.Nil(t, l.Last())
	l.Append(NewMessage("a", RoleUser, "x"))
	assert.Equal(t, "a", l.Last().ID)

	l.Clear()
	assert.True(t, l.IsEmpty())
	assert.Nil(t, l.Get("a"))
}

func TestMessage_Preview(t *testing.T) {
	msg := NewMessage("a", RoleUser, "Night wakings are normal")
	assert.Equal(t, "Night wakings are normal", msg.Preview(100))
	assert.Equal(t, "Night...", msg.Preview(8))

	uni := NewMessage("b", RoleUser, "世界世界世界")
	assert.Equal(t, "世界...", uni.Preview(5))
}
