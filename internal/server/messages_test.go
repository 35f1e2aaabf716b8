package server

import (
	"encoding/json"
	"testing"

	"github.com/edusphere/go-classroom/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEnvelopeUnmarshal(t *testing.T) {
	t.Run("chat frame", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"type":"chat","message":"hello"}`), &env)
		assert.NoError(t, err)
		assert.Equal(t, TypeChat, env.Type)
		assert.Equal(t, "hello", env.Message)
	})

	t.Run("frame without type defaults to chat", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"message":"hi"}`), &env)
		assert.NoError(t, err)
		assert.Equal(t, TypeChat, env.Type, "expected untyped frame to be treated as chat")
		assert.Equal(t, "hi", env.Message)
	})

	t.Run("move frame", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"type":"move","index":2,"dx":4.5,"dy":-1}`), &env)
		assert.NoError(t, err)
		assert.Equal(t, TypeMove, env.Type)
		if assert.NotNil(t, env.Index, "expected index to be set") {
			assert.Equal(t, 2, *env.Index)
		}
		assert.Equal(t, 4.5, env.Dx)
		assert.Equal(t, -1.0, env.Dy)
	})

	t.Run("move frame without index", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"type":"move","dx":1,"dy":1}`), &env)
		assert.NoError(t, err)
		assert.Nil(t, env.Index, "expected missing index to stay nil")
	})

	t.Run("audio data frame", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"type":"audio_data","data":"b64chunk"}`), &env)
		assert.NoError(t, err)
		assert.Equal(t, TypeAudioData, env.Type)
		assert.Equal(t, "b64chunk", env.Data)
	})

	t.Run("passthrough fields are retained", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`{"type":"draw","color":"#00f","width":3,"points":[[0,0],[1,1]]}`), &env)
		assert.NoError(t, err)
		assert.Equal(t, TypeDraw, env.Type)
		assert.Equal(t, "#00f", env.Fields["color"], "expected unrecognized fields to be kept verbatim")
		assert.Contains(t, env.Fields, "points")
	})

	t.Run("invalid json", func(t *testing.T) {
		var env Envelope
		err := json.Unmarshal([]byte(`not json`), &env)
		assert.Error(t, err, "expected malformed frame to fail decoding")
	})
}

func TestEnvelopeAction(t *testing.T) {
	var env Envelope
	err := json.Unmarshal([]byte(`{"type":"text","text":"note","x":1,"y":2}`), &env)
	assert.NoError(t, err)

	action := env.Action()
	assert.Equal(t, "text", action.Type())
	assert.Equal(t, "note", action["text"])

	// the action is a copy, mutating it must not touch the envelope
	action["text"] = "changed"
	assert.Equal(t, "note", env.Fields["text"], "expected envelope fields to be unaffected")
}

func TestServerEnvelopeBuilders(t *testing.T) {
	marshal := func(t *testing.T, env *ServerEnvelope) map[string]any {
		t.Helper()
		raw, err := json.Marshal(env)
		assert.NoError(t, err)

		var fields map[string]any
		assert.NoError(t, json.Unmarshal(raw, &fields))
		return fields
	}

	t.Run("whiteboard state", func(t *testing.T) {
		actions := []Action{{"type": "draw"}, {"type": "text", "text": "hi"}}
		fields := marshal(t, whiteboardStateMsg(actions))
		assert.Equal(t, TypeWhiteboardState, fields["type"])
		assert.Len(t, fields["actions"], 2, "expected full log in state message")
	})

	t.Run("whiteboard state with empty log", func(t *testing.T) {
		fields := marshal(t, whiteboardStateMsg(nil))
		assert.Equal(t, TypeWhiteboardState, fields["type"])
		assert.Contains(t, fields, "actions", "expected actions key even when empty")
	})

	t.Run("user join and leave", func(t *testing.T) {
		fields := marshal(t, userJoinMsg("alice"))
		assert.Equal(t, TypeUserJoin, fields["type"])
		assert.Equal(t, "alice", fields["username"])

		fields = marshal(t, userLeaveMsg("alice"))
		assert.Equal(t, TypeUserLeave, fields["type"])
		assert.Equal(t, "alice", fields["username"])
	})

	t.Run("chat message", func(t *testing.T) {
		fields := marshal(t, chatMsg("hello", "alice", types.UserTypeStudent))
		assert.Equal(t, TypeMessage, fields["type"])
		assert.Equal(t, "hello", fields["message"])
		assert.Equal(t, "alice", fields["username"])
		assert.Equal(t, "student", fields["user_type"])
	})

	t.Run("whiteboard action relays sender fields", func(t *testing.T) {
		action := Action{"type": "draw", "color": "#0f0"}
		fields := marshal(t, wbActionMsg(TypeDraw, action))
		assert.Equal(t, "wb_draw", fields["type"], "expected wb_ prefixed type")
		assert.Equal(t, "#0f0", fields["color"], "expected sender fields relayed")
	})

	t.Run("wb move", func(t *testing.T) {
		fields := marshal(t, wbMoveMsg(3, 1.5, -2))
		assert.Equal(t, TypeWbMove, fields["type"])
		assert.Equal(t, float64(3), fields["index"])
		assert.Equal(t, 1.5, fields["dx"])
		assert.Equal(t, -2.0, fields["dy"])
	})

	t.Run("wb undo and clear", func(t *testing.T) {
		assert.Equal(t, TypeWbUndo, marshal(t, wbUndoMsg())["type"])
		assert.Equal(t, TypeWbClear, marshal(t, wbClearMsg())["type"])
	})

	t.Run("audio signals", func(t *testing.T) {
		fields := marshal(t, audioStartMsg("teach"))
		assert.Equal(t, "audio_start", fields["type"])
		assert.Equal(t, "teach", fields["username"])

		assert.Equal(t, "audio_stop", marshal(t, audioStopMsg())["type"])

		fields = marshal(t, audioDataMsg("chunk"))
		assert.Equal(t, "audio_data", fields["type"])
		assert.Equal(t, "chunk", fields["data"])
	})
}

func TestServerEnvelopeExcludesRole(t *testing.T) {
	env := audioDataMsg("chunk")
	assert.True(t, env.ExcludesRole(types.UserTypeTeacher), "expected audio data to exclude teachers")
	assert.False(t, env.ExcludesRole(types.UserTypeStudent), "expected audio data to reach students")

	env = chatMsg("hi", "alice", types.UserTypeStudent)
	assert.False(t, env.ExcludesRole(types.UserTypeTeacher), "expected chat to reach everyone")
	assert.False(t, env.ExcludesRole(types.UserTypeStudent))
}
