package server

import (
	"encoding/json"
	"time"

	"github.com/edusphere/go-classroom/internal/types"
)

// MessageType is the inbound envelope discriminator. The dispatch over these
// values is closed: anything outside the enumeration is silently dropped.
type MessageType string

const (
	TypeChat       MessageType = "chat"
	TypeDraw       MessageType = "draw"
	TypeLine       MessageType = "line"
	TypeText       MessageType = "text"
	TypeErase      MessageType = "erase"
	TypeMove       MessageType = "move"
	TypeUndo       MessageType = "undo"
	TypeClear      MessageType = "clear"
	TypeAudioStart MessageType = "audio_start"
	TypeAudioStop  MessageType = "audio_stop"
	TypeAudioData  MessageType = "audio_data"
)

// Outbound envelope types.
const (
	TypeWhiteboardState = "whiteboard_state"
	TypeUserJoin        = "user_join"
	TypeUserLeave       = "user_leave"
	TypeMessage         = "message"
	TypeWbMove          = "wb_move"
	TypeWbUndo          = "wb_undo"
	TypeWbClear         = "wb_clear"
)

// Envelope is one decoded inbound frame. Typed fields cover what dispatch
// needs; Fields keeps the frame verbatim because whiteboard actions carry
// arbitrary passthrough fields from the sender.
type Envelope struct {
	Type    MessageType
	Message string
	Index   *int
	Dx      float64
	Dy      float64
	Data    string
	Fields  map[string]any

	client *Client
}

func (e *Envelope) UnmarshalJSON(raw []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	e.Fields = fields
	// a frame without a type is treated as chat
	e.Type = TypeChat
	if t, ok := fields["type"].(string); ok {
		e.Type = MessageType(t)
	}
	if m, ok := fields["message"].(string); ok {
		e.Message = m
	}
	if v, ok := fields["index"].(float64); ok {
		idx := int(v)
		e.Index = &idx
	}
	if v, ok := fields["dx"].(float64); ok {
		e.Dx = v
	}
	if v, ok := fields["dy"].(float64); ok {
		e.Dy = v
	}
	if d, ok := fields["data"].(string); ok {
		e.Data = d
	}

	return nil
}

// Action builds the whiteboard action record from the envelope: every field
// the sender supplied, including the type tag.
func (e *Envelope) Action() Action {
	action := make(Action, len(e.Fields))
	for k, v := range e.Fields {
		action[k] = v
	}
	return action
}

// ServerEnvelope is one outbound frame. The field set is dynamic because
// whiteboard events relay the stored action verbatim.
type ServerEnvelope struct {
	fields map[string]any

	// excludeRole suppresses delivery to connections of the given role
	// (audio relays are not echoed back to teachers).
	excludeRole types.UserType
}

func (se *ServerEnvelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(se.fields)
}

func (se *ServerEnvelope) ExcludesRole(ut types.UserType) bool {
	return se.excludeRole != "" && se.excludeRole == ut
}

func whiteboardStateMsg(actions []Action) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":    TypeWhiteboardState,
		"actions": actions,
	}}
}

func userJoinMsg(username string) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":     TypeUserJoin,
		"username": username,
	}}
}

func userLeaveMsg(username string) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":     TypeUserLeave,
		"username": username,
	}}
}

func chatMsg(message, username string, userType types.UserType) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":      TypeMessage,
		"message":   message,
		"username":  username,
		"user_type": userType,
	}}
}

func wbActionMsg(msgType MessageType, action Action) *ServerEnvelope {
	fields := make(map[string]any, len(action)+1)
	for k, v := range action {
		fields[k] = v
	}
	fields["type"] = "wb_" + string(msgType)

	return &ServerEnvelope{fields: fields}
}

func wbMoveMsg(index int, dx, dy float64) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":  TypeWbMove,
		"index": index,
		"dx":    dx,
		"dy":    dy,
	}}
}

func wbUndoMsg() *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{"type": TypeWbUndo}}
}

func wbClearMsg() *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{"type": TypeWbClear}}
}

func audioStartMsg(username string) *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{
		"type":     string(TypeAudioStart),
		"username": username,
	}}
}

func audioStopMsg() *ServerEnvelope {
	return &ServerEnvelope{fields: map[string]any{"type": string(TypeAudioStop)}}
}

func audioDataMsg(data string) *ServerEnvelope {
	return &ServerEnvelope{
		fields: map[string]any{
			"type": string(TypeAudioData),
			"data": data,
		},
		excludeRole: types.UserTypeTeacher,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
