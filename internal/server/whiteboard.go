package server

import (
	"encoding/json"
)

// maxWhiteboardActions caps the per-room action log. Appends beyond the cap
// evict the oldest entries (sliding window), never fail.
const maxWhiteboardActions = 500

// Action is one tagged whiteboard mutation record (draw, line, text, erase).
// It is stored as a map because senders attach arbitrary geometry and style
// fields that are relayed and replayed verbatim.
type Action map[string]any

func (a Action) Type() string {
	t, _ := a["type"].(string)
	return t
}

func (a Action) number(key string) float64 {
	v, _ := a[key].(float64)
	return v
}

// translate shifts a text action's anchor or a line action's endpoints by
// (dx, dy). Other action types are not translatable and are left unchanged.
func (a Action) translate(dx, dy float64) {
	switch a.Type() {
	case string(TypeText):
		a["x"] = a.number("x") + dx
		a["y"] = a.number("y") + dy
	case string(TypeLine):
		a["x1"] = a.number("x1") + dx
		a["y1"] = a.number("y1") + dy
		a["x2"] = a.number("x2") + dx
		a["y2"] = a.number("y2") + dy
	}
}

// Whiteboard is a room's bounded, ordered action log. It is owned by the
// room's goroutine: all access is serialized through the room loop, so the
// type itself carries no lock.
type Whiteboard struct {
	actions []Action
}

func NewWhiteboard() *Whiteboard {
	return &Whiteboard{}
}

// ParseWhiteboard rebuilds a log from its serialized form. Malformed data
// yields an empty log rather than an error.
func ParseWhiteboard(data string) *Whiteboard {
	wb := &Whiteboard{}
	if data == "" {
		return wb
	}

	if err := json.Unmarshal([]byte(data), &wb.actions); err != nil {
		wb.actions = nil
	}
	return wb
}

func (wb *Whiteboard) Len() int {
	return len(wb.actions)
}

// Actions returns a copy of the log in arrival order.
func (wb *Whiteboard) Actions() []Action {
	actions := make([]Action, len(wb.actions))
	copy(actions, wb.actions)
	return actions
}

// Append adds an action, evicting the oldest entries first if the log is at
// capacity so the result never exceeds maxWhiteboardActions.
func (wb *Whiteboard) Append(action Action) {
	if len(wb.actions) >= maxWhiteboardActions {
		wb.actions = wb.actions[len(wb.actions)-(maxWhiteboardActions-1):]
	}
	wb.actions = append(wb.actions, action)
}

// Pop removes and returns the most recent action. The second return is false
// if the log was empty.
func (wb *Whiteboard) Pop() (Action, bool) {
	if len(wb.actions) == 0 {
		return nil, false
	}

	last := wb.actions[len(wb.actions)-1]
	wb.actions = wb.actions[:len(wb.actions)-1]
	return last, true
}

// Move translates the action at index by (dx, dy). An out-of-bounds index is
// a no-op.
func (wb *Whiteboard) Move(index int, dx, dy float64) {
	if index < 0 || index >= len(wb.actions) {
		return
	}

	wb.actions[index].translate(dx, dy)
}

func (wb *Whiteboard) Clear() {
	wb.actions = nil
}

// Serialize renders the log as a JSON array for storage.
func (wb *Whiteboard) Serialize() (string, error) {
	if len(wb.actions) == 0 {
		return "[]", nil
	}

	data, err := json.Marshal(wb.actions)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// snapshot and restore support rolling back a structural mutation whose
// persistence failed. Move is rolled back with an inverse Move instead,
// since it edits an action map shared with the snapshot.
func (wb *Whiteboard) snapshot() []Action {
	actions := make([]Action, len(wb.actions))
	copy(actions, wb.actions)
	return actions
}

func (wb *Whiteboard) restore(actions []Action) {
	wb.actions = actions
}
