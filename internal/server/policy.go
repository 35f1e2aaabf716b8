package server

import (
	"github.com/edusphere/go-classroom/internal/types"
)

// Decision is the outcome of the authorization policy. A denied envelope is
// silently dropped: no error frame crosses the wire.
type Decision int

const (
	Denied Decision = iota
	Permitted
)

// Decide resolves whether a role may submit an envelope of the given type.
// Chat is open to every room participant; whiteboard mutation and audio
// broadcast are restricted to teachers. Unknown types are denied, which the
// dispatch path treats the same as any other silent drop.
func Decide(userType types.UserType, msgType MessageType) Decision {
	switch msgType {
	case TypeChat:
		return Permitted
	case TypeDraw, TypeLine, TypeText, TypeErase,
		TypeMove, TypeUndo, TypeClear,
		TypeAudioStart, TypeAudioStop, TypeAudioData:
		if userType == types.UserTypeTeacher {
			return Permitted
		}
		return Denied
	default:
		return Denied
	}
}
