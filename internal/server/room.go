package server

import (
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edusphere/go-classroom/internal/database"
)

const (
	idleRoomTimeout = 30 * time.Second
	// maxChatLength is counted in characters, not bytes
	maxChatLength = 5000
)

type exitReq struct {
	// force skips the occupancy check; used for server shutdown
	force bool
	done  chan bool
}

// Room is the live counterpart of a stored room: a single goroutine that
// owns the whiteboard log and serializes every mutation, join and leave for
// that room. Different rooms run independently.
type Room struct {
	id           int
	name         string
	externalId   string
	cs           *ClassServer
	wb           *Whiteboard
	joinChan     chan *joinReq
	leaveChan    chan *Client
	envelopeChan chan *Envelope
	clients      map[*Client]struct{}
	log          *log.Logger
	// killTimer unloads the room once no connections remain
	killTimer *time.Timer
	exit      chan exitReq
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.name)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case c := <-r.leaveChan:
			r.handleLeave(c)
		case env := <-r.envelopeChan:
			r.handleEnvelope(env)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			if r.handleRoomExit(e) {
				return
			}
		}
	}
}

// handleJoin registers the connection in the room's broadcast group and its
// per-user group, delivers the current whiteboard state to the new
// connection only, then announces the join to the whole room.
func (r *Room) handleJoin(join *joinReq) {
	r.killTimer.Stop()

	c := join.client
	c.room = r
	r.clients[c] = struct{}{}

	r.cs.broadcaster.Join(roomGroup(r.name), c)
	r.cs.broadcaster.Join(roomUserGroup(r.name, c.user.Username), c)

	c.queueEnvelope(whiteboardStateMsg(r.wb.Actions()))
	r.broadcast(userJoinMsg(c.user.Username))

	join.done <- nil
}

// handleLeave announces the departure, then drops the connection from both
// groups. Leaving never touches the room's durable participant set.
func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		r.log.Printf("client %q not found in room %q", c.user.Username, r.name)
		return
	}

	r.broadcast(userLeaveMsg(c.user.Username))

	r.cs.broadcaster.Leave(roomGroup(r.name), c)
	r.cs.broadcaster.Leave(roomUserGroup(r.name, c.user.Username), c)
	delete(r.clients, c)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.name)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// handleEnvelope is the closed dispatch over inbound message types. Denied
// and unknown envelopes are dropped without a reply.
func (r *Room) handleEnvelope(env *Envelope) {
	if Decide(env.client.user.UserType, env.Type) != Permitted {
		return
	}

	switch env.Type {
	case TypeChat:
		r.handleChat(env)
	case TypeDraw, TypeLine, TypeText, TypeErase:
		r.handleWhiteboardAction(env)
	case TypeMove:
		r.handleMove(env)
	case TypeUndo:
		r.handleUndo()
	case TypeClear:
		r.handleClear()
	case TypeAudioStart:
		r.broadcast(audioStartMsg(env.client.user.Username))
	case TypeAudioStop:
		r.broadcast(audioStopMsg())
	case TypeAudioData:
		r.broadcast(audioDataMsg(env.Data))
	default:
		// silent drop
	}
}

func (r *Room) handleChat(env *Envelope) {
	content := env.Message
	if strings.TrimSpace(content) == "" || utf8.RuneCountInString(content) > maxChatLength {
		return
	}

	c := env.client

	// sending a message makes the sender a durable participant
	if !r.cs.db.IsParticipant(r.id, c.user.Id) {
		if err := r.cs.db.AddParticipant(r.id, c.user.Id); err != nil {
			r.log.Println("AddParticipant:", err)
			return
		}
	}

	if _, err := r.cs.db.CreateMessage(database.Message{
		RoomId:    r.id,
		UserId:    c.user.Id,
		Content:   content,
		CreatedAt: Now(),
	}); err != nil {
		r.log.Println("CreateMessage:", err)
		return
	}

	r.cs.stats.Incr("NumMessages")
	r.broadcast(chatMsg(content, c.user.Username, c.user.UserType))
}

func (r *Room) handleWhiteboardAction(env *Envelope) {
	action := env.Action()

	snap := r.wb.snapshot()
	r.wb.Append(action)
	if err := r.persistWhiteboard(); err != nil {
		r.log.Println("persist whiteboard:", err)
		r.wb.restore(snap)
		return
	}

	r.cs.stats.Incr("NumWhiteboardActions")
	r.broadcast(wbActionMsg(env.Type, action))
}

func (r *Room) handleMove(env *Envelope) {
	if env.Index == nil {
		return
	}

	r.wb.Move(*env.Index, env.Dx, env.Dy)
	if err := r.persistWhiteboard(); err != nil {
		r.log.Println("persist whiteboard:", err)
		r.wb.Move(*env.Index, -env.Dx, -env.Dy)
		return
	}

	r.broadcast(wbMoveMsg(*env.Index, env.Dx, env.Dy))
}

func (r *Room) handleUndo() {
	removed, ok := r.wb.Pop()
	if !ok {
		// nothing to undo, nothing to announce
		return
	}

	if err := r.persistWhiteboard(); err != nil {
		r.log.Println("persist whiteboard:", err)
		r.wb.Append(removed)
		return
	}

	r.broadcast(wbUndoMsg())
}

func (r *Room) handleClear() {
	snap := r.wb.snapshot()
	r.wb.Clear()
	if err := r.persistWhiteboard(); err != nil {
		r.log.Println("persist whiteboard:", err)
		r.wb.restore(snap)
		return
	}

	r.broadcast(wbClearMsg())
}

func (r *Room) persistWhiteboard() error {
	data, err := r.wb.Serialize()
	if err != nil {
		return err
	}

	return r.cs.db.SetWhiteboard(r.id, data)
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.name)
	select {
	case r.cs.unloadRoomChan <- r.name:
	default:
		r.log.Printf("unload channel full, keeping room %q", r.name)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// handleRoomExit tears the room down. An unload that raced with a fresh
// join is declined so the registry keeps the room loaded, and any joins
// still queued on joinChan are refused so no Connect call is left waiting
// on a room that no longer runs.
func (r *Room) handleRoomExit(e exitReq) bool {
	if !e.force && len(r.clients) > 0 {
		r.log.Printf("room %q has %d clients, declining unload", r.name, len(r.clients))
		if e.done != nil {
			e.done <- false
		}
		return false
	}

	r.log.Printf("room %q is exiting", r.name)

	for drained := false; !drained; {
		select {
		case join := <-r.joinChan:
			join.done <- fmt.Errorf("room %q is unloading", r.name)
		default:
			drained = true
		}
	}

	for c := range r.clients {
		r.cs.broadcaster.Leave(roomGroup(r.name), c)
		r.cs.broadcaster.Leave(roomUserGroup(r.name, c.user.Username), c)
	}

	if e.done != nil {
		e.done <- true
	}
	return true
}

func (r *Room) broadcast(env *ServerEnvelope) {
	r.cs.broadcaster.Broadcast(roomGroup(r.name), env)
}

// sendToUser delivers an envelope to every connection of one user within
// the room, the targeted signaling path.
func (r *Room) sendToUser(username string, env *ServerEnvelope) {
	r.cs.broadcaster.Broadcast(roomUserGroup(r.name, username), env)
}
