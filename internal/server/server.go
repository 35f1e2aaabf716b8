package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/edusphere/go-classroom/internal/database"
	"github.com/edusphere/go-classroom/internal/stats"
)

// ErrRoomNotFound is returned when neither the exact room name nor its
// normalized variant resolves to a stored room.
var ErrRoomNotFound = errors.New("room not found")

type joinReq struct {
	client *Client
	room   database.Room
	done   chan error
}

type stopReq struct {
	done chan struct{}
}

// ClassServer is the room registry: it maps room names to their live room
// goroutines and tracks every open connection.
type ClassServer struct {
	log            *log.Logger
	db             database.ClassroomRepository
	stats          stats.StatsProvider
	broadcaster    GroupBroadcaster
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *joinReq
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan string
	rooms          map[string]*Room
	stop           chan stopReq
}

func NewClassServer(logger *log.Logger, db database.ClassroomRepository, statsProvider stats.StatsProvider, broadcaster GroupBroadcaster) (*ClassServer, error) {
	cs := &ClassServer{
		log:            logger,
		db:             db,
		stats:          statsProvider,
		broadcaster:    broadcaster,
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *joinReq, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan string, 256),
		rooms:          make(map[string]*Room),
		stop:           make(chan stopReq),
	}

	for _, metric := range []string{"NumConnections", "NumActiveRooms", "NumMessages", "NumWhiteboardActions"} {
		cs.stats.RegisterMetric(metric)
	}

	return cs, nil
}

// ResolveRoom finds a stored room by exact name, then by the variant with
// underscores rewritten to spaces. It never creates a room.
func (cs *ClassServer) ResolveRoom(name string) (database.Room, error) {
	room, err := cs.db.GetRoomByName(name)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, err
	}

	if alt := strings.ReplaceAll(name, "_", " "); alt != name {
		room, err = cs.db.GetRoomByName(alt)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return database.Room{}, err
		}
	}

	return database.Room{}, ErrRoomNotFound
}

// Connect binds an accepted connection to its room, loading the room's
// goroutine first if needed. It returns once the room has delivered the
// whiteboard state and announced the join. On failure the client is
// deregistered so a refused join does not leak a connection slot.
func (cs *ClassServer) Connect(c *Client, dbRoom database.Room) error {
	req := &joinReq{client: c, room: dbRoom, done: make(chan error, 1)}
	select {
	case cs.joinChan <- req:
	default:
		cs.DeRegisterClient(c)
		return fmt.Errorf("join channel full")
	}

	if err := <-req.done; err != nil {
		cs.DeRegisterClient(c)
		return err
	}

	return nil
}

func (cs *ClassServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ClassServer) DeRegisterClient(c *Client) {
	cs.deRegisterChan <- c
}

func (cs *ClassServer) Run() {
	for {
		select {
		case req := <-cs.joinChan:
			room, ok := cs.rooms[req.room.Name]
			if !ok {
				// re-read the log at load time; the row travelled through
				// the HTTP handler and may be stale
				if data, err := cs.db.GetWhiteboard(req.room.Id); err == nil {
					req.room.Whiteboard = data
				} else {
					cs.log.Println("GetWhiteboard:", err)
				}

				room = cs.newRoom(req.room)
				cs.rooms[room.name] = room
				cs.stats.Incr("NumActiveRooms")
				go room.start()
			}

			select {
			case room.joinChan <- req:
			default:
				cs.log.Printf("join channel full on room %q", room.name)
				req.done <- fmt.Errorf("room %q is not accepting joins", room.name)
			}
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
			cs.stats.Incr("NumConnections")
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
			cs.stats.Decr("NumConnections")
		case name := <-cs.unloadRoomChan:
			cs.unloadRoom(name)
		case req := <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				cs.log.Printf("shutting down room %q", r.name)
				done := make(chan bool)
				r.exit <- exitReq{force: true, done: done}
				<-done
			}

			close(req.done)
			return
		}
	}
}

func (cs *ClassServer) newRoom(dbRoom database.Room) *Room {
	return &Room{
		id:           dbRoom.Id,
		name:         dbRoom.Name,
		externalId:   dbRoom.ExternalId,
		cs:           cs,
		wb:           ParseWhiteboard(dbRoom.Whiteboard),
		joinChan:     make(chan *joinReq, 256),
		leaveChan:    make(chan *Client, 256),
		envelopeChan: make(chan *Envelope, 256),
		clients:      make(map[*Client]struct{}),
		log:          cs.log,
		exit:         make(chan exitReq),
	}
}

func (cs *ClassServer) unloadRoom(name string) {
	r, ok := cs.rooms[name]
	if !ok {
		return
	}

	done := make(chan bool)
	r.exit <- exitReq{done: done}
	if !<-done {
		// a client joined after the idle timer fired
		return
	}

	cs.log.Printf("removing room %q", r.name)
	delete(cs.rooms, name)
	cs.stats.Decr("NumActiveRooms")
}

func (cs *ClassServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ClassServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *ClassServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	req := stopReq{done: make(chan struct{})}
	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
