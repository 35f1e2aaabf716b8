package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edusphere/go-classroom/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	// audio frames arrive as base64 chunks, so the limit is generous
	maxMessageSize = 1 << 20
)

// Client is one live connection: a user, their role, and the single room the
// session is bound to for its whole lifetime. It is never persisted.
type Client struct {
	conn        *websocket.Conn
	classServer *ClassServer
	log         *log.Logger
	user        types.User
	room        *Room
	send        chan *ServerEnvelope
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ClassServer, l *log.Logger) *Client {
	return &Client{
		conn:        conn,
		classServer: cs,
		log:         l,
		user:        user,
		send:        make(chan *ServerEnvelope, 256),
		stop:        make(chan struct{}),
	}
}

func (c *Client) role() types.UserType {
	return c.user.UserType
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case env, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(env)
			if err != nil {
				c.log.Println("failed to serialize envelope:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// malformed frames are dropped without an error frame
			c.log.Println("error parsing envelope:", err)
			continue
		}

		env.client = c
		c.submit(&env)
	}
}

// submit hands the envelope to the room loop. A full room channel drops the
// envelope, consistent with the fail-silent contract.
func (c *Client) submit(env *Envelope) {
	r := c.room
	if r == nil {
		return
	}

	select {
	case r.envelopeChan <- env:
	default:
		c.log.Printf("envelope channel full for room %q", r.name)
	}
}

// queueEnvelope enqueues an outbound envelope for the write pump, preserving
// per-socket FIFO order. A full queue drops the envelope.
func (c *Client) queueEnvelope(env *ServerEnvelope) bool {
	select {
	case c.send <- env:
	default:
		c.log.Println("failed to queue envelope, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// stopClient may be called by both the session's own cleanup and a server
// shutdown, whichever comes first.
func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	if r := c.room; r != nil {
		r.leaveChan <- c
	}
	c.classServer.deRegisterChan <- c
	c.stopClient()
}
