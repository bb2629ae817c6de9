package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/watchparty/server/internal/session"
	"github.com/watchparty/server/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type Client struct {
	conn        *websocket.Conn
	watchServer *WatchServer
	log         *log.Logger
	user        types.User
	send        chan *ServerMessage
	roomId      string
	roomLock    sync.RWMutex
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, ws *WatchServer, l *log.Logger) *Client {
	return &Client{
		conn:        conn,
		watchServer: ws,
		log:         l,
		user:        user,
		send:        make(chan *ServerMessage, 256),
		stop:        make(chan struct{}),
	}
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
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
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

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.UserId = c.user.Id
		msg.Timestamp = session.Now()

		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		c.handleJoin(msg)
	case msg.Leave != nil:
		c.handleLeave(msg)
	case msg.Publish != nil:
		c.handlePublish(msg)
	case msg.React != nil:
		c.handleReact(msg)
	case msg.Playback != nil:
		c.handlePlayback(msg)
	case msg.Moderate != nil:
		c.handleModerate(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) handleJoin(msg *ClientMessage) {
	identity := session.Identity{
		UserId:    c.user.Id,
		Username:  c.user.Username,
		AvatarUrl: c.user.AvatarUrl,
	}

	snapshot, err := c.watchServer.registry.JoinRoom(msg.Join.RoomId, identity, msg.Join.Password)
	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.watchServer.attachClient(c, msg.Join.RoomId)

	// send the room snapshot to the joining client
	c.queueMessage(NoErrOK(msg.Id, snapshot))
}

func (c *Client) handleLeave(msg *ClientMessage) {
	roomId := msg.Leave.RoomId
	if roomId == "" {
		roomId = c.room()
	}
	if roomId == "" {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	c.watchServer.detachClient(c)
	if err := c.watchServer.registry.LeaveRoom(roomId, c.user.Id); err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (c *Client) handlePublish(msg *ClientMessage) {
	room, err := c.sessionRoom(msg.Publish.RoomId)
	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	if _, err := room.SendMessage(c.user.Id, msg.Publish.Content); err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.queueMessage(NoErrAccepted(msg.Id))
}

func (c *Client) handleReact(msg *ClientMessage) {
	room, err := c.sessionRoom(msg.React.RoomId)
	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	if _, err := room.AddReaction(c.user.Id, msg.React.Emoji, msg.React.X, msg.React.Y); err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.queueMessage(NoErrAccepted(msg.Id))
}

func (c *Client) handlePlayback(msg *ClientMessage) {
	room, err := c.sessionRoom(msg.Playback.RoomId)
	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	state, err := room.UpdatePlayback(c.user.Id, msg.Playback.Position, msg.Playback.IsPlaying)
	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.queueMessage(NoErrOK(msg.Id, state))
}

func (c *Client) handleModerate(msg *ClientMessage) {
	roomId := msg.Moderate.RoomId
	if roomId == "" {
		roomId = c.room()
	}

	var err error
	switch msg.Moderate.Action {
	case ModerateKick:
		err = c.watchServer.registry.KickParticipant(roomId, c.user.Id, msg.Moderate.UserId)
	case ModerateMute, ModerateVideo:
		var room *session.RoomSession
		room, err = c.sessionRoom(roomId)
		if err == nil {
			if msg.Moderate.Action == ModerateMute {
				err = room.ToggleMute(c.user.Id, msg.Moderate.UserId)
			} else {
				err = room.ToggleVideo(c.user.Id, msg.Moderate.UserId)
			}
		}
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	if err != nil {
		c.queueMessage(ErrSession(msg.Id, err))
		return
	}

	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (c *Client) sessionRoom(roomId string) (*session.RoomSession, error) {
	if roomId == "" {
		roomId = c.room()
	}

	return c.watchServer.registry.Room(roomId)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
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

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.watchServer.handleDisconnect(c)
	c.stopClient()
}

func (c *Client) setRoom(id string) {
	c.roomLock.Lock()
	defer c.roomLock.Unlock()
	c.roomId = id
}

func (c *Client) room() string {
	c.roomLock.RLock()
	defer c.roomLock.RUnlock()
	return c.roomId
}
