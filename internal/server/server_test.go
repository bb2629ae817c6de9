package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/watchparty/server/internal/session"
	"github.com/watchparty/server/internal/stats"
	"github.com/watchparty/server/internal/testutil"
	"github.com/watchparty/server/internal/types"
)

var (
	hostUser  = types.User{Id: 1, Username: "alice"}
	guestUser = types.User{Id: 2, Username: "bob"}
)

func newTestWatchServer(t *testing.T) (*WatchServer, *session.Registry) {
	t.Helper()

	ms := &stats.MockStatsUpdater{}
	ms.On("Incr", mock.Anything).Maybe()
	ms.On("Decr", mock.Anything).Maybe()

	ws := NewWatchServer(testutil.TestLogger(t), ms)

	reg, err := session.NewRegistry(testutil.TestLogger(t), ws, nil, time.Hour)
	require.NoError(t, err, "expected registry to initialize")
	ws.SetRegistry(reg)

	go ws.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		ws.Shutdown(ctx)
	})

	return ws, reg
}

func newAttachedClient(t *testing.T, ws *WatchServer, user types.User, roomId, password string) *Client {
	t.Helper()

	c := NewClient(user, nil, ws, testutil.TestLogger(t))
	ws.RegisterClient(c)

	dispatch(c, &ClientMessage{Join: &Join{RoomId: roomId, Password: password}})

	resp := nextMessage(t, c)
	require.NotNil(t, resp.Response)
	require.Equal(t, 200, resp.Response.ResponseCode, "expected join to succeed: %s", resp.Response.Error)

	return c
}

func dispatch(c *Client, msg *ClientMessage) {
	msg.UserId = c.user.Id
	msg.Timestamp = session.Now()
	c.dispatch(msg)
}

func nextMessage(t *testing.T, c *Client) *ServerMessage {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
	}

	return nil
}

// waitForEvent drains the client's queue until an event satisfying
// match arrives.
func waitForEvent(t *testing.T, c *Client, match func(*session.Event) bool) *session.Event {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-c.send:
			if msg.Event != nil && match(msg.Event) {
				return msg.Event
			}
		case <-deadline:
			t.Fatal("timed out waiting for an event")
		}
	}
}

func createRoom(t *testing.T, reg *session.Registry, private bool, password string) string {
	t.Helper()

	room, err := reg.CreateRoom(session.Identity{UserId: hostUser.Id, Username: hostUser.Username},
		"m1", "Movie Night", private, password)
	require.NoError(t, err)
	return room.Id
}

func TestClient_joinAndPublish(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, false, "")

	hostClient := newAttachedClient(t, ws, hostUser, roomId, "")
	guestClient := newAttachedClient(t, ws, guestUser, roomId, "")

	dispatch(guestClient, &ClientMessage{BaseMessage: BaseMessage{Id: 7}, Publish: &Publish{RoomId: roomId, Content: "hello"}})

	ev := waitForEvent(t, hostClient, func(ev *session.Event) bool {
		return ev.Message != nil && ev.Message.Content == "hello"
	})
	assert.Equal(t, guestUser.Id, ev.Message.UserId)
	assert.Equal(t, roomId, ev.RoomId)
}

func TestClient_joinPrivateRoom(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, true, "abcd")

	c := NewClient(guestUser, nil, ws, testutil.TestLogger(t))
	ws.RegisterClient(c)

	dispatch(c, &ClientMessage{Join: &Join{RoomId: roomId, Password: "wrong"}})
	resp := nextMessage(t, c)
	require.NotNil(t, resp.Response)
	assert.Equal(t, 401, resp.Response.ResponseCode, "expected wrong password to be rejected")

	dispatch(c, &ClientMessage{Join: &Join{RoomId: roomId, Password: "abcd"}})
	resp = nextMessage(t, c)
	require.NotNil(t, resp.Response)
	assert.Equal(t, 200, resp.Response.ResponseCode)
	require.NotNil(t, resp.Response.Data, "expected the room snapshot in the join response")
}

func TestClient_joinMissingRoom(t *testing.T) {
	ws, _ := newTestWatchServer(t)

	c := NewClient(guestUser, nil, ws, testutil.TestLogger(t))
	ws.RegisterClient(c)

	dispatch(c, &ClientMessage{Join: &Join{RoomId: "missing"}})
	resp := nextMessage(t, c)
	require.NotNil(t, resp.Response)
	assert.Equal(t, 404, resp.Response.ResponseCode)
}

func TestClient_playbackPermissions(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, false, "")

	hostClient := newAttachedClient(t, ws, hostUser, roomId, "")
	guestClient := newAttachedClient(t, ws, guestUser, roomId, "")

	dispatch(guestClient, &ClientMessage{Playback: &Playback{RoomId: roomId, Position: 10, IsPlaying: true}})
	resp := nextMessage(t, guestClient)
	require.NotNil(t, resp.Response)
	assert.Equal(t, 403, resp.Response.ResponseCode, "expected non-host playback to be denied")

	dispatch(hostClient, &ClientMessage{Playback: &Playback{RoomId: roomId, Position: 10, IsPlaying: true}})

	ev := waitForEvent(t, guestClient, func(ev *session.Event) bool {
		return ev.PlaybackUpdated != nil
	})
	assert.Equal(t, 10.0, ev.PlaybackUpdated.Position)
	assert.True(t, ev.PlaybackUpdated.IsPlaying)
	assert.Equal(t, 1, ev.PlaybackUpdated.Seq)
}

func TestClient_moderateKick(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, false, "")

	hostClient := newAttachedClient(t, ws, hostUser, roomId, "")
	guestClient := newAttachedClient(t, ws, guestUser, roomId, "")

	dispatch(hostClient, &ClientMessage{Moderate: &Moderate{RoomId: roomId, Action: ModerateKick, UserId: guestUser.Id}})

	ev := waitForEvent(t, hostClient, func(ev *session.Event) bool {
		return ev.ParticipantLeft != nil && ev.ParticipantLeft.UserId == guestUser.Id
	})
	assert.True(t, ev.ParticipantLeft.Kicked)

	assert.Eventually(t, func() bool {
		return guestClient.room() == ""
	}, time.Second, 10*time.Millisecond, "expected the kicked client to be detached from the room")

	room, err := reg.Room(roomId)
	require.NoError(t, err)
	assert.Len(t, room.Snapshot().Participants, 1, "expected only the host to remain")
}

func TestClient_hostLeaveEndsRoom(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, false, "")

	hostClient := newAttachedClient(t, ws, hostUser, roomId, "")
	guestClient := newAttachedClient(t, ws, guestUser, roomId, "")

	dispatch(hostClient, &ClientMessage{Leave: &Leave{RoomId: roomId}})

	waitForEvent(t, guestClient, func(ev *session.Event) bool {
		return ev.RoomEnded != nil
	})

	_, err := reg.Room(roomId)
	assert.Equal(t, session.KindRoomNotFound, session.Kind(err), "expected the room to be gone")

	assert.Eventually(t, func() bool {
		return guestClient.room() == ""
	}, time.Second, 10*time.Millisecond, "expected remaining clients to be dropped from the room")
}

func TestWatchServer_disconnectImpliesLeave(t *testing.T) {
	ws, reg := newTestWatchServer(t)
	roomId := createRoom(t, reg, false, "")

	newAttachedClient(t, ws, hostUser, roomId, "")
	guestClient := newAttachedClient(t, ws, guestUser, roomId, "")

	ws.handleDisconnect(guestClient)

	room, err := reg.Room(roomId)
	require.NoError(t, err)
	for _, p := range room.Snapshot().Participants {
		assert.NotEqual(t, guestUser.Id, p.UserId, "expected a dropped connection to leave the room")
	}

	_, inRoom := reg.RoomFor(guestUser.Id)
	assert.False(t, inRoom, "expected the guest's active room to be cleared")
}

func TestClient_invalidMessage(t *testing.T) {
	ws, _ := newTestWatchServer(t)

	c := NewClient(guestUser, nil, ws, testutil.TestLogger(t))
	ws.RegisterClient(c)

	dispatch(c, &ClientMessage{})
	resp := nextMessage(t, c)
	require.NotNil(t, resp.Response)
	assert.Equal(t, 400, resp.Response.ResponseCode)
}
