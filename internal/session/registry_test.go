package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/watchparty/server/internal/testutil"
)

func TestRegistry_CreateRoom(t *testing.T) {
	reg := newTestRegistry(t, nil)

	room, err := reg.CreateRoom(host, "m1", "Movie Night", false, "")
	require.NoError(t, err)

	assert.NotEmpty(t, room.Id, "expected a generated room id")
	assert.Equal(t, host.UserId, room.HostId)
	assert.Equal(t, "m1", room.MovieId)
	require.Len(t, room.Participants, 1, "expected the host to be the sole participant")
	assert.True(t, room.Participants[0].IsHost)
	assert.Equal(t, 0.0, room.Playback.Position)
	assert.False(t, room.Playback.IsPlaying)
	assert.Equal(t, 0, room.Playback.Seq)

	current, ok := reg.RoomFor(host.UserId)
	assert.True(t, ok, "expected the room to become the host's active room")
	assert.Equal(t, room.Id, current)

	t.Run("validation", func(t *testing.T) {
		_, err := reg.CreateRoom(host, "m1", "  ", false, "")
		assert.Equal(t, KindValidation, Kind(err), "expected empty name to be rejected")

		_, err = reg.CreateRoom(host, "", "Movie Night", false, "")
		assert.Equal(t, KindValidation, Kind(err), "expected empty movie id to be rejected")

		_, err = reg.CreateRoom(host, "m1", "Movie Night", true, "")
		assert.Equal(t, KindValidation, Kind(err), "expected private room without password to be rejected")
	})
}

func TestRegistry_JoinRoom_notFound(t *testing.T) {
	reg := newTestRegistry(t, nil)

	_, err := reg.JoinRoom("missing", guest, "")
	assert.Equal(t, KindRoomNotFound, Kind(err))
}

func TestRegistry_LeaveRoom(t *testing.T) {
	t.Run("guest leave removes participant and clears index", func(t *testing.T) {
		reg := newTestRegistry(t, nil)
		roomId := createTestRoom(t, reg, false, "")

		_, err := reg.JoinRoom(roomId, guest, "")
		require.NoError(t, err)

		require.NoError(t, reg.LeaveRoom(roomId, guest.UserId))

		room, err := reg.Room(roomId)
		require.NoError(t, err)
		assert.Len(t, room.Snapshot().Participants, 1, "expected only the host to remain")

		_, inRoom := reg.RoomFor(guest.UserId)
		assert.False(t, inRoom, "expected the guest's active room to be cleared")
	})

	t.Run("leave is a no-op for absent room or user", func(t *testing.T) {
		reg := newTestRegistry(t, nil)
		roomId := createTestRoom(t, reg, false, "")

		assert.NoError(t, reg.LeaveRoom("missing", guest.UserId))
		assert.NoError(t, reg.LeaveRoom(roomId, guest.UserId))
	})

	t.Run("host leave ends the room", func(t *testing.T) {
		sink := &recordingSink{}
		reg := newTestRegistry(t, sink)
		roomId := createTestRoom(t, reg, false, "")

		_, err := reg.JoinRoom(roomId, guest, "")
		require.NoError(t, err)

		require.NoError(t, reg.LeaveRoom(roomId, host.UserId))

		_, err = reg.Room(roomId)
		assert.Equal(t, KindRoomNotFound, Kind(err), "expected the room to be gone after the host left")

		_, inRoom := reg.RoomFor(guest.UserId)
		assert.False(t, inRoom, "expected remaining members' index entries to be cleared")

		var ended bool
		for _, ev := range sink.all() {
			if ev.RoomEnded != nil {
				ended = true
			}
		}
		assert.True(t, ended, "expected a room-ended event")
	})
}

func TestRegistry_EndRoom(t *testing.T) {
	reg := newTestRegistry(t, nil)
	roomId := createTestRoom(t, reg, false, "")

	_, err := reg.JoinRoom(roomId, guest, "")
	require.NoError(t, err)

	t.Run("non-host denied", func(t *testing.T) {
		err := reg.EndRoom(roomId, guest.UserId)
		assert.Equal(t, KindPermissionDenied, Kind(err))

		_, err = reg.Room(roomId)
		assert.NoError(t, err, "expected the room to still exist")
	})

	t.Run("host ends room", func(t *testing.T) {
		require.NoError(t, reg.EndRoom(roomId, host.UserId))

		_, err := reg.Room(roomId)
		assert.Equal(t, KindRoomNotFound, Kind(err))
	})

	t.Run("ending a missing room", func(t *testing.T) {
		err := reg.EndRoom(roomId, host.UserId)
		assert.Equal(t, KindRoomNotFound, Kind(err))
	})
}

func TestRegistry_singleCurrentRoom(t *testing.T) {
	reg := newTestRegistry(t, nil)
	firstId := createTestRoom(t, reg, false, "")

	_, err := reg.JoinRoom(firstId, guest, "")
	require.NoError(t, err)

	second, err := reg.CreateRoom(third, "m2", "Other Night", false, "")
	require.NoError(t, err)

	_, err = reg.JoinRoom(second.Id, guest, "")
	require.NoError(t, err)

	current, ok := reg.RoomFor(guest.UserId)
	require.True(t, ok)
	assert.Equal(t, second.Id, current, "expected the new room to become the active room")

	first, err := reg.Room(firstId)
	require.NoError(t, err)
	for _, p := range first.Snapshot().Participants {
		assert.NotEqual(t, guest.UserId, p.UserId, "expected the guest to have left the previous room")
	}
}

func TestRegistry_concurrentJoins(t *testing.T) {
	reg := newTestRegistry(t, nil)
	firstId := createTestRoom(t, reg, false, "")

	second, err := reg.CreateRoom(third, "m2", "Other Night", false, "")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := reg.JoinRoom(firstId, guest, "")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := reg.JoinRoom(second.Id, guest, "")
			assert.NoError(t, err)
		}()
		wg.Wait()

		memberships := 0
		for _, id := range []string{firstId, second.Id} {
			room, err := reg.Room(id)
			require.NoError(t, err)
			for _, p := range room.Snapshot().Participants {
				if p.UserId == guest.UserId {
					memberships++
				}
			}
		}
		require.Equal(t, 1, memberships, "expected the guest to be a member of exactly one room")

		current, ok := reg.RoomFor(guest.UserId)
		require.True(t, ok, "expected the guest's active room to be set")
		require.NoError(t, reg.LeaveRoom(current, guest.UserId))
	}
}

func TestRegistry_idleTimeout(t *testing.T) {
	reg, err := NewRegistry(testutil.TestLogger(t), nil, nil, 50*time.Millisecond)
	require.NoError(t, err)

	room, err := reg.CreateRoom(host, "m1", "Movie Night", false, "")
	require.NoError(t, err)

	t.Run("attached room survives", func(t *testing.T) {
		reg.Attach(room.Id)
		time.Sleep(120 * time.Millisecond)

		_, err := reg.Room(room.Id)
		assert.NoError(t, err, "expected an attached room to survive the idle timeout")
	})

	t.Run("detached room is reaped", func(t *testing.T) {
		reg.Detach(room.Id)

		assert.Eventually(t, func() bool {
			_, err := reg.Room(room.Id)
			return Kind(err) == KindRoomNotFound
		}, time.Second, 10*time.Millisecond, "expected the idle room to be unloaded")
	})
}

func TestRegistry_endToEndScenarios(t *testing.T) {
	t.Run("kick flow", func(t *testing.T) {
		reg := newTestRegistry(t, nil)

		room, err := reg.CreateRoom(host, "m1", "Movie Night", false, "")
		require.NoError(t, err)

		_, err = reg.JoinRoom(room.Id, guest, "")
		require.NoError(t, err)

		live, err := reg.Room(room.Id)
		require.NoError(t, err)

		require.NoError(t, live.ToggleMute(guest.UserId, guest.UserId))

		snap := live.Snapshot()
		require.Len(t, snap.Participants, 2)
		for _, p := range snap.Participants {
			if p.UserId == guest.UserId {
				assert.True(t, p.IsMuted, "expected guest to be muted")
			}
		}

		require.NoError(t, reg.KickParticipant(room.Id, host.UserId, guest.UserId))

		snap = live.Snapshot()
		require.Len(t, snap.Participants, 1, "expected only the host to remain")
		assert.Equal(t, host.UserId, snap.Participants[0].UserId)
	})

	t.Run("private room flow", func(t *testing.T) {
		reg := newTestRegistry(t, nil)

		room, err := reg.CreateRoom(host, "m1", "Movie Night", true, "abcd")
		require.NoError(t, err)

		_, err = reg.JoinRoom(room.Id, guest, "wrong")
		assert.Equal(t, KindInvalidCredentials, Kind(err))

		live, err := reg.Room(room.Id)
		require.NoError(t, err)
		assert.Len(t, live.Snapshot().Participants, 1, "expected no members beyond the host after a failed join")

		snap, err := reg.JoinRoom(room.Id, guest, "abcd")
		require.NoError(t, err)

		members := 0
		for _, p := range snap.Participants {
			if !p.IsHost {
				members++
			}
		}
		assert.Equal(t, 1, members, "expected exactly one non-host member after the successful join")
	})
}
