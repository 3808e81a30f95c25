package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func TestRoom_AddUser_Success(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())
	sink := NewSink()

	// Given an empty room
	req.Empty(room.Users())

	// When a user joins
	err := room.AddUser("alice", sink)

	// Then
	req.NoError(err)
	req.Equal([]string{"alice"}, room.Users())
}

func TestRoom_AddUser_NameTakenKeepsOriginalSink(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())
	original := NewSink()
	intruder := NewSink()

	// Given alice already owns her name
	req.NoError(room.AddUser("alice", original))

	// When a second connection claims it
	err := room.AddUser("alice", intruder)

	// Then the claim fails and the original sink still receives
	req.ErrorIs(err, errors.ErrNameTaken)

	room.SendTo("alice", "hello")
	line, ok := original.Next()
	req.True(ok)
	req.Equal("hello", line)
}

func TestRoom_RemoveUser_IsIdempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())

	// Given alice is in the room
	req.NoError(room.AddUser("alice", NewSink()))

	// When she is removed twice
	room.RemoveUser("alice")
	room.RemoveUser("alice")

	// Then the room is empty and nothing failed
	req.Empty(room.Users())

	// And removing a user that never joined is a no-op
	room.RemoveUser("ghost")
}

func TestRoom_SendTo_AbsentUserIsNoOp(t *testing.T) {
	room := NewRoom(slog.Default())

	// Should not panic nor fail
	room.SendTo("ghost", "msg")
}

func TestRoom_Broadcast_ExcludesSender(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())
	aliceSink := NewSink()
	bobSink := NewSink()
	carolSink := NewSink()

	// Given three users in the room
	req.NoError(room.AddUser("alice", aliceSink))
	req.NoError(room.AddUser("bob", bobSink))
	req.NoError(room.AddUser("carol", carolSink))

	// When alice broadcasts
	room.Broadcast("hi", "alice")

	// Then bob and carol each got the frame exactly once
	for _, sink := range []*Sink{bobSink, carolSink} {
		sink.Close()
		line, ok := sink.Next()
		req.True(ok)
		req.Equal("hi", line)
		_, ok = sink.Next()
		req.False(ok)
	}

	// And alice got nothing
	aliceSink.Close()
	_, ok := aliceSink.Next()
	req.False(ok)
}

func TestRoom_ConcurrentAdds_DistinctNamesAllSucceed(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())
	const n = 50

	var wg sync.WaitGroup
	failures := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := room.AddUser(fmt.Sprintf("user-%d", i), NewSink()); err != nil {
				failures <- err
			}
		}(i)
	}
	wg.Wait()
	close(failures)

	req.Empty(failures)
	req.Len(room.Users(), n)
}

func TestRoom_ConcurrentAdds_SameNameExactlyOneWinner(t *testing.T) {
	req := require.New(t)
	room := NewRoom(slog.Default())
	const m = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, rejections := 0, 0
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := room.AddUser("alice", NewSink())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			req.ErrorIs(err, errors.ErrNameTaken)
			rejections++
		}()
	}
	wg.Wait()

	req.Equal(1, successes)
	req.Equal(m-1, rejections)
	req.Equal([]string{"alice"}, room.Users())
}
