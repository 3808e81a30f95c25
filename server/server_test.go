package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// e2eConfig tunes the end-to-end scenarios, mostly for slow CI hosts.
type e2eConfig struct {
	ReadTimeout   time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"2s"`
	SilenceWindow time.Duration `envconfig:"E2E_SILENCE_WINDOW" default:"200ms"`
	SettleTimeout time.Duration `envconfig:"E2E_SETTLE_TIMEOUT" default:"2s"`
}

var (
	cfg     e2eConfig
	cfgOnce sync.Once
)

func loadConfig(t *testing.T) e2eConfig {
	cfgOnce.Do(func() {
		require.NoError(t, envconfig.Process("", &cfg))
	})
	return cfg
}

// startRelay serves a fresh room on a loopback port and tears it down
// with the test.
func startRelay(t *testing.T, moderator *moderation.Moderator) (string, *runtime.Room) {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	room := runtime.NewRoom(log)
	srv := NewChatServer(log, "127.0.0.1:0", room, moderator)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, listener)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return listener.Addr().String(), room
}

// peer drives one raw TCP connection at frame level.
type peer struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Scanner
}

func dialPeer(t *testing.T, addr string) *peer {
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn, reader: bufio.NewScanner(conn)}
}

func (p *peer) send(frame protocol.Frame) {
	_, err := p.conn.Write([]byte(protocol.Encode(frame) + "\n"))
	require.NoError(p.t, err)
}

// expect reads the next inbound frame within the configured timeout.
func (p *peer) expect() protocol.Frame {
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(loadConfig(p.t).ReadTimeout)))
	require.True(p.t, p.reader.Scan(), "expected a frame, got: %v", p.reader.Err())
	return protocol.Decode(p.reader.Text())
}

// expectSilence asserts nothing arrives within the silence window.
func (p *peer) expectSilence() {
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(loadConfig(p.t).SilenceWindow)))
	if p.reader.Scan() {
		p.t.Fatalf("expected silence, received %q", p.reader.Text())
	}
}

// expectClosed asserts the relay closed its side of the connection.
func (p *peer) expectClosed() {
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(loadConfig(p.t).ReadTimeout)))
	require.False(p.t, p.reader.Scan(), "expected the relay to close the connection")
	require.NoError(p.t, p.reader.Err())
}

// waitForUsers blocks until the room holds exactly the given usernames.
func waitForUsers(t *testing.T, room *runtime.Room, expected []string) {
	deadline := time.Now().Add(loadConfig(t).SettleTimeout)
	for time.Now().Before(deadline) {
		users := room.Users()
		if len(users) == len(expected) {
			require.Equal(t, expected, users)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, expected, room.Users())
}

func TestRelay_SingleUserAuthenticates(t *testing.T) {
	addr, room := startRelay(t, nil)

	// When alice authenticates
	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})

	// Then she is registered and nobody is notified
	waitForUsers(t, room, []string{"alice"})
	alice.expectSilence()
}

func TestRelay_ChatReachesOthersButNotSender(t *testing.T) {
	req := require.New(t)
	addr, room := startRelay(t, nil)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	bob := dialPeer(t, addr)
	bob.send(protocol.Auth{Username: "bob"})
	waitForUsers(t, room, []string{"alice", "bob"})

	// Alice is told bob joined
	req.Equal(protocol.Join{Username: "bob"}, alice.expect())

	// When alice sends a chat line
	alice.send(protocol.Chat{Username: "alice", Text: "hi"})

	// Then bob receives it and alice hears nothing back
	req.Equal(protocol.Chat{Username: "alice", Text: "hi"}, bob.expect())
	alice.expectSilence()
}

func TestRelay_DuplicateUsernameRejected(t *testing.T) {
	req := require.New(t)
	addr, room := startRelay(t, nil)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	// When a second connection claims the same name
	impostor := dialPeer(t, addr)
	impostor.send(protocol.Auth{Username: "alice"})

	// Then it is told the name is taken and dropped
	req.Equal(protocol.NameTaken{}, impostor.expect())
	impostor.expectClosed()

	// And alice is unaffected
	req.Equal([]string{"alice"}, room.Users())
	alice.expectSilence()
}

func TestRelay_AbruptDisconnectAnnouncedAsLeave(t *testing.T) {
	req := require.New(t)
	addr, room := startRelay(t, nil)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	bob := dialPeer(t, addr)
	bob.send(protocol.Auth{Username: "bob"})
	waitForUsers(t, room, []string{"alice", "bob"})

	// When alice's transport dies without a Leave frame
	req.NoError(alice.conn.Close())

	// Then bob is eventually told she left and the room forgets her
	req.Equal(protocol.Leave{Username: "alice"}, bob.expect())
	waitForUsers(t, room, []string{"bob"})
}

func TestRelay_ExplicitLeave(t *testing.T) {
	req := require.New(t)
	addr, room := startRelay(t, nil)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	bob := dialPeer(t, addr)
	bob.send(protocol.Auth{Username: "bob"})
	waitForUsers(t, room, []string{"alice", "bob"})
	req.Equal(protocol.Join{Username: "bob"}, alice.expect())

	// When bob leaves on purpose
	bob.send(protocol.Leave{Username: "bob"})

	// Then alice is told exactly once and the relay closes bob's side
	req.Equal(protocol.Leave{Username: "bob"}, alice.expect())
	bob.expectClosed()
	waitForUsers(t, room, []string{"alice"})
	alice.expectSilence()
}

func TestRelay_FirstFrameNotAuthRejected(t *testing.T) {
	req := require.New(t)
	addr, _ := startRelay(t, nil)

	peer := dialPeer(t, addr)

	// When the first frame is a chat instead of an authentication
	peer.send(protocol.Chat{Username: "alice", Text: "hi"})

	// Then the relay answers Unauthenticated and hangs up
	req.Equal(protocol.Unauthenticated{}, peer.expect())
	peer.expectClosed()
}

func TestRelay_MalformedFrameMidSessionIsIgnored(t *testing.T) {
	req := require.New(t)
	addr, room := startRelay(t, nil)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	bob := dialPeer(t, addr)
	bob.send(protocol.Auth{Username: "bob"})
	waitForUsers(t, room, []string{"alice", "bob"})

	// When alice sends garbage and then a valid chat line
	_, err := alice.conn.Write([]byte("not a frame at all\n"))
	req.NoError(err)
	alice.send(protocol.Chat{Username: "alice", Text: "still here"})

	// Then the garbage was dropped and the session survived
	req.Equal(protocol.Chat{Username: "alice", Text: "still here"}, bob.expect())
	req.Equal([]string{"alice", "bob"}, room.Users())
}

func TestRelay_ModerationCensorsChatText(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelError)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	req.NoError(err)
	addr, room := startRelay(t, moderator)

	alice := dialPeer(t, addr)
	alice.send(protocol.Auth{Username: "alice"})
	waitForUsers(t, room, []string{"alice"})

	bob := dialPeer(t, addr)
	bob.send(protocol.Auth{Username: "bob"})
	waitForUsers(t, room, []string{"alice", "bob"})

	// When alice mentions a forbidden word
	alice.send(protocol.Chat{Username: "alice", Text: "release the badger"})

	// Then bob sees it masked
	req.Equal(protocol.Chat{Username: "alice", Text: "release the ******"}, bob.expect())
}
