package server

import (
	"bufio"
	"context"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"chat-relay/contract"
	"chat-relay/moderation"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// session is the state machine owned by one accepted connection:
// Connecting -> Authenticating -> Authenticated -> Closed.
// It never shares state with other sessions except through the room.
type session struct {
	log       *slog.Logger
	room      contract.IRoom
	moderator *moderation.Moderator
	conn      net.Conn
	sink      *runtime.Sink

	// set once authentication succeeds
	username string
	// true once the username has been removed and its Leave broadcast,
	// so the cleanup path announces a departure exactly once
	removed bool
}

func newSession(log *slog.Logger, room contract.IRoom, moderator *moderation.Moderator, conn net.Conn) *session {
	return &session{
		log: log.With(
			"connection_id", uuid.NewString(),
			"remote", conn.RemoteAddr().String(),
		),
		room:      room,
		moderator: moderator,
		conn:      conn,
		sink:      runtime.NewSink(),
	}
}

// run drives the session from accept to cleanup. The writer goroutine
// starts before authentication so that rejection notices reach peers
// that never made it into the room.
func (s *session) run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	reader := bufio.NewScanner(s.conn)
	if s.authenticate(reader) {
		s.relay(reader)
	}
	s.close()

	// The writer drains the sink, then closes the transport.
	<-writerDone
}

// authenticate reads exactly one frame and decides the session's fate.
// Anything but a fresh Auth ends the connection after one notice frame.
func (s *session) authenticate(reader *bufio.Scanner) bool {
	if !reader.Scan() {
		s.log.Warn("Peer closed before authenticating")
		s.sink.Consume(protocol.Encode(protocol.Unauthenticated{}))
		return false
	}

	auth, ok := protocol.Decode(reader.Text()).(protocol.Auth)
	if !ok {
		s.log.Warn("First frame was not an authentication")
		s.sink.Consume(protocol.Encode(protocol.Unauthenticated{}))
		return false
	}

	if err := s.room.AddUser(auth.Username, s.sink); err != nil {
		s.log.Warn("Rejecting duplicate username", "username", auth.Username)
		s.sink.Consume(protocol.Encode(protocol.NameTaken{}))
		return false
	}

	s.username = auth.Username
	s.log = s.log.With("username", auth.Username)
	s.log.Info("User authenticated")
	s.room.Broadcast(protocol.Encode(protocol.Join{Username: auth.Username}), auth.Username)
	return true
}

// relay processes frames until the stream ends or the peer leaves.
func (s *session) relay(reader *bufio.Scanner) {
	for reader.Scan() {
		switch frame := protocol.Decode(reader.Text()).(type) {
		case protocol.Chat:
			// The sender field is relayed as received, not rewritten to
			// the authenticated username; a mismatch is logged only.
			if frame.Username != s.username {
				s.log.Warn("Chat sender differs from authenticated username",
					"sender", frame.Username)
			}
			text := frame.Text
			if s.moderator != nil {
				text = s.moderator.Censor(text)
			}
			s.room.Broadcast(
				protocol.Encode(protocol.Chat{Username: frame.Username, Text: text}),
				frame.Username,
			)
		case protocol.Leave:
			s.leave(frame.Username)
			return
		default:
			// Non-fatal: a malformed or out-of-place frame is dropped.
			s.log.Warn("Unexpected frame while authenticated", "line", reader.Text())
		}
	}

	if err := reader.Err(); err != nil {
		s.log.Debug("Read loop ended", "err", err)
	}
}

// leave handles an explicit departure request.
func (s *session) leave(username string) {
	s.room.RemoveUser(username)
	s.room.Broadcast(protocol.Encode(protocol.Leave{Username: username}), username)
	if username == s.username {
		s.removed = true
		s.log.Info("User left")
	}
}

// close is the terminal transition. Whatever ended the session — clean
// leave, EOF or transport error — an authenticated user is removed and
// announced exactly once, then the sink is closed so the writer drains
// and releases the transport.
func (s *session) close() {
	if s.username != "" && !s.removed {
		s.room.RemoveUser(s.username)
		s.room.Broadcast(protocol.Encode(protocol.Leave{Username: s.username}), s.username)
		s.removed = true
		s.log.Info("User disconnected")
	}
	s.sink.Close()
}

// writeLoop is the sole consumer of this session's sink. It forwards
// queued frames to the transport in enqueue order, then closes the
// connection once the sink is drained or a write fails.
func (s *session) writeLoop(done chan struct{}) {
	defer close(done)
	defer s.conn.Close()

	writer := bufio.NewWriter(s.conn)
	for {
		line, ok := s.sink.Next()
		if !ok {
			return
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			s.log.Debug("Write failed", "err", err)
			return
		}
		if err := writer.Flush(); err != nil {
			s.log.Debug("Flush failed", "err", err)
			return
		}
	}
}
