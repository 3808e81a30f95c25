// Package server implements the relay side of the chat protocol: a TCP
// listener that runs one session per accepted connection, all sessions
// sharing one room.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"chat-relay/contract"
	"chat-relay/moderation"
)

// ChatServer accepts connections and hands each one to a session.
// It implements contract.Worker so it can run under the supervisor.
type ChatServer struct {
	log       *slog.Logger
	addr      string
	room      contract.IRoom
	moderator *moderation.Moderator // nil disables censoring
}

func NewChatServer(log *slog.Logger, addr string, room contract.IRoom, moderator *moderation.Moderator) *ChatServer {
	return &ChatServer{log: log, addr: addr, room: room, moderator: moderator}
}

// Run binds the configured address and serves until ctx is canceled.
func (s *ChatServer) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on the given listener until ctx is canceled
// or the listener fails. Each accepted connection gets its own session
// goroutine; a failing session never affects the accept loop.
func (s *ChatServer) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()

	// Cancellation is delivered by closing the listener, which unblocks Accept.
	stop := context.AfterFunc(ctx, func() {
		_ = listener.Close()
	})
	defer stop()

	s.log.Info("Relay listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("Relay stopped")
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		sess := newSession(s.log, s.room, s.moderator, conn)
		go sess.run(ctx)
	}
}
