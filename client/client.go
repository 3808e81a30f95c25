// Package client implements the user side of the chat protocol: it
// authenticates on connect, dispatches inbound frames as events, and
// forwards queued outgoing frames until the session ends.
package client

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"chat-relay/errors"
	"chat-relay/protocol"
	"chat-relay/runtime"
)

// ChatClient is the handle through which the terminal layer injects
// outgoing chat text and observes the session's termination.
type ChatClient struct {
	log      *slog.Logger
	username string
	conn     net.Conn
	outgoing *runtime.Sink
	handler  Handler

	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

// Connect dials the relay, starts the session's reader and writer
// goroutines and immediately queues the authentication frame. The
// handler receives every inbound event until the session terminates;
// termination is observed through Done and Err, never through the
// process exiting.
func Connect(ctx context.Context, addr string, username string, log *slog.Logger, handler Handler) (*ChatClient, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username %q: %w", username, err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	c := &ChatClient{
		log:      log.With("username", username),
		username: username,
		conn:     conn,
		outgoing: runtime.NewSink(),
		handler:  handler,
		done:     make(chan struct{}),
	}

	go c.writeLoop()
	go c.readLoop()

	c.outgoing.Consume(protocol.Encode(protocol.Auth{Username: username}))
	return c, nil
}

// Send queues one chat line. The text must not contain the field
// delimiter or a line terminator, which would corrupt the framing.
func (c *ChatClient) Send(text string) error {
	if strings.ContainsAny(text, "|\n\r") {
		return fmt.Errorf("chat text must not contain '|' or line breaks")
	}
	if !c.outgoing.Consume(protocol.Encode(protocol.Chat{Username: c.username, Text: text})) {
		return errors.ErrSessionClosed
	}
	return nil
}

// Leave queues the departure frame. The relay answers by closing the
// connection, which ends the session through the reader.
func (c *ChatClient) Leave() error {
	if !c.outgoing.Consume(protocol.Encode(protocol.Leave{Username: c.username})) {
		return errors.ErrSessionClosed
	}
	return nil
}

// Close tears the session down locally without a Leave frame.
func (c *ChatClient) Close() {
	c.terminate(nil)
}

// Done is closed once the session has terminated for any reason.
func (c *ChatClient) Done() <-chan struct{} {
	return c.done
}

// Err reports why the session terminated. It is nil for a local Close
// or a plain server-side disconnect, errors.ErrNameTaken or
// errors.ErrUnauthenticated when the relay rejected us.
func (c *ChatClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// terminate records the reason and unwinds both loops. First call wins.
func (c *ChatClient) terminate(reason error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = reason
		c.mu.Unlock()

		c.outgoing.Close()
		_ = c.conn.Close()
		close(c.done)
	})
}

// readLoop decodes inbound frames into events. Rejection notices are
// fatal and become the session's typed termination reason.
func (c *ChatClient) readLoop() {
	reader := bufio.NewScanner(c.conn)
	for reader.Scan() {
		switch frame := protocol.Decode(reader.Text()).(type) {
		case protocol.Join:
			c.handler(Event{Kind: EventJoined, Username: frame.Username})
		case protocol.Chat:
			c.handler(Event{Kind: EventMessage, Username: frame.Username, Text: frame.Text})
		case protocol.Leave:
			c.handler(Event{Kind: EventLeft, Username: frame.Username})
		case protocol.NameTaken:
			c.terminate(errors.ErrNameTaken)
			return
		case protocol.Unauthenticated:
			c.terminate(errors.ErrUnauthenticated)
			return
		default:
			c.log.Debug("Ignoring frame", "line", reader.Text())
		}
	}
	// EOF or transport error: a normal end of session.
	c.terminate(nil)
}

// writeLoop is the sole consumer of the outgoing queue.
func (c *ChatClient) writeLoop() {
	writer := bufio.NewWriter(c.conn)
	for {
		line, ok := c.outgoing.Next()
		if !ok {
			return
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			c.terminate(fmt.Errorf("writing frame: %w", err))
			return
		}
		if err := writer.Flush(); err != nil {
			c.terminate(fmt.Errorf("flushing frame: %w", err))
			return
		}
	}
}
