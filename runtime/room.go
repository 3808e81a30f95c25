package runtime

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/errors"
)

// Room is the shared registry of connected users: one entry per unique
// username, pointing at that connection's outbound sink. A single mutex
// serializes every structural mutation and every recipient snapshot;
// the uniqueness invariant needs a global test-and-set, so the table is
// deliberately not decomposed into per-key locks.
type Room struct {
	mu    sync.Mutex
	log   *slog.Logger
	users map[string]contract.FrameSink
}

func NewRoom(log *slog.Logger) *Room {
	return &Room{
		log:   log,
		users: make(map[string]contract.FrameSink),
	}
}

// AddUser registers a username with its outbound sink.
// The existence check and the insert happen under one critical section,
// so concurrent claims of the same name yield exactly one winner.
// Returns errors.ErrNameTaken when the name is already owned.
func (r *Room) AddUser(username string, sink contract.FrameSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[username]; exists {
		return fmt.Errorf("adding %q: %w", username, errors.ErrNameTaken)
	}
	r.users[username] = sink
	return nil
}

// RemoveUser drops a username from the room. Removing an absent user is
// a no-op: sessions call this from both the Leave handler and their
// cleanup path, and only one of them may find the entry.
func (r *Room) RemoveUser(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, username)
}

// SendTo enqueues one encoded frame for a single user. An absent
// recipient is expected (they may have disconnected between lookup and
// send) and is only worth a debug line.
func (r *Room) SendTo(username string, line string) {
	r.mu.Lock()
	sink, exists := r.users[username]
	r.mu.Unlock()

	if !exists {
		r.log.Debug("Recipient is not in the room", "username", username)
		return
	}
	sink.Consume(line)
}

// Broadcast enqueues one encoded frame to every registered user except
// the excluded one. Recipients are snapshotted once under the lock;
// the enqueues happen outside it. A user added after the snapshot does
// not receive the frame, and a user removed after it may still get a
// stale line on a sink nobody reads anymore. Delivery is best-effort.
func (r *Room) Broadcast(line string, exclude string) {
	r.mu.Lock()
	recipients := make([]contract.FrameSink, 0, len(r.users))
	for username, sink := range r.users {
		if username != exclude {
			recipients = append(recipients, sink)
		}
	}
	r.mu.Unlock()

	for _, sink := range recipients {
		sink.Consume(line)
	}
}

// Users returns a sorted snapshot of the connected usernames.
func (r *Room) Users() []string {
	r.mu.Lock()
	usernames := lo.Keys(r.users)
	r.mu.Unlock()

	sort.Strings(usernames)
	return usernames
}
