//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// FrameSink is the producer side of one connection's outbound queue.
// The room holds one FrameSink per authenticated user; the owning session's
// writer goroutine is the sole consumer behind it.
type FrameSink interface {
	// Consume enqueues one encoded frame. It reports false once the
	// sink is closed, which callers treat as best-effort loss.
	Consume(line string) bool
}

// IRoom is the shared user registry seen by sessions.
type IRoom interface {
	AddUser(username string, sink FrameSink) error
	RemoveUser(username string)
	SendTo(username string, line string)
	Broadcast(line string, exclude string)
	Users() []string
}
