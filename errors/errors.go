package errors

import "fmt"

var (
	ErrNameTaken       = fmt.Errorf("username already taken")
	ErrUnauthenticated = fmt.Errorf("could not authenticate user")
	ErrSessionClosed   = fmt.Errorf("session closed")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)
