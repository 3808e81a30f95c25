// Package protocol defines the chat wire format: one frame per line,
// three pipe-delimited fields `<username>|<type-code>|<payload>`.
// Frames are immutable values; Decode is total and Encode is exhaustive.
// Field content must not contain the delimiter or a line terminator,
// which is enforced at the edges, not here.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Type codes as they appear on the wire.
const (
	codeAuth            = 1
	codeChat            = 2
	codeJoin            = 3
	codeLeave           = 4
	codeInvalid         = 5
	codeNameTaken       = 6
	codeUnauthenticated = 7
)

const fieldCount = 3

// Frame is one decoded unit of the chat protocol.
// Sessions dispatch on the concrete variant with a type switch.
type Frame interface {
	frame()
}

// Auth is the first frame a client sends, claiming a username.
type Auth struct {
	Username string
}

// Chat carries one chat line from the named sender.
type Chat struct {
	Username string
	Text     string
}

// Join announces that a user entered the room.
type Join struct {
	Username string
}

// Leave announces that a user left the room, or requests to leave.
type Leave struct {
	Username string
}

// NameTaken rejects an authentication attempt for a duplicate username.
type NameTaken struct{}

// Unauthenticated rejects a connection whose first frame was not Auth.
type Unauthenticated struct{}

// Invalid is the decoding of any malformed line.
type Invalid struct{}

func (Auth) frame()            {}
func (Chat) frame()            {}
func (Join) frame()            {}
func (Leave) frame()           {}
func (NameTaken) frame()       {}
func (Unauthenticated) frame() {}
func (Invalid) frame()         {}

// Decode parses a single line into a Frame. It never fails: a line that
// does not split into exactly three fields, or whose type code is unknown
// or unparseable, decodes to Invalid.
func Decode(line string) Frame {
	parts := strings.Split(line, "|")
	if len(parts) != fieldCount {
		return Invalid{}
	}

	username := parts[0]
	code, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Invalid{}
	}

	switch code {
	case codeAuth:
		return Auth{Username: username}
	case codeChat:
		return Chat{Username: username, Text: parts[2]}
	case codeJoin:
		return Join{Username: username}
	case codeLeave:
		return Leave{Username: username}
	case codeNameTaken:
		return NameTaken{}
	case codeUnauthenticated:
		return Unauthenticated{}
	default:
		return Invalid{}
	}
}

// Encode renders a Frame as its wire line, without the line terminator.
func Encode(f Frame) string {
	switch v := f.(type) {
	case Auth:
		return fmt.Sprintf("%s|%d|", v.Username, codeAuth)
	case Chat:
		return fmt.Sprintf("%s|%d|%s", v.Username, codeChat, v.Text)
	case Join:
		return fmt.Sprintf("%s|%d|", v.Username, codeJoin)
	case Leave:
		return fmt.Sprintf("%s|%d|", v.Username, codeLeave)
	case NameTaken:
		return fmt.Sprintf("|%d|", codeNameTaken)
	case Unauthenticated:
		return fmt.Sprintf("|%d|", codeUnauthenticated)
	default:
		return fmt.Sprintf("|%d|", codeInvalid)
	}
}
