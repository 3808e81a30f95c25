package client

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// credentials constrains what may go on the wire as a username.
// 0x7C is the pipe field delimiter.
type credentials struct {
	Username string `validate:"required,max=32,excludesall=0x7C"`
}

// ValidateUsername rejects usernames that would corrupt the framing or
// that the relay could not display sensibly.
func ValidateUsername(username string) error {
	if err := validate.Struct(credentials{Username: username}); err != nil {
		return err
	}
	if strings.ContainsAny(username, "\n\r") {
		return fmt.Errorf("username must not contain line breaks")
	}
	return nil
}
