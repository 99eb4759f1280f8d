package tickets

import (
	"errors"
	"fmt"
)

// ErrNoTicket is returned by directory lookups that find no ticket.
var ErrNoTicket = errors.New("tickets: no ticket found")

// UserError is an expected, user-facing failure ("already closed",
// "not authorized"). Handlers report it as an ephemeral reply and do
// not log it as a bot failure.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf builds a UserError from a format string.
func Userf(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// AsUserError extracts the user-facing message if err is (or wraps) a
// UserError.
func AsUserError(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message, true
	}
	return "", false
}

// LookupError indicates a ticket channel whose owner could not be
// determined (missing or malformed topic). It is logged with the
// channel id and surfaced to the invoker as a generic user error.
type LookupError struct {
	ChannelID string
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("tickets: cannot resolve ticket for channel %s: %v", e.ChannelID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
