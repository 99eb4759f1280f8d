package tickets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsUserError(t *testing.T) {
	msg, ok := AsUserError(Userf("ticket %s is closed", "ch-1"))
	require.True(t, ok)
	assert.Equal(t, "ticket ch-1 is closed", msg)

	// wrapped user errors are still recognised
	wrapped := fmt.Errorf("handling interaction: %w", &UserError{Message: "nope"})
	msg, ok = AsUserError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "nope", msg)

	_, ok = AsUserError(errors.New("internal"))
	assert.False(t, ok)
}

func TestLookupErrorUnwraps(t *testing.T) {
	err := &LookupError{ChannelID: "ch-1", Err: ErrNoTicket}
	assert.ErrorIs(t, err, ErrNoTicket)
	assert.Contains(t, err.Error(), "ch-1")
}
