package actions

import (
	"fmt"
	"strings"
)

// UnknownActionError reports an action id that is not in the registry.
type UnknownActionError struct {
	ID string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action id: %s", e.ID)
}

// ValidationError reports every missing requirement at once so the
// caller can fix them in a single round trip.
type ValidationError struct {
	Missing []string
	Hint    string
}

func (e *ValidationError) Error() string {
	msg := "missing required context: " + strings.Join(e.Missing, ", ")
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// MissingPathParamError reports endpoint path tokens that could not be
// filled from context. All unresolved tokens are listed.
type MissingPathParamError struct {
	Tokens []string
}

func (e *MissingPathParamError) Error() string {
	return "missing path params: " + strings.Join(e.Tokens, ", ")
}
