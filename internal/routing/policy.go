package routing

import "regexp"

// BlockedActionNote is returned to the user when a destructive request
// is refused. Destructive account changes must go through the Console.
const BlockedActionNote = "Action blocked in chat. Use Console."

var (
	destructiveVerb   = regexp.MustCompile(`(?i)\b(delete|remove|disable|drop|destroy|erase|purge)\b`)
	destructiveObject = regexp.MustCompile(`(?i)\b(website|site|profile|account|team|rule|domain)\b`)
)

// IsDestructive reports whether the message asks for a destructive
// operation on a protected object. Both a verb and an object must be
// present; either alone is harmless.
func IsDestructive(message string) bool {
	return destructiveVerb.MatchString(message) && destructiveObject.MatchString(message)
}
