package activity

// Kind is the learner action a record describes.
type Kind string

const (
	KindExecute Kind = "execute"
	KindChat    Kind = "chat"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindExecute || k == KindChat
}

// Record is one entry in the local activity log: a Run Code click or a chat message,
// and whether the gateway or the local fallback answered it.
// Code and message text are never stored, only their size.
type Record struct {
	// ID is a ULID that uniquely identifies this record
	ID string

	// Kind is execute or chat
	Kind Kind

	// Source is "remote" or "simulated"
	Source string

	// Reason is why the fallback fired (empty for remote results)
	Reason string

	// Topic is the tutor topic of a simulated chat reply (nullable)
	Topic *string

	// InputChars is the rune count of the submitted code or question
	InputChars int

	// CreatedAt is the Unix timestamp of the action
	CreatedAt int64
}
