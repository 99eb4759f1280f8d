// Package tickets implements the support ticket lifecycle: a private
// per-user channel created under the ticket category, closed by
// revoking the owner's view permission, and finally archived and
// deleted. Ticket state is never stored in a database; it is derived
// on demand from channel metadata (category membership, permission
// overwrites and the encoded topic).
package tickets

// Ticket represents one open or closed support conversation.
type Ticket struct {
	// Owner is the user who opened the ticket. Immutable.
	Owner string

	// Channel is the backing ticket channel. Immutable.
	Channel string

	// Topic is the decoded channel topic: label plus open/closed state.
	Topic Topic

	// IsNew distinguishes "just created" from "found existing". Not
	// persisted anywhere.
	IsNew bool
}
