// Package chat contains the core concepts of the relay: identities,
// messages and their vote ledger, and the commands clients can emit.
// No runtime, network, or storage logic should be added here.
package chat

// Identity is a verified user reference. It is created by the account
// system and is immutable as far as the relay is concerned; other
// entities reference it, never own it.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
