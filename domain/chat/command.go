package chat

import (
	"time"

	"github.com/google/uuid"
)

// Commands are the validated intents a connected client can emit. The
// gateway fills in the sender from the verified connection identity; the
// payload never decides who it speaks as.

type PostPublicCommand struct {
	Sender    Identity
	Content   string
	CreatedAt time.Time
}

type PostPrivateCommand struct {
	Sender     Identity
	Content    string
	Recipients []string // usernames, resolved to identities before persisting
	CreatedAt  time.Time
}

type VoteCommand struct {
	Voter     Identity
	MessageID uuid.UUID
	Verdict   Verdict
}
