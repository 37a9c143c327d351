package chat

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is the stance a voter holds on a message.
type Verdict string

const (
	VerdictUpvote   Verdict = "upvote"
	VerdictDownvote Verdict = "downvote"
)

// Valid reports whether the verdict is one of the two known values.
func (v Verdict) Valid() bool {
	return v == VerdictUpvote || v == VerdictDownvote
}

// opposite returns the other verdict.
func (v Verdict) opposite() Verdict {
	if v == VerdictUpvote {
		return VerdictDownvote
	}
	return VerdictUpvote
}

// Message is a chat message record. An empty Recipients slice means the
// message is public; a non-empty slice is exactly the private audience
// (identity IDs), fixed at creation time.
//
// Upvotes and Downvotes are always a projection of Votes: they must equal
// the number of ledger entries holding the matching verdict. ApplyVote is
// the only mutation path and preserves that invariant.
type Message struct {
	ID         uuid.UUID          `json:"id"`
	Author     Identity           `json:"author"`
	Content    string             `json:"content"`
	CreatedAt  time.Time          `json:"created_at"`
	Upvotes    int                `json:"upvotes"`
	Downvotes  int                `json:"downvotes"`
	Votes      map[string]Verdict `json:"votes"`
	Recipients []string           `json:"recipients"`
}

// IsPublic reports whether the message is addressed to everyone.
func (m *Message) IsPublic() bool {
	return len(m.Recipients) == 0
}

// AudienceIDs returns the identities allowed to see a private message:
// the author plus every recipient. For public messages it returns nil.
func (m *Message) AudienceIDs() []string {
	if m.IsPublic() {
		return nil
	}
	ids := make([]string, 0, len(m.Recipients)+1)
	ids = append(ids, m.Author.ID)
	for _, r := range m.Recipients {
		if r != m.Author.ID {
			ids = append(ids, r)
		}
	}
	return ids
}

// ApplyVote applies one voter's verdict to the ledger with toggle semantics:
//   - re-casting the current verdict is a no-op;
//   - switching verdicts moves the vote, decrementing the old counter
//     before incrementing the new one, so no vote is ever double-counted.
//
// Each voter therefore holds at most one active vote per message. It returns
// false when the ledger was left untouched.
//
// The Message itself is not goroutine-safe; callers serialize concurrent
// votes on the same message (see runtime.KeyedMutex).
func (m *Message) ApplyVote(voterID string, verdict Verdict) bool {
	if m.Votes == nil {
		m.Votes = make(map[string]Verdict)
	}

	previous, voted := m.Votes[voterID]
	if voted && previous == verdict {
		return false
	}
	if voted && previous == verdict.opposite() {
		switch previous {
		case VerdictUpvote:
			m.Upvotes--
		case VerdictDownvote:
			m.Downvotes--
		}
	}

	m.Votes[voterID] = verdict
	switch verdict {
	case VerdictUpvote:
		m.Upvotes++
	case VerdictDownvote:
		m.Downvotes++
	}
	return true
}

// TallyOf counts ledger entries holding the given verdict. The counters on
// the message must always agree with this projection.
func (m *Message) TallyOf(verdict Verdict) int {
	n := 0
	for _, v := range m.Votes {
		if v == verdict {
			n++
		}
	}
	return n
}
