package types

import (
	"time"

	"github.com/google/uuid"
)

// RankedCandidate is one oracle-ranked catalog entry. Order within a
// session's candidate list is the oracle's order and is never re-sorted.
type RankedCandidate struct {
	Resource ResourceRecord `json:"resource"`
	Reason   string         `json:"reason,omitempty"`
}

type MatchTurnRole string

const (
	TurnRoleUser      MatchTurnRole = "user"
	TurnRoleAssistant MatchTurnRole = "assistant"
)

type MatchTurn struct {
	Role    MatchTurnRole `json:"role"`
	Content string        `json:"content"`
	At      time.Time     `json:"at"`
}

// MaxTranscriptTurns bounds the refinement transcript; older turns fall off
// the front.
const MaxTranscriptTurns = 20

// MatchSession is the ephemeral per-(client, category) state of an
// interactive matching session. It is never persisted to the database.
type MatchSession struct {
	ClientID     uuid.UUID         `json:"client_id"`
	Category     Category          `json:"category"`
	Candidates   []RankedCandidate `json:"candidates"`
	Rationale    string            `json:"rationale"`
	Transcript   []MatchTurn       `json:"transcript"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
}

// AppendTurns returns the transcript with the new turns applied and the
// length cap enforced. The receiver is not mutated.
func (s *MatchSession) AppendTurns(turns ...MatchTurn) []MatchTurn {
	out := make([]MatchTurn, 0, len(s.Transcript)+len(turns))
	out = append(out, s.Transcript...)
	out = append(out, turns...)
	if len(out) > MaxTranscriptTurns {
		out = out[len(out)-MaxTranscriptTurns:]
	}
	return out
}
