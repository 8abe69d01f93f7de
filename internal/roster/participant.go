package roster

import "rpsboard/internal/event"

// UnsetScore marks a participant the server has not scored yet. It ranks as
// zero and its score label stays hidden.
const UnsetScore = -1

// Turn is the per-round indicator state of a participant.
type Turn uint8

const (
	// TurnPending means the participant has not acted this round.
	TurnPending Turn = iota
	// TurnActed means the participant took a turn or marked ready.
	TurnActed
	// TurnReset means a broadcast cleared the indicator. It renders like TurnPending.
	TurnReset
)

func (t Turn) String() string {
	switch t {
	case TurnActed:
		return "acted"
	case TurnReset:
		return "reset"
	default:
		return "pending"
	}
}

// Hint selects the indicator color for an acted participant.
type Hint string

const (
	HintNone  Hint = ""
	HintTurn  Hint = "turn"  // green: took a turn
	HintReady Hint = "ready" // gray: marked ready
)

// Participant is one connected player as shown in the roster.
type Participant struct {
	ID    event.ID
	Name  string
	Score int
	Turn  Turn
	Hint  Hint

	joined uint64
}

// ScoreVisible reports whether the score label should be shown.
func (p Participant) ScoreVisible() bool {
	return p.Score >= 0
}

// RankScore is the score used for ordering; unset and negative scores count as zero.
func (p Participant) RankScore() int {
	if p.Score < 0 {
		return 0
	}
	return p.Score
}

// Acted reports whether the indicator is lit.
func (p Participant) Acted() bool {
	return p.Turn == TurnActed
}
