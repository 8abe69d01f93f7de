// Package roster keeps the ranked list of connected players and reconciles it
// against the server's event stream.
//
// A Roster is not safe for concurrent use. Every call must come from the
// single goroutine that consumes server events; the rendered rows handed to
// the Sink are copies and may be shared freely.
package roster

import (
	"log/slog"

	"rpsboard/internal/event"
)

// Sink receives the roster's rendered output.
type Sink interface {
	// RosterChanged is called with the full ranking after every mutation.
	RosterChanged(rows []Row)
	// SessionEnded is called once per InProgress to Ready transition with a
	// non-empty roster.
	SessionEnded(summary Summary)
}

type nopSink struct{}

func (nopSink) RosterChanged([]Row)   {}
func (nopSink) SessionEnded(Summary) {}

// Roster owns the participant set.
type Roster struct {
	logger  *slog.Logger
	sink    Sink
	members map[event.ID]*Participant
	seq     uint64

	lastPhase event.Phase
}

// New creates an empty roster. A nil sink discards output.
func New(logger *slog.Logger, sink Sink) *Roster {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Roster{
		logger:    logger,
		sink:      sink,
		members:   make(map[event.ID]*Participant),
		lastPhase: event.PhaseReady,
	}
}

// Add inserts a participant with an unset score. It returns false, and does
// not re-render, when id is already present.
func (r *Roster) Add(id event.ID, name string) bool {
	if _, ok := r.members[id]; ok {
		r.logger.Warn("participant already in roster", "client_id", id, "name", name)
		return false
	}
	r.seq++
	r.members[id] = &Participant{
		ID:     id,
		Name:   name,
		Score:  UnsetScore,
		Turn:   TurnPending,
		joined: r.seq,
	}
	r.logger.Info("participant added", "client_id", id, "name", name)
	r.render()
	return true
}

// Remove deletes a participant. Unknown ids are ignored.
func (r *Roster) Remove(id event.ID) bool {
	_, ok := r.members[id]
	if ok {
		delete(r.members, id)
		r.logger.Info("participant removed", "client_id", id)
	} else {
		r.logger.Debug("remove for unknown participant", "client_id", id)
	}
	r.render()
	return ok
}

// Clear empties the roster and returns how many participants were dropped.
func (r *Roster) Clear() int {
	n := len(r.members)
	clear(r.members)
	r.logger.Info("roster cleared", "removed", n)
	r.render()
	return n
}

// SetScore updates a participant's score. DefaultID resets every score to
// unset. It returns false when id is unknown.
func (r *Roster) SetScore(id event.ID, score int) bool {
	if id == event.DefaultID {
		for _, p := range r.members {
			p.Score = UnsetScore
		}
		r.render()
		return true
	}
	p, ok := r.lookup(id, "points")
	if !ok {
		return false
	}
	p.Score = score
	r.render()
	return true
}

// SetTurn lights or clears the turn indicator. DefaultID resets everyone.
func (r *Roster) SetTurn(id event.ID, tookTurn bool) bool {
	return r.setIndicator(id, tookTurn, HintTurn, "turn")
}

// SetReady lights or clears the ready indicator. DefaultID resets everyone.
// quiet only matters to textual notices and does not change rendering.
func (r *Roster) SetReady(id event.ID, isReady, quiet bool) bool {
	if id != event.DefaultID {
		r.logger.Debug("ready state", "client_id", id, "ready", isReady, "quiet", quiet)
	}
	return r.setIndicator(id, isReady, HintReady, "ready")
}

func (r *Roster) setIndicator(id event.ID, acted bool, hint Hint, kind string) bool {
	if id == event.DefaultID {
		for _, p := range r.members {
			p.Turn = TurnReset
			p.Hint = HintNone
		}
		r.render()
		return true
	}
	p, ok := r.lookup(id, kind)
	if !ok {
		return false
	}
	if acted {
		p.Turn = TurnActed
		p.Hint = hint
	} else {
		p.Turn = TurnPending
		p.Hint = HintNone
	}
	r.render()
	return true
}

// ObservePhase records the round phase and emits the final summary when an
// InProgress phase is followed by Ready. It reports whether a summary was
// emitted.
func (r *Roster) ObservePhase(phase event.Phase) bool {
	previous := r.lastPhase
	r.lastPhase = phase
	if previous == event.PhaseInProgress && phase == event.PhaseReady {
		return r.emitSummary()
	}
	return false
}

// LastPhase returns the most recently observed phase.
func (r *Roster) LastPhase() event.Phase {
	return r.lastPhase
}

// Rows returns the current ranking.
func (r *Roster) Rows() []Row {
	participants := make([]Participant, 0, len(r.members))
	for _, p := range r.members {
		participants = append(participants, *p)
	}
	return Rank(participants)
}

// Summary builds the final scoreboard from the current ranking.
func (r *Roster) Summary() (Summary, bool) {
	rows := r.Rows()
	if len(rows) == 0 {
		return Summary{}, false
	}
	return Summary{Rows: rows}, true
}

// Get returns a copy of one participant.
func (r *Roster) Get(id event.ID) (Participant, bool) {
	p, ok := r.members[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	return len(r.members)
}

func (r *Roster) lookup(id event.ID, kind string) (*Participant, bool) {
	p, ok := r.members[id]
	if !ok {
		r.logger.Warn("update for unknown participant", "client_id", id, "kind", kind)
	}
	return p, ok
}

func (r *Roster) render() {
	r.sink.RosterChanged(r.Rows())
}

func (r *Roster) emitSummary() bool {
	summary, ok := r.Summary()
	if !ok {
		r.logger.Info("session ended with an empty roster, no scoreboard")
		return false
	}
	r.logger.Info("session ended", "participants", len(summary.Rows))
	r.sink.SessionEnded(summary)
	return true
}
