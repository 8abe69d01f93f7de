// Package event defines the notifications the room server pushes to the
// client, as a closed set of types consumed by one exhaustive switch.
package event

import "strconv"

// ID identifies a connected client for the lifetime of its connection.
type ID int64

// DefaultID is the reserved broadcast identifier. On score, turn and ready
// events it means "every participant"; on room events it means "no room".
const DefaultID ID = -1

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Phase is the server-side round phase.
type Phase string

const (
	// PhaseReady is the state between rounds, while players mark themselves ready.
	PhaseReady Phase = "READY"
	// PhaseInProgress is an open round accepting choices.
	PhaseInProgress Phase = "IN_PROGRESS"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p == PhaseReady || p == PhaseInProgress
}

// Event is one server notification. The set of implementations is closed.
type Event interface {
	Kind() string
	isEvent()
}

// Room reports a client joining or leaving the current room. Name is set
// when the frame carried the client's display name.
type Room struct {
	ClientID ID
	Room     string
	Join     bool
	Quiet    bool
	Name     string
}

// Disconnect reports a client dropping its connection.
type Disconnect struct {
	ClientID ID
}

// Ready reports a client's ready flag.
type Ready struct {
	ClientID ID
	Ready    bool
	Quiet    bool
}

// Points reports a client's total score.
type Points struct {
	ClientID ID
	Points   int
}

// Turn reports whether a client has submitted a choice this round.
type Turn struct {
	ClientID ID
	TookTurn bool
}

// PhaseChange reports the round phase.
type PhaseChange struct {
	Phase Phase
}

// ClientSync announces a client's display name without changing the roster.
type ClientSync struct {
	ClientID ID
	Name     string
}

func (Room) Kind() string        { return "room" }
func (Disconnect) Kind() string  { return "disconnect" }
func (Ready) Kind() string       { return "ready" }
func (Points) Kind() string      { return "points" }
func (Turn) Kind() string        { return "turn" }
func (PhaseChange) Kind() string { return "phase" }
func (ClientSync) Kind() string  { return "sync_client" }

func (Room) isEvent()        {}
func (Disconnect) isEvent()  {}
func (Ready) isEvent()       {}
func (Points) isEvent()      {}
func (Turn) isEvent()        {}
func (PhaseChange) isEvent() {}
func (ClientSync) isEvent()  {}
