package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownType is returned for frames whose type the client does not handle.
	ErrUnknownType = errors.New("event: unknown frame type")
	// ErrMalformed is returned for frames that are not valid envelopes.
	ErrMalformed = errors.New("event: malformed frame")
)

// Frame types on the wire.
const (
	TypeRoomJoin   = "room_join"
	TypeRoomLeave  = "room_leave"
	TypeDisconnect = "disconnect"
	TypeReady      = "ready"
	TypePoints     = "points"
	TypeTurn       = "turn"
	TypePhase      = "phase"
	TypeSyncClient = "sync_client"
)

// Envelope is the JSON shape of every frame exchanged with the server.
type Envelope struct {
	Type       string `json:"type"`
	ClientID   *int64 `json:"client_id,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	Room       string `json:"room,omitempty"`
	IsQuiet    bool   `json:"is_quiet,omitempty"`
	IsReady    bool   `json:"is_ready,omitempty"`
	Points     int    `json:"points,omitempty"`
	TookTurn   bool   `json:"took_turn,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Choice     string `json:"choice,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if env.Type == TypePhase {
		phase := Phase(env.Phase)
		if !phase.Valid() {
			return nil, fmt.Errorf("%w: phase %q", ErrMalformed, env.Phase)
		}
		return PhaseChange{Phase: phase}, nil
	}

	if env.ClientID == nil {
		switch env.Type {
		case TypeRoomJoin, TypeRoomLeave, TypeDisconnect, TypeReady, TypePoints, TypeTurn, TypeSyncClient:
			return nil, fmt.Errorf("%w: %s frame without client_id", ErrMalformed, env.Type)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	id := ID(*env.ClientID)

	switch env.Type {
	case TypeRoomJoin, TypeRoomLeave:
		return Room{
			ClientID: id,
			Room:     env.Room,
			Join:     env.Type == TypeRoomJoin,
			Quiet:    env.IsQuiet,
			Name:     env.ClientName,
		}, nil
	case TypeDisconnect:
		return Disconnect{ClientID: id}, nil
	case TypeReady:
		return Ready{ClientID: id, Ready: env.IsReady, Quiet: env.IsQuiet}, nil
	case TypePoints:
		return Points{ClientID: id, Points: env.Points}, nil
	case TypeTurn:
		return Turn{ClientID: id, TookTurn: env.TookTurn}, nil
	case TypeSyncClient:
		return ClientSync{ClientID: id, Name: env.ClientName}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// EncodeChoice builds the outbound frame submitting a round choice.
func EncodeChoice(choice string) ([]byte, string, error) {
	requestID := uuid.NewString()
	data, err := json.Marshal(Envelope{Type: TypeTurn, Choice: choice, RequestID: requestID})
	return data, requestID, err
}

// EncodeReady builds the outbound frame marking the local player ready.
func EncodeReady() ([]byte, string, error) {
	requestID := uuid.NewString()
	data, err := json.Marshal(Envelope{Type: TypeReady, IsReady: true, RequestID: requestID})
	return data, requestID, err
}
