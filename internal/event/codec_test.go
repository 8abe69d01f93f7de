package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "room join with name",
			frame: `{"type":"room_join","client_id":7,"client_name":"Bob","room":"lobby","is_quiet":true}`,
			want:  Room{ClientID: 7, Room: "lobby", Join: true, Quiet: true, Name: "Bob"},
		},
		{
			name:  "room leave",
			frame: `{"type":"room_leave","client_id":7,"room":"lobby"}`,
			want:  Room{ClientID: 7, Room: "lobby"},
		},
		{
			name:  "no room resets with default id",
			frame: `{"type":"room_join","client_id":-1}`,
			want:  Room{ClientID: DefaultID, Join: true},
		},
		{
			name:  "disconnect",
			frame: `{"type":"disconnect","client_id":3}`,
			want:  Disconnect{ClientID: 3},
		},
		{
			name:  "ready",
			frame: `{"type":"ready","client_id":3,"is_ready":true}`,
			want:  Ready{ClientID: 3, Ready: true},
		},
		{
			name:  "points zero",
			frame: `{"type":"points","client_id":0,"points":0}`,
			want:  Points{ClientID: 0, Points: 0},
		},
		{
			name:  "turn",
			frame: `{"type":"turn","client_id":4,"took_turn":true}`,
			want:  Turn{ClientID: 4, TookTurn: true},
		},
		{
			name:  "phase",
			frame: `{"type":"phase","phase":"IN_PROGRESS"}`,
			want:  PhaseChange{Phase: PhaseInProgress},
		},
		{
			name:  "sync client",
			frame: `{"type":"sync_client","client_id":9,"client_name":"amy"}`,
			want:  ClientSync{ClientID: 9, Name: "amy"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{name: "not json", frame: `{`, wantErr: ErrMalformed},
		{name: "missing type", frame: `{"client_id":1}`, wantErr: ErrMalformed},
		{name: "bad phase", frame: `{"type":"phase","phase":"LOBBY"}`, wantErr: ErrMalformed},
		{name: "points without id", frame: `{"type":"points","points":3}`, wantErr: ErrMalformed},
		{name: "unknown type", frame: `{"type":"chat","client_id":1}`, wantErr: ErrUnknownType},
		{name: "unknown type without id", frame: `{"type":"chat"}`, wantErr: ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEncodeChoice(t *testing.T) {
	data, requestID, err := EncodeChoice("rock")
	require.NoError(t, err)
	require.NotEmpty(t, requestID)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeTurn, env.Type)
	assert.Equal(t, "rock", env.Choice)
	assert.Equal(t, requestID, env.RequestID)
	assert.Nil(t, env.ClientID)
}

func TestEncodeReady(t *testing.T) {
	data, requestID, err := EncodeReady()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeReady, env.Type)
	assert.True(t, env.IsReady)
	assert.Equal(t, requestID, env.RequestID)
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	assert.Equal(t, "Player 5", d.DisplayName(5))

	d.Remember(5, "Cara")
	d.Remember(5, "")
	d.Remember(DefaultID, "everyone")
	assert.Equal(t, "Cara", d.DisplayName(5))
	assert.Equal(t, "Player -1", d.DisplayName(DefaultID))
}

func TestDirectory_ForgetAndReset(t *testing.T) {
	d := NewDirectory()
	d.Remember(1, "Ann")
	d.Remember(2, "Ben")

	d.Forget(1)
	d.Forget(9)
	assert.Equal(t, "Player 1", d.DisplayName(1))
	assert.Equal(t, "Ben", d.DisplayName(2))
	assert.Equal(t, 1, d.Len())

	d.Reset()
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, "Player 2", d.DisplayName(2))
}
