package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeMap(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func TestEncode_FlattensPayloadNextToType(t *testing.T) {
	data, err := Encode(ProgressUpdate{CurrentIndex: 4, MistakeCount: 1})
	require.NoError(t, err)

	payload := decodeMap(t, data)
	assert.Equal(t, "ProgressUpdate", payload["type"])
	assert.Equal(t, float64(4), payload["currentIndex"])
	assert.Equal(t, float64(1), payload["mistakeCount"])
}

func TestEncode_EmptyPayload(t *testing.T) {
	data, err := Encode(StartGame{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"StartGame"}`, string(data))

	data, err = Encode(GameFinished{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"GameFinished"}`, string(data))
}

func TestEncode_WireFieldNames(t *testing.T) {
	data, err := Encode(JoinRoom{ChannelID: "default", Username: "ana"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"JoinRoom","channelID":"default","username":"ana"}`, string(data))

	data, err = Encode(Joined{
		PlayerID:       "p1",
		TargetSentence: "Go routines are powerful",
		Players:        []Player{{ID: "p1", Username: "ana", CurrentIndex: 0}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"Joined",
		"playerID":"p1",
		"targetSentence":"Go routines are powerful",
		"players":[{"id":"p1","username":"ana","currentIndex":0}]
	}`, string(data))
}

func TestEncode_RejectsUnknown(t *testing.T) {
	_, err := Encode(Unknown{Type: "Chat"})
	assert.True(t, errors.Is(err, ErrUnencodable))

	_, err = Encode(nil)
	assert.True(t, errors.Is(err, ErrUnencodable))
}

func TestDecode_Variants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "player progress",
			raw:  `{"type":"PlayerProgress","players":[{"id":"a","username":"A","currentIndex":2}]}`,
			want: PlayerProgress{Players: []Player{{ID: "a", Username: "A", CurrentIndex: 2}}},
		},
		{
			name: "game started",
			raw:  `{"type":"GameStarted","targetSentence":"hi"}`,
			want: GameStarted{TargetSentence: "hi"},
		},
		{
			name: "game finished with winner",
			raw:  `{"type":"GameFinished","winner":"ana"}`,
			want: GameFinished{Winner: "ana"},
		},
		{
			name: "joined with resume token",
			raw:  `{"type":"Joined","playerID":"p","targetSentence":"x","players":[],"status":"playing","resumeToken":"tok"}`,
			want: Joined{PlayerID: "p", TargetSentence: "x", Players: []Player{}, Status: "playing", ResumeToken: "tok"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Decode([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, m)
		})
	}
}

func TestDecode_UnknownKindIsNotAnError(t *testing.T) {
	m, err := Decode([]byte(`{"type":"Emote","emoji":"wave"}`))
	require.NoError(t, err)

	u, ok := m.(Unknown)
	require.True(t, ok, "got %T", m)
	assert.Equal(t, Kind("Emote"), u.Kind())
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"currentIndex":1}`,
		`{"type":"ProgressUpdate","currentIndex":"one"}`,
	} {
		_, err := Decode([]byte(raw))
		assert.True(t, errors.Is(err, ErrMalformed), "input %s: %v", raw, err)
	}
}
