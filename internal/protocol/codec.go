package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnencodable = errors.New("message cannot be encoded")

type envelope struct {
	Type Kind `json:"type"`
}

var decoders = map[Kind]func([]byte) (Message, error){
	KindJoinRoom:       decodeAs[JoinRoom],
	KindJoined:         decodeAs[Joined],
	KindPlayerJoined:   decodeAs[PlayerJoined],
	KindStartGame:      decodeAs[StartGame],
	KindGameStarted:    decodeAs[GameStarted],
	KindProgressUpdate: decodeAs[ProgressUpdate],
	KindPlayerProgress: decodeAs[PlayerProgress],
	KindGameFinished:   decodeAs[GameFinished],
}

func decodeAs[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode renders m as a single JSON object with the "type" discriminator
// followed by the payload fields.
func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, ErrUnencodable
	}
	if _, ok := m.(Unknown); ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrUnencodable, m.Kind())
	}

	head, err := json.Marshal(envelope{Type: m.Kind()})
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	if string(body) == "{}" {
		return head, nil
	}

	// {"type":"X"} + {"a":1} -> {"type":"X","a":1}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// Decode parses one frame. Frames of an unrecognised kind decode to Unknown
// without error so newer peers never break the connection.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	decode, ok := decoders[env.Type]
	if !ok {
		return Unknown{Type: string(env.Type), Raw: append([]byte(nil), data...)}, nil
	}
	m, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return m, nil
}
