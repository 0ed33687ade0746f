// Package protocol defines the race wire messages. Every frame is a UTF-8 JSON
// object whose "type" field names one of the kinds below; the remaining fields
// are the payload of that kind, flattened next to "type".
//
// Client -> Server: JoinRoom, StartGame, ProgressUpdate, GameFinished.
// Server -> Client: Joined, PlayerJoined, GameStarted, PlayerProgress, GameFinished.
package protocol

// DefaultChannel is the room joined when no channel ID is given.
const DefaultChannel = "default"

type Kind string

const (
	KindJoinRoom       Kind = "JoinRoom"
	KindJoined         Kind = "Joined"
	KindPlayerJoined   Kind = "PlayerJoined"
	KindStartGame      Kind = "StartGame"
	KindGameStarted    Kind = "GameStarted"
	KindProgressUpdate Kind = "ProgressUpdate"
	KindPlayerProgress Kind = "PlayerProgress"
	KindGameFinished   Kind = "GameFinished"
)

// Message is the closed set of wire messages. Unknown stands in for any kind
// this build does not recognise.
type Message interface {
	Kind() Kind
	isMessage()
}

// Player is the roster entry carried by Joined, PlayerJoined and PlayerProgress.
// CurrentIndex counts runes of the target sentence.
type Player struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	CurrentIndex int    `json:"currentIndex"`
	MistakeCount int    `json:"mistakeCount,omitempty"`
}

type JoinRoom struct {
	ChannelID   string `json:"channelID"`
	Username    string `json:"username"`
	ResumeToken string `json:"resumeToken,omitempty"`
}

type Joined struct {
	PlayerID       string   `json:"playerID"`
	TargetSentence string   `json:"targetSentence"`
	Players        []Player `json:"players"`
	Status         string   `json:"status,omitempty"`
	ResumeToken    string   `json:"resumeToken,omitempty"`
}

type PlayerJoined struct {
	Players []Player `json:"players"`
}

type StartGame struct{}

type GameStarted struct {
	TargetSentence string `json:"targetSentence"`
}

type ProgressUpdate struct {
	CurrentIndex int `json:"currentIndex"`
	MistakeCount int `json:"mistakeCount"`
}

type PlayerProgress struct {
	Players []Player `json:"players"`
}

// GameFinished travels both ways: clients send it empty on completion, the
// server broadcasts it with the winner's display label.
type GameFinished struct {
	Winner string `json:"winner,omitempty"`
}

type Unknown struct {
	Type string
	Raw  []byte
}

func (JoinRoom) Kind() Kind       { return KindJoinRoom }
func (Joined) Kind() Kind         { return KindJoined }
func (PlayerJoined) Kind() Kind   { return KindPlayerJoined }
func (StartGame) Kind() Kind      { return KindStartGame }
func (GameStarted) Kind() Kind    { return KindGameStarted }
func (ProgressUpdate) Kind() Kind { return KindProgressUpdate }
func (PlayerProgress) Kind() Kind { return KindPlayerProgress }
func (GameFinished) Kind() Kind   { return KindGameFinished }
func (u Unknown) Kind() Kind      { return Kind(u.Type) }

func (JoinRoom) isMessage()       {}
func (Joined) isMessage()         {}
func (PlayerJoined) isMessage()   {}
func (StartGame) isMessage()      {}
func (GameStarted) isMessage()    {}
func (ProgressUpdate) isMessage() {}
func (PlayerProgress) isMessage() {}
func (GameFinished) isMessage()   {}
func (Unknown) isMessage()        {}
