package race

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/BigMop13/final-sentence-dis-version/internal/palette"
)

var ErrSentenceConflict = errors.New("target sentence already set")
var ErrStatusRegression = errors.New("status cannot move backwards")
var ErrStatusSkip = errors.New("status cannot skip a step")
var ErrInvalidProgress = errors.New("invalid player progress")
var ErrUnknownStatus = errors.New("unknown status")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusPlaying:
		return 1
	case StatusFinished:
		return 2
	default:
		return -1
	}
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.rank() >= 0
}

type Player struct {
	ID           string
	Username     string
	CurrentIndex int
	MistakeCount int
}

// Session is one client's copy of the room: status, target sentence and the
// last-known progress of every player it has heard about.
type Session struct {
	ChannelID string

	sentence    string
	sentenceLen int
	sentenceSet bool
	status      Status
	winner      string

	roster map[string]Player
	order  []string // first-observed order
	colors *palette.Assignor
}

func NewSession(channelID string, colors *palette.Assignor) *Session {
	if colors == nil {
		colors = palette.New(nil)
	}
	return &Session{
		ChannelID: channelID,
		status:    StatusWaiting,
		roster:    make(map[string]Player),
		colors:    colors,
	}
}

func (s *Session) Status() Status   { return s.status }
func (s *Session) Sentence() string { return s.sentence }
func (s *Session) Winner() string   { return s.winner }

// SentenceLen is the target length in runes.
func (s *Session) SentenceLen() int { return s.sentenceLen }

func (s *Session) HasSentence() bool { return s.sentenceSet }

// SetTargetSentence accepts the first value only. A differing later value is a
// protocol anomaly and is rejected; repeating the same value is fine.
func (s *Session) SetTargetSentence(sentence string) error {
	if s.sentenceSet {
		if sentence != s.sentence {
			return fmt.Errorf("%w: have %q, got %q", ErrSentenceConflict, s.sentence, sentence)
		}
		return nil
	}
	s.sentence = sentence
	s.sentenceLen = utf8.RuneCountInString(sentence)
	s.sentenceSet = true

	// entries that arrived before the sentence may be out of range
	for id, p := range s.roster {
		p.CurrentIndex = min(p.CurrentIndex, s.sentenceLen)
		s.roster[id] = p
	}
	return nil
}

// ApplyStatusTransition moves status one step forward. Repeating the current
// status is a no-op; anything else is rejected. It reports whether the status
// changed.
func (s *Session) ApplyStatusTransition(next Status) (bool, error) {
	switch {
	case next.rank() < 0:
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	case next == s.status:
		return false, nil
	case next.rank() < s.status.rank():
		return false, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, s.status, next)
	case next.rank() > s.status.rank()+1:
		return false, fmt.Errorf("%w: %s -> %s", ErrStatusSkip, s.status, next)
	}
	s.status = next
	return true, nil
}

// MarkFinished forces the finished status and records the winner label. Only
// the first call has any effect.
func (s *Session) MarkFinished(winner string) bool {
	if s.status == StatusFinished {
		return false
	}
	s.status = StatusFinished
	s.winner = winner
	return true
}
