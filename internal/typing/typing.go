package typing

import (
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxMistakes is the number of consecutive mismatches that triggers a critical reset.
const MaxMistakes = 3

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseDone   Phase = "done"
)

type Mark uint8

const (
	MarkNone Mark = iota
	MarkCorrect
	MarkIncorrect
)

type KeyKind string

const (
	KeyChar      KeyKind = "char"
	KeyBackspace KeyKind = "backspace"
	KeyEnter     KeyKind = "enter"
	KeyModifier  KeyKind = "modifier"
)

type Key struct {
	Kind KeyKind
	Char rune
}

func Char(r rune) Key { return Key{Kind: KeyChar, Char: r} }

var Backspace = Key{Kind: KeyBackspace}

// ParseKey maps a keyboard key name ("a", "Backspace", "Shift", ...) to a Key.
// Anything that is neither a single character, Backspace nor Enter is treated
// as a modifier and ignored by Apply.
func ParseKey(name string) Key {
	switch name {
	case "Backspace":
		return Backspace
	case "Enter":
		return Key{Kind: KeyEnter}
	}
	r := []rune(name)
	if len(r) == 1 {
		return Char(r[0])
	}
	return Key{Kind: KeyModifier}
}

type EventType string

const (
	EvtAdvanced       EventType = "Advanced"
	EvtMismatch       EventType = "Mismatch"
	EvtRetreated      EventType = "Retreated"
	EvtResetScheduled EventType = "ResetScheduled"
	EvtReset          EventType = "Reset"
	EvtCompleted      EventType = "Completed"
)

// Event records one observable step of a transition. Index is the cursor
// position the step refers to.
type Event struct {
	Type  EventType
	Index int
}

// State is one client's view of its own progress through the target.
// Indexes count runes, not bytes.
type State struct {
	Phase        Phase
	Target       []rune
	Index        int
	Mistakes     int
	Marks        []Mark
	ResetPending bool
}

func New(target string) State {
	t := []rune(target)
	return State{
		Phase:  PhaseIdle,
		Target: t,
		Marks:  make([]Mark, len(t)),
	}
}

func (s State) Len() int { return len(s.Target) }

// Changed reports whether the cursor or the mistake counter differ from prev,
// i.e. whether the transition from prev needs to be published.
func (s State) Changed(prev State) bool {
	return s.Index != prev.Index || s.Mistakes != prev.Mistakes
}

func (s State) clone() State {
	ns := s
	ns.Marks = append([]Mark(nil), s.Marks...)
	return ns
}

// Start moves an idle state to active, or straight to done for an empty target.
func Start(s State) State {
	if s.Phase != PhaseIdle {
		return s
	}
	ns := s.clone()
	ns.Phase = PhaseActive
	if ns.Index >= ns.Len() {
		ns.Phase = PhaseDone
	}
	return ns
}

// Seed places the cursor at index, marking everything before it correct. It is
// used when the server hands back previously recorded progress.
func Seed(s State, index int) State {
	ns := s.clone()
	index = max(0, min(index, ns.Len()))
	for i := range ns.Marks {
		ns.Marks[i] = MarkNone
		if i < index {
			ns.Marks[i] = MarkCorrect
		}
	}
	ns.Index = index
	ns.Mistakes = 0
	ns.ResetPending = false
	if ns.Phase != PhaseIdle && index == ns.Len() {
		ns.Phase = PhaseDone
	}
	return ns
}

// Apply runs one key against the state. Input outside the active phase and
// keys with no meaning (modifiers, Enter, backspace at 0) return no events and
// the state unchanged.
func Apply(s State, k Key) ([]Event, State) {
	if s.Phase != PhaseActive || s.Index >= s.Len() {
		return nil, s
	}

	switch k.Kind {
	case KeyBackspace:
		if s.Index == 0 {
			return nil, s
		}
		ns := s.clone()
		ns.Index--
		ns.Marks[ns.Index] = MarkNone
		ns.Mistakes = 0
		return []Event{{Type: EvtRetreated, Index: ns.Index}}, ns

	case KeyChar:
		ns := s.clone()
		if !equalFold(k.Char, s.Target[s.Index]) {
			ns.Mistakes++
			ns.Marks[ns.Index] = MarkIncorrect
			events := []Event{{Type: EvtMismatch, Index: ns.Index}}
			// one reset per breach; further misses while it is pending only count
			if ns.Mistakes >= MaxMistakes && !ns.ResetPending {
				ns.ResetPending = true
				events = append(events, Event{Type: EvtResetScheduled, Index: ns.Index})
			}
			return events, ns
		}

		ns.Marks[ns.Index] = MarkCorrect
		ns.Index++
		ns.Mistakes = 0
		events := []Event{{Type: EvtAdvanced, Index: ns.Index}}
		if ns.Index == ns.Len() {
			ns.Phase = PhaseDone
			events = append(events, Event{Type: EvtCompleted, Index: ns.Index})
		}
		return events, ns

	default:
		return nil, s
	}
}

// Reset performs the critical reset scheduled by a mistake-limit breach. It is
// a no-op unless a reset is pending and the state is still active.
func Reset(s State) ([]Event, State) {
	if s.Phase != PhaseActive || !s.ResetPending {
		return nil, s
	}
	ns := s.clone()
	ns.Index = 0
	ns.Mistakes = 0
	ns.ResetPending = false
	for i := range ns.Marks {
		ns.Marks[i] = MarkNone
	}
	return []Event{{Type: EvtReset}}, ns
}

// ClearMismatch drops the transient incorrect flag at index, if still set.
func ClearMismatch(s State, index int) State {
	if index < 0 || index >= len(s.Marks) || s.Marks[index] != MarkIncorrect {
		return s
	}
	ns := s.clone()
	ns.Marks[index] = MarkNone
	return ns
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	lower := lowerPool.Get().(*cases.Caser)
	defer lowerPool.Put(lower)
	return lower.String(string(a)) == lower.String(string(b))
}

// Casers keep state between calls, so each goroutine borrows its own.
var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}
