package race

import "fmt"

// ApplyRosterSnapshot replaces each listed player's record wholesale. Players
// not listed keep their last-known values. Invalid entries are skipped and
// reported together; the rest of the snapshot still applies.
func (s *Session) ApplyRosterSnapshot(players []Player) error {
	var bad []string
	for _, p := range players {
		if p.ID == "" || p.CurrentIndex < 0 || p.MistakeCount < 0 {
			bad = append(bad, p.ID)
			continue
		}
		if s.sentenceSet && p.CurrentIndex > s.sentenceLen {
			p.CurrentIndex = s.sentenceLen
		}
		if _, known := s.roster[p.ID]; !known {
			s.order = append(s.order, p.ID)
			s.colors.Assign(p.ID)
		}
		s.roster[p.ID] = p
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %q", ErrInvalidProgress, bad)
	}
	return nil
}

func (s *Session) Player(id string) (Player, bool) {
	p, ok := s.roster[id]
	return p, ok
}

// Players lists the roster in first-observed order.
func (s *Session) Players() []Player {
	out := make([]Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.roster[id])
	}
	return out
}

func (s *Session) Color(id string) string {
	c, _ := s.colors.Lookup(id)
	return c
}

// Finished reports whether the player has typed the whole sentence.
func (s *Session) Finished(id string) bool {
	p, ok := s.roster[id]
	return ok && s.sentenceSet && p.CurrentIndex == s.sentenceLen
}

// Markers maps a cursor index to the colors of the remote players sitting on
// it, in first-observed order. self is excluded.
func (s *Session) Markers(self string) map[int][]string {
	markers := make(map[int][]string)
	for _, id := range s.order {
		if id == self {
			continue
		}
		p := s.roster[id]
		markers[p.CurrentIndex] = append(markers[p.CurrentIndex], s.Color(id))
	}
	return markers
}
