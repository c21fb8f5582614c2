package sim

import "sort"

// FrameSummary lists the combat effects (Damaged and Died) each unit received in one
// frame, in the order they were applied.
type FrameSummary struct {
	Frame   int
	Effects map[UnitID][]Effect
}

func newFrameSummary(frame int) FrameSummary {
	return FrameSummary{Frame: frame, Effects: make(map[UnitID][]Effect)}
}

func (s *FrameSummary) record(e Effect) {
	id := e.Subject()
	s.Effects[id] = append(s.Effects[id], e)
}

// For returns the effects recorded for one unit.
func (s FrameSummary) For(id UnitID) []Effect { return s.Effects[id] }

// Units returns the affected unit ids in ascending order.
func (s FrameSummary) Units() []UnitID {
	out := make([]UnitID, 0, len(s.Effects))
	for id := range s.Effects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Empty reports whether nothing combat-relevant happened.
func (s FrameSummary) Empty() bool { return len(s.Effects) == 0 }

// Hits returns every Damaged effect of the frame, ordered by target id.
func (s FrameSummary) Hits() []Damaged {
	var out []Damaged
	for _, id := range s.Units() {
		for _, e := range s.Effects[id] {
			if d, ok := e.(Damaged); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

// Deaths returns the ids of units that died this frame, ascending.
func (s FrameSummary) Deaths() []UnitID {
	var out []UnitID
	for _, id := range s.Units() {
		for _, e := range s.Effects[id] {
			if _, ok := e.(Died); ok {
				out = append(out, id)
			}
		}
	}
	return out
}
