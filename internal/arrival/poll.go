package arrival

import "fmt"

type phase int

const (
	phaseAbsent phase = iota
	phaseGrowing
	phaseStable
)

func (p phase) String() string {
	switch p {
	case phaseAbsent:
		return "absent"
	case phaseGrowing:
		return "growing"
	case phaseStable:
		return "stable"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// observation is the result of one filesystem probe.
type observation struct {
	path    string
	size    int64
	present bool
}

// pollState tracks one watch session. A file becomes stable only when a
// present, non-empty observation matches the size and path of the one
// immediately before it, so the first sighting is never stable and a file
// that disappears between polls starts over.
type pollState struct {
	phase    phase
	path     string
	lastSize int64
	attempts int
}

func newPollState() pollState {
	return pollState{phase: phaseAbsent, lastSize: -1}
}

func (s *pollState) observe(o observation) phase {
	s.attempts++
	if !o.present {
		s.phase = phaseAbsent
		s.path = ""
		s.lastSize = -1
		return s.phase
	}
	if s.phase != phaseAbsent && o.path == s.path && o.size > 0 && o.size == s.lastSize {
		s.phase = phaseStable
		return s.phase
	}
	s.phase = phaseGrowing
	s.path = o.path
	s.lastSize = o.size
	return s.phase
}
