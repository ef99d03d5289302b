package shipkit

import (
	"errors"
	"fmt"
)

// errNoCandidate is returned when no candidate exists and there is no way
// to construct a default.
var errNoCandidate = errors.New("no candidate location exists")

// Candidate is one location an input may live at.
type Candidate struct {
	Label string
	Path  string
}

// Resolution is the frozen outcome of resolving a set of candidates.
type Resolution struct {
	Path    string
	Label   string
	Created bool
}

// Found reports whether the resolution produced a path.
func (r Resolution) Found() bool { return r.Path != "" }

func (r Resolution) String() string {
	switch {
	case !r.Found():
		return "none"
	case r.Created:
		return fmt.Sprintf("%s (created, %s)", r.Path, r.Label)
	default:
		return fmt.Sprintf("%s (%s)", r.Path, r.Label)
	}
}

// resolveCandidates returns the first candidate that exists, in order. When
// none exists, construct (if non-nil) builds a default and reports where.
func resolveCandidates(candidates []Candidate, construct func() (Candidate, error)) (Resolution, error) {
	for _, c := range candidates {
		if c.Path != "" && pathExists(c.Path) {
			return Resolution{Path: c.Path, Label: c.Label}, nil
		}
	}
	if construct == nil {
		return Resolution{}, errNoCandidate
	}
	c, err := construct()
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Path: c.Path, Label: c.Label, Created: true}, nil
}
