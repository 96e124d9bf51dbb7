package tvilling

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind names a collection kind.
type RefKind string

const (
	RefUnassigned RefKind = "unassigned"
	RefDiscarded  RefKind = "discarded"
	RefMatch      RefKind = "match"
)

// Side is a side of a match, as used in export names.
type Side string

const (
	SideLeft  Side = "L"
	SideRight Side = "R"
)

// Ref addresses one collection of a project.
type Ref struct {
	Kind    RefKind
	MatchID int
	Side    Side
}

func (r Ref) String() string {
	if r.Kind == RefMatch {
		return fmt.Sprintf("%d%s", r.MatchID, r.Side)
	}
	return string(r.Kind)
}

// ParseRef parses "unassigned", "discarded", or a match id followed by L or R.
func ParseRef(s string) (Ref, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case string(RefUnassigned):
		return Ref{Kind: RefUnassigned}, nil
	case string(RefDiscarded):
		return Ref{Kind: RefDiscarded}, nil
	}

	if len(s) < 2 {
		return Ref{}, fmt.Errorf("invalid collection reference %q", s)
	}
	side := Side(strings.ToUpper(s[len(s)-1:]))
	if side != SideLeft && side != SideRight {
		return Ref{}, fmt.Errorf("invalid side in %q: want L or R", s)
	}
	id, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || id <= 0 {
		return Ref{}, fmt.Errorf("invalid match id in %q", s)
	}
	return Ref{Kind: RefMatch, MatchID: id, Side: side}, nil
}
