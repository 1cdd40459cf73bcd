package query

import (
	"strings"

	"github.com/tychodb/tycho/path"
)

// Direction is a Sort Term's ordering direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

type sortTerm struct {
	path      path.Path
	direction Direction
}

// Sort is a fluent, ordered accumulator of Sort Terms (spec.md §3/§4.4).
type Sort struct {
	terms []sortTerm
}

// NewSort returns an empty Sort.
func NewSort() *Sort {
	return &Sort{}
}

// Empty reports whether the sort has no terms.
func (s *Sort) Empty() bool {
	return s == nil || len(s.terms) == 0
}

// OrderByAsc appends an ascending sort term on p.
func (s *Sort) OrderByAsc(p path.Path) *Sort {
	s.terms = append(s.terms, sortTerm{path: p, direction: Asc})
	return s
}

// OrderByDesc appends a descending sort term on p.
func (s *Sort) OrderByDesc(p path.Path) *Sort {
	s.terms = append(s.terms, sortTerm{path: p, direction: Desc})
	return s
}

// Render compiles the accumulated terms into an `ORDER BY …` clause.
// Returns the empty string when the sort has no terms (spec.md §4.4).
// Extraction always uses the JSON path operator, never a cast, so
// ordering is lexicographic; callers who need numeric ordering must pick
// a numeric-flagged path and are responsible for the comparison semantics
// that implies.
func (s *Sort) Render() string {
	if s.Empty() {
		return ""
	}
	var parts []string
	for _, t := range s.terms {
		dir := "ASC"
		if t.direction == Desc {
			dir = "DESC"
		}
		parts = append(parts, "(Data ->> '"+t.path.String()+"') "+dir)
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
