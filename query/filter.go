// Package query implements the Filter Builder (C3) and Sort Builder (C4):
// fluent accumulators of predicate/sort nodes that render to parameterized
// SQL fragments over the JsonValue table's Data column.
package query

import (
	"fmt"
	"strings"

	"github.com/tychodb/tycho/path"
)

// Comparator is one of the scalar comparators spec.md §4.3 names.
type Comparator uint8

const (
	Equals Comparator = iota
	NotEquals
	StartsWith
	EndsWith
	Contains
	GreaterThan
	GreaterThanOrEqualTo
	LessThan
	LessThanOrEqualTo
)

func (c Comparator) isRange() bool {
	switch c {
	case GreaterThan, GreaterThanOrEqualTo, LessThan, LessThanOrEqualTo:
		return true
	default:
		return false
	}
}

func (c Comparator) isLike() bool {
	switch c {
	case StartsWith, EndsWith, Contains:
		return true
	default:
		return false
	}
}

func (c Comparator) sqlOp() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqualTo:
		return ">="
	case LessThan:
		return "<"
	case LessThanOrEqualTo:
		return "<="
	case StartsWith, EndsWith, Contains:
		return "LIKE"
	default:
		return "="
	}
}

// JoinKind is a connective/grouping node in a Filter.
type JoinKind uint8

const (
	And JoinKind = iota
	Or
	OpenGroup
	CloseGroup
)

func (j JoinKind) sql() string {
	switch j {
	case And:
		return "AND"
	case Or:
		return "OR"
	case OpenGroup:
		return "("
	case CloseGroup:
		return ")"
	default:
		return "AND"
	}
}

type nodeKind uint8

const (
	nodeJoin nodeKind = iota
	nodePredicate
	nodeSubtreePredicate
)

type node struct {
	kind nodeKind
	join JoinKind

	// predicate / subtree predicate fields
	path       path.Path // scalar path, or array path for subtree
	itemPath   path.Path // inner path, subtree only
	comparator Comparator
	value      any
}

// TimeFormatter renders a value to the codec's canonical datetime textual
// form, used when comparing a datetime path. The Document Engine passes a
// closure over codec.FormatTime here, which keeps this package decoupled
// from the codec package.
type TimeFormatter func(value any) (string, bool)

// Filter is a fluent, ordered accumulator of Filter Nodes (spec.md §3/§4.3).
type Filter struct {
	nodes []node
}

// New returns an empty Filter.
func New() *Filter {
	return &Filter{}
}

// Empty reports whether the filter has no nodes.
func (f *Filter) Empty() bool {
	return f == nil || len(f.nodes) == 0
}

func (f *Filter) pushJoin(k JoinKind) *Filter {
	f.nodes = append(f.nodes, node{kind: nodeJoin, join: k})
	return f
}

// And appends an explicit AND connective.
func (f *Filter) And() *Filter { return f.pushJoin(And) }

// Or appends an explicit OR connective.
func (f *Filter) Or() *Filter { return f.pushJoin(Or) }

// OpenGroup appends a literal "(".
func (f *Filter) OpenGroup() *Filter { return f.pushJoin(OpenGroup) }

// CloseGroup appends a literal ")".
func (f *Filter) CloseGroup() *Filter { return f.pushJoin(CloseGroup) }

// Where appends a simple scalar predicate on p.
func (f *Filter) Where(p path.Path, cmp Comparator, value any) *Filter {
	f.nodes = append(f.nodes, node{kind: nodePredicate, path: p, comparator: cmp, value: value})
	return f
}

// WhereExists appends an existential predicate: arrayPath names a JSON
// array inside the document, itemPath names the field within each
// element the comparator evaluates.
func (f *Filter) WhereExists(arrayPath, itemPath path.Path, cmp Comparator, value any) *Filter {
	f.nodes = append(f.nodes, node{
		kind: nodeSubtreePredicate, path: arrayPath, itemPath: itemPath,
		comparator: cmp, value: value,
	})
	return f
}

// Render compiles the accumulated nodes into a SQL fragment suitable for
// appending after a `WHERE 1=1` clause, plus the positional arguments for
// its `?` placeholders. fmtTime is consulted for datetime-flagged paths;
// it may be nil if the filter contains no datetime comparisons.
//
// Per spec.md §4.3/§9, every user-supplied value is bound as a parameter,
// never interpolated into the SQL text — only path strings (which come
// from compile-time field descriptors, not request input) are
// interpolated directly.
func (f *Filter) Render(fmtTime TimeFormatter) (string, []any, error) {
	if f.Empty() {
		return "", nil, nil
	}
	var sb strings.Builder
	var args []any
	needsLeadingAnd := true
	for _, n := range f.nodes {
		switch n.kind {
		case nodeJoin:
			if n.join == OpenGroup && needsLeadingAnd {
				// An OpenGroup carries no connective of its own, but this is
				// the filter's first rendered node (or follows a node that
				// still needs gluing to what came before, e.g. the
				// catalog's preceding "1=1"), so it needs an explicit AND
				// the same way a leading predicate does.
				sb.WriteString("\nAND (")
			} else {
				sb.WriteString("\n")
				sb.WriteString(n.join.sql())
			}
			needsLeadingAnd = false
		case nodePredicate:
			if needsLeadingAnd {
				sb.WriteString("\nAND")
			}
			frag, a, err := renderScalar("json_extract(Data, '"+n.path.String()+"')", n.path, n.comparator, n.value, fmtTime)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(" ")
			sb.WriteString(frag)
			args = append(args, a...)
			needsLeadingAnd = true
		case nodeSubtreePredicate:
			if needsLeadingAnd {
				sb.WriteString("\nAND")
			}
			frag, a, err := renderScalar("val.value", n.itemPath, n.comparator, n.value, fmtTime)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&sb, " EXISTS(SELECT 1 FROM json_tree(Data, '%s') AS jt, json_each(jt.value, '%s') AS val WHERE %s)",
				n.path.String(), n.itemPath.String(), frag)
			args = append(args, a...)
			needsLeadingAnd = true
		}
	}
	return sb.String(), args, nil
}

// renderScalar renders one comparator over expr (a SQL expression string
// already naming the extracted JSON value), following the type-dispatch
// rules in spec.md §4.3.
func renderScalar(expr string, p path.Path, cmp Comparator, value any, fmtTime TimeFormatter) (string, []any, error) {
	if cmp.isLike() {
		var pattern string
		switch cmp {
		case StartsWith:
			pattern = fmt.Sprintf("%v%%", value)
		case EndsWith:
			pattern = fmt.Sprintf("%%%v", value)
		default: // Contains
			pattern = fmt.Sprintf("%%%v%%", value)
		}
		return fmt.Sprintf("%s LIKE ?", expr), []any{pattern}, nil
	}

	if cmp.isRange() {
		return fmt.Sprintf("CAST(%s AS NUMERIC) %s ?", expr, cmp.sqlOp()), []any{value}, nil
	}

	switch {
	case p.IsBool():
		return fmt.Sprintf("%s %s ?", expr, cmp.sqlOp()), []any{value}, nil
	case p.IsNumeric():
		return fmt.Sprintf("CAST(%s AS NUMERIC) %s ?", expr, cmp.sqlOp()), []any{value}, nil
	case p.IsDateTime():
		serialized := value
		if fmtTime != nil {
			if s, ok := fmtTime(value); ok {
				serialized = s
			}
		}
		return fmt.Sprintf("%s %s ?", expr, cmp.sqlOp()), []any{serialized}, nil
	default:
		return fmt.Sprintf("%s %s ?", expr, cmp.sqlOp()), []any{value}, nil
	}
}
