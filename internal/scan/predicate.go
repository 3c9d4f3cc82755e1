package scan

import (
	"fmt"

	"example.com/fitscan/internal/table"
)

// CompareOp is a predicate comparison operator.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o CompareOp) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Predicate compares one column against a constant. Rows holding the missing
// marker never match.
type Predicate struct {
	Column string
	Op     CompareOp
	Number float64
	Text   string
	// textual selects string comparison against Text instead of numeric
	// comparison against Number.
	textual bool
}

func Eq(column string, v float64) Predicate { return Predicate{Column: column, Op: OpEq, Number: v} }
func Ne(column string, v float64) Predicate { return Predicate{Column: column, Op: OpNe, Number: v} }
func Lt(column string, v float64) Predicate { return Predicate{Column: column, Op: OpLt, Number: v} }
func Le(column string, v float64) Predicate { return Predicate{Column: column, Op: OpLe, Number: v} }
func Gt(column string, v float64) Predicate { return Predicate{Column: column, Op: OpGt, Number: v} }
func Ge(column string, v float64) Predicate { return Predicate{Column: column, Op: OpGe, Number: v} }

// EqText matches string-typed columns against exact text.
func EqText(column, v string) Predicate {
	return Predicate{Column: column, Op: OpEq, Text: v, textual: true}
}

// NeText matches string-typed columns differing from text.
func NeText(column, v string) Predicate {
	return Predicate{Column: column, Op: OpNe, Text: v, textual: true}
}

func applyFilter(tbl *table.Table, pred Predicate) error {
	col, ok := tbl.Column(pred.Column)
	if !ok {
		return fmt.Errorf("filter references unknown column %q", pred.Column)
	}
	rows := tbl.NumRows()
	keep := make([]bool, rows)
	for i := 0; i < rows; i++ {
		if col.IsNull(i) {
			continue
		}
		keep[i] = pred.matches(col, i)
	}
	return tbl.Filter(keep)
}

func (p Predicate) matches(col *table.Column, i int) bool {
	if p.textual {
		s, ok := col.Str(i)
		if !ok {
			s = col.Render(i)
		}
		switch p.Op {
		case OpEq:
			return s == p.Text
		case OpNe:
			return s != p.Text
		default:
			return false
		}
	}
	f, ok := col.Float(i)
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return f == p.Number
	case OpNe:
		return f != p.Number
	case OpLt:
		return f < p.Number
	case OpLe:
		return f <= p.Number
	case OpGt:
		return f > p.Number
	case OpGe:
		return f >= p.Number
	default:
		return false
	}
}
