// Package table assembles decoded FIT records into a columnar table: ordered
// named columns, one primitive type per column, equal row counts, explicit
// missing-value markers.
package table

import (
	"fmt"
	"math"
	"strconv"

	"example.com/fitscan/internal/fit"
)

// ColumnType is the primitive type a materialized column holds.
type ColumnType uint8

const (
	// TypeNull marks a column that never saw a valid value.
	TypeNull ColumnType = iota
	TypeInt
	TypeFloat
	TypeString
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int64"
	case TypeFloat:
		return "float64"
	case TypeString:
		return "string"
	default:
		return "null"
	}
}

// Column is a single named, typed column. The type is fixed by the first
// valid value written; later incompatible values coerce the whole column to
// strings rather than failing the decode.
type Column struct {
	Name string

	typ    ColumnType
	ints   []int64
	floats []float64
	strs   []string
	valid  []bool
}

func (c *Column) Type() ColumnType { return c.typ }
func (c *Column) Len() int         { return len(c.valid) }

// IsNull reports whether row i holds the missing marker.
func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// NullCount returns how many rows hold the missing marker.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.valid {
		if !v {
			n++
		}
	}
	return n
}

func (c *Column) Int(i int) (int64, bool) {
	if c.typ != TypeInt || !c.valid[i] {
		return 0, false
	}
	return c.ints[i], true
}

func (c *Column) Float(i int) (float64, bool) {
	if !c.valid[i] {
		return 0, false
	}
	switch c.typ {
	case TypeFloat:
		return c.floats[i], true
	case TypeInt:
		return float64(c.ints[i]), true
	default:
		return 0, false
	}
}

func (c *Column) Str(i int) (string, bool) {
	if c.typ != TypeString || !c.valid[i] {
		return "", false
	}
	return c.strs[i], true
}

// Render returns the textual form of row i, empty for missing values.
func (c *Column) Render(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.typ {
	case TypeInt:
		return strconv.FormatInt(c.ints[i], 10)
	case TypeFloat:
		return strconv.FormatFloat(c.floats[i], 'g', -1, 64)
	case TypeString:
		return c.strs[i]
	default:
		return ""
	}
}

// appendNull grows every backing slice by one missing row.
func (c *Column) appendNull() {
	c.valid = append(c.valid, false)
	switch c.typ {
	case TypeInt:
		c.ints = append(c.ints, 0)
	case TypeFloat:
		c.floats = append(c.floats, 0)
	case TypeString:
		c.strs = append(c.strs, "")
	}
}

// set writes v into row i, adopting or coercing the column type as needed.
func (c *Column) set(i int, v fit.Value) {
	if !v.Valid() {
		return
	}
	if c.typ == TypeNull {
		c.adopt(kindToType(v))
	}
	switch c.typ {
	case TypeInt:
		switch v.Kind() {
		case fit.KindInt:
			c.ints[i] = v.Int()
		case fit.KindUint:
			if v.Uint() > math.MaxInt64 {
				c.toString()
				c.strs[i] = v.Render()
				c.valid[i] = true
				return
			}
			c.ints[i] = int64(v.Uint())
		case fit.KindFloat:
			c.toFloat()
			c.floats[i] = v.Float()
		default:
			c.toString()
			c.strs[i] = v.Render()
		}
	case TypeFloat:
		if f, ok := v.AsFloat(); ok {
			c.floats[i] = f
		} else {
			c.toString()
			c.strs[i] = v.Render()
		}
	case TypeString:
		c.strs[i] = v.Render()
	}
	c.valid[i] = true
}

func (c *Column) adopt(t ColumnType) {
	c.typ = t
	n := len(c.valid)
	switch t {
	case TypeInt:
		c.ints = make([]int64, n)
	case TypeFloat:
		c.floats = make([]float64, n)
	case TypeString:
		c.strs = make([]string, n)
	}
}

// toFloat widens an int column in place.
func (c *Column) toFloat() {
	if c.typ == TypeFloat {
		return
	}
	c.floats = make([]float64, len(c.ints))
	for i, v := range c.ints {
		c.floats[i] = float64(v)
	}
	c.ints = nil
	c.typ = TypeFloat
}

// toString is the last-resort coercion: every existing value is re-rendered
// as text.
func (c *Column) toString() {
	if c.typ == TypeString {
		return
	}
	strs := make([]string, len(c.valid))
	for i, ok := range c.valid {
		if !ok {
			continue
		}
		switch c.typ {
		case TypeInt:
			strs[i] = strconv.FormatInt(c.ints[i], 10)
		case TypeFloat:
			strs[i] = strconv.FormatFloat(c.floats[i], 'g', -1, 64)
		}
	}
	c.strs = strs
	c.ints = nil
	c.floats = nil
	c.typ = TypeString
}

func kindToType(v fit.Value) ColumnType {
	switch v.Kind() {
	case fit.KindInt, fit.KindUint:
		return TypeInt
	case fit.KindFloat:
		return TypeFloat
	case fit.KindString:
		return TypeString
	default:
		return TypeNull
	}
}

func (c *Column) filter(keep []bool, kept int) {
	valid := make([]bool, 0, kept)
	var ints []int64
	var floats []float64
	var strs []string
	switch c.typ {
	case TypeInt:
		ints = make([]int64, 0, kept)
	case TypeFloat:
		floats = make([]float64, 0, kept)
	case TypeString:
		strs = make([]string, 0, kept)
	}
	for i, k := range keep {
		if !k {
			continue
		}
		valid = append(valid, c.valid[i])
		switch c.typ {
		case TypeInt:
			ints = append(ints, c.ints[i])
		case TypeFloat:
			floats = append(floats, c.floats[i])
		case TypeString:
			strs = append(strs, c.strs[i])
		}
	}
	c.valid = valid
	c.ints = ints
	c.floats = floats
	c.strs = strs
}

func (c *Column) truncate(n int) {
	if n >= len(c.valid) {
		return
	}
	c.valid = c.valid[:n]
	switch c.typ {
	case TypeInt:
		c.ints = c.ints[:n]
	case TypeFloat:
		c.floats = c.floats[:n]
	case TypeString:
		c.strs = c.strs[:n]
	}
}

// Table is the final columnar result: rectangular, column order is
// first-seen field order.
type Table struct {
	cols  []*Column
	index map[string]int
}

// NumRows returns the row count shared by every column.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns names in column order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Rename applies a column rename mapping. Names without a live column are
// ignored; decode semantics are untouched.
func (t *Table) Rename(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	for _, c := range t.cols {
		if newName, ok := mapping[c.Name]; ok && newName != "" {
			c.Name = newName
		}
	}
	t.reindex()
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(names []string) error {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return fmt.Errorf("unknown column %q", name)
		}
		cols = append(cols, t.cols[i])
	}
	t.cols = cols
	t.reindex()
	return nil
}

// Limit truncates the table to at most n rows.
func (t *Table) Limit(n int) {
	if n < 0 {
		n = 0
	}
	for _, c := range t.cols {
		c.truncate(n)
	}
}

// Filter keeps only the rows where keep is true. len(keep) must equal
// NumRows.
func (t *Table) Filter(keep []bool) error {
	if len(keep) != t.NumRows() {
		return fmt.Errorf("filter mask length %d, table has %d rows", len(keep), t.NumRows())
	}
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	for _, c := range t.cols {
		c.filter(keep, kept)
	}
	return nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.cols))
	for i, c := range t.cols {
		t.index[c.Name] = i
	}
}
