package table

import (
	"strconv"

	"example.com/fitscan/internal/fit"
)

// Accumulator builds a Table from the decoded record stream of one target
// message type. Columns appear in first-seen field order; every row has an
// entry in every column, missing values included, so the table stays
// rectangular throughout.
type Accumulator struct {
	cols  []*Column
	index map[string]int
	rows  int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{index: make(map[string]int)}
}

// Rows returns the number of rows accumulated so far.
func (a *Accumulator) Rows() int { return a.rows }

// Append adds one decoded message as a row. Fields absent from previously
// established columns leave the missing marker; new field numbers open a new
// column back-filled with missing markers for earlier rows.
func (a *Accumulator) Append(msg *fit.Message) {
	for _, c := range a.cols {
		c.appendNull()
	}
	for _, f := range msg.Fields {
		name := fieldColumnName(f)
		i, ok := a.index[name]
		if !ok {
			i = a.addColumn(name)
		}
		a.cols[i].set(a.rows, f.Value)
	}
	a.rows++
}

func (a *Accumulator) addColumn(name string) int {
	c := &Column{Name: name}
	// Back-fill rows that predate this column, plus the in-flight row.
	for i := 0; i <= a.rows; i++ {
		c.appendNull()
	}
	a.cols = append(a.cols, c)
	a.index[name] = len(a.cols) - 1
	return len(a.cols) - 1
}

// Table finalizes accumulation. The accumulator must not be appended to
// afterwards; the returned table owns all column storage.
func (a *Accumulator) Table() *Table {
	t := &Table{cols: a.cols}
	t.reindex()
	a.cols = nil
	a.index = nil
	return t
}

func fieldColumnName(f fit.Field) string {
	if f.IsDeveloper {
		return "dev_field_" + strconv.Itoa(int(f.Number))
	}
	return "field_" + strconv.Itoa(int(f.Number))
}

// Build accumulates every message with the given global number into a table.
func Build(msgs []*fit.Message, globalNum uint16) *Table {
	acc := NewAccumulator()
	for _, m := range msgs {
		if m.GlobalNum == globalNum {
			acc.Append(m)
		}
	}
	return acc.Table()
}
