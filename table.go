package bankloader

import (
	"fmt"
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// Table is a raw tabular payload as delivered by a Source.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]Value
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column returns the cells of column in row order, or nil when absent.
func (t *Table) Column(column string) []Value {
	i := t.Index(column)
	if i < 0 {
		return nil
	}
	vs := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		vs[r] = row[i]
	}
	return vs
}

// Head returns a table holding the first n rows of t.
func (t *Table) Head(n int) *Table {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Concat joins features and targets column-wise into a new Table.
// A nil targets table contributes no columns.
func Concat(features, targets *Table) (*Table, error) {
	if features == nil {
		return nil, &FetchError{Reason: "no feature table"}
	}
	if targets == nil {
		targets = &Table{Rows: make([][]Value, len(features.Rows))}
	}
	if err := checkWidth("features", features); err != nil {
		return nil, err
	}
	if len(targets.Columns) > 0 {
		if err := checkWidth("targets", targets); err != nil {
			return nil, err
		}
		if len(features.Rows) != len(targets.Rows) {
			return nil, &FetchError{Reason: "features and targets differ in row count"}
		}
	}

	seen := make(map[string]bool, len(features.Columns)+len(targets.Columns))
	columns := make([]string, 0, len(features.Columns)+len(targets.Columns))
	for _, c := range append(append([]string{}, features.Columns...), targets.Columns...) {
		if seen[c] {
			return nil, &FetchError{Reason: "duplicate column " + c}
		}
		seen[c] = true
		columns = append(columns, c)
	}

	rows := make([][]Value, len(features.Rows))
	for i := range features.Rows {
		row := make([]Value, 0, len(columns))
		row = append(row, features.Rows[i]...)
		if len(targets.Columns) > 0 {
			row = append(row, targets.Rows[i]...)
		}
		rows[i] = row
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

func checkWidth(name string, t *Table) error {
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return &FetchError{
				Reason: fmt.Sprintf("%s row %d has %d cells, header has %d", name, r+1, len(row), len(t.Columns)),
			}
		}
	}
	return nil
}

// PreparedTable is a validated dataset in warehouse shape: schema columns in
// warehouse order with _row_id and _load_timestamp populated.
type PreparedTable struct {
	Columns       []string
	Rows          [][]Value
	LoadTimestamp time.Time

	// NullCounts holds the number of null cells per column in warehouse order.
	NullCounts *orderedmap.OrderedMap[string, int]

	// Dropped lists source columns the schema does not declare.
	Dropped []string
}

// Len returns the number of rows.
func (p *PreparedTable) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Rows)
}

// Column returns the cells of column in row order, or nil when absent.
func (p *PreparedTable) Column(column string) []Value {
	return (&Table{Columns: p.Columns, Rows: p.Rows}).Column(column)
}

// Head returns the first n rows as a plain Table.
func (p *PreparedTable) Head(n int) *Table {
	return (&Table{Columns: p.Columns, Rows: p.Rows}).Head(n)
}
