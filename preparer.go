package bankloader

import (
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// nullMarkers are textual spellings of a missing value produced by common
// dataframe serializers. They never survive preparation as text.
var nullMarkers = map[string]bool{
	"":     true,
	"nan":  true,
	"NaN":  true,
	"NAN":  true,
	"None": true,
	"null": true,
	"NULL": true,
	"<NA>": true,
}

// IsNullMarker reports whether s spells a missing value.
func IsNullMarker(s string) bool {
	return nullMarkers[strings.TrimSpace(s)]
}

// Prepare turns a validated table into warehouse shape. It never fails and
// never mutates table:
//
//   - _row_id is 1..N in input order
//   - _load_timestamp is runTimestamp for every row
//   - categorical cells pass through, missing ones become Null
//   - integer cells are coerced, failures become Null
//
// Source columns that the schema does not declare, and source columns named
// like an audit column, are dropped and listed in Dropped.
func Prepare(schema *Schema, table *Table, runTimestamp time.Time) *PreparedTable {
	ts := Timestamp(runTimestamp)
	columns := schema.Columns()
	integers := nameSet(schema.NumericColumns())
	categorical := nameSet(schema.CategoricalColumns())

	names := make([]string, len(columns))
	src := make([]int, len(columns))
	for i, c := range columns {
		names[i] = c.Name
		src[i] = -1
		if !c.Synthetic {
			src[i] = table.Index(c.Name)
		}
	}

	nulls := make([]int, len(columns))
	rows := make([][]Value, len(table.Rows))
	for r, in := range table.Rows {
		out := make([]Value, len(columns))
		for i, c := range columns {
			var v Value
			switch {
			case c.Name == RowIDColumn:
				v = Int(int64(r + 1))
			case c.Name == LoadTimestampColumn:
				v = ts
			case src[i] < 0:
				v = Null()
			case integers[c.Name]:
				v = coerceInteger(in[src[i]])
			case categorical[c.Name]:
				v = normalizeText(in[src[i]])
			default:
				v = in[src[i]]
			}
			if v.IsNull() {
				nulls[i]++
			}
			out[i] = v
		}
		rows[r] = out
	}

	counts := orderedmap.NewOrderedMap[string, int]()
	for i, n := range names {
		counts.Set(n, nulls[i])
	}

	var dropped []string
	for _, c := range table.Columns {
		if sc, ok := schema.Column(c); !ok || sc.Synthetic {
			dropped = append(dropped, c)
		}
	}

	return &PreparedTable{
		Columns:       names,
		Rows:          rows,
		LoadTimestamp: ts.Time(),
		NullCounts:    counts,
		Dropped:       dropped,
	}
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func coerceInteger(v Value) Value {
	if i, ok := v.AsInteger(); ok {
		return Int(i)
	}
	return Null()
}

func normalizeText(v Value) Value {
	switch v.Kind() {
	case KindText:
		if IsNullMarker(v.Str()) {
			return Null()
		}
		return v
	case KindNull:
		return v
	default:
		return Text(v.String())
	}
}

// NullCount is the number of null cells in one column.
type NullCount struct {
	Column string
	Nulls  int
	Rows   int
}

// Percent returns the share of null cells in the column.
func (n NullCount) Percent() float64 {
	if n.Rows == 0 {
		return 0
	}
	return float64(n.Nulls) / float64(n.Rows) * 100
}

// NullSummary lists columns with at least one null cell in warehouse order.
func (p *PreparedTable) NullSummary() []NullCount {
	var s []NullCount
	if p.NullCounts == nil {
		return s
	}
	for el := p.NullCounts.Front(); el != nil; el = el.Next() {
		if el.Value > 0 {
			s = append(s, NullCount{Column: el.Key, Nulls: el.Value, Rows: p.Len()})
		}
	}
	return s
}
