package bankloader

import (
	"reflect"
	"testing"
	"time"
)

var runTime = time.Date(2025, 10, 23, 12, 30, 0, 0, time.FixedZone("JST", 9*60*60))

func TestPrepare_rowIDAndTimestamp(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil, rows(5)...)
	p := Prepare(BankMarketingSchema(), tbl, runTime)

	if p.Len() != 5 {
		t.Fatalf("expected 5 rows, but %d", p.Len())
	}

	for i, v := range p.Column(RowIDColumn) {
		if v.Kind() != KindInteger || v.Int64() != int64(i+1) {
			t.Errorf("expected _row_id of row %d to be %d, but %s", i, i+1, v)
		}
	}

	for i, v := range p.Column(LoadTimestampColumn) {
		if !v.Time().Equal(runTime) {
			t.Errorf("expected _load_timestamp of row %d to be %s, but %s", i, runTime, v)
		}
		if v.Time().Location() != time.UTC {
			t.Errorf("expected _load_timestamp in UTC, but %s", v.Time().Location())
		}
	}

	if !p.LoadTimestamp.Equal(runTime) {
		t.Errorf("expected LoadTimestamp %s, but %s", runTime, p.LoadTimestamp)
	}
}

func TestPrepare_preservesOrder(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil,
		map[string]string{"age": "40"},
		map[string]string{"age": "20"},
		map[string]string{"age": "40"},
		map[string]string{"age": "30"},
	)

	for run := 0; run < 2; run++ {
		p := Prepare(BankMarketingSchema(), tbl, runTime)
		ages := p.Column("age")
		expected := []int64{40, 20, 40, 30}
		for i, e := range expected {
			if ages[i].Int64() != e {
				t.Errorf("run %d: expected age of row %d to be %d, but %s", run, i, e, ages[i])
			}
		}
	}
}

func TestPrepare_columnsInWarehouseOrder(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil, rows(1)...)
	tbl.Columns[0], tbl.Columns[1] = tbl.Columns[1], tbl.Columns[0]
	tbl.Rows[0][0], tbl.Rows[0][1] = tbl.Rows[0][1], tbl.Rows[0][0]

	p := Prepare(BankMarketingSchema(), tbl, runTime)

	cols := BankMarketingSchema().Columns()
	if len(p.Columns) != len(cols) {
		t.Fatalf("expected %d columns, but %d", len(cols), len(p.Columns))
	}
	for i, c := range cols {
		if p.Columns[i] != c.Name {
			t.Errorf("expected column %d to be %s, but %s", i, c.Name, p.Columns[i])
		}
	}

	if v := p.Column("age")[0]; v.Int64() != 30 {
		t.Errorf("expected age 30, but %s", v)
	}
	if v := p.Column("job")[0]; v.Str() != "admin." {
		t.Errorf(`expected job "admin.", but %s`, v)
	}
}

func TestPrepare_nullNormalization(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil,
		map[string]string{"job": "nan", "poutcome": "success"},
		map[string]string{"job": "", "contact": "NaN"},
		map[string]string{"job": "unknown"},
	)
	p := Prepare(BankMarketingSchema(), tbl, runTime)

	jobs := p.Column("job")
	if !jobs[0].IsNull() || !jobs[1].IsNull() {
		t.Errorf("expected missing jobs to be null, but %s and %s", jobs[0], jobs[1])
	}
	if jobs[2].Kind() != KindText || jobs[2].Str() != "unknown" {
		t.Errorf(`expected "unknown" to pass through, but %s`, jobs[2])
	}

	for _, v := range p.Column("contact") {
		if v.Kind() == KindText && v.Str() == "NaN" {
			t.Errorf("textual NaN survived preparation")
		}
	}

	if v := p.Column("poutcome")[0]; v.Str() != "success" {
		t.Errorf(`expected "success", but %s`, v)
	}
}

func TestPrepare_coercionFailureBecomesNull(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil,
		map[string]string{"balance": "12.5"},
		map[string]string{"balance": "-300"},
		map[string]string{"balance": "2.0"},
	)
	p := Prepare(BankMarketingSchema(), tbl, runTime)

	b := p.Column("balance")
	if !b[0].IsNull() {
		t.Errorf("expected null, but %s", b[0])
	}
	if b[1].Int64() != -300 {
		t.Errorf("expected -300, but %s", b[1])
	}
	if b[2].Kind() != KindInteger || b[2].Int64() != 2 {
		t.Errorf("expected 2, but %s", b[2])
	}
}

func TestPrepare_nullCounts(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil,
		map[string]string{"job": ""},
		map[string]string{"job": "", "age": "x"},
		map[string]string{"poutcome": "failure"},
		map[string]string{},
	)
	p := Prepare(BankMarketingSchema(), tbl, runTime)

	summary := p.NullSummary()
	expected := []NullCount{
		{Column: "age", Nulls: 1, Rows: 4},
		{Column: "job", Nulls: 2, Rows: 4},
		{Column: "poutcome", Nulls: 3, Rows: 4},
	}
	if len(summary) != len(expected) {
		t.Fatalf("expected %d summarized columns, but %v", len(expected), summary)
	}
	for i, e := range expected {
		if summary[i] != e {
			t.Errorf("expected %+v, but %+v", e, summary[i])
		}
	}

	if n, ok := p.NullCounts.Get(RowIDColumn); !ok || n != 0 {
		t.Errorf("expected 0 nulls in _row_id, but %d", n)
	}
	if pct := summary[1].Percent(); pct != 50 {
		t.Errorf("expected 50%%, but %f", pct)
	}
}

func TestPrepare_doesNotMutateInput(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil, map[string]string{"job": "nan", "age": "58.0"})
	Prepare(BankMarketingSchema(), tbl, runTime)

	if v := tbl.Rows[0][tbl.Index("job")]; v.Str() != "nan" {
		t.Errorf(`expected input job to stay "nan", but %s`, v)
	}
	if v := tbl.Rows[0][tbl.Index("age")]; v.Kind() != KindText || v.Str() != "58.0" {
		t.Errorf(`expected input age to stay "58.0", but %s`, v)
	}
	if len(tbl.Columns) != len(BankMarketingSchema().ExpectedColumns()) {
		t.Errorf("input columns changed: %v", tbl.Columns)
	}
}

func TestPrepare_dropsUndeclaredColumns(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil, rows(2)...)
	tbl.Columns = append(tbl.Columns, "id")
	for i := range tbl.Rows {
		tbl.Rows[i] = append(tbl.Rows[i], Int(int64(i)))
	}

	p := Prepare(BankMarketingSchema(), tbl, runTime)

	if len(p.Dropped) != 1 || p.Dropped[0] != "id" {
		t.Errorf("expected [id] to be dropped, but %v", p.Dropped)
	}
	if p.Column("id") != nil {
		t.Errorf("expected id to be absent from the prepared table")
	}
}

func TestPrepare_dropsSourceAuditColumns(t *testing.T) {
	t.Parallel()

	tbl := buildTable(t, nil, rows(2)...)
	tbl.Columns = append(tbl.Columns, RowIDColumn, LoadTimestampColumn)
	for i := range tbl.Rows {
		tbl.Rows[i] = append(tbl.Rows[i], Text("999"), Text("1999-01-01"))
	}

	p := Prepare(BankMarketingSchema(), tbl, runTime)

	expected := []string{RowIDColumn, LoadTimestampColumn}
	if !reflect.DeepEqual(expected, p.Dropped) {
		t.Errorf("expected %v to be dropped, but %v", expected, p.Dropped)
	}
	for i, v := range p.Column(RowIDColumn) {
		if v.Int64() != int64(i+1) {
			t.Errorf("row %d: expected _row_id %d, but %s", i, i+1, v)
		}
	}
	for _, v := range p.Column(LoadTimestampColumn) {
		if !v.Time().Equal(runTime) {
			t.Errorf("expected run timestamp, but %s", v)
		}
	}
}
