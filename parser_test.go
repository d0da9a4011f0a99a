package bankloader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/xerrors"
)

const bankCSV = `age,job,marital,education,default,balance,housing,loan,contact,day_of_week,month,duration,campaign,pdays,previous,poutcome,y
58,management,married,tertiary,no,2143,yes,no,,5,may,261,1,-1,0,,no
44,technician,single,secondary,no,29,yes,no,,5,may,151,1,-1,0,,no
33,entrepreneur,married,secondary,no,2,yes,yes,,5,may,76,1,-1,0,,yes
`

func TestCSVParser(t *testing.T) {
	t.Parallel()

	tbl, err := CSVParser()(context.Background(), strings.NewReader(bankCSV))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, but %d", tbl.Len())
	}
	if len(tbl.Columns) != 17 {
		t.Fatalf("expected 17 columns, but %d", len(tbl.Columns))
	}

	if v := tbl.Rows[0][tbl.Index("age")]; v.Str() != "58" {
		t.Errorf(`expected "58", but %s`, v)
	}
	if v := tbl.Rows[0][tbl.Index("contact")]; !v.IsNull() {
		t.Errorf("expected empty contact to be null, but %s", v)
	}
	if err := Validate(BankMarketingSchema(), tbl); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestCSVParser_malformed(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "a,b\n1,2,3\n"} {
		if _, err := CSVParser()(context.Background(), strings.NewReader(body)); err == nil {
			t.Errorf("%q: expected error but no error occurred", body)
		}
	}
}

func TestCSVParser_byteOrderMark(t *testing.T) {
	t.Parallel()

	tbl, err := CSVParser()(context.Background(), strings.NewReader("\ufeffage,y\n1,no\n"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tbl.Columns[0] != "age" {
		t.Errorf(`expected "age", but %q`, tbl.Columns[0])
	}
}

func TestParserFor(t *testing.T) {
	t.Parallel()

	for _, f := range []string{"", "csv", "CSV", "xls"} {
		if _, err := ParserFor(f); err != nil {
			t.Errorf("%q: unexpected error: %v", f, err)
		}
	}
	if _, err := ParserFor("parquet"); err == nil {
		t.Errorf("expected error but no error occurred")
	}
}

func TestFileSource_encoding(t *testing.T) {
	t.Parallel()

	encoded, err := charmap.ISO8859_1.NewEncoder().String("age,job,y\n30,técnico,no\n")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bank.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	enc, err := LookupEncoding("iso-8859-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s := &FileSource{Path: path, Parser: CSVParser(), Encoding: enc, TargetColumns: []string{TargetColumn}}
	features, targets, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(features.Columns) != 2 || len(targets.Columns) != 1 || targets.Columns[0] != "y" {
		t.Fatalf("unexpected split %v / %v", features.Columns, targets.Columns)
	}
	if v := features.Rows[0][1]; v.Str() != "técnico" {
		t.Errorf(`expected "técnico", but %q`, v.Str())
	}
}

func TestFileSource_missingFile(t *testing.T) {
	t.Parallel()

	s := &FileSource{Path: filepath.Join(t.TempDir(), "none.csv")}
	_, _, err := s.Fetch(context.Background())

	var fe *FetchError
	if !xerrors.As(err, &fe) {
		t.Errorf("expected FetchError, but %v", err)
	}
}

func TestLookupEncoding(t *testing.T) {
	t.Parallel()

	if enc, err := LookupEncoding(""); enc != nil || err != nil {
		t.Errorf("expected nil encoding for empty name, but %v, %v", enc, err)
	}
	if _, err := LookupEncoding("shift_jis"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := LookupEncoding("klingon"); err == nil {
		t.Errorf("expected error but no error occurred")
	}
}
