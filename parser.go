package bankloader

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/extrame/xls"
	"gitlab.com/osaki-lab/iowrapper"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/xerrors"
)

// Parser parses a source file whose first row is a header into a Table.
type Parser func(context.Context, io.Reader) (*Table, error)

var errNoSheet = xerrors.New("no sheet found")

// CSVParser provides a parser for CSV files.
func CSVParser() Parser {
	return func(_ context.Context, r io.Reader) (*Table, error) {
		cr := csv.NewReader(r)
		records, err := cr.ReadAll()
		if err != nil {
			return nil, xerrors.Errorf("failed to read csv: %w", err)
		}
		return tableFromRecords(records)
	}
}

// XLSParser provides a parser for the first sheet of an XLS workbook.
func XLSParser() Parser {
	getRow := func(sheet *xls.WorkSheet, row int) (r *xls.Row, ok bool) {
		defer func() { recover() }()

		r = nil
		ok = false

		return sheet.Row(row), true
	}

	return func(_ context.Context, r io.Reader) (*Table, error) {
		wb, err := xls.OpenReader(iowrapper.NewSeeker(r), "utf-8")
		if err != nil {
			return nil, xerrors.Errorf("failed to open xls file: %w", err)
		}

		sheet := wb.GetSheet(0)
		if sheet == nil {
			return nil, errNoSheet
		}

		records := [][]string{}
		width := 0
		for i := 0; i <= int(sheet.MaxRow); i++ {
			row, ok := getRow(sheet, i)
			if !ok || row == nil {
				continue
			}

			if len(records) == 0 {
				width = row.LastCol()
			}

			record := make([]string, width)
			for c := 0; c < width && c < row.LastCol(); c++ {
				record[c] = row.Col(c)
			}
			records = append(records, record)
		}

		return tableFromRecords(records)
	}
}

// ParserFor returns the parser for a source format name ("csv" or "xls").
func ParserFor(format string) (Parser, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return CSVParser(), nil
	case "xls":
		return XLSParser(), nil
	default:
		return nil, xerrors.Errorf("unsupported source format %q", format)
	}
}

// LookupEncoding resolves an encoding by its WHATWG name, e.g. "shift_jis".
// An empty name gives nil, meaning UTF-8 input.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, xerrors.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func decode(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil {
		return r
	}
	return transform.NewReader(r, enc.NewDecoder())
}

func tableFromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, xerrors.New("no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Columns: header, Rows: make([][]Value, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, xerrors.Errorf("row has %d fields, header has %d", len(rec), len(header))
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			if IsNullMarker(cell) {
				row[i] = Null()
			} else {
				row[i] = Text(cell)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}
