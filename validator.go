package bankloader

import (
	"sort"
)

// Validate checks table against schema in a single pass before any
// transformation. It returns a *ValidationError on the first failing rule:
// missing columns, empty dataset, non-integer values in integer columns, and
// values outside a column's domain, in that order.
func Validate(schema *Schema, table *Table) error {
	present := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		present[c] = true
	}

	var missing []string
	for _, c := range schema.ExpectedColumns() {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ValidationError{Kind: MissingColumns, Columns: missing}
	}

	if table.Len() == 0 {
		return &ValidationError{Kind: EmptyDataset}
	}

	expected := schema.ExpectedColumns()
	for _, name := range expected {
		if typ, _ := schema.TypeOf(name); typ != TypeInteger {
			continue
		}
		if err := checkIntegers(name, table); err != nil {
			return err
		}
	}

	for _, name := range expected {
		domain, ok := schema.ValidDomain(name)
		if !ok {
			continue
		}
		if err := checkDomain(name, domain, table); err != nil {
			return err
		}
	}

	return nil
}

// maxReportedValues bounds the offending samples carried by a ValidationError.
const maxReportedValues = 10

func checkIntegers(column string, table *Table) error {
	i := table.Index(column)

	var bad *ValidationError
	seen := map[string]bool{}
	for r, row := range table.Rows {
		v := row[i]
		if isMissing(v) {
			continue
		}
		if _, ok := v.AsInteger(); ok {
			continue
		}
		if bad == nil {
			bad = &ValidationError{Kind: TypeMismatch, Column: column, Row: r + 1}
		}
		if s := v.String(); !seen[s] && len(bad.Values) < maxReportedValues {
			seen[s] = true
			bad.Values = append(bad.Values, s)
		}
	}

	if bad != nil {
		return bad
	}
	return nil
}

func checkDomain(column string, domain []string, table *Table) error {
	i := table.Index(column)

	allowed := make(map[string]bool, len(domain))
	for _, d := range domain {
		allowed[d] = true
	}

	var bad *ValidationError
	seen := map[string]bool{}
	for r, row := range table.Rows {
		v := row[i]
		if isMissing(v) {
			continue
		}
		s := v.String()
		if allowed[s] && v.Kind() == KindText {
			continue
		}
		if bad == nil {
			bad = &ValidationError{Kind: InvalidDomainValue, Column: column, Row: r + 1}
		}
		if !seen[s] {
			seen[s] = true
			bad.Values = append(bad.Values, s)
		}
	}

	if bad != nil {
		return bad
	}
	return nil
}

func isMissing(v Value) bool {
	return v.IsNull() || (v.Kind() == KindText && IsNullMarker(v.Str()))
}
