package bankloader

import (
	"cloud.google.com/go/bigquery"
)

// LogicalType is the abstract kind of a column independent of storage encoding.
type LogicalType int

const (
	TypeInteger LogicalType = iota
	TypeString
	TypeTimestamp
)

func (t LogicalType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeString:
		return "STRING"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "UNKNOWN"
	}
}

// FieldType returns the BigQuery field type for t.
func (t LogicalType) FieldType() bigquery.FieldType {
	switch t {
	case TypeInteger:
		return bigquery.IntegerFieldType
	case TypeTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}

const (
	// RowIDColumn is the 1-based sequence number assigned at preparation time.
	RowIDColumn = "_row_id"

	// LoadTimestampColumn tags every row with the instant of its run.
	LoadTimestampColumn = "_load_timestamp"

	// TargetColumn is the label of the Bank Marketing dataset.
	TargetColumn = "y"

	// DefaultTable is the destination table used when none is given.
	DefaultTable = "raw_bank_marketing"

	// UCIDatasetID identifies Bank Marketing in the UCI ML Repository.
	UCIDatasetID = 222
)

// Column declares one column of the contract.
type Column struct {
	Name     string
	Type     LogicalType
	Required bool

	// Domain restricts the non-null values of a categorical column.
	// A nil Domain means unconstrained.
	Domain []string

	// Synthetic columns are added by the preparer and never expected in source data.
	Synthetic bool
}

// Schema is the immutable column contract shared by the validator, the
// preparer and the loader.
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema builds a Schema from columns in warehouse order.
func NewSchema(columns ...Column) *Schema {
	s := &Schema{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Domain != nil {
			c.Domain = append([]string(nil), c.Domain...)
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s
}

// BankMarketingSchema returns the contract of the raw_bank_marketing table.
func BankMarketingSchema() *Schema {
	return NewSchema(
		Column{Name: RowIDColumn, Type: TypeInteger, Required: true, Synthetic: true},
		Column{Name: "age", Type: TypeInteger},
		Column{Name: "job", Type: TypeString},
		Column{Name: "marital", Type: TypeString},
		Column{Name: "education", Type: TypeString},
		Column{Name: "default", Type: TypeString},
		Column{Name: "balance", Type: TypeInteger},
		Column{Name: "housing", Type: TypeString},
		Column{Name: "loan", Type: TypeString},
		Column{Name: "contact", Type: TypeString},
		Column{Name: "day_of_week", Type: TypeInteger},
		Column{Name: "month", Type: TypeString},
		Column{Name: "duration", Type: TypeInteger},
		Column{Name: "campaign", Type: TypeInteger},
		Column{Name: "pdays", Type: TypeInteger},
		Column{Name: "previous", Type: TypeInteger},
		Column{Name: "poutcome", Type: TypeString},
		Column{Name: TargetColumn, Type: TypeString, Domain: []string{"yes", "no"}},
		Column{Name: LoadTimestampColumn, Type: TypeTimestamp, Required: true, Synthetic: true},
	)
}

// Columns returns all columns in warehouse order.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// ExpectedColumns returns the names every source dataset must carry.
func (s *Schema) ExpectedColumns() []string {
	names := make([]string, 0, len(s.columns))
	for _, c := range s.columns {
		if !c.Synthetic {
			names = append(names, c.Name)
		}
	}
	return names
}

// TypeOf returns the logical type of column.
func (s *Schema) TypeOf(column string) (LogicalType, bool) {
	c, ok := s.Column(column)
	return c.Type, ok
}

// ValidDomain returns the allowed values of a domain-constrained column.
func (s *Schema) ValidDomain(column string) ([]string, bool) {
	c, ok := s.Column(column)
	if !ok || c.Domain == nil {
		return nil, false
	}
	return append([]string(nil), c.Domain...), true
}

// NumericColumns returns the source columns declared as integers.
func (s *Schema) NumericColumns() []string {
	return s.sourceColumnsOf(TypeInteger)
}

// CategoricalColumns returns the source columns declared as strings.
func (s *Schema) CategoricalColumns() []string {
	return s.sourceColumnsOf(TypeString)
}

func (s *Schema) sourceColumnsOf(t LogicalType) []string {
	var names []string
	for _, name := range s.ExpectedColumns() {
		if typ, _ := s.TypeOf(name); typ == t {
			names = append(names, name)
		}
	}
	return names
}

// BigQuery converts s to an explicit load schema so that type drift in the
// source cannot rewrite the destination schema.
func (s *Schema) BigQuery() bigquery.Schema {
	bs := make(bigquery.Schema, len(s.columns))
	for i, c := range s.columns {
		bs[i] = &bigquery.FieldSchema{
			Name:     c.Name,
			Type:     c.Type.FieldType(),
			Required: c.Required,
		}
	}
	return bs
}
