package models

// ColumnType is the bounded set of semantic column categories the schema
// analyzer may assign.
type ColumnType string

const (
	ColumnTypeDate     ColumnType = "date"
	ColumnTypeDocument ColumnType = "identifier-document"
	ColumnTypePhone    ColumnType = "phone"
	ColumnTypeEmail    ColumnType = "email"
	ColumnTypeName     ColumnType = "name"
	ColumnTypeCity     ColumnType = "city"
	ColumnTypeNumeric  ColumnType = "numeric"
	ColumnTypeText     ColumnType = "text"
	ColumnTypeUnknown  ColumnType = "unknown"
)

// knownColumnTypes is the closed category set; anything else collapses to unknown.
var knownColumnTypes = map[ColumnType]struct{}{
	ColumnTypeDate:     {},
	ColumnTypeDocument: {},
	ColumnTypePhone:    {},
	ColumnTypeEmail:    {},
	ColumnTypeName:     {},
	ColumnTypeCity:     {},
	ColumnTypeNumeric:  {},
	ColumnTypeText:     {},
	ColumnTypeUnknown:  {},
}

// NormalizeColumnType maps a free-form model answer onto the closed category
// set, collapsing anything unrecognized to unknown.
func NormalizeColumnType(s string) ColumnType {
	t := ColumnType(s)
	if _, ok := knownColumnTypes[t]; ok {
		return t
	}
	return ColumnTypeUnknown
}

// ColumnDiagnosis is the analyzer's verdict for a single column.
type ColumnDiagnosis struct {
	InferredType ColumnType `json:"inferred_type"`
	Issues       []string   `json:"detected_issues"`
	Suggestion   string     `json:"cleaning_suggestion,omitempty"`
}

// SchemaDiagnosis maps original column names (exact match) to their
// diagnoses. Produced once per run; consumed read-only by the generator.
type SchemaDiagnosis map[string]ColumnDiagnosis
