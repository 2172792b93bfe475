package models

import "time"

// SortOrder is the direction of the active sort column. The empty value means
// the list is unsorted.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ColumnInfo is the raw column metadata read from information_schema
type ColumnInfo struct {
	Name       string
	DataType   string
	UdtName    string
	Nullable   bool
	PrimaryKey bool
	IsArray    bool
	IsJsonb    bool
	IsEnum     bool
}

// Constraint represents a table constraint
type Constraint struct {
	Name         string
	Type         string // 'p'=PK, 'f'=FK, 'u'=Unique, 'c'=Check
	Columns      []string
	Definition   string
	ForeignTable string // For FK: "schema.table"
	ForeignCols  []string
}

// EnumType is a PostgreSQL enum and its labels in sort order
type EnumType struct {
	Name   string
	Values []string
}

// TableData is one page of rows of a model
type TableData struct {
	Columns   []string        `json:"columns"`
	Rows      [][]interface{} `json:"rows"`
	TotalRows int64           `json:"totalRows"`
	SQL       string          `json:"sql,omitempty"`
	Duration  time.Duration   `json:"durationNs"`
}
