package model

import "time"

// CrossFilteringBehavior controls whether a relationship filters in one direction or both
type CrossFilteringBehavior string

const (
	OneDirection   CrossFilteringBehavior = "OneDirection"
	BothDirections CrossFilteringBehavior = "BothDirections"
)

// Column data types understood by the analytics API. The model treats dataType as an
// opaque string, these are only convenience names.
const (
	DataTypeInt64    = "Int64"
	DataTypeDouble   = "Double"
	DataTypeBoolean  = "Boolean"
	DataTypeDateTime = "DateTime"
	DataTypeString   = "string"
)

// Dataset is the schema description submitted to the analytics API
type Dataset struct {
	Name          string         `json:"name"`
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
}

// Table is a named, ordered list of columns
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column is a named, typed column
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// Relationship links a column of one table to a column of another.
// Table and column references are not checked locally.
type Relationship struct {
	Name                   string                 `json:"name"`
	CrossFilteringBehavior CrossFilteringBehavior `json:"crossFilteringBehavior"`
	FromTable              string                 `json:"fromTable"`
	FromColumn             string                 `json:"fromColumn"`
	ToTable                string                 `json:"toTable"`
	ToColumn               string                 `json:"toColumn"`
}

// NewRelationship creates a relationship filtering in one direction
func NewRelationship(name, fromTable, fromColumn, toTable, toColumn string) Relationship {
	return Relationship{
		Name:                   name,
		CrossFilteringBehavior: OneDirection,
		FromTable:              fromTable,
		FromColumn:             fromColumn,
		ToTable:                toTable,
		ToColumn:               toColumn,
	}
}

// WithCrossFiltering returns a copy of the relationship with the given behavior
func (r Relationship) WithCrossFiltering(behavior CrossFilteringBehavior) Relationship {
	r.CrossFilteringBehavior = behavior
	return r
}

// EffectiveCrossFiltering returns the behavior sent on the wire; unset means OneDirection
func (r Relationship) EffectiveCrossFiltering() CrossFilteringBehavior {
	if r.CrossFilteringBehavior == "" {
		return OneDirection
	}
	return r.CrossFilteringBehavior
}

// ColumnCount returns the total number of columns across all tables
func (d Dataset) ColumnCount() int {
	count := 0
	for _, table := range d.Tables {
		count += len(table.Columns)
	}
	return count
}

// DefaultDatasetName builds the experiment dataset name stamped with UTC time
func DefaultDatasetName(now time.Time) string {
	return "Data Set For Experiment Created at " + now.UTC().Format("1/2/2006 3:04:05 PM")
}

// SampleDataset returns the fixed Ages/Names dataset published by the CLI
func SampleDataset(name string) Dataset {
	return Dataset{
		Name: name,
		Tables: []Table{
			{
				Name: "Ages",
				Columns: []Column{
					{Name: "Id", DataType: DataTypeInt64},
					{Name: "Age", DataType: DataTypeInt64},
				},
			},
			{
				Name: "Names",
				Columns: []Column{
					{Name: "Id", DataType: DataTypeInt64},
					{Name: "Name", DataType: DataTypeString},
				},
			},
		},
		Relationships: []Relationship{
			NewRelationship("IdToId", "Ages", "Id", "Names", "Id").WithCrossFiltering(BothDirections),
		},
	}
}
