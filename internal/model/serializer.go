package model

import (
	"encoding/json"

	"dataset-publisher/internal/utils"
)

// Row is one record appended to a table, keyed by column name
type Row map[string]interface{}

type rowsEnvelope struct {
	Rows []Row `json:"rows"`
}

// Serialize renders the dataset as the create-dataset request body.
// Tables, columns and relationships keep their input order and nil slices become [].
func Serialize(ds Dataset) ([]byte, error) {
	body, err := json.Marshal(normalize(ds))
	if err != nil {
		return nil, utils.NewSerializationError(err)
	}
	return body, nil
}

// SerializeRows renders rows as a JSON array. Rows are not checked against any table.
func SerializeRows(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return nil, utils.NewSerializationError(err)
	}
	return body, nil
}

// SerializeRowsEnvelope renders rows wrapped as {"rows": [...]}
func SerializeRowsEnvelope(rows []Row) ([]byte, error) {
	if rows == nil {
		rows = []Row{}
	}
	body, err := json.Marshal(rowsEnvelope{Rows: rows})
	if err != nil {
		return nil, utils.NewSerializationError(err)
	}
	return body, nil
}

func normalize(ds Dataset) Dataset {
	out := Dataset{
		Name:          ds.Name,
		Tables:        make([]Table, len(ds.Tables)),
		Relationships: make([]Relationship, len(ds.Relationships)),
	}

	for i, table := range ds.Tables {
		columns := table.Columns
		if columns == nil {
			columns = []Column{}
		}
		out.Tables[i] = Table{Name: table.Name, Columns: columns}
	}

	for i, rel := range ds.Relationships {
		rel.CrossFilteringBehavior = rel.EffectiveCrossFiltering()
		out.Relationships[i] = rel
	}

	return out
}
