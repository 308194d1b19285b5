package schema

// ObjectKind distinguishes base tables from views.
type ObjectKind string

const (
	KindTable ObjectKind = "Table"
	KindView  ObjectKind = "View"
)

// kindFromTableType maps INFORMATION_SCHEMA.TABLES.TABLE_TYPE.
func kindFromTableType(t string) ObjectKind {
	if t == "VIEW" {
		return KindView
	}
	return KindTable
}

// DatabaseObject is a table or view found in the catalog. Identity is
// (Schema, Name).
type DatabaseObject struct {
	Schema string     `json:"schema"`
	Name   string     `json:"name"`
	Kind   ObjectKind `json:"kind"`
}

// ColumnDescriptor describes one physical column, in ordinal order.
type ColumnDescriptor struct {
	Name       string `db:"column_name"`
	NativeType string `db:"data_type"`
	Nullable   bool   `db:"is_nullable"`
}

// Property is one structural property of an entity type.
type Property struct {
	Name     string `json:"name"`
	EdmType  string `json:"type"`
	Nullable bool   `json:"nullable"`
	IsKey    bool   `json:"isKey"`
}

// EntitySchema is the OData entity type derived from one object. At least
// one property is always key-flagged.
type EntitySchema struct {
	ObjectName string     `json:"objectName"`
	Properties []Property `json:"properties"`
}

// Keys returns the names of the key-flagged properties in property order.
func (s *EntitySchema) Keys() []string {
	var keys []string
	for _, p := range s.Properties {
		if p.IsKey {
			keys = append(keys, p.Name)
		}
	}
	return keys
}
