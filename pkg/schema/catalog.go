// pkg/schema/catalog.go
package schema

import "strings"

// ColumnType identifies the target type a column is coerced to.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeText
	TypeBool
	TypeTextArray
	TypeGeometry
)

// String returns a string representation of the column type
func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeText:
		return "text"
	case TypeBool:
		return "bool"
	case TypeTextArray:
		return "text[]"
	case TypeGeometry:
		return "geometry"
	default:
		return "unknown"
	}
}

// Column describes one column of the target schema
type Column struct {
	Name     string      // Canonical lower_snake_case name
	Type     ColumnType  // Target type for coercion
	Nullable bool        // Whether NULL is allowed in the destination
	Default  interface{} // Value used when a required column is absent or unparsable
	Aliases  []string    // Source column names mapped onto this column
}

// Catalog is the fixed target schema: column definitions plus the alias
// table used to rename source columns. It is built once at process start
// and read-only afterwards.
type Catalog struct {
	columns []Column
	byName  map[string]*Column
	aliases map[string]string
}

// NewCatalog builds a catalog from column definitions
func NewCatalog(columns []Column) *Catalog {
	c := &Catalog{
		columns: columns,
		byName:  make(map[string]*Column, len(columns)),
		aliases: make(map[string]string),
	}

	for i := range c.columns {
		col := &c.columns[i]
		c.byName[col.Name] = col
		for _, alias := range col.Aliases {
			c.aliases[alias] = col.Name
		}
	}

	return c
}

// Columns returns the full column list in declaration order
func (c *Catalog) Columns() []Column {
	return c.columns
}

// ColumnNames returns the canonical column names in declaration order
func (c *Catalog) ColumnNames() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.Name
	}
	return names
}

// Lookup returns the column with the given canonical name, or nil
func (c *Catalog) Lookup(name string) *Column {
	return c.byName[name]
}

// Resolve maps a normalized source column name to its canonical name via
// the alias table. Names without an alias entry pass through unchanged.
func (c *Catalog) Resolve(name string) string {
	if canonical, ok := c.aliases[name]; ok {
		return canonical
	}
	return name
}

// Required returns every NOT-NULL column
func (c *Catalog) Required() []Column {
	required := make([]Column, 0, len(c.columns))
	for _, col := range c.columns {
		if !col.Nullable {
			required = append(required, col)
		}
	}
	return required
}

// NormalizeName converts a free-form source column name to the canonical
// lower_snake_case form: trimmed, lower-cased, spaces replaced with
// underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
