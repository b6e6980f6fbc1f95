// pkg/schema/record.go
package schema

// Record is a normalized record: canonical column name -> typed value.
// Every key is a member of the catalog that produced it, and every
// NOT-NULL catalog column is present. Two records with equal BBL keys are
// the same logical parcel (last write wins).
type Record map[string]interface{}

// BBL returns the unique business key of the record. A normalized record
// always carries one; zero means the record never passed normalization.
func (r Record) BBL() int64 {
	if v, ok := r[KeyColumn].(int64); ok {
		return v
	}
	return 0
}

// Text returns a text column value, or "" when absent or NULL
func (r Record) Text(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer column value, or 0 when absent or NULL
func (r Record) Int(name string) int64 {
	if v, ok := r[name].(int64); ok {
		return v
	}
	return 0
}

// Float returns a floating point column value, or 0 when absent or NULL
func (r Record) Float(name string) float64 {
	switch v := r[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns a boolean column value, or false when absent or NULL
func (r Record) Bool(name string) bool {
	if v, ok := r[name].(bool); ok {
		return v
	}
	return false
}
