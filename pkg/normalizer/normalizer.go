// pkg/normalizer/normalizer.go
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/quad-fun/lotfinderpro/pkg/schema"
	"github.com/quad-fun/lotfinderpro/pkg/source"
)

// ErrMissingKey marks a record whose BBL key is absent or unparsable. A
// missing key cannot be defaulted: it would break the upsert-conflict
// contract, so the record is rejected instead.
var ErrMissingKey = errors.New("record has no usable bbl key")

// Normalizer maps one raw source record onto the target schema: renames
// aliased columns, coerces types, computes derived fields, drops columns
// outside the catalog and fills required-but-absent columns with schema
// defaults.
//
// Normalize is pure with respect to the Normalizer and safe to call
// concurrently across independent records. Bad data never aborts a batch:
// every problem except a missing key resolves to a default or NULL.
type Normalizer struct {
	catalog *schema.Catalog
	logger  *zap.Logger
}

// NewNormalizer creates a normalizer bound to a target catalog
func NewNormalizer(catalog *schema.Catalog, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		catalog: catalog,
		logger:  logger.Named("normalizer"),
	}
}

// Normalize transforms a raw record into a normalized one, or rejects it
// when the key is missing.
func (n *Normalizer) Normalize(raw source.RawRecord) (schema.Record, error) {
	// Step 1: rename columns to canonical names via the alias table
	renamed := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		renamed[n.catalog.Resolve(schema.NormalizeName(name))] = value
	}

	// Step 2: the key is coerced first and rejects the record on failure
	bbl, err := n.coerceKey(renamed[schema.KeyColumn])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingKey, err)
	}

	record := make(schema.Record, len(n.catalog.Columns()))
	record[schema.KeyColumn] = bbl

	// Steps 3 and 6 together: walk the catalog, coercing what the source
	// provided and defaulting what it did not. Columns the catalog does
	// not know are dropped by never being visited.
	for _, col := range n.catalog.Columns() {
		if col.Name == schema.KeyColumn {
			continue
		}
		value, present := renamed[col.Name]
		record[col.Name] = n.coerceColumn(col, value, present, bbl)
	}

	// Borough codes are expanded to names so one canonical form reaches
	// the destination regardless of transport.
	if borough, ok := record[schema.ColBorough].(string); ok && borough != "" {
		record[schema.ColBorough] = schema.BoroughName(borough)
	}

	// Step 4: derived fields
	builtStatus := deriveBuiltStatus(record)
	record[schema.ColBuiltStatus] = builtStatus
	record[schema.ColIsVacant] = builtStatus == schema.BuiltStatusVacant ||
		record.Text(schema.ColLandUse) == schema.LandUseVacant

	return record, nil
}

// coerceKey parses the BBL business key to an integer. Absent, empty,
// unparsable and non-positive values all reject.
func (n *Normalizer) coerceKey(value interface{}) (int64, error) {
	if isNull(value) {
		return 0, fmt.Errorf("key absent")
	}

	bbl, err := coerceInt(value)
	if err != nil {
		return 0, err
	}
	if bbl <= 0 {
		return 0, fmt.Errorf("key %d out of range", bbl)
	}

	return bbl, nil
}

// coerceColumn converts one source value to the column's target type.
// Unparsable or missing values become the catalog default (NULL for
// optional columns); this is intentionally lossy-forgiving.
func (n *Normalizer) coerceColumn(col schema.Column, value interface{}, present bool, bbl int64) interface{} {
	if !present || isNull(value) {
		return n.defaultFor(col)
	}

	switch col.Type {
	case schema.TypeInt:
		v, err := coerceInt(value)
		if err != nil {
			return n.defaulted(col, value, err, bbl)
		}
		return v

	case schema.TypeFloat:
		v, err := coerceFloat(value)
		if err != nil {
			return n.defaulted(col, value, err, bbl)
		}
		return v

	case schema.TypeBool:
		v, err := coerceBool(value)
		if err != nil {
			return n.defaulted(col, value, err, bbl)
		}
		return v

	case schema.TypeTextArray:
		// Owner names arrive as a single scalar and are stored as a
		// one-element array.
		if text := coerceText(value); text != "" {
			return []string{text}
		}
		return n.defaultFor(col)

	case schema.TypeGeometry:
		return tagGeometry(coerceText(value))

	default:
		if text := coerceText(value); text != "" {
			return text
		}
		return n.defaultFor(col)
	}
}

// defaultFor returns the catalog default for a required column and NULL
// for an optional one.
func (n *Normalizer) defaultFor(col schema.Column) interface{} {
	if col.Nullable {
		return nil
	}
	return col.Default
}

// defaulted logs a coercion failure as a decision, not an error, and
// returns the column default.
func (n *Normalizer) defaulted(col schema.Column, value interface{}, err error, bbl int64) interface{} {
	n.logger.Debug("Defaulted unparsable value",
		zap.Int64("bbl", bbl),
		zap.String("column", col.Name),
		zap.Any("value", value),
		zap.Error(err))
	return n.defaultFor(col)
}

// deriveBuiltStatus computes the built/vacant status of a parcel: vacant
// when the building class starts with V, or nothing was ever built on it
// (year built and building area both zero-valued).
func deriveBuiltStatus(record schema.Record) string {
	if strings.HasPrefix(strings.ToUpper(record.Text(schema.ColBuildingClass)), "V") {
		return schema.BuiltStatusVacant
	}
	if record.Int("yearbuilt") == 0 {
		return schema.BuiltStatusVacant
	}
	if record.Float("bldgarea") == 0 {
		return schema.BuiltStatusVacant
	}
	return schema.BuiltStatusBuilt
}

// tagGeometry wraps a non-empty geometry token with the SRID prefix the
// destination expects. Multi-part polygon tokens are rewritten to
// single-part by string substitution, mirroring a source idiosyncrasy;
// the geometry itself is never parsed or validated.
func tagGeometry(text string) interface{} {
	if text == "" {
		return nil
	}
	return "SRID=4326;" + strings.Replace(text, "MULTIPOLYGON", "POLYGON", 1)
}
