// pkg/sampler/quotas.go
package sampler

import (
	"sort"
	"strings"

	"github.com/quad-fun/lotfinderpro/pkg/schema"
)

// StrategicQuotas builds the quota list used for representative test
// databases, in priority order:
//
//  1. Manhattan parcels (30%) — the smallest borough, highest value for
//     testing.
//  2. Vacant building classes (15%) — important for opportunity zones.
//  3. Top-decile assessed value (10%).
//  4. Development potential (10%) — allowed residential FAR not yet
//     built out.
//
// The high-value threshold is computed from the input set itself, so the
// quota list is bound to the records it will sample.
func StrategicQuotas(records []schema.Record) []Quota {
	highValue := quantile(records, "assesstot", 0.9)

	return []Quota{
		{
			Name:     "manhattan",
			Fraction: 0.30,
			Predicate: func(r schema.Record) bool {
				return r.Text(schema.ColBorough) == "Manhattan"
			},
		},
		{
			Name:     "vacant_lots",
			Fraction: 0.15,
			Predicate: func(r schema.Record) bool {
				return strings.HasPrefix(strings.ToUpper(r.Text(schema.ColBuildingClass)), "V")
			},
		},
		{
			Name:     "high_value",
			Fraction: 0.10,
			Predicate: func(r schema.Record) bool {
				return r.Float("assesstot") > highValue
			},
		},
		{
			Name:     "development_potential",
			Fraction: 0.10,
			Predicate: func(r schema.Record) bool {
				return r.Float("residfar") > 0 && r.Float("builtfar") < r.Float("residfar")
			},
		},
	}
}

// quantile returns the q-th quantile of a numeric column over the record
// set, 0 when the set is empty.
func quantile(records []schema.Record, column string, q float64) float64 {
	if len(records) == 0 {
		return 0
	}

	values := make([]float64, 0, len(records))
	for _, record := range records {
		values = append(values, record.Float(column))
	}
	sort.Float64s(values)

	idx := int(q * float64(len(values)-1))
	return values[idx]
}
