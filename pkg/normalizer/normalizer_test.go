// pkg/normalizer/normalizer_test.go
package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quad-fun/lotfinderpro/pkg/schema"
	"github.com/quad-fun/lotfinderpro/pkg/source"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(schema.Properties(), zap.NewNop())
}

func TestNormalizeRejectsMissingKey(t *testing.T) {
	norm := newTestNormalizer()

	cases := map[string]source.RawRecord{
		"absent":       {"borough": "1"},
		"empty":        {"bbl": ""},
		"null literal": {"bbl": "NULL"},
		"unparsable":   {"bbl": "not-a-number"},
		"zero":         {"bbl": "0"},
		"negative":     {"bbl": float64(-1)},
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			record, err := norm.Normalize(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingKey)
			assert.Nil(t, record)
		})
	}
}

func TestNormalizeKeyCoercion(t *testing.T) {
	norm := newTestNormalizer()

	// String keys with trailing decimals still parse
	record, err := norm.Normalize(source.RawRecord{"bbl": "1000010001.0"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000010001), record.BBL())

	record, err = norm.Normalize(source.RawRecord{"bbl": float64(2000020002)})
	require.NoError(t, err)
	assert.Equal(t, int64(2000020002), record.BBL())
}

func TestNormalizeFillsRequiredColumns(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{"bbl": "1000010001"})
	require.NoError(t, err)

	for _, col := range schema.Properties().Required() {
		value, present := record[col.Name]
		assert.True(t, present, "required column %s absent", col.Name)
		assert.NotNil(t, value, "required column %s is NULL", col.Name)
	}

	// Optional columns the source never provided stay NULL
	assert.Nil(t, record["address"])
	assert.Nil(t, record["geom"])
}

func TestNormalizeDefaultsUnparsableValues(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":       "1000010001",
		"lotarea":   "abc",
		"yearbuilt": "n/a",
	})
	require.NoError(t, err)

	assert.Equal(t, float64(0), record["lotarea"])
	assert.Equal(t, int64(0), record["yearbuilt"])
}

func TestNormalizeAliasRename(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":       "1000010001",
		"Tax Block": "12",
		"tax_lot":   "34",
		"postcode":  "10001",
		"spdist1":   "MiD",
		"histdist":  "SoHo-Cast Iron",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(12), record["block"])
	assert.Equal(t, int64(34), record["lot"])
	assert.Equal(t, "10001", record["zipcode"])
	assert.Equal(t, "MiD", record["special_district1"])
	assert.Equal(t, "SoHo-Cast Iron", record["historic_district"])
}

func TestNormalizeZipcodeFromFloat(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":      "1000010001",
		"postcode": float64(10001),
	})
	require.NoError(t, err)

	assert.Equal(t, "10001", record["zipcode"])
}

func TestNormalizeOwnerNamesArray(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":       "1000010001",
		"ownername": "CITY OF NEW YORK",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CITY OF NEW YORK"}, record["ownernames"])
}

func TestNormalizeBoroughExpansion(t *testing.T) {
	norm := newTestNormalizer()

	for code, want := range map[string]string{
		"1": "Manhattan", "2": "Bronx", "3": "Brooklyn",
		"4": "Queens", "5": "Staten Island", "BK": "Brooklyn",
	} {
		record, err := norm.Normalize(source.RawRecord{
			"bbl":     "1000010001",
			"borough": code,
		})
		require.NoError(t, err)
		assert.Equal(t, want, record.Text(schema.ColBorough))
	}
}

func TestNormalizeDerivesBuiltStatus(t *testing.T) {
	norm := newTestNormalizer()

	cases := []struct {
		name       string
		raw        source.RawRecord
		wantStatus string
		wantVacant bool
	}{
		{
			name: "vacant building class",
			raw: source.RawRecord{
				"bbl": "1000010001", "bldgclass": "V0",
				"yearbuilt": "1950", "bldgarea": "100",
			},
			wantStatus: schema.BuiltStatusVacant,
			wantVacant: true,
		},
		{
			name: "never built",
			raw: source.RawRecord{
				"bbl": "1000010002", "bldgclass": "R4",
				"yearbuilt": "0", "bldgarea": "5000",
			},
			wantStatus: schema.BuiltStatusVacant,
			wantVacant: true,
		},
		{
			name: "zero building area",
			raw: source.RawRecord{
				"bbl": "1000010003", "bldgclass": "R4",
				"yearbuilt": "1925", "bldgarea": "0",
			},
			wantStatus: schema.BuiltStatusVacant,
			wantVacant: true,
		},
		{
			name: "built parcel",
			raw: source.RawRecord{
				"bbl": "1000010004", "bldgclass": "R4",
				"yearbuilt": "1925", "bldgarea": "5000",
			},
			wantStatus: schema.BuiltStatusBuilt,
			wantVacant: false,
		},
		{
			name: "vacant land use on a built parcel",
			raw: source.RawRecord{
				"bbl": "1000010005", "bldgclass": "R4", "landuse": "11",
				"yearbuilt": "1925", "bldgarea": "5000",
			},
			wantStatus: schema.BuiltStatusBuilt,
			wantVacant: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record, err := norm.Normalize(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, record.Text(schema.ColBuiltStatus))
			assert.Equal(t, tc.wantVacant, record.Bool(schema.ColIsVacant))
		})
	}
}

func TestNormalizeTagsGeometry(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":               "1000010001",
		"the_geom":          "MULTIPOLYGON (((-74.01 40.70, -74.01 40.71, -74.00 40.71, -74.01 40.70)))",
		"the_geom_centroid": "POINT (-74.005 40.705)",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SRID=4326;POLYGON (((-74.01 40.70, -74.01 40.71, -74.00 40.71, -74.01 40.70)))",
		record["geom"])
	assert.Equal(t, "SRID=4326;POINT (-74.005 40.705)", record["centroid"])
}

func TestNormalizeDropsUnknownColumns(t *testing.T) {
	norm := newTestNormalizer()

	record, err := norm.Normalize(source.RawRecord{
		"bbl":          "1000010001",
		"mystery_data": "whatever",
	})
	require.NoError(t, err)

	_, present := record["mystery_data"]
	assert.False(t, present)
}
