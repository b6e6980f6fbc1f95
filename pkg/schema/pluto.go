// pkg/schema/pluto.go
package schema

// KeyColumn is the unique business key of the properties table: a
// 10-digit identifier combining borough code, tax block and tax lot.
const KeyColumn = "bbl"

// Borough-related column names referenced by derived-field rules and the
// sampler's fallback partitioning.
const (
	ColBorough       = "borough"
	ColBuildingClass = "bldgclass"
	ColLandUse       = "landuse"
	ColBuiltStatus   = "built_status"
	ColIsVacant      = "is_vacant"
)

// Built-status values derived during normalization
const (
	BuiltStatusBuilt  = "built"
	BuiltStatusVacant = "vacant"
)

// LandUseVacant is the land-use category for vacant land
const LandUseVacant = "11"

// boroughNames maps source borough codes and abbreviations to the
// canonical borough name stored in the destination table.
var boroughNames = map[string]string{
	"1":  "Manhattan",
	"2":  "Bronx",
	"3":  "Brooklyn",
	"4":  "Queens",
	"5":  "Staten Island",
	"MN": "Manhattan",
	"BX": "Bronx",
	"BK": "Brooklyn",
	"QN": "Queens",
	"SI": "Staten Island",
}

// BoroughCodes lists the API-side borough partition codes in processing
// order. A full API load walks these one partition at a time.
var BoroughCodes = []string{"1", "2", "3", "4", "5"}

// Boroughs lists the canonical borough names in code order
var Boroughs = []string{"Manhattan", "Bronx", "Brooklyn", "Queens", "Staten Island"}

// BoroughName expands a borough code or abbreviation to its canonical
// name. Unknown values pass through unchanged, mirroring the source data.
func BoroughName(v string) string {
	if name, ok := boroughNames[v]; ok {
		return name
	}
	return v
}

// Properties returns the target schema for the properties table.
//
// Numeric attribute columns are NOT NULL with a zero default: malformed
// or missing numeric input never rejects a record, it defaults. Optional
// descriptive columns are nullable. Aliases carry the source-side names
// the PLUTO CSV and API use for the same columns.
func Properties() *Catalog {
	return NewCatalog([]Column{
		{Name: KeyColumn, Type: TypeInt, Nullable: false, Default: nil},
		{Name: ColBorough, Type: TypeText, Nullable: false, Default: ""},
		{Name: "block", Type: TypeInt, Nullable: false, Default: int64(0), Aliases: []string{"tax_block"}},
		{Name: "lot", Type: TypeInt, Nullable: false, Default: int64(0), Aliases: []string{"tax_lot"}},
		{Name: "address", Type: TypeText, Nullable: true},
		{Name: "zipcode", Type: TypeText, Nullable: true, Aliases: []string{"postcode"}},
		{Name: "zonedist1", Type: TypeText, Nullable: true},
		{Name: "zonedist2", Type: TypeText, Nullable: true},
		{Name: "zonedist3", Type: TypeText, Nullable: true},
		{Name: "zonedist4", Type: TypeText, Nullable: true},
		{Name: "overlay1", Type: TypeText, Nullable: true},
		{Name: "overlay2", Type: TypeText, Nullable: true},
		{Name: "special_district1", Type: TypeText, Nullable: true, Aliases: []string{"spdist1"}},
		{Name: "special_district2", Type: TypeText, Nullable: true, Aliases: []string{"spdist2"}},
		{Name: "special_district3", Type: TypeText, Nullable: true, Aliases: []string{"spdist3"}},
		{Name: "limited_height_district", Type: TypeText, Nullable: true, Aliases: []string{"ltdheight"}},
		{Name: ColBuildingClass, Type: TypeText, Nullable: true},
		{Name: ColLandUse, Type: TypeText, Nullable: true},
		{Name: "ownertype", Type: TypeText, Nullable: true},
		{Name: "ownernames", Type: TypeTextArray, Nullable: true, Aliases: []string{"ownername"}},
		{Name: "lotarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "bldgarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "comarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "resarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "officearea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "retailarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "garagearea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "strgearea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "factryarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "otherarea", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "lotfront", Type: TypeFloat, Nullable: true},
		{Name: "lotdepth", Type: TypeFloat, Nullable: true},
		{Name: "bldgfront", Type: TypeFloat, Nullable: true},
		{Name: "bldgdepth", Type: TypeFloat, Nullable: true},
		{Name: "numfloors", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "numbldgs", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "unitstotal", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "unitsres", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "yearbuilt", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "yearalter1", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "yearalter2", Type: TypeInt, Nullable: false, Default: int64(0)},
		{Name: "builtfar", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "residfar", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "commfar", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "facilfar", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "assessland", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "assesstot", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "exemptland", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "exempttot", Type: TypeFloat, Nullable: false, Default: float64(0)},
		{Name: "landmark", Type: TypeText, Nullable: true},
		{Name: "historic_district", Type: TypeText, Nullable: true, Aliases: []string{"histdist"}},
		{Name: ColBuiltStatus, Type: TypeText, Nullable: false, Default: BuiltStatusBuilt},
		{Name: "latitude", Type: TypeFloat, Nullable: true},
		{Name: "longitude", Type: TypeFloat, Nullable: true},
		{Name: ColIsVacant, Type: TypeBool, Nullable: false, Default: false},
		{Name: "bct2020", Type: TypeText, Nullable: true},
		{Name: "bctcb2020", Type: TypeText, Nullable: true},
		{Name: "ct2010", Type: TypeText, Nullable: true},
		{Name: "cb2010", Type: TypeText, Nullable: true},
		{Name: "geom", Type: TypeGeometry, Nullable: true, Aliases: []string{"the_geom"}},
		{Name: "centroid", Type: TypeGeometry, Nullable: true, Aliases: []string{"the_geom_centroid"}},
	})
}
