package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// DefaultUnit is the unit assigned to products created without one.
	DefaultUnit = "KGS"
	// DefaultHSN is the placeholder HSN code.
	DefaultHSN = "0000"
	// DefaultCategory receives products created without a category name.
	DefaultCategory = "Uncategorized"
)

// Units maps GST unit quantity codes to their description.
var Units = map[string]string{
	"BAG": "Bags",
	"BAL": "Bale",
	"BDL": "Bundles",
	"BKL": "Buckles",
	"BOU": "Billions of Units",
	"BOX": "Box",
	"BTL": "Bottles",
	"BUN": "Bunches",
	"CAN": "Cans",
	"CBM": "Cubic Meter",
	"CCM": "Cubic Centimeter",
	"CMS": "Centimeters",
	"CTN": "Cartons",
	"DOZ": "Dozens",
	"DRM": "Drums",
	"GGK": "Great Gross",
	"GMS": "Grams",
	"GRS": "Gross",
	"GYD": "Gross Yards",
	"KGS": "Kilograms",
	"KLR": "Kilolitre",
	"KME": "Kilometre",
	"LTR": "Litre",
	"MTR": "Meters",
	"MLT": "Millilitre",
	"MTS": "Metric Ton",
	"NOS": "Numbers",
	"PAC": "Packs",
	"PCS": "Pieces",
	"PRS": "Pairs",
	"QTL": "Quintal",
	"ROL": "Rolls",
	"SET": "Sets",
	"SQF": "Square Feet",
	"SQM": "Square Meter",
	"SQY": "Square Yards",
	"TBS": "Tablets",
	"TGM": "Ten Grams",
	"THD": "Thousands",
	"TON": "Tonne",
	"TUB": "Tubes",
	"UGS": "US Gallons",
	"UNT": "Units",
	"YDS": "Yards",
}

// ValidUnit reports whether code is a known unit quantity code.
func ValidUnit(code string) bool {
	_, ok := Units[code]
	return ok
}
