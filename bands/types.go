package bands

// Variable is the CEL identifier a band expression uses for the measured value.
const Variable = "v"

// Table names used by the assessment payload.
const (
	TableSystolic  = "ap_hi"
	TableDiastolic = "ap_lo"
)

// Band is one severity tier of a measurement.
// Expression is a CEL boolean over the integer variable v.
type Band struct {
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// Table is an ordered list of bands. The first band whose expression
// holds wins; Fallback is returned when none match or the value is missing.
type Table struct {
	Name     string `json:"name"`
	Unit     string `json:"unit,omitempty"`
	Bands    []Band `json:"bands"`
	Fallback int    `json:"fallback"`
}

// Classification is the outcome of classifying one value.
type Classification struct {
	Table    string
	Code     int
	Band     string // empty when the fallback was used
	Fallback bool
}
