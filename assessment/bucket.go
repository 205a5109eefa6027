package assessment

import "github.com/liamcoop/cardiorisk/bands"

var (
	systolic  = bands.MustEngine(bands.SystolicTable())
	diastolic = bands.MustEngine(bands.DiastolicTable())
)

// Classifier maps a measurement to a band code.
type Classifier interface {
	Classify(v int) int
	Fallback() int
}

// SystolicBucket maps raw systolic text (mmHg) to a code in 1..4.
// Unparsable input yields 1.
func SystolicBucket(raw string) int {
	return bucket(systolic, raw)
}

// DiastolicBucket maps raw diastolic text (mmHg) to a code in 1..4.
// Unparsable input yields 1.
func DiastolicBucket(raw string) int {
	return bucket(diastolic, raw)
}

func bucket(c Classifier, raw string) int {
	v, ok := ParseInt(raw)
	if !ok {
		return c.Fallback()
	}
	return c.Classify(v)
}
