package assessment

import (
	"fmt"

	"github.com/liamcoop/cardiorisk/bands"
)

// Payload is the body sent to the prediction endpoint. ApHi and ApLo are
// always band codes; the other fields are nil when the form text did not
// parse and then encode as JSON null.
type Payload struct {
	Age         *int     `json:"age" validate:"required,gt=0"`
	Gender      *int     `json:"gender" validate:"required,oneof=1 2"`
	ApHi        int      `json:"ap_hi" validate:"min=1,max=4"`
	ApLo        int      `json:"ap_lo" validate:"min=1,max=4"`
	Cholesterol *int     `json:"cholesterol" validate:"required,min=1,max=3"`
	Gluc        *int     `json:"gluc" validate:"required,min=1,max=3"`
	Smoke       *int     `json:"smoke" validate:"required,oneof=0 1"`
	Alco        *int     `json:"alco" validate:"required,oneof=0 1"`
	Active      *int     `json:"active" validate:"required,oneof=0 1"`
	BMI         *float64 `json:"bmi" validate:"required,gt=0"`
}

// Transformer converts form records into payloads using the given band engines.
type Transformer struct {
	systolic  Classifier
	diastolic Classifier
}

// NewTransformer uses the systolic and diastolic tables from reg.
func NewTransformer(reg *bands.Registry) (*Transformer, error) {
	hi, err := reg.Get(bands.TableSystolic)
	if err != nil {
		return nil, fmt.Errorf("failed to load systolic bands: %w", err)
	}
	lo, err := reg.Get(bands.TableDiastolic)
	if err != nil {
		return nil, fmt.Errorf("failed to load diastolic bands: %w", err)
	}
	return &Transformer{systolic: hi, diastolic: lo}, nil
}

// DefaultTransformer uses the built-in band tables.
func DefaultTransformer() *Transformer {
	return &Transformer{systolic: systolic, diastolic: diastolic}
}

// Build parses every field of r. It never fails; see Validate for the
// optional strict check.
func (t *Transformer) Build(r Request) Payload {
	return Payload{
		Age:         intPtr(r.Age),
		Gender:      intPtr(r.Gender),
		ApHi:        bucket(t.systolic, r.ApHi),
		ApLo:        bucket(t.diastolic, r.ApLo),
		Cholesterol: intPtr(r.Cholesterol),
		Gluc:        intPtr(r.Gluc),
		Smoke:       intPtr(r.Smoke),
		Alco:        intPtr(r.Alco),
		Active:      intPtr(r.Active),
		BMI:         floatPtr(r.BMI),
	}
}

func intPtr(s string) *int {
	v, ok := ParseInt(s)
	if !ok {
		return nil
	}
	return &v
}

func floatPtr(s string) *float64 {
	v, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return &v
}
