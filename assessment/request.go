package assessment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Request is the editable form record. Every field holds the raw text the
// user entered or selected.
type Request struct {
	Age         string `json:"age" form:"age"`
	Gender      string `json:"gender" form:"gender"`
	ApHi        string `json:"ap_hi" form:"ap_hi"`
	ApLo        string `json:"ap_lo" form:"ap_lo"`
	Cholesterol string `json:"cholesterol" form:"cholesterol"`
	Gluc        string `json:"gluc" form:"gluc"`
	Smoke       string `json:"smoke" form:"smoke"`
	Alco        string `json:"alco" form:"alco"`
	Active      string `json:"active" form:"active"`
	BMI         string `json:"bmi" form:"bmi"`
}

// NewRequest returns a blank form with the selection defaults applied.
func NewRequest() Request {
	return Request{
		Gender:      "1",
		Cholesterol: "1",
		Gluc:        "1",
		Smoke:       "0",
		Alco:        "0",
		Active:      "1",
	}
}

// FromValues builds a Request from form values keyed by field name.
// Missing keys keep the NewRequest defaults.
func FromValues(get func(key string) (string, bool)) Request {
	r := NewRequest()
	r.apply(get)
	return r
}

func (r *Request) apply(get func(key string) (string, bool)) {
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"age", &r.Age},
		{"gender", &r.Gender},
		{"ap_hi", &r.ApHi},
		{"ap_lo", &r.ApLo},
		{"cholesterol", &r.Cholesterol},
		{"gluc", &r.Gluc},
		{"smoke", &r.Smoke},
		{"alco", &r.Alco},
		{"active", &r.Active},
		{"bmi", &r.BMI},
	} {
		if v, ok := get(f.key); ok {
			*f.dst = v
		}
	}
}

// UnmarshalJSON accepts each field as a JSON string or number. Absent and
// null fields keep their current value.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var errs []error
	r.apply(func(key string) (string, bool) {
		msg, ok := raw[key]
		if !ok {
			return "", false
		}
		text, ok, err := fieldText(msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %w", key, err))
		}
		return text, ok
	})
	return errors.Join(errs...)
}

func fieldText(msg json.RawMessage) (string, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false, err
	}

	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case json.Number:
		s := t.String()
		if strings.ContainsAny(s, "eE") {
			f, err := t.Float64()
			if err != nil {
				return "", false, fmt.Errorf("is out of range: %w", err)
			}
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return s, true, nil
	}
	return "", false, errors.New("must be a string or a number")
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

var (
	genderOptions = []Option{{"1", "Female"}, {"2", "Male"}}
	levelOptions  = []Option{{"1", "Normal"}, {"2", "Above Normal"}, {"3", "Well Above Normal"}}
	yesNoOptions  = []Option{{"0", "No"}, {"1", "Yes"}}
)

// Options returns the choices for a select field, or nil for free-text fields.
func Options(field string) []Option {
	switch field {
	case "gender":
		return genderOptions
	case "cholesterol", "gluc":
		return levelOptions
	case "smoke", "alco", "active":
		return yesNoOptions
	}
	return nil
}
