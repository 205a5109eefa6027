// Package web renders the assessment page and serves its static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/liamcoop/cardiorisk/assessment"
	"github.com/liamcoop/cardiorisk/session"
)

//go:embed templates/*.html static/*.css
var files embed.FS

// Field is one form control as rendered on the page.
type Field struct {
	Name        string
	Label       string
	Type        string // "number" or "select"
	Placeholder string
	Step        string
	Value       string
	Options     []assessment.Option
}

// Page is the template data for index.html.
type Page struct {
	session.View
	Rows [][]Field
}

// Renderer executes the embedded page template.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(files, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes the full page for v.
func (r *Renderer) Render(w io.Writer, v session.View) error {
	return r.tmpl.ExecuteTemplate(w, "index.html", NewPage(v))
}

// NewPage lays the form out in the fixed two-column rows of the page.
func NewPage(v session.View) Page {
	f := v.Form
	number := func(name, label, placeholder, value string) Field {
		return Field{Name: name, Label: label, Type: "number", Placeholder: placeholder, Value: value}
	}
	choice := func(name, label, value string) Field {
		return Field{Name: name, Label: label, Type: "select", Value: value, Options: assessment.Options(name)}
	}

	bmi := number("bmi", "BMI (kg/m²)", "24.5", f.BMI)
	bmi.Step = "0.1"

	return Page{
		View: v,
		Rows: [][]Field{
			{number("age", "Age (years)", "30", f.Age), choice("gender", "Gender", f.Gender)},
			{number("ap_hi", "Systolic BP (mmHg)", "120", f.ApHi), number("ap_lo", "Diastolic BP (mmHg)", "80", f.ApLo)},
			{bmi, choice("cholesterol", "Cholesterol Level", f.Cholesterol)},
			{choice("gluc", "Glucose Level", f.Gluc), choice("active", "Physical Activity", f.Active)},
			{choice("smoke", "Smoker", f.Smoke), choice("alco", "Alcohol Consumption", f.Alco)},
		},
	}
}

// Static serves the embedded stylesheet directory. Mount it with the
// prefix stripped.
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
