package assessment

// Risk is the binary class returned by the prediction service.
type Risk int

const (
	RiskLow  Risk = 0
	RiskHigh Risk = 1
)

func (r Risk) String() string {
	if r == RiskHigh {
		return "high"
	}
	return "low"
}

// Outcome is the presentable result of a successful prediction.
type Outcome struct {
	Risk    Risk   `json:"risk"`
	Output  int    `json:"output"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// IsHigh reports whether the outcome is the high-risk variant.
func (o Outcome) IsHigh() bool {
	return o.Risk == RiskHigh
}

// NewOutcome maps the service's Output field to an outcome. Any value
// other than 0 or 1 is rejected.
func NewOutcome(output int) (Outcome, bool) {
	switch Risk(output) {
	case RiskHigh:
		return Outcome{
			Risk:    RiskHigh,
			Output:  output,
			Title:   "High Risk",
			Message: "Our analysis suggests an increased cardiovascular risk. Please consult with a healthcare professional for personalized advice.",
		}, true
	case RiskLow:
		return Outcome{
			Risk:    RiskLow,
			Output:  output,
			Title:   "Low Risk",
			Message: "Our analysis suggests a lower cardiovascular risk. Continue maintaining healthy habits.",
		}, true
	}
	return Outcome{}, false
}
