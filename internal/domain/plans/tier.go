package plans

import "strings"

// Plan is a subscription tier identifier as stored by the backend.
type Plan string

// Tier identifiers (single source of truth)
const (
	Starter Plan = "starter"
	Pro     Plan = "pro"
	Scale   Plan = "scale"
)

// Default is the plan assumed when the backend cannot tell us otherwise.
const Default = Starter

const InvalidPlanMessage = "Invalid plan. Must be starter, pro, or scale"

// Parse accepts only the exact lower-case identifiers.
func Parse(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case Starter, Pro, Scale:
		return p, true
	}
	return "", false
}

func (p Plan) Valid() bool {
	_, ok := Parse(string(p))
	return ok
}

// Title capitalises the identifier for display: "pro" -> "Pro".
func (p Plan) Title() string {
	if p == "" {
		return ""
	}
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p Plan) String() string {
	return string(p)
}
