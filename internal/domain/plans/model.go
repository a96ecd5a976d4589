package plans

// Tier is a priced row of the public pricing table.
type Tier struct {
	Slug       Plan
	Name       string
	Price      string
	Highlight  bool
	Features   []string
	CTA        string
	CTAVariant string // "default" | "outline"
}

// Tiers returns the pricing catalogue in display order.
func Tiers() []Tier {
	return []Tier{
		{
			Slug:      Starter,
			Name:      "Starter",
			Price:     "$19",
			Highlight: false,
			Features: []string{
				"1 YouTube channel",
				"500 replies/mo",
				"Basic tone matching",
				"Standard guardrails",
				"Email support",
			},
			CTA:        "Get started",
			CTAVariant: "outline",
		},
		{
			Slug:      Pro,
			Name:      "Pro",
			Price:     "$49",
			Highlight: true,
			Features: []string{
				"3 YouTube channels",
				"2,000 replies/mo",
				"Advanced tone matching",
				"Standard guardrails",
				"Priority email support",
			},
			CTA:        "Get started",
			CTAVariant: "default",
		},
		{
			Slug:      Scale,
			Name:      "Scale",
			Price:     "$149",
			Highlight: false,
			Features: []string{
				"Unlimited channels",
				"10,000 replies/mo",
				"Advanced + custom tone matching",
				"Priority + custom guardrail rules",
				"Dedicated support",
			},
			CTA:        "Contact us",
			CTAVariant: "outline",
		},
	}
}

// TierFor looks up the catalogue entry for p.
func TierFor(p Plan) (Tier, bool) {
	for _, t := range Tiers() {
		if t.Slug == p {
			return t, true
		}
	}
	return Tier{}, false
}
