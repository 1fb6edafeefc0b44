package scoring

import "strings"

// Decision categories, listed in classification priority order.
const (
	CategoryHiring          = "hiring"
	CategoryProduct         = "product"
	CategoryPricing         = "pricing"
	CategoryFunding         = "funding"
	CategoryMarketExpansion = "market_expansion"
	CategoryPivot           = "pivot"
	CategoryAcquisition     = "acquisition"
	CategoryScaling         = "scaling"
	CategoryGeneral         = "general"
)

type categoryRule struct {
	category string
	keywords []string
}

// categoryRules is scanned top to bottom; the first rule with any substring hit wins.
var categoryRules = []categoryRule{
	{CategoryHiring, []string{"hire", "hiring", "recruit", "candidate", "headcount", "vp of", "onboard new", "job offer"}},
	{CategoryProduct, []string{"product", "feature", "roadmap", "launch", "release", "mvp", "prototype"}},
	{CategoryPricing, []string{"price", "pricing", "subscription", "discount", "freemium", "monetiz", "billing"}},
	{CategoryFunding, []string{"funding", "fundraise", "raise capital", "investor", "seed round", "series a", "series b", "venture", "valuation"}},
	{CategoryMarketExpansion, []string{"expand", "expansion", "new market", "international", "region", "geograph", "localiz", "enter the"}},
	{CategoryPivot, []string{"pivot", "change direction", "new direction", "reposition", "business model"}},
	{CategoryAcquisition, []string{"acquire", "acquisition", "merger", "buyout", "m&a", "takeover"}},
	{CategoryScaling, []string{"scale", "scaling", "team", "infrastructure", "capacity", "growth", "grow"}},
}

// Categories returns the taxonomy in priority order, general last.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return append(out, CategoryGeneral)
}

// Classify maps a decision onto the fixed taxonomy. Ties are resolved by declaration order.
func Classify(title, problemStatement string) string {
	text := strings.ToLower(title + " " + problemStatement)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// IsKnownCategory reports whether category belongs to the taxonomy.
func IsKnownCategory(category string) bool {
	for _, known := range Categories() {
		if known == category {
			return true
		}
	}
	return false
}
