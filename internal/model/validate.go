package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncompleteContext is returned when a context is structurally unusable.
var ErrIncompleteContext = errors.New("incomplete pricing context")

// ValidationError lists the problems found on one context.
type ValidationError struct {
	Style       string
	CountryCode string
	Problems    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("context %s/%s: %s", e.Style, e.CountryCode, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrIncompleteContext
}

// Validate checks the structural precondition: identity fields present and
// competitor sequences aligned, discount bounds ordered when both are known.
// Undefined numeric signals are not an error, but a decoded context must
// carry the price and base_price keys.
func (c *PricingContext) Validate() error {
	var problems []string

	if c.Style == "" {
		problems = append(problems, "style is required")
	}
	if c.CountryCode == "" {
		problems = append(problems, "country_code is required")
	}
	if c.Category == "" {
		problems = append(problems, "category is required")
	}
	if c.GroupLogic == "" {
		problems = append(problems, "group_logic is required")
	}
	for _, k := range c.missingKeys {
		problems = append(problems, k+" key is missing")
	}

	if Defined(c.MinDiscount) && Defined(c.MaxDiscount) &&
		!(c.MinDiscount >= 0 && c.MinDiscount <= c.MaxDiscount && c.MaxDiscount <= 1) {
		problems = append(problems, fmt.Sprintf("discount bounds need 0 <= min <= max <= 1, got min %v max %v", c.MinDiscount, c.MaxDiscount))
	}

	problems = append(problems, alignmentProblems("style", c.StyleCompetitors)...)
	problems = append(problems, alignmentProblems("product", c.ProductCompetitors)...)

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Style: c.Style, CountryCode: c.CountryCode, Problems: problems}
}

func alignmentProblems(scope string, s CompetitorSignals) []string {
	var problems []string
	if len(s.InStock) != len(s.Prices) {
		problems = append(problems, fmt.Sprintf("%s competitors: %d prices but %d stock flags", scope, len(s.Prices), len(s.InStock)))
	}
	// change days are optional, but when present they must line up
	if len(s.PriceChangeDays) != 0 && len(s.PriceChangeDays) != len(s.Prices) {
		problems = append(problems, fmt.Sprintf("%s competitors: %d prices but %d change days", scope, len(s.Prices), len(s.PriceChangeDays)))
	}
	for i, flag := range s.InStock {
		if flag != 0 && flag != 1 {
			problems = append(problems, fmt.Sprintf("%s competitors: stock flag %d at index %d", scope, flag, i))
		}
	}
	return problems
}
