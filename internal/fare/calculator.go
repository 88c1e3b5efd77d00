package fare

import "time"

// SurchargeRule is a named, time-boxed fare adjustment. The window is
// expressed in minutes since midnight, [StartMinute, EndMinute), matched
// against local clock time. Rate is the fraction of (base + distance)
// added when the window applies.
type SurchargeRule struct {
	Name        string
	StartMinute int
	EndMinute   int
	Rate        float64
}

// Applies reports whether at falls inside the rule's window.
func (r SurchargeRule) Applies(at time.Time) bool {
	minute := at.Hour()*60 + at.Minute()
	return minute >= r.StartMinute && minute < r.EndMinute
}

// DefaultSurchargeRules returns the surcharge rules used for routes with
// no rules of their own: a morning and an evening peak, each adding 50%.
func DefaultSurchargeRules() []SurchargeRule {
	return []SurchargeRule{
		{Name: "morning-peak", StartMinute: 6 * 60, EndMinute: 9 * 60, Rate: 0.5},
		{Name: "evening-peak", StartMinute: 16 * 60, EndMinute: 19 * 60, Rate: 0.5},
	}
}

// Calculator computes total fares. Pure and deterministic: the reference
// time is always passed in, never read from the wall clock.
type Calculator struct {
	rules []SurchargeRule
}

// NewCalculator creates a Calculator with the given surcharge rules.
// Pass nil or empty to use DefaultSurchargeRules.
func NewCalculator(rules []SurchargeRule) *Calculator {
	if len(rules) == 0 {
		rules = DefaultSurchargeRules()
	}
	return &Calculator{rules: rules}
}

// Compute returns base + distanceFare, plus the surcharge of every rule
// whose window contains at. Zero distanceFare means an intra-station trip
// and yields the base fare alone. A negative distanceFare is a caller
// error and returns ErrInvalidDistance.
func (c *Calculator) Compute(baseFare, distanceFare float64, at time.Time) (float64, error) {
	if distanceFare < 0 {
		return 0, ErrInvalidDistance
	}

	subtotal := baseFare + distanceFare
	total := subtotal
	for _, rule := range c.rules {
		if rule.Applies(at) {
			total += subtotal * rule.Rate
		}
	}

	return total, nil
}
