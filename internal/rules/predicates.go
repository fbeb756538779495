package rules

import "sort"

// Predicate decides whether a rule fires for the numeric values of its inputs,
// in the order the rule declares them. It is only called when every input is answered.
type Predicate func(values []float64, threshold float64) bool

// Predicates maps rule names to their predicate. Profiles may only name rules present here.
type Predicates map[string]Predicate

// DefaultPredicates returns the closed set of rules profiles can reference.
func DefaultPredicates() Predicates {
	return Predicates{
		// cross-domain
		"unsustainable-unit-economics": allAtLeast,
		"growth-outpacing-operations":  allAtLeast,
		"strategy-without-alignment":   meanAtLeast,
		"scaling-on-technical-debt":    allAtLeast,
		"scaling-before-fit":           allAtLeast,
		"runway-growth-conflict":       allAtLeast,
		"unpriced-compliance-exposure": allAtLeast,
		"supply-chain-fragility":       allAtLeast,
		"delivery-capacity-strain":     allAtLeast,
		"marketplace-liquidity-gap":    meanAtLeast,
		"pricing-market-divergence":    spreadAtLeast,

		// single-domain
		"runway-risk":                 allAtLeast,
		"forecast-reliability":        meanAtLeast,
		"pipeline-predictability":     allAtLeast,
		"key-person-dependency":       allAtLeast,
		"security-posture":            allAtLeast,
		"churn-risk":                  allAtLeast,
		"regulatory-readiness":        allAtLeast,
		"process-documentation":       allAtLeast,
		"roadmap-discipline":          allAtLeast,
		"leadership-sponsorship":      allAtLeast,
		"financial-signal-divergence": spreadAtLeast,
	}
}

// Known reports whether name has a predicate.
func (p Predicates) Known(name string) bool {
	_, ok := p[name]
	return ok
}

// Names lists rule names in sorted order.
func (p Predicates) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func allAtLeast(values []float64, threshold float64) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		if v < threshold {
			return false
		}
	}
	return true
}

func meanAtLeast(values []float64, threshold float64) bool {
	if len(values) == 0 {
		return false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum/float64(len(values)) >= threshold
}

// spreadAtLeast fires when answers that should agree are far apart.
func spreadAtLeast(values []float64, threshold float64) bool {
	if len(values) < 2 {
		return false
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi-lo >= threshold
}
