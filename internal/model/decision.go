package model

import "strings"

// Node identifies one visited branch of a decision tree.
type Node string

// Trace is the ordered list of nodes a context passed through.
type Trace []Node

// String renders the trace as "a>b>c".
func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, n := range t {
		parts[i] = string(n)
	}
	return strings.Join(parts, ">")
}

// Contains reports whether n was visited.
func (t Trace) Contains(n Node) bool {
	for _, v := range t {
		if v == n {
			return true
		}
	}
	return false
}

// Decision is what a strategy produces for one context.
type Decision struct {
	Strategy string
	Change   Change
	Price    float64
	Path     Trace
}

// Recommendation pairs a context with its decision and the counter carried
// into the next run.
type Recommendation struct {
	Context            PricingContext
	Decision           Decision
	LastChangedDaysAgo int
}
