// Package rules turns an enrichment bundle into sales recommendations.
//
// The rule set is a fixed, ordered list of small predicates. Every rule is
// evaluated on every call; evaluation is pure, so identical inputs always
// produce the same recommendations in the same order.
package rules

import (
	"slices"
	"strings"
	"time"

	"salgsmotor/internal/crm"
	"salgsmotor/internal/enrichment/models"
)

// Category is a service the sales team can offer. It doubles as the value
// of the CRM "recommended pipeline" dropdown.
type Category string

// Input is everything a rule may look at. AsOf stands in for "today" so
// that rules never read the wall clock.
type Input struct {
	Bundle *models.Bundle
	CRM    crm.State
	AsOf   time.Time
}

// Rule is one predicate with its fixed category and rank. Priority 1 is
// the strongest recommendation.
type Rule struct {
	ID        string
	Category  Category
	Priority  int
	Applies   func(Input) bool
	Rationale func(Input) string
}

// Recommendation is a fired rule.
type Recommendation struct {
	RuleID    string   `json:"rule_id"`
	Category  Category `json:"category"`
	Priority  int      `json:"priority"`
	Rationale string   `json:"rationale"`
}

// Engine evaluates a fixed rule list.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over the standard rule catalog.
func NewEngine() *Engine {
	return &Engine{rules: Catalog()}
}

// Rules returns a copy of the engine's rule list in evaluation order.
func (e *Engine) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Evaluate runs every rule against in and returns the fired ones ordered by
// priority. A category appears at most once.
func (e *Engine) Evaluate(in Input) []Recommendation {
	recs := make([]Recommendation, 0, len(e.rules))
	seen := make(map[Category]struct{}, len(e.rules))
	for _, r := range e.rules {
		if !r.Applies(in) {
			continue
		}
		if _, dup := seen[r.Category]; dup {
			continue
		}
		seen[r.Category] = struct{}{}
		recs = append(recs, Recommendation{
			RuleID:    r.ID,
			Category:  r.Category,
			Priority:  r.Priority,
			Rationale: r.Rationale(in),
		})
	}
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return strings.Compare(a.RuleID, b.RuleID)
	})
	return recs
}

// Primary returns the highest-priority recommendation, if any.
func Primary(recs []Recommendation) (Recommendation, bool) {
	if len(recs) == 0 {
		return Recommendation{}, false
	}
	best := recs[0]
	for _, r := range recs[1:] {
		if r.Priority < best.Priority {
			best = r
		}
	}
	return best, true
}

// Notes renders every rationale in priority order, one line per
// recommendation. Nothing from non-primary rules is dropped.
func Notes(recs []Recommendation) string {
	if len(recs) == 0 {
		return ""
	}
	ordered := slices.Clone(recs)
	slices.SortStableFunc(ordered, func(a, b Recommendation) int { return a.Priority - b.Priority })

	var sb strings.Builder
	for i, r := range ordered {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(string(r.Category))
		sb.WriteString(": ")
		sb.WriteString(r.Rationale)
	}
	return sb.String()
}
