// Package rules evaluates a business model profile against an assessment's answers.
package rules

import (
	"fmt"
	"math"
	"strings"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
)

// Rule names used for issues that do not come from a profile rule.
const (
	RuleRequiredDomain         = "required-domain"
	RuleCriticalDomainCoverage = "critical-domain-completeness"
	RuleUnknownBusinessModel   = "business-model-profile"
	RuleUnknownRule            = "unknown-rule"
	RuleClassification         = "industry-classification"
)

const (
	// CriticalWeight marks a domain whose low coverage is worth a warning.
	CriticalWeight = 1.1
	// CriticalCoverage is the coverage below which a critical domain is flagged.
	CriticalCoverage = 80
)

// Evaluator applies profile rules. It holds only static data and is safe to share.
type Evaluator struct {
	names      map[assess.DomainID]string
	baseCounts map[assess.DomainID]int
	predicates Predicates
}

// NewEvaluator builds an evaluator over a catalog and a predicate set.
func NewEvaluator(cat *catalog.Catalog, predicates Predicates) *Evaluator {
	e := &Evaluator{
		names:      make(map[assess.DomainID]string, len(cat.Domains)),
		baseCounts: cat.BaseCounts(),
		predicates: predicates,
	}
	for _, d := range cat.Domains {
		e.names[d.ID] = d.Name
	}
	return e
}

// Evaluate runs every check of the profile. A nil profile means the business
// model is unknown: no constraints apply and a single advisory is returned.
func (e *Evaluator) Evaluate(profile *assess.BusinessModelProfile, responses map[assess.DomainID]assess.DomainResponse) assess.ValidationResult {
	result := assess.ValidationResult{
		Errors:       []assess.ValidationIssue{},
		Warnings:     []assess.ValidationIssue{},
		Completeness: e.Coverage(responses),
	}

	if profile == nil {
		result.Warnings = append(result.Warnings, assess.ValidationIssue{
			Field:   "business_model",
			Message: "Business model is not recognised; no domain requirements or consistency rules were applied",
			Type:    assess.IssueOptional,
			Rule:    RuleUnknownBusinessModel,
		})
		return result
	}

	for _, d := range profile.RequiredDomains {
		if responses[d].AnsweredCount() > 0 {
			continue
		}
		result.Errors = append(result.Errors, assess.ValidationIssue{
			Field:   string(d),
			Message: fmt.Sprintf("%s has no responses and is required for %s businesses", e.name(d), profile.BusinessModel),
			Type:    assess.IssueRequired,
			Rule:    RuleRequiredDomain,
			Domain:  d,
		})
	}

	var unknown []string
	for _, rule := range profile.CrossDomainRules {
		pred, ok := e.predicates[rule.Name]
		if !ok {
			unknown = append(unknown, rule.Name)
			continue
		}
		values, ok := numericInputs(rule.Inputs, responses)
		if !ok || !pred(values, rule.Threshold) {
			continue
		}
		var primary assess.DomainID
		if len(rule.Domains) > 0 {
			primary = rule.Domains[0]
		}
		result.Errors = append(result.Errors, assess.ValidationIssue{
			Field:            joinDomains(rule.Domains),
			Message:          rule.Message,
			Type:             assess.IssueConsistency,
			Rule:             rule.Name,
			Domain:           primary,
			Questions:        refIDs(rule.Inputs),
			ImpactOnTimeline: rule.ImpactOnTimeline,
		})
	}

	for _, rule := range profile.BusinessLogicRules {
		pred, ok := e.predicates[rule.Name]
		if !ok {
			unknown = append(unknown, rule.Name)
			continue
		}
		refs := make([]assess.QuestionRef, len(rule.QuestionIDs))
		for i, id := range rule.QuestionIDs {
			refs[i] = assess.QuestionRef{Domain: rule.Domain, QuestionID: id}
		}
		values, ok := numericInputs(refs, responses)
		if !ok || !pred(values, rule.Threshold) {
			continue
		}
		result.Warnings = append(result.Warnings, assess.ValidationIssue{
			Field:     string(rule.Domain),
			Message:   rule.Message,
			Type:      assess.IssueQuality,
			Rule:      rule.Name,
			Domain:    rule.Domain,
			Questions: append([]string(nil), rule.QuestionIDs...),
		})
	}

	for _, d := range assess.AllDomains {
		w := profile.Weight(d)
		if w <= CriticalWeight {
			continue
		}
		if cov := e.domainCoverage(d, responses[d]); cov < CriticalCoverage {
			result.Warnings = append(result.Warnings, assess.ValidationIssue{
				Field:   string(d),
				Message: fmt.Sprintf("%s carries extra weight for %s businesses but is only %d%% answered", e.name(d), profile.BusinessModel, cov),
				Type:    assess.IssueCompleteness,
				Rule:    RuleCriticalDomainCoverage,
				Domain:  d,
			})
		}
	}

	if len(unknown) > 0 {
		result.Warnings = append(result.Warnings, assess.ValidationIssue{
			Field:   "rules",
			Message: fmt.Sprintf("Skipped unrecognised rules: %s", strings.Join(unknown, ", ")),
			Type:    assess.IssueOptional,
			Rule:    RuleUnknownRule,
		})
	}
	return result
}

// ClassificationAdvisories reports missing classification details as one advisory.
func (e *Evaluator) ClassificationAdvisories(c *assess.IndustryClassification) []assess.ValidationIssue {
	if c == nil {
		return []assess.ValidationIssue{{
			Field:   "classification",
			Message: "Industry classification has not been provided",
			Type:    assess.IssueOptional,
			Rule:    RuleClassification,
		}}
	}
	var missing []string
	if c.Sector == "" {
		missing = append(missing, "sector")
	}
	if c.SubSector == "" {
		missing = append(missing, "sub-sector")
	}
	if c.RegulatoryClassification == "" {
		missing = append(missing, "regulatory classification")
	}
	if c.CompanyStage == "" {
		missing = append(missing, "company stage")
	}
	if c.EmployeeCount <= 0 {
		missing = append(missing, "employee count")
	}
	if len(missing) == 0 {
		return nil
	}
	return []assess.ValidationIssue{{
		Field:   "classification",
		Message: fmt.Sprintf("Industry classification is missing: %s", strings.Join(missing, ", ")),
		Type:    assess.IssueOptional,
		Rule:    RuleClassification,
	}}
}

// Coverage is the coarse completeness: the mean, over domains with any answer,
// of answered count against the static base question count. It ignores
// follow-ups and is not the dynamic-graph progress.
func (e *Evaluator) Coverage(responses map[assess.DomainID]assess.DomainResponse) int {
	var sum float64
	n := 0
	for _, d := range assess.AllDomains {
		r, ok := responses[d]
		if !ok || r.AnsweredCount() == 0 {
			continue
		}
		sum += float64(e.domainCoverage(d, r))
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(sum / float64(n)))
}

func (e *Evaluator) domainCoverage(d assess.DomainID, r assess.DomainResponse) int {
	base := e.baseCounts[d]
	if base == 0 {
		return 0
	}
	pct := int(math.Round(float64(r.AnsweredCount()) * 100 / float64(base)))
	return min(pct, 100)
}

func (e *Evaluator) name(d assess.DomainID) string {
	if n, ok := e.names[d]; ok && n != "" {
		return n
	}
	return string(d)
}

// numericInputs resolves every input to a number, or reports false when any is
// unanswered or not numeric.
func numericInputs(refs []assess.QuestionRef, responses map[assess.DomainID]assess.DomainResponse) ([]float64, bool) {
	if len(refs) == 0 {
		return nil, false
	}
	values := make([]float64, 0, len(refs))
	for _, ref := range refs {
		v, ok := responses[ref.Domain].Value(ref.QuestionID)
		if !ok {
			return nil, false
		}
		f, ok := assess.Numeric(v)
		if !ok {
			return nil, false
		}
		values = append(values, f)
	}
	return values, true
}

func refIDs(refs []assess.QuestionRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.QuestionID
	}
	return ids
}

func joinDomains(ds []assess.DomainID) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = string(d)
	}
	return strings.Join(parts, "+")
}
