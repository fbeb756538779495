package rules

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
)

type answers map[assess.DomainID]map[string]any

func (a answers) responses() map[assess.DomainID]assess.DomainResponse {
	out := make(map[assess.DomainID]assess.DomainResponse, len(a))
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for d, values := range a {
		r := assess.DomainResponse{Domain: d, Questions: map[string]assess.Answer{}}
		for id, v := range values {
			ans := assess.Answer{QuestionID: id, Value: v, AnsweredAt: at}
			r.Questions[id] = ans
			r.History = append(r.History, ans)
		}
		out[d] = r
	}
	return out
}

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewEvaluator(cat, DefaultPredicates())
}

func saasProfile() *assess.BusinessModelProfile {
	return &assess.BusinessModelProfile{
		BusinessModel: "b2b-saas",
		RequiredDomains: []assess.DomainID{
			assess.DomainRevenueEngine,
			assess.DomainCustomerSuccess,
		},
		DomainWeighting: map[assess.DomainID]float64{
			assess.DomainRevenueEngine:   1.4,
			assess.DomainCustomerSuccess: 1.3,
		},
		CrossDomainRules: []assess.CrossDomainRule{{
			Name:    "unsustainable-unit-economics",
			Domains: []assess.DomainID{assess.DomainRevenueEngine, assess.DomainCustomerSuccess},
			Inputs: []assess.QuestionRef{
				{Domain: assess.DomainRevenueEngine, QuestionID: "3.4"},
				{Domain: assess.DomainCustomerSuccess, QuestionID: "7.2"},
			},
			Threshold:        4,
			Message:          "Unsustainable unit economics",
			ImpactOnTimeline: true,
		}},
		BusinessLogicRules: []assess.BusinessLogicRule{{
			Name:        "churn-risk",
			Domain:      assess.DomainCustomerSuccess,
			QuestionIDs: []string{"7.2"},
			Threshold:   4,
			Message:     "Retention is weak",
		}},
	}
}

func rulesOf(issues []assess.ValidationIssue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.Rule)
	}
	return out
}

func TestMissingRequiredDomain(t *testing.T) {
	e := newEvaluator(t)
	res := e.Evaluate(saasProfile(), answers{
		assess.DomainRevenueEngine: {"3.1": 2.0, "3.2": 2.0, "3.3": 2.0, "3.4": 2.0, "3.5": "direct-sales"},
	}.responses())

	if len(res.Errors) != 1 {
		t.Fatalf("errors: want 1, got %d (%v)", len(res.Errors), res.Errors)
	}
	got := res.Errors[0]
	if got.Type != assess.IssueRequired || got.Field != string(assess.DomainCustomerSuccess) {
		t.Errorf("error = %+v, want required on customer-success", got)
	}
	if !res.Blocking() {
		t.Error("missing required domain should block")
	}
}

func TestUnitEconomicsConsistency(t *testing.T) {
	e := newEvaluator(t)
	res := e.Evaluate(saasProfile(), answers{
		assess.DomainRevenueEngine:   {"3.4": 5.0},
		assess.DomainCustomerSuccess: {"7.2": 4.0},
	}.responses())

	var found *assess.ValidationIssue
	for i := range res.Errors {
		if res.Errors[i].Type == assess.IssueConsistency {
			found = &res.Errors[i]
		}
	}
	if found == nil {
		t.Fatalf("no consistency error in %v", res.Errors)
	}
	if found.Field != "revenue-engine+customer-success" {
		t.Errorf("field = %q", found.Field)
	}
	if !strings.Contains(found.Message, "Unsustainable unit economics") {
		t.Errorf("message = %q", found.Message)
	}
	if !found.ImpactOnTimeline {
		t.Error("impact on timeline should carry through")
	}
	if !reflect.DeepEqual(found.Questions, []string{"3.4", "7.2"}) {
		t.Errorf("questions = %v", found.Questions)
	}
	if !reflect.DeepEqual(rulesOf(res.Warnings)[:1], []string{"churn-risk"}) {
		t.Errorf("warnings = %v, want churn-risk first", rulesOf(res.Warnings))
	}
}

func TestPartialDataDoesNotFire(t *testing.T) {
	e := newEvaluator(t)
	tests := []struct {
		name   string
		values answers
	}{
		{"second input unanswered", answers{
			assess.DomainRevenueEngine:   {"3.4": 5.0},
			assess.DomainCustomerSuccess: {"7.1": 2.0},
		}},
		{"second input blank", answers{
			assess.DomainRevenueEngine:   {"3.4": 5.0},
			assess.DomainCustomerSuccess: {"7.2": ""},
		}},
		{"non-numeric input", answers{
			assess.DomainRevenueEngine:   {"3.4": 5.0},
			assess.DomainCustomerSuccess: {"7.2": "five"},
		}},
		{"below threshold", answers{
			assess.DomainRevenueEngine:   {"3.4": 5.0},
			assess.DomainCustomerSuccess: {"7.2": 3.0},
		}},
	}
	for _, tt := range tests {
		res := e.Evaluate(saasProfile(), tt.values.responses())
		for _, issue := range res.Errors {
			if issue.Type == assess.IssueConsistency {
				t.Errorf("%s: unexpected consistency error %+v", tt.name, issue)
			}
		}
	}
}

func TestUnknownBusinessModel(t *testing.T) {
	e := newEvaluator(t)
	res := e.Evaluate(nil, answers{
		assess.DomainRevenueEngine: {"3.4": 5.0},
	}.responses())
	if len(res.Errors) != 0 {
		t.Errorf("errors: want 0, got %v", res.Errors)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Type != assess.IssueOptional {
		t.Errorf("warnings: want one optional advisory, got %v", res.Warnings)
	}
}

func TestUnknownRulesReportedOnce(t *testing.T) {
	e := newEvaluator(t)
	p := saasProfile()
	p.CrossDomainRules = append(p.CrossDomainRules, assess.CrossDomainRule{Name: "no-such-rule"})
	p.BusinessLogicRules = append(p.BusinessLogicRules, assess.BusinessLogicRule{Name: "also-missing"})

	res := e.Evaluate(p, answers{
		assess.DomainRevenueEngine:   {"3.1": 1.0},
		assess.DomainCustomerSuccess: {"7.1": 1.0},
	}.responses())

	n := 0
	for _, w := range res.Warnings {
		if w.Rule == RuleUnknownRule {
			n++
			if !strings.Contains(w.Message, "no-such-rule") || !strings.Contains(w.Message, "also-missing") {
				t.Errorf("message should name both rules: %q", w.Message)
			}
		}
	}
	if n != 1 {
		t.Errorf("unknown-rule warnings: want 1, got %d", n)
	}
}

func TestCriticalDomainCoverage(t *testing.T) {
	e := newEvaluator(t)
	res := e.Evaluate(saasProfile(), answers{
		assess.DomainRevenueEngine: {"3.1": 2.0, "3.2": 2.0, "3.3": 2.0, "3.4": 2.0, "3.5": "direct-sales"},
	}.responses())

	var flagged []string
	for _, w := range res.Warnings {
		if w.Rule == RuleCriticalDomainCoverage {
			flagged = append(flagged, w.Field)
		}
	}
	// revenue-engine is 5/6 = 83%, customer-success has nothing.
	if !reflect.DeepEqual(flagged, []string{"customer-success"}) {
		t.Errorf("flagged = %v, want [customer-success]", flagged)
	}
}

func TestEvaluateIsRepeatable(t *testing.T) {
	e := newEvaluator(t)
	in := answers{
		assess.DomainRevenueEngine:   {"3.4": 5.0},
		assess.DomainCustomerSuccess: {"7.2": 5.0},
	}.responses()
	first := e.Evaluate(saasProfile(), in)
	second := e.Evaluate(saasProfile(), in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls:\n%v\n%v", first, second)
	}
}

func TestCoverage(t *testing.T) {
	e := newEvaluator(t)
	tests := []struct {
		name string
		in   answers
		want int
	}{
		{"no answers", answers{}, 0},
		{"one domain half done", answers{assess.DomainRevenueEngine: {"3.1": 1.0, "3.2": 1.0, "3.3": 1.0}}, 50},
		{"follow-ups cap at 100", answers{assess.DomainTechnologyData: {
			"6.1": 5.0, "6.2": 1.0, "6.3": 1.0, "6.4": "crm", "6.5": "n/a", "6.1a": "billing",
		}}, 100},
		{"averaged over answered domains", answers{
			assess.DomainRevenueEngine:   {"3.1": 1.0, "3.2": 1.0, "3.3": 1.0},
			assess.DomainCustomerSuccess: {"7.1": 1.0, "7.2": 1.0, "7.3": true, "7.4": 1.0, "7.5": "ok"},
		}, 75},
	}
	for _, tt := range tests {
		if got := e.Coverage(tt.in.responses()); got != tt.want {
			t.Errorf("%s: Coverage = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestClassificationAdvisories(t *testing.T) {
	e := newEvaluator(t)
	if got := e.ClassificationAdvisories(nil); len(got) != 1 {
		t.Errorf("nil classification: want 1 advisory, got %d", len(got))
	}
	full := &assess.IndustryClassification{
		Sector: "software", SubSector: "hr-tech", RegulatoryClassification: "none",
		BusinessModel: "b2b-saas", CompanyStage: "growth", EmployeeCount: 40,
	}
	if got := e.ClassificationAdvisories(full); len(got) != 0 {
		t.Errorf("full classification: want none, got %v", got)
	}
	partial := &assess.IndustryClassification{Sector: "software", BusinessModel: "b2b-saas"}
	got := e.ClassificationAdvisories(partial)
	if len(got) != 1 || !strings.Contains(got[0].Message, "employee count") {
		t.Errorf("partial classification: got %v", got)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name      string
		pred      Predicate
		values    []float64
		threshold float64
		want      bool
	}{
		{"all at threshold", allAtLeast, []float64{4, 4}, 4, true},
		{"one below", allAtLeast, []float64{5, 3}, 4, false},
		{"empty", allAtLeast, nil, 4, false},
		{"mean reaches", meanAtLeast, []float64{5, 3}, 4, true},
		{"mean short", meanAtLeast, []float64{4, 3}, 4, false},
		{"spread wide", spreadAtLeast, []float64{1, 5}, 3, true},
		{"spread narrow", spreadAtLeast, []float64{2, 4}, 3, false},
		{"spread single", spreadAtLeast, []float64{5}, 0, false},
	}
	for _, tt := range tests {
		if got := tt.pred(tt.values, tt.threshold); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
