package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/ledger"
	"github.com/sbenjam1n/bizassess/internal/profile"
	"github.com/sbenjam1n/bizassess/internal/rules"
)

var clock = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Default(Options{Now: func() time.Time { return clock }})
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return e
}

func classified(model string) assess.Assessment {
	return assess.Assessment{
		ID:        "a-1",
		CompanyID: "c-1",
		Classification: &assess.IndustryClassification{
			Sector: "software", SubSector: "analytics", RegulatoryClassification: "none",
			BusinessModel: model, CompanyStage: "growth", EmployeeCount: 25,
		},
	}
}

func TestUnknownBusinessModelNeverBlocks(t *testing.T) {
	e := newEngine(t)
	l := ledger.New()
	l.Record(assess.DomainRevenueEngine, "3.4", 5.0, clock)

	ev := e.Evaluate(classified("quantum-widgets"), l.Snapshot(), nil)
	if len(ev.Validation.Errors) != 0 {
		t.Errorf("errors: want 0, got %v", ev.Validation.Errors)
	}
	if len(ev.Validation.Warnings) != 1 {
		t.Errorf("warnings: want 1, got %v", ev.Validation.Warnings)
	}
	if ev.Verdict.ShouldNotify {
		t.Error("unknown model should not notify")
	}
}

func TestUnknownBusinessModelOnlyTagOneWarning(t *testing.T) {
	e := newEngine(t)
	a := assess.Assessment{
		ID:             "a-2",
		Classification: &assess.IndustryClassification{BusinessModel: "quantum-widgets"},
	}

	ev := e.Evaluate(a, ledger.New().Snapshot(), nil)
	if len(ev.Validation.Errors) != 0 {
		t.Errorf("errors: want 0, got %v", ev.Validation.Errors)
	}
	if len(ev.Validation.Warnings) != 1 {
		t.Fatalf("warnings: want 1, got %v", ev.Validation.Warnings)
	}
	w := ev.Validation.Warnings[0]
	if w.Rule != rules.RuleUnknownBusinessModel {
		t.Errorf("rule = %q", w.Rule)
	}
	if !strings.Contains(w.Message, "employee count") {
		t.Errorf("missing classification details not carried: %q", w.Message)
	}
}

func TestSaaSUnitEconomicsEndToEnd(t *testing.T) {
	e := newEngine(t)
	l := ledger.New()
	l.Record(assess.DomainRevenueEngine, "3.4", 5.0, clock)
	l.Record(assess.DomainCustomerSuccess, "7.2", 4.0, clock)

	ev := e.Evaluate(classified(profile.ModelB2BSaaS), l.Snapshot(), nil)

	var consistency int
	for _, issue := range ev.Validation.Errors {
		if issue.Type == assess.IssueConsistency {
			consistency++
			if !strings.Contains(strings.ToLower(issue.Message), "unsustainable unit economics") {
				t.Errorf("message = %q", issue.Message)
			}
		}
	}
	if consistency != 1 {
		t.Errorf("consistency errors: want 1, got %d", consistency)
	}

	var gap *assess.Gap
	for i := range ev.Gaps {
		if ev.Gaps[i].RuleName == "unsustainable-unit-economics" {
			gap = &ev.Gaps[i]
		}
	}
	if gap == nil {
		t.Fatal("no gap for unit economics")
	}
	if gap.Category != assess.GapCritical {
		t.Errorf("category: want critical, got %s", gap.Category)
	}

	// strategic, financial, product, technology are required and empty,
	// plus the unit economics conflict.
	if ev.Verdict.CriticalCount != 5 {
		t.Errorf("critical count: want 5, got %d", ev.Verdict.CriticalCount)
	}
	if !ev.Verdict.ShouldNotify || ev.Verdict.UrgencyLevel != assess.UrgencyHigh {
		t.Errorf("verdict = %+v, want high urgency notification", ev.Verdict)
	}
	if !ev.EvaluatedAt.Equal(clock) {
		t.Errorf("evaluated at %v", ev.EvaluatedAt)
	}
}

func TestMissingCustomerSuccess(t *testing.T) {
	e := newEngine(t)
	l := ledger.New()
	for _, d := range []assess.DomainID{
		assess.DomainStrategicAlignment, assess.DomainFinancialClarity,
		assess.DomainRevenueEngine, assess.DomainProductStrategy, assess.DomainTechnologyData,
	} {
		dom, _ := e.Catalog().Domain(d)
		l.Record(d, dom.Questions[0].ID, 2.0, clock)
	}

	ev := e.Evaluate(classified(profile.ModelB2BSaaS), l.Snapshot(), nil)
	var required []string
	for _, issue := range ev.Validation.Errors {
		if issue.Type == assess.IssueRequired {
			required = append(required, issue.Field)
		}
	}
	if len(required) != 1 || required[0] != "customer-success" {
		t.Errorf("required errors = %v, want [customer-success]", required)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	e := newEngine(t)
	l := ledger.New()
	l.Record(assess.DomainStrategicAlignment, "1.1", 4.0, clock)
	l.Record(assess.DomainFinancialClarity, "2.3", 5.0, clock)
	snap := l.Snapshot()

	a := classified(profile.ModelHybrid)
	first := e.Evaluate(a, snap, nil)
	second := e.Evaluate(a, snap, first.Gaps)
	if len(first.Gaps) != len(second.Gaps) {
		t.Fatalf("gap count changed: %d -> %d", len(first.Gaps), len(second.Gaps))
	}
	for i := range first.Gaps {
		if first.Gaps[i].GapID != second.Gaps[i].GapID {
			t.Errorf("gap %d id changed", i)
		}
	}
	if first.Overall != second.Overall {
		t.Errorf("overall changed: %+v -> %+v", first.Overall, second.Overall)
	}
}

func TestProgressUsesDynamicGraph(t *testing.T) {
	e := newEngine(t)
	l := ledger.New()
	for id, v := range map[string]any{
		"1.1": 4.0, "1.2": 2.0, "1.3": 1.0, "1.4": "1-3-years", "1.5": true, "1.6": "Grow",
	} {
		l.Record(assess.DomainStrategicAlignment, id, v, clock)
	}
	byDomain, _ := e.Progress(l.Snapshot(), nil)
	p := byDomain[assess.DomainStrategicAlignment]
	if p.Total != 8 || p.Status != assess.StatusInProgress {
		t.Errorf("strategic progress = %+v, want total 8 in-progress", p)
	}
	if len(byDomain) != len(assess.AllDomains) {
		t.Errorf("progress should cover every domain, got %d", len(byDomain))
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	preds := rules.DefaultPredicates()
	reg, err := profile.Default(cat, preds.Known)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := New(nil, reg, preds, Options{}); err == nil {
		t.Error("nil catalog should fail")
	}
	if _, err := New(cat, nil, preds, Options{}); err == nil {
		t.Error("nil registry should fail")
	}
	if _, err := New(cat, reg, nil, Options{}); err == nil {
		t.Error("empty predicates should fail")
	}
	bad := Options{}
	bad.Policy.NotifyThreshold, bad.Policy.EscalateThreshold = 5, 2
	if _, err := New(cat, reg, preds, bad); err == nil {
		t.Error("escalate below notify should fail")
	}
}
