package profile

import (
	"strings"
	"testing"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/rules"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func TestBuiltinProfilesValidate(t *testing.T) {
	reg, err := Default(loadCatalog(t), rules.DefaultPredicates().Known)
	if err != nil {
		t.Fatalf("built-in profiles rejected: %v", err)
	}
	want := []string{ModelB2BSaaS, ModelB2CMarketplace, ModelHybrid, ModelManufacturing, ModelServices}
	got := reg.Models()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Models() = %v, want %v", got, want)
	}
}

func TestGet(t *testing.T) {
	reg, err := Default(loadCatalog(t), rules.DefaultPredicates().Known)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := reg.Get(ModelB2BSaaS)
	if !ok {
		t.Fatal("b2b-saas should be registered")
	}
	hasCustomer := false
	for _, d := range p.RequiredDomains {
		if d == assess.DomainCustomerSuccess {
			hasCustomer = true
		}
	}
	if !hasCustomer {
		t.Error("b2b-saas should require customer-success")
	}
	if _, ok := reg.Get("crypto-dao"); ok {
		t.Error("unknown model should not resolve")
	}
	if reg.Lookup("crypto-dao") != nil {
		t.Error("Lookup of unknown model should be nil")
	}
}

func TestEveryPredicateIsUsed(t *testing.T) {
	used := make(map[string]bool)
	for _, p := range Builtin() {
		for _, r := range p.CrossDomainRules {
			used[r.Name] = true
		}
		for _, r := range p.BusinessLogicRules {
			used[r.Name] = true
		}
	}
	for _, name := range rules.DefaultPredicates().Names() {
		if !used[name] {
			t.Errorf("rule %s is not referenced by any profile", name)
		}
	}
}

func TestRejectsBadProfiles(t *testing.T) {
	cat := loadCatalog(t)
	known := rules.DefaultPredicates().Known
	base := func() assess.BusinessModelProfile {
		p := Builtin()[0]
		p.BusinessModel = "test"
		return p
	}

	tests := []struct {
		name   string
		mutate func(*assess.BusinessModelProfile)
		want   string
	}{
		{"unknown rule", func(p *assess.BusinessModelProfile) {
			p.CrossDomainRules = append(p.CrossDomainRules, assess.CrossDomainRule{
				Name: "made-up", Domains: []assess.DomainID{revenue},
				Inputs: []assess.QuestionRef{ref(revenue, "3.1")},
			})
		}, "has no implementation"},
		{"unknown question", func(p *assess.BusinessModelProfile) {
			p.BusinessLogicRules = append(p.BusinessLogicRules, assess.BusinessLogicRule{
				Name: "churn-risk", Domain: customer, QuestionIDs: []string{"7.99"},
			})
		}, "unknown question"},
		{"weight out of range", func(p *assess.BusinessModelProfile) {
			p.DomainWeighting[revenue] = 2.5
		}, "outside"},
		{"unknown domain", func(p *assess.BusinessModelProfile) {
			p.RequiredDomains = append(p.RequiredDomains, "astrology")
		}, "unknown required domain"},
		{"required and optional", func(p *assess.BusinessModelProfile) {
			p.OptionalDomains = append(p.OptionalDomains, revenue)
		}, "both required and optional"},
		{"input outside declared domains", func(p *assess.BusinessModelProfile) {
			p.CrossDomainRules[0].Inputs = append(p.CrossDomainRules[0].Inputs, ref(market, "9.1"))
		}, "does not declare"},
	}
	for _, tt := range tests {
		p := base()
		tt.mutate(&p)
		_, err := NewRegistry(cat, []assess.BusinessModelProfile{p}, known)
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestRejectsDuplicateModel(t *testing.T) {
	p := Builtin()[0]
	_, err := NewRegistry(loadCatalog(t), []assess.BusinessModelProfile{p, p}, rules.DefaultPredicates().Known)
	if err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Errorf("want duplicate error, got %v", err)
	}
}
