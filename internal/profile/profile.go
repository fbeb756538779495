// Package profile holds the business model profiles and validates them
// against the catalog and the rule set when the registry is built.
package profile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
)

// Weight bounds accepted for a domain.
const (
	MinWeight = 0.5
	MaxWeight = 1.5
)

// Registry is an immutable set of validated profiles keyed by business model.
type Registry struct {
	profiles map[string]assess.BusinessModelProfile
}

// NewRegistry validates every profile. known reports whether a rule name has
// an implementation; a profile naming any other rule is rejected.
func NewRegistry(cat *catalog.Catalog, profiles []assess.BusinessModelProfile, known func(string) bool) (*Registry, error) {
	r := &Registry{profiles: make(map[string]assess.BusinessModelProfile, len(profiles))}
	var errs []error
	for _, p := range profiles {
		if p.BusinessModel == "" {
			errs = append(errs, errors.New("profile with empty business model"))
			continue
		}
		if _, dup := r.profiles[p.BusinessModel]; dup {
			errs = append(errs, fmt.Errorf("profile %s declared twice", p.BusinessModel))
			continue
		}
		if err := validate(cat, p, known); err != nil {
			errs = append(errs, fmt.Errorf("profile %s: %w", p.BusinessModel, err))
			continue
		}
		r.profiles[p.BusinessModel] = p
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Default builds a registry from the built-in profiles.
func Default(cat *catalog.Catalog, known func(string) bool) (*Registry, error) {
	return NewRegistry(cat, Builtin(), known)
}

func validate(cat *catalog.Catalog, p assess.BusinessModelProfile, known func(string) bool) error {
	var errs []error
	required := make(map[assess.DomainID]bool)
	for _, d := range p.RequiredDomains {
		if !d.Valid() {
			errs = append(errs, fmt.Errorf("unknown required domain %q", d))
		}
		required[d] = true
	}
	for _, d := range p.OptionalDomains {
		if !d.Valid() {
			errs = append(errs, fmt.Errorf("unknown optional domain %q", d))
		}
		if required[d] {
			errs = append(errs, fmt.Errorf("domain %s is both required and optional", d))
		}
	}
	for d, w := range p.DomainWeighting {
		if !d.Valid() {
			errs = append(errs, fmt.Errorf("weight for unknown domain %q", d))
		}
		if w < MinWeight || w > MaxWeight {
			errs = append(errs, fmt.Errorf("weight %.2f for %s outside %.1f-%.1f", w, d, MinWeight, MaxWeight))
		}
	}
	for _, rule := range p.CrossDomainRules {
		if !known(rule.Name) {
			errs = append(errs, fmt.Errorf("cross-domain rule %q has no implementation", rule.Name))
		}
		if len(rule.Inputs) == 0 {
			errs = append(errs, fmt.Errorf("cross-domain rule %q has no inputs", rule.Name))
		}
		declared := make(map[assess.DomainID]bool)
		for _, d := range rule.Domains {
			declared[d] = true
		}
		for _, in := range rule.Inputs {
			if !declared[in.Domain] {
				errs = append(errs, fmt.Errorf("cross-domain rule %q reads %s which it does not declare", rule.Name, in.Domain))
			}
			if !cat.HasQuestion(in.Domain, in.QuestionID) {
				errs = append(errs, fmt.Errorf("cross-domain rule %q reads unknown question %s/%s", rule.Name, in.Domain, in.QuestionID))
			}
		}
	}
	for _, rule := range p.BusinessLogicRules {
		if !known(rule.Name) {
			errs = append(errs, fmt.Errorf("business logic rule %q has no implementation", rule.Name))
		}
		if len(rule.QuestionIDs) == 0 {
			errs = append(errs, fmt.Errorf("business logic rule %q has no inputs", rule.Name))
		}
		for _, id := range rule.QuestionIDs {
			if !cat.HasQuestion(rule.Domain, id) {
				errs = append(errs, fmt.Errorf("business logic rule %q reads unknown question %s/%s", rule.Name, rule.Domain, id))
			}
		}
	}
	return errors.Join(errs...)
}

// Get looks up a profile. The boolean is false for unknown business models.
func (r *Registry) Get(businessModel string) (assess.BusinessModelProfile, bool) {
	p, ok := r.profiles[businessModel]
	return p, ok
}

// Lookup is Get returning a pointer, nil for unknown business models.
func (r *Registry) Lookup(businessModel string) *assess.BusinessModelProfile {
	p, ok := r.profiles[businessModel]
	if !ok {
		return nil
	}
	return &p
}

// Models lists the registered business models in sorted order.
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.profiles))
	for m := range r.profiles {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
