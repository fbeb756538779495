// Package engine runs one full evaluation pass over an assessment: dynamic
// graph, progress, rule evaluation, gap classification and the founder verdict.
package engine

import (
	"fmt"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/gaps"
	"github.com/sbenjam1n/bizassess/internal/graph"
	"github.com/sbenjam1n/bizassess/internal/profile"
	"github.com/sbenjam1n/bizassess/internal/progress"
	"github.com/sbenjam1n/bizassess/internal/rules"
)

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	SecondsPerQuestion int
	Policy             gaps.Policy
	Now                func() time.Time
}

// Engine is immutable after New and safe for concurrent use.
type Engine struct {
	cat        *catalog.Catalog
	profiles   *profile.Registry
	evaluator  *rules.Evaluator
	classifier *gaps.Classifier
	opts       Options
}

// New wires an engine. Bad static configuration is reported here and never
// during evaluation.
func New(cat *catalog.Catalog, profiles *profile.Registry, preds rules.Predicates, opts Options) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("engine: nil catalog")
	}
	if profiles == nil {
		return nil, fmt.Errorf("engine: nil profile registry")
	}
	if len(preds) == 0 {
		return nil, fmt.Errorf("engine: no rule predicates")
	}
	if opts.SecondsPerQuestion <= 0 {
		opts.SecondsPerQuestion = progress.DefaultSecondsPerQuestion
	}
	if opts.Policy.NotifyThreshold <= 0 || opts.Policy.EscalateThreshold <= 0 {
		opts.Policy = gaps.DefaultPolicy()
	}
	if opts.Policy.EscalateThreshold < opts.Policy.NotifyThreshold {
		return nil, fmt.Errorf("engine: escalate threshold %d below notify threshold %d",
			opts.Policy.EscalateThreshold, opts.Policy.NotifyThreshold)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		cat:        cat,
		profiles:   profiles,
		evaluator:  rules.NewEvaluator(cat, preds),
		classifier: gaps.NewClassifier(cat, opts.Now),
		opts:       opts,
	}, nil
}

// Default builds an engine over the embedded catalog and built-in profiles.
func Default(opts Options) (*Engine, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	return FromCatalog(cat, opts)
}

// FromCatalog builds an engine with the built-in profiles and rules.
func FromCatalog(cat *catalog.Catalog, opts Options) (*Engine, error) {
	preds := rules.DefaultPredicates()
	reg, err := profile.Default(cat, preds.Known)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	return New(cat, reg, preds, opts)
}

// Catalog returns the catalog the engine evaluates against.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Policy returns the notification thresholds in effect.
func (e *Engine) Policy() gaps.Policy { return e.opts.Policy }

// Profiles returns the profile registry.
func (e *Engine) Profiles() *profile.Registry { return e.profiles }

// Profile resolves the business model, or nil when it is unknown.
func (e *Engine) Profile(businessModel string) *assess.BusinessModelProfile {
	return e.profiles.Lookup(businessModel)
}

// Graph returns the dynamic question sequence for one domain.
func (e *Engine) Graph(d assess.DomainID, r assess.DomainResponse) (graph.Graph, bool) {
	dom, ok := e.cat.Domain(d)
	if !ok {
		return graph.Graph{}, false
	}
	return graph.ForDomain(dom, r), true
}

// Progress computes per-domain and overall progress.
func (e *Engine) Progress(responses map[assess.DomainID]assess.DomainResponse, p *assess.BusinessModelProfile) (map[assess.DomainID]assess.DomainProgress, assess.Overall) {
	byDomain := make(map[assess.DomainID]assess.DomainProgress, len(e.cat.Domains))
	for _, dom := range e.cat.Domains {
		r := responses[dom.ID]
		byDomain[dom.ID] = progress.Domain(graph.ForDomain(dom, r), r)
	}
	return byDomain, progress.Overall(byDomain, p, e.opts.SecondsPerQuestion)
}

// Validate runs the rule evaluator plus classification advisories. With no
// profile for the business model, missing classification details are folded
// into the single unknown-model advisory.
func (e *Engine) Validate(a assess.Assessment, responses map[assess.DomainID]assess.DomainResponse) assess.ValidationResult {
	p := e.Profile(a.BusinessModel())
	result := e.evaluator.Evaluate(p, responses)
	advisories := e.evaluator.ClassificationAdvisories(a.Classification)
	if p == nil {
		for i, w := range result.Warnings {
			if w.Rule != rules.RuleUnknownBusinessModel {
				continue
			}
			for _, adv := range advisories {
				result.Warnings[i].Message += ". " + adv.Message
			}
			return result
		}
	}
	result.Warnings = append(result.Warnings, advisories...)
	return result
}

// Evaluate runs a full pass. previous carries gaps from the last pass so
// their identity and resolved/skipped flags survive.
func (e *Engine) Evaluate(a assess.Assessment, responses map[assess.DomainID]assess.DomainResponse, previous []assess.Gap) assess.Evaluation {
	p := e.Profile(a.BusinessModel())
	byDomain, overall := e.Progress(responses, p)
	result := e.Validate(a, responses)
	found := e.classifier.Classify(a.ID, result, byDomain, p, previous)
	return assess.Evaluation{
		AssessmentID: a.ID,
		Progress:     byDomain,
		Overall:      overall,
		Validation:   result,
		Gaps:         found,
		Verdict:      gaps.Evaluate(found, e.opts.Policy),
		EvaluatedAt:  e.opts.Now().UTC(),
	}
}
