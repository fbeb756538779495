// Package catalog loads the authored question catalog and checks it for
// authoring mistakes before anything is evaluated against it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the static question set for every domain.
type Catalog struct {
	Version int             `yaml:"version"`
	Domains []assess.Domain `yaml:"domains"`

	byID map[assess.DomainID]int
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks structural integrity and builds the lookup index.
func (c *Catalog) Validate() error {
	c.byID = make(map[assess.DomainID]int, len(c.Domains))
	for i, d := range c.Domains {
		if !d.ID.Valid() {
			return fmt.Errorf("catalog: unknown domain %q", d.ID)
		}
		if _, dup := c.byID[d.ID]; dup {
			return fmt.Errorf("catalog: domain %s declared twice", d.ID)
		}
		c.byID[d.ID] = i
		if err := validateDomain(d); err != nil {
			return fmt.Errorf("catalog: domain %s: %w", d.ID, err)
		}
	}
	for _, id := range assess.AllDomains {
		if _, ok := c.byID[id]; !ok {
			return fmt.Errorf("catalog: domain %s has no questions", id)
		}
	}
	return nil
}

func validateDomain(d assess.Domain) error {
	if len(d.Questions) == 0 {
		return fmt.Errorf("no base questions")
	}
	seen := make(map[string]bool)
	for _, q := range d.Questions {
		if err := validateQuestion(q, seen); err != nil {
			return err
		}
		if q.Conditional != nil {
			return fmt.Errorf("base question %s must not be conditional", q.ID)
		}
	}
	for _, q := range d.FollowUps {
		if err := validateQuestion(q, seen); err != nil {
			return err
		}
		if q.Conditional == nil {
			return fmt.Errorf("follow-up %s has no conditional", q.ID)
		}
		if len(q.Conditional.ShowIf) == 0 && q.Conditional.AtLeast == nil {
			return fmt.Errorf("follow-up %s has neither show_if nor at_least", q.ID)
		}
	}
	// Triggers may be base questions or other follow-ups, but must not loop.
	parent := make(map[string]string)
	for _, q := range d.FollowUps {
		dep := q.Conditional.DependsOn
		if !seen[dep] {
			return fmt.Errorf("follow-up %s depends on unknown question %q", q.ID, dep)
		}
		parent[q.ID] = dep
	}
	for id := range parent {
		steps := 0
		for cur := id; parent[cur] != ""; cur = parent[cur] {
			steps++
			if steps > len(parent) {
				return fmt.Errorf("follow-up %s is part of a trigger cycle", id)
			}
		}
	}
	return nil
}

func validateQuestion(q assess.Question, seen map[string]bool) error {
	if q.ID == "" {
		return fmt.Errorf("question with empty id")
	}
	if seen[q.ID] {
		return fmt.Errorf("question %s declared twice", q.ID)
	}
	seen[q.ID] = true
	switch q.Type {
	case assess.QuestionScale:
		if q.Scale == nil || q.Scale.Min >= q.Scale.Max {
			return fmt.Errorf("scale question %s needs min < max", q.ID)
		}
	case assess.QuestionSingleChoice, assess.QuestionMultiChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("choice question %s has no options", q.ID)
		}
	case assess.QuestionBoolean, assess.QuestionText:
	default:
		return fmt.Errorf("question %s has unknown type %q", q.ID, q.Type)
	}
	return nil
}

// Domain returns the authored domain.
func (c *Catalog) Domain(id assess.DomainID) (assess.Domain, bool) {
	i, ok := c.byID[id]
	if !ok {
		return assess.Domain{}, false
	}
	return c.Domains[i], true
}

// Question finds a base or follow-up question.
func (c *Catalog) Question(domain assess.DomainID, questionID string) (assess.Question, bool) {
	d, ok := c.Domain(domain)
	if !ok {
		return assess.Question{}, false
	}
	for _, q := range d.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	for _, q := range d.FollowUps {
		if q.ID == questionID {
			return q, true
		}
	}
	return assess.Question{}, false
}

// HasQuestion reports whether the domain declares questionID.
func (c *Catalog) HasQuestion(domain assess.DomainID, questionID string) bool {
	_, ok := c.Question(domain, questionID)
	return ok
}

// BaseCounts returns the static base question count per domain.
func (c *Catalog) BaseCounts() map[assess.DomainID]int {
	out := make(map[assess.DomainID]int, len(c.Domains))
	for _, d := range c.Domains {
		out[d.ID] = len(d.Questions)
	}
	return out
}
