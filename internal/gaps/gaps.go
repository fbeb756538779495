// Package gaps turns validation issues and domain progress into prioritized,
// identity-stable gaps, and decides when the founder should hear about them.
package gaps

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
)

// RuleLowCompleteness names gaps raised for an in-progress domain below LowCompletenessPercent.
const RuleLowCompleteness = "low-completeness"

// LowCompletenessPercent is the domain percentage below which a started domain becomes a gap.
const LowCompletenessPercent = 50

// MaxSuggestions caps suggested questions per gap.
const MaxSuggestions = 5

// Minutes to resolve a gap, by the kind of issue behind it.
var ResolutionMinutes = map[assess.IssueType]int{
	assess.IssueRequired:     15,
	assess.IssueConsistency:  10,
	assess.IssueQuality:      5,
	assess.IssueCompleteness: 10,
	assess.IssueOptional:     3,
}

const lowCompletenessMinutes = 10

// namespace seeds deterministic gap ids.
var namespace = uuid.MustParse("6f1c3a52-1d0e-4f7e-9b59-2a1f0c7d8e43")

// ID returns the stable gap id for a (domain, rule) pair of one assessment.
func ID(assessmentID string, domain assess.DomainID, rule string) string {
	return uuid.NewSHA1(namespace, []byte(assessmentID+"/"+string(domain)+"/"+rule)).String()
}

// Classifier maps evaluation output to gaps.
type Classifier struct {
	cat *catalog.Catalog
	now func() time.Time
}

// NewClassifier returns a classifier. A nil clock uses time.Now.
func NewClassifier(cat *catalog.Catalog, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{cat: cat, now: now}
}

type key struct {
	domain assess.DomainID
	rule   string
}

// Classify builds the current gap list. Gaps in previous that match a current
// condition keep their id, first detection time, and resolved/skipped flags;
// gaps whose condition is gone are dropped.
func (c *Classifier) Classify(
	assessmentID string,
	result assess.ValidationResult,
	progress map[assess.DomainID]assess.DomainProgress,
	profile *assess.BusinessModelProfile,
	previous []assess.Gap,
) []assess.Gap {
	now := c.now().UTC()
	prev := make(map[key]assess.Gap, len(previous))
	for _, g := range previous {
		prev[key{g.Domain, g.RuleName}] = g
	}

	current := make(map[key]assess.Gap)
	add := func(g assess.Gap) {
		k := key{g.Domain, g.RuleName}
		if existing, ok := current[k]; ok && existing.Category.Rank() >= g.Category.Rank() {
			return
		}
		current[k] = g
	}

	issues := make([]assess.ValidationIssue, 0, len(result.Errors)+len(result.Warnings))
	issues = append(issues, result.Errors...)
	issues = append(issues, result.Warnings...)
	flagged := make(map[assess.DomainID]bool)
	for _, issue := range issues {
		g := c.fromIssue(issue, progress, profile)
		if issue.Type == assess.IssueCompleteness || issue.Type == assess.IssueRequired {
			flagged[issue.Domain] = true
		}
		add(g)
	}

	for _, d := range assess.AllDomains {
		p, ok := progress[d]
		if !ok || flagged[d] || p.Status != assess.StatusInProgress || p.Percentage >= LowCompletenessPercent {
			continue
		}
		add(c.lowCompleteness(p, profile))
	}

	out := make([]assess.Gap, 0, len(current))
	for k, g := range current {
		g.AssessmentID = assessmentID
		g.GapID = ID(assessmentID, k.domain, k.rule)
		g.DetectedAt = now
		g.FirstDetectedAt = now
		if old, ok := prev[k]; ok {
			if !old.FirstDetectedAt.IsZero() {
				g.FirstDetectedAt = old.FirstDetectedAt
			}
			g.Resolved = old.Resolved
			g.Skipped = old.Skipped
		}
		out = append(out, g)
	}
	Sort(out)
	return out
}

func (c *Classifier) fromIssue(issue assess.ValidationIssue, progress map[assess.DomainID]assess.DomainProgress, profile *assess.BusinessModelProfile) assess.Gap {
	g := assess.Gap{
		Domain:                  issue.Domain,
		RuleName:                issue.Rule,
		Category:                Category(issue),
		Description:             issue.Message,
		ImpactOnTimeline:        issue.ImpactOnTimeline,
		EstimatedResolutionTime: ResolutionMinutes[issue.Type],
	}
	if g.RuleName == "" {
		g.RuleName = string(issue.Type) + ":" + issue.Field
	}
	g.Priority = Priority(g.Category, weightOf(profile, issue.Domain))

	switch {
	case len(issue.Questions) > 0:
		g.SuggestedQuestions = capped(issue.Questions)
	case issue.Type == assess.IssueRequired || issue.Type == assess.IssueCompleteness:
		g.SuggestedQuestions = capped(c.requiredQuestions(issue.Domain, progress[issue.Domain]))
	}
	g.FollowUpPrompts = c.prompts(issue.Domain, g.SuggestedQuestions)
	if len(g.FollowUpPrompts) == 0 && issue.Domain != "" {
		g.FollowUpPrompts = []string{fmt.Sprintf("Complete the %s section", c.domainName(issue.Domain))}
	}
	return g
}

func (c *Classifier) lowCompleteness(p assess.DomainProgress, profile *assess.BusinessModelProfile) assess.Gap {
	suggested := capped(p.Missing)
	prompts := c.prompts(p.Domain, suggested)
	if len(prompts) == 0 {
		prompts = []string{fmt.Sprintf("Complete the %s section", c.domainName(p.Domain))}
	}
	return assess.Gap{
		Domain:                  p.Domain,
		RuleName:                RuleLowCompleteness,
		Category:                assess.GapNiceToHave,
		Description:             fmt.Sprintf("%s is only %d%% complete", c.domainName(p.Domain), p.Percentage),
		SuggestedQuestions:      suggested,
		FollowUpPrompts:         prompts,
		Priority:                Priority(assess.GapNiceToHave, weightOf(profile, p.Domain)),
		EstimatedResolutionTime: lowCompletenessMinutes,
	}
}

// requiredQuestions prefers the graph's missing list and falls back to the
// catalog's required base questions when the domain has no progress yet.
func (c *Classifier) requiredQuestions(d assess.DomainID, p assess.DomainProgress) []string {
	if len(p.Missing) > 0 {
		return p.Missing
	}
	dom, ok := c.cat.Domain(d)
	if !ok {
		return nil
	}
	var ids []string
	for _, q := range dom.Questions {
		if q.Required {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func (c *Classifier) prompts(d assess.DomainID, ids []string) []string {
	var out []string
	for _, id := range ids {
		if q, ok := c.cat.Question(d, id); ok {
			out = append(out, q.Text)
		}
	}
	return out
}

func (c *Classifier) domainName(d assess.DomainID) string {
	if dom, ok := c.cat.Domain(d); ok && dom.Name != "" {
		return dom.Name
	}
	return string(d)
}

// Category maps an issue to a gap category.
func Category(issue assess.ValidationIssue) assess.GapCategory {
	switch issue.Type {
	case assess.IssueRequired:
		return assess.GapCritical
	case assess.IssueConsistency:
		if issue.ImpactOnTimeline {
			return assess.GapCritical
		}
		return assess.GapImportant
	case assess.IssueQuality, assess.IssueCompleteness:
		return assess.GapImportant
	}
	return assess.GapNiceToHave
}

// Priority ranks by category first, then by domain weight.
func Priority(c assess.GapCategory, weight float64) int {
	return c.Rank()*100 + int(math.Round(weight*10))
}

// Sort orders gaps by descending priority, then by id.
func Sort(gaps []assess.Gap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority > gaps[j].Priority
		}
		return gaps[i].GapID < gaps[j].GapID
	})
}

func weightOf(p *assess.BusinessModelProfile, d assess.DomainID) float64 {
	if d == "" {
		return 1.0
	}
	return p.Weight(d)
}

func capped(ids []string) []string {
	if len(ids) > MaxSuggestions {
		ids = ids[:MaxSuggestions]
	}
	return append([]string(nil), ids...)
}
