// Package progress computes completion against the dynamic question graph.
package progress

import (
	"math"
	"sort"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/graph"
)

// DefaultSecondsPerQuestion is the pace assumed when estimating remaining time.
const DefaultSecondsPerQuestion = 30

// Bucket maps an estimate strictly below UpToMinutes to Label.
type Bucket struct {
	UpToMinutes int
	Label       string
}

// Time estimate labels.
const (
	LabelComplete = "Complete"
	LabelCapped   = "45-60 minutes"
)

// Buckets are checked in order; anything past the last one gets LabelCapped.
var Buckets = []Bucket{
	{UpToMinutes: 5, Label: "<5 minutes"},
	{UpToMinutes: 15, Label: "5-15 minutes"},
	{UpToMinutes: 30, Label: "15-30 minutes"},
	{UpToMinutes: 45, Label: "30-45 minutes"},
}

// Domain computes progress for one domain graph.
func Domain(g graph.Graph, r assess.DomainResponse) assess.DomainProgress {
	p := assess.DomainProgress{Domain: g.Domain, Total: g.Len()}
	for _, n := range g.Nodes {
		_, answered := r.Value(n.Question.ID)
		if answered {
			p.Completed++
		} else {
			p.Missing = append(p.Missing, n.Question.ID)
		}
		if n.CountsAsRequired() {
			p.RequiredQuestions++
			if answered {
				p.RequiredAnswered++
			}
		} else {
			p.OptionalQuestions++
		}
	}
	p.Percentage = Percent(p.Completed, p.Total)

	switch {
	case p.Completed == 0:
		p.Status = assess.StatusNotStarted
	case p.RequiredAnswered == p.RequiredQuestions:
		p.Status = assess.StatusCompleted
	default:
		p.Status = assess.StatusInProgress
	}
	return p
}

// Overall averages domain percentages, weighted by the profile when one is given.
func Overall(byDomain map[assess.DomainID]assess.DomainProgress, profile *assess.BusinessModelProfile, secondsPerQuestion int) assess.Overall {
	var out assess.Overall
	if len(byDomain) == 0 {
		out.EstimatedTimeRemaining = EstimateTimeRemaining(0, secondsPerQuestion)
		return out
	}

	// Sorted so float accumulation is identical between calls.
	domains := make([]assess.DomainID, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i] < domains[j] })

	var sum, weights float64
	for _, d := range domains {
		p := byDomain[d]
		w := 1.0
		if profile != nil {
			w = profile.Weight(d)
		}
		sum += float64(p.Percentage) * w
		weights += w
		out.RemainingQuestions += p.Total - p.Completed
	}
	if weights > 0 {
		out.Percentage = int(math.Round(sum / weights))
	}
	out.EstimatedTimeRemaining = EstimateTimeRemaining(out.RemainingQuestions, secondsPerQuestion)
	return out
}

// EstimateTimeRemaining buckets ceil(remaining * secondsPerQuestion / 60) minutes.
func EstimateTimeRemaining(remaining, secondsPerQuestion int) string {
	if secondsPerQuestion <= 0 {
		secondsPerQuestion = DefaultSecondsPerQuestion
	}
	if remaining <= 0 {
		return LabelComplete
	}
	minutes := int(math.Ceil(float64(remaining*secondsPerQuestion) / 60))
	for _, b := range Buckets {
		if minutes < b.UpToMinutes {
			return b.Label
		}
	}
	return LabelCapped
}

// Percent rounds completed/total to a whole percentage, half away from zero.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}
