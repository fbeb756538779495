// Package assessment is the editing session for one assessment: its header,
// answer ledger and current gaps, with the rules for changing them.
package assessment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/ledger"
)

var (
	ErrUnknownDomain        = errors.New("unknown domain")
	ErrUnknownQuestion      = errors.New("unknown question")
	ErrUnknownGap           = errors.New("unknown gap")
	ErrClassificationLocked = errors.New("classification is locked once scoring has started")
)

// Evaluator runs a full evaluation pass. *engine.Engine satisfies it.
type Evaluator interface {
	Evaluate(a assess.Assessment, responses map[assess.DomainID]assess.DomainResponse, previous []assess.Gap) assess.Evaluation
}

// Aggregate is not safe for concurrent use; one session owns it.
type Aggregate struct {
	Assessment assess.Assessment
	Ledger     *ledger.Ledger
	Gaps       []assess.Gap

	cat *catalog.Catalog
}

// New starts an empty assessment.
func New(cat *catalog.Catalog, companyID, respondentID string, now time.Time) *Aggregate {
	now = now.UTC()
	return &Aggregate{
		Assessment: assess.Assessment{
			ID:           uuid.NewString(),
			CompanyID:    companyID,
			RespondentID: respondentID,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		Ledger: ledger.New(),
		cat:    cat,
	}
}

// Restore rebuilds an aggregate from stored state.
func Restore(cat *catalog.Catalog, a assess.Assessment, responses map[assess.DomainID]assess.DomainResponse, gaps []assess.Gap) *Aggregate {
	return &Aggregate{
		Assessment: a,
		Ledger:     ledger.FromSnapshot(responses),
		Gaps:       gaps,
		cat:        cat,
	}
}

// Classify sets the industry classification. It fails once scoring has started.
func (g *Aggregate) Classify(c assess.IndustryClassification, now time.Time) error {
	if g.Assessment.ScoringStartedAt != nil {
		return ErrClassificationLocked
	}
	g.Assessment.Classification = &c
	g.Assessment.UpdatedAt = now.UTC()
	return nil
}

// Reclassify replaces the classification even after scoring has started.
// Gaps derived under the old profile are dropped and the scoring lock is
// released so the next evaluation starts fresh.
func (g *Aggregate) Reclassify(c assess.IndustryClassification, now time.Time) {
	g.Assessment.Classification = &c
	g.Assessment.ScoringStartedAt = nil
	g.Assessment.UpdatedAt = now.UTC()
	g.Gaps = nil
}

// Answer records an already typed value after checking the question exists.
func (g *Aggregate) Answer(domain assess.DomainID, questionID string, value any, now time.Time) (assess.Answer, error) {
	if _, err := g.question(domain, questionID); err != nil {
		return assess.Answer{}, err
	}
	g.Assessment.UpdatedAt = now.UTC()
	return g.Ledger.Record(domain, questionID, value, now.UTC()), nil
}

// AnswerRaw parses raw input according to the question type and records it.
func (g *Aggregate) AnswerRaw(domain assess.DomainID, questionID, raw string, now time.Time) (assess.Answer, error) {
	q, err := g.question(domain, questionID)
	if err != nil {
		return assess.Answer{}, err
	}
	v, err := q.ParseValue(raw)
	if err != nil {
		return assess.Answer{}, err
	}
	g.Assessment.UpdatedAt = now.UTC()
	return g.Ledger.Record(domain, questionID, v, now.UTC()), nil
}

func (g *Aggregate) question(domain assess.DomainID, questionID string) (assess.Question, error) {
	if !domain.Valid() {
		return assess.Question{}, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	q, ok := g.cat.Question(domain, questionID)
	if !ok {
		return assess.Question{}, fmt.Errorf("%w: %s/%s", ErrUnknownQuestion, domain, questionID)
	}
	return q, nil
}

// Evaluate runs a pass with the current gaps as history and applies the result.
func (g *Aggregate) Evaluate(e Evaluator) assess.Evaluation {
	ev := e.Evaluate(g.Assessment, g.Ledger.Snapshot(), g.Gaps)
	g.Apply(ev)
	return ev
}

// Apply stores an evaluation: gaps, per-domain completeness, and the scoring lock.
func (g *Aggregate) Apply(ev assess.Evaluation) {
	g.Gaps = ev.Gaps
	for d, p := range ev.Progress {
		g.Ledger.SetCompleteness(d, p.Percentage)
	}
	if g.Assessment.ScoringStartedAt == nil {
		at := ev.EvaluatedAt
		g.Assessment.ScoringStartedAt = &at
	}
}

// Resolve marks a gap resolved.
func (g *Aggregate) Resolve(gapID string) error {
	return g.mark(gapID, func(gap *assess.Gap) { gap.Resolved = true })
}

// Skip marks a gap skipped.
func (g *Aggregate) Skip(gapID string) error {
	return g.mark(gapID, func(gap *assess.Gap) { gap.Skipped = true })
}

// Reopen clears both flags so the gap counts again.
func (g *Aggregate) Reopen(gapID string) error {
	return g.mark(gapID, func(gap *assess.Gap) { gap.Resolved, gap.Skipped = false, false })
}

// Gap returns the current gap with the given id.
func (g *Aggregate) Gap(gapID string) (assess.Gap, bool) {
	for _, gap := range g.Gaps {
		if gap.GapID == gapID {
			return gap, true
		}
	}
	return assess.Gap{}, false
}

func (g *Aggregate) mark(gapID string, f func(*assess.Gap)) error {
	for i := range g.Gaps {
		if g.Gaps[i].GapID == gapID {
			f(&g.Gaps[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownGap, gapID)
}

// Reset discards answers and gaps and releases the scoring lock.
func (g *Aggregate) Reset(now time.Time) {
	g.Ledger.Reset()
	g.Gaps = nil
	g.Assessment.ScoringStartedAt = nil
	g.Assessment.UpdatedAt = now.UTC()
}
