// Package ledger holds the answers of one assessment, keyed by domain and question.
package ledger

import (
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

// Ledger is owned by a single assessment session and is not safe for concurrent use.
type Ledger struct {
	domains map[assess.DomainID]*assess.DomainResponse
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{domains: make(map[assess.DomainID]*assess.DomainResponse)}
}

// FromSnapshot rebuilds a ledger from stored domain responses.
func FromSnapshot(snapshot map[assess.DomainID]assess.DomainResponse) *Ledger {
	l := New()
	for d, r := range snapshot {
		cp := copyResponse(r)
		cp.Domain = d
		l.domains[d] = &cp
	}
	return l
}

// Record creates or overwrites the answer for a question.
func (l *Ledger) Record(domain assess.DomainID, questionID string, value any, at time.Time) assess.Answer {
	r, ok := l.domains[domain]
	if !ok {
		r = &assess.DomainResponse{Domain: domain, Questions: make(map[string]assess.Answer)}
		l.domains[domain] = r
	}
	a := assess.Answer{QuestionID: questionID, Value: value, AnsweredAt: at}
	r.Questions[questionID] = a
	r.History = append(r.History, a)
	if at.After(r.LastUpdated) {
		r.LastUpdated = at
	}
	return a
}

// Answer returns the current answer for a question.
func (l *Ledger) Answer(domain assess.DomainID, questionID string) (assess.Answer, bool) {
	r, ok := l.domains[domain]
	if !ok {
		return assess.Answer{}, false
	}
	a, ok := r.Questions[questionID]
	return a, ok
}

// Domain returns a copy of one domain's responses; an empty response if none were recorded.
func (l *Ledger) Domain(domain assess.DomainID) assess.DomainResponse {
	r, ok := l.domains[domain]
	if !ok {
		return assess.DomainResponse{Domain: domain, Questions: map[string]assess.Answer{}}
	}
	return copyResponse(*r)
}

// SetCompleteness stores the latest computed completeness for a domain.
func (l *Ledger) SetCompleteness(domain assess.DomainID, pct int) {
	if r, ok := l.domains[domain]; ok {
		r.Completeness = pct
	}
}

// Snapshot copies every domain with at least one recorded answer.
func (l *Ledger) Snapshot() map[assess.DomainID]assess.DomainResponse {
	out := make(map[assess.DomainID]assess.DomainResponse, len(l.domains))
	for d, r := range l.domains {
		out[d] = copyResponse(*r)
	}
	return out
}

// Len counts recorded answers across domains.
func (l *Ledger) Len() int {
	n := 0
	for _, r := range l.domains {
		n += len(r.Questions)
	}
	return n
}

// Reset discards every answer.
func (l *Ledger) Reset() {
	l.domains = make(map[assess.DomainID]*assess.DomainResponse)
}

func copyResponse(r assess.DomainResponse) assess.DomainResponse {
	cp := r
	cp.Questions = make(map[string]assess.Answer, len(r.Questions))
	for k, v := range r.Questions {
		cp.Questions[k] = v
	}
	cp.History = append([]assess.Answer(nil), r.History...)
	return cp
}
