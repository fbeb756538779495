package ledger

import (
	"testing"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

func TestRecordOverwritesAndKeepsHistory(t *testing.T) {
	l := New()
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.Record(assess.DomainRevenueEngine, "3.4", 5.0, t0)
	l.Record(assess.DomainRevenueEngine, "3.4", 2.0, t0.Add(time.Minute))

	a, ok := l.Answer(assess.DomainRevenueEngine, "3.4")
	if !ok {
		t.Fatal("answer should exist")
	}
	if a.Value != 2.0 {
		t.Errorf("value: want 2, got %v", a.Value)
	}

	r := l.Domain(assess.DomainRevenueEngine)
	if len(r.History) != 2 {
		t.Errorf("history length: want 2, got %d", len(r.History))
	}
	if !r.LastUpdated.Equal(t0.Add(time.Minute)) {
		t.Errorf("last updated: want %v, got %v", t0.Add(time.Minute), r.LastUpdated)
	}
	if l.Len() != 1 {
		t.Errorf("Len: want 1, got %d", l.Len())
	}
}

func TestDomainReturnsCopy(t *testing.T) {
	l := New()
	l.Record(assess.DomainCustomerSuccess, "7.2", 4.0, time.Now())

	r := l.Domain(assess.DomainCustomerSuccess)
	r.Questions["7.2"] = assess.Answer{QuestionID: "7.2", Value: 1.0}

	a, _ := l.Answer(assess.DomainCustomerSuccess, "7.2")
	if a.Value != 4.0 {
		t.Errorf("ledger mutated through copy: got %v", a.Value)
	}
}

func TestEmptyDomain(t *testing.T) {
	l := New()
	r := l.Domain(assess.DomainMarketPosition)
	if r.Questions == nil || len(r.Questions) != 0 {
		t.Errorf("empty domain should have an empty, non-nil map: %v", r.Questions)
	}
	if _, ok := l.Snapshot()[assess.DomainMarketPosition]; ok {
		t.Error("snapshot should not include untouched domains")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := New()
	now := time.Now()
	l.Record(assess.DomainFinancialClarity, "2.3", 4.0, now)
	l.Record(assess.DomainFinancialClarity, "2.3a", "3-6", now)

	rebuilt := FromSnapshot(l.Snapshot())
	if rebuilt.Len() != 2 {
		t.Errorf("Len: want 2, got %d", rebuilt.Len())
	}
	if got := rebuilt.Domain(assess.DomainFinancialClarity).Domain; got != assess.DomainFinancialClarity {
		t.Errorf("domain: want %s, got %s", assess.DomainFinancialClarity, got)
	}
}

func TestReset(t *testing.T) {
	l := New()
	l.Record(assess.DomainTechnologyData, "6.1", 3.0, time.Now())
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("Len after reset: want 0, got %d", l.Len())
	}
}
