package graph

import (
	"reflect"
	"testing"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

func atLeast(v float64) *float64 { return &v }

func testDomain() assess.Domain {
	scale := &assess.Scale{Min: 1, Max: 5}
	return assess.Domain{
		ID: assess.DomainStrategicAlignment,
		Questions: []assess.Question{
			{ID: "1.1", Type: assess.QuestionScale, Required: true, Scale: scale},
			{ID: "1.2", Type: assess.QuestionScale, Required: true, Scale: scale},
			{ID: "1.3", Type: assess.QuestionBoolean, Required: true},
			{ID: "1.4", Type: assess.QuestionText},
		},
		FollowUps: []assess.Question{
			{ID: "1.1a", Type: assess.QuestionText, Required: true,
				Conditional: &assess.Conditional{DependsOn: "1.1", AtLeast: atLeast(4)}},
			{ID: "1.1a.i", Type: assess.QuestionText, Required: true,
				Conditional: &assess.Conditional{DependsOn: "1.1a", ShowIf: []string{"budget"}}},
			{ID: "1.3a", Type: assess.QuestionText,
				Conditional: &assess.Conditional{DependsOn: "1.3", ShowIf: []string{"false"}}},
		},
	}
}

func response(answers ...assess.Answer) assess.DomainResponse {
	r := assess.DomainResponse{Domain: assess.DomainStrategicAlignment, Questions: map[string]assess.Answer{}}
	for _, a := range answers {
		r.Questions[a.QuestionID] = a
		r.History = append(r.History, a)
	}
	return r
}

func answer(id string, v any) assess.Answer {
	return assess.Answer{QuestionID: id, Value: v, AnsweredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func TestBuildWithoutAnswersIsBaseOrder(t *testing.T) {
	g := ForDomain(testDomain(), response())
	want := []string{"1.1", "1.2", "1.3", "1.4"}
	if got := g.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestFollowUpInsertedAfterTrigger(t *testing.T) {
	tests := []struct {
		name    string
		answers []assess.Answer
		want    []string
	}{
		{"below threshold", []assess.Answer{answer("1.1", 3.0)}, []string{"1.1", "1.2", "1.3", "1.4"}},
		{"at threshold", []assess.Answer{answer("1.1", 4.0)}, []string{"1.1", "1.1a", "1.2", "1.3", "1.4"}},
		{"show_if on bool", []assess.Answer{answer("1.3", false)}, []string{"1.1", "1.2", "1.3", "1.3a", "1.4"}},
		{"nested", []assess.Answer{answer("1.1", 5.0), answer("1.1a", "budget")}, []string{"1.1", "1.1a", "1.1a.i", "1.2", "1.3", "1.4"}},
		{"answered after trigger order", []assess.Answer{answer("1.3", false), answer("1.1", 4.0)}, []string{"1.1", "1.1a", "1.2", "1.3", "1.3a", "1.4"}},
	}
	for _, tt := range tests {
		g := ForDomain(testDomain(), response(tt.answers...))
		if got := g.IDs(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: IDs() = %v, want %v", tt.name, got, tt.want)
		}
		for i, n := range g.Nodes {
			if n.FollowUp() && g.Nodes[i-1].Question.ID != n.Trigger {
				t.Errorf("%s: follow-up %s at %d not directly after trigger %s", tt.name, n.Question.ID, i, n.Trigger)
			}
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	r := response(answer("1.1", 4.0), answer("1.3", false))
	first := ForDomain(testDomain(), r)
	second := ForDomain(testDomain(), r)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("graphs differ:\n%v\n%v", first.IDs(), second.IDs())
	}
}

func TestFollowUpSurvivesTriggerEdit(t *testing.T) {
	r := response(answer("1.1", 5.0), answer("1.1", 2.0))
	g := ForDomain(testDomain(), r)

	want := []string{"1.1", "1.1a", "1.2", "1.3", "1.4"}
	if got := g.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	n := g.Nodes[g.Index("1.1a")]
	if n.Active {
		t.Error("follow-up should be inactive once trigger no longer fires")
	}
	if n.CountsAsRequired() {
		t.Error("inactive follow-up should not count as required")
	}
}

func TestAnsweredFollowUpStaysWithoutHistory(t *testing.T) {
	r := assess.DomainResponse{Questions: map[string]assess.Answer{
		"1.1":  answer("1.1", 1.0),
		"1.1a": answer("1.1a", "leadership turnover"),
	}}
	g := ForDomain(testDomain(), r)
	if g.Index("1.1a") != 1 {
		t.Errorf("Index(1.1a) = %d, want 1", g.Index("1.1a"))
	}
}

func TestSeqIsRestartable(t *testing.T) {
	g := ForDomain(testDomain(), response(answer("1.1", 4.0)))
	count := func() int {
		n := 0
		for range g.Seq() {
			n++
		}
		return n
	}
	if a, b := count(), count(); a != b || a != 5 {
		t.Errorf("Seq counts = %d, %d, want 5, 5", a, b)
	}
}

func TestDynamicTotal(t *testing.T) {
	d := testDomain()
	g := ForDomain(d, response(answer("1.1", 4.0), answer("1.3", false)))
	if g.Len() != len(d.Questions)+g.FollowUpCount() {
		t.Errorf("Len() = %d, want %d + %d", g.Len(), len(d.Questions), g.FollowUpCount())
	}
	if g.Len() <= len(d.Questions) {
		t.Errorf("Len() = %d should exceed static total %d", g.Len(), len(d.Questions))
	}
}
