package catalog

import (
	"strings"
	"testing"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Domains) != len(assess.AllDomains) {
		t.Errorf("domains: want %d, got %d", len(assess.AllDomains), len(c.Domains))
	}
	d, ok := c.Domain(assess.DomainStrategicAlignment)
	if !ok {
		t.Fatal("strategic-alignment missing")
	}
	if len(d.Questions) != 7 || d.RequiredQuestionCount() != 6 || d.OptionalQuestionCount() != 1 {
		t.Errorf("strategic-alignment: %d questions, %d required, %d optional; want 7, 6, 1",
			len(d.Questions), d.RequiredQuestionCount(), d.OptionalQuestionCount())
	}
	q, ok := c.Question(assess.DomainStrategicAlignment, "1.1a")
	if !ok || q.Conditional == nil || q.Conditional.DependsOn != "1.1" {
		t.Errorf("1.1a should be a follow-up of 1.1: %+v", q)
	}
	if c.HasQuestion(assess.DomainStrategicAlignment, "3.4") {
		t.Error("question ids are scoped to their domain")
	}
}

func TestBaseCountsExcludeFollowUps(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	counts := c.BaseCounts()
	if counts[assess.DomainRevenueEngine] != 6 {
		t.Errorf("revenue-engine base count: want 6, got %d", counts[assess.DomainRevenueEngine])
	}
}

const header = "version: 1\ndomains:\n"

func allOtherDomains(skip assess.DomainID) string {
	var b strings.Builder
	for _, d := range assess.AllDomains {
		if d == skip {
			continue
		}
		b.WriteString("  - id: " + string(d) + "\n    name: x\n    questions:\n")
		b.WriteString("      - {id: q1, text: t, type: boolean, required: true}\n")
	}
	return b.String()
}

func TestParseRejectsAuthoringMistakes(t *testing.T) {
	target := assess.DomainRevenueEngine
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown follow-up trigger", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: boolean, required: true}
    follow_ups:
      - {id: "3.1a", text: t, type: text, required: true, conditional: {depends_on: "3.9", show_if: ["true"]}}
`, "unknown question"},
		{"conditional base question", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: boolean, required: true, conditional: {depends_on: "3.1", show_if: ["true"]}}
`, "must not be conditional"},
		{"duplicate id", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: boolean, required: true}
      - {id: "3.1", text: t, type: boolean, required: true}
`, "declared twice"},
		{"bad scale", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: scale, required: true, scale: {min: 5, max: 1}}
`, "min < max"},
		{"trigger cycle", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: boolean, required: true}
    follow_ups:
      - {id: "3.1a", text: t, type: text, required: true, conditional: {depends_on: "3.1b", show_if: ["x"]}}
      - {id: "3.1b", text: t, type: text, required: true, conditional: {depends_on: "3.1a", show_if: ["x"]}}
`, "cycle"},
		{"follow-up without condition", `
  - id: revenue-engine
    name: Revenue
    questions:
      - {id: "3.1", text: t, type: boolean, required: true}
    follow_ups:
      - {id: "3.1a", text: t, type: text, required: true, conditional: {depends_on: "3.1"}}
`, "neither show_if nor at_least"},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(header + allOtherDomains(target) + tt.body))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.want)
		}
	}
}

func TestParseRejectsMissingDomain(t *testing.T) {
	_, err := Parse([]byte(header + allOtherDomains(assess.DomainChangeManagement)))
	if err == nil || !strings.Contains(err.Error(), "change-management") {
		t.Errorf("want missing change-management error, got %v", err)
	}
}
