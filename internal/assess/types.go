package assess

import (
	"time"
)

// DomainID identifies one of the fixed business assessment domains.
type DomainID string

const (
	DomainStrategicAlignment    DomainID = "strategic-alignment"
	DomainFinancialClarity      DomainID = "financial-clarity"
	DomainRevenueEngine         DomainID = "revenue-engine"
	DomainOperationalExcellence DomainID = "operational-excellence"
	DomainPeopleOrganization    DomainID = "people-organization"
	DomainTechnologyData        DomainID = "technology-data"
	DomainCustomerSuccess       DomainID = "customer-success"
	DomainProductStrategy       DomainID = "product-strategy"
	DomainMarketPosition        DomainID = "market-position"
	DomainRiskCompliance        DomainID = "risk-compliance"
	DomainGrowthReadiness       DomainID = "growth-readiness"
	DomainChangeManagement      DomainID = "change-management"
)

// AllDomains lists every domain in presentation order.
var AllDomains = []DomainID{
	DomainStrategicAlignment,
	DomainFinancialClarity,
	DomainRevenueEngine,
	DomainOperationalExcellence,
	DomainPeopleOrganization,
	DomainTechnologyData,
	DomainCustomerSuccess,
	DomainProductStrategy,
	DomainMarketPosition,
	DomainRiskCompliance,
	DomainGrowthReadiness,
	DomainChangeManagement,
}

// Valid reports whether d is one of AllDomains.
func (d DomainID) Valid() bool {
	for _, known := range AllDomains {
		if d == known {
			return true
		}
	}
	return false
}

// QuestionType determines the shape of an answer value.
type QuestionType string

const (
	QuestionScale        QuestionType = "scale"
	QuestionBoolean      QuestionType = "boolean"
	QuestionText         QuestionType = "text"
	QuestionSingleChoice QuestionType = "single-choice"
	QuestionMultiChoice  QuestionType = "multi-choice"
)

// Question is a statically authored questionnaire item.
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Text        string       `json:"text" yaml:"text"`
	Type        QuestionType `json:"type" yaml:"type"`
	Required    bool         `json:"required" yaml:"required"`
	Scale       *Scale       `json:"scale,omitempty" yaml:"scale,omitempty"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Conditional *Conditional `json:"conditional,omitempty" yaml:"conditional,omitempty"`
}

// Scale bounds a scale question. Higher values describe a weaker position.
type Scale struct {
	Min    int               `json:"min" yaml:"min"`
	Max    int               `json:"max" yaml:"max"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Conditional makes a question a follow-up of another question in the same domain.
// It fires when the trigger's value is one of ShowIf, or numerically >= AtLeast.
type Conditional struct {
	DependsOn string   `json:"depends_on" yaml:"depends_on"`
	ShowIf    []string `json:"show_if,omitempty" yaml:"show_if,omitempty"`
	AtLeast   *float64 `json:"at_least,omitempty" yaml:"at_least,omitempty"`
}

// Domain is the authored question set for one domain.
type Domain struct {
	ID          DomainID   `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
	FollowUps   []Question `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty"`
}

// RequiredQuestionCount counts required base questions. Follow-ups are never included.
func (d Domain) RequiredQuestionCount() int {
	n := 0
	for _, q := range d.Questions {
		if q.Required {
			n++
		}
	}
	return n
}

// OptionalQuestionCount counts optional base questions.
func (d Domain) OptionalQuestionCount() int {
	return len(d.Questions) - d.RequiredQuestionCount()
}

// Answer is a respondent's value for one question.
type Answer struct {
	QuestionID string    `json:"question_id" db:"question_id"`
	Value      any       `json:"value" db:"value"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}

// DomainResponse holds the answers for one domain of one assessment.
// History keeps every recorded answer in arrival order.
type DomainResponse struct {
	Domain       DomainID          `json:"domain" db:"domain"`
	Questions    map[string]Answer `json:"questions"`
	History      []Answer          `json:"history,omitempty"`
	Completeness int               `json:"completeness" db:"completeness"`
	LastUpdated  time.Time         `json:"last_updated" db:"last_updated"`
}

// AnsweredCount counts questions with a non-empty answer.
func (r DomainResponse) AnsweredCount() int {
	n := 0
	for _, a := range r.Questions {
		if !IsEmpty(a.Value) {
			n++
		}
	}
	return n
}

// Value returns the current non-empty answer value for a question.
func (r DomainResponse) Value(questionID string) (any, bool) {
	a, ok := r.Questions[questionID]
	if !ok || IsEmpty(a.Value) {
		return nil, false
	}
	return a.Value, true
}

// DomainStatus is the completion state of a domain.
type DomainStatus string

const (
	StatusNotStarted DomainStatus = "not-started"
	StatusInProgress DomainStatus = "in-progress"
	StatusCompleted  DomainStatus = "completed"
)

// DomainProgress is computed against the dynamic question graph.
type DomainProgress struct {
	Domain            DomainID     `json:"domain" db:"domain"`
	Completed         int          `json:"completed" db:"completed"`
	Total             int          `json:"total" db:"total"`
	Status            DomainStatus `json:"status" db:"status"`
	RequiredQuestions int          `json:"required_questions" db:"required_questions"`
	OptionalQuestions int          `json:"optional_questions" db:"optional_questions"`
	RequiredAnswered  int          `json:"required_answered" db:"required_answered"`
	Percentage        int          `json:"percentage" db:"percentage"`
	Missing           []string     `json:"missing,omitempty"`
}

// Overall is the assessment-wide progress summary.
type Overall struct {
	Percentage             int    `json:"percentage" db:"overall_percentage"`
	RemainingQuestions     int    `json:"remaining_questions" db:"remaining_questions"`
	EstimatedTimeRemaining string `json:"estimated_time_remaining" db:"estimated_time_remaining"`
}

// IndustryClassification selects the business model profile for an assessment.
type IndustryClassification struct {
	Sector                   string `json:"sector"`
	SubSector                string `json:"sub_sector,omitempty"`
	RegulatoryClassification string `json:"regulatory_classification,omitempty"`
	BusinessModel            string `json:"business_model"`
	CompanyStage             string `json:"company_stage,omitempty"`
	EmployeeCount            int    `json:"employee_count,omitempty"`
}

// QuestionRef points at one question of one domain.
type QuestionRef struct {
	Domain     DomainID `json:"domain"`
	QuestionID string   `json:"question_id"`
}

// CrossDomainRule is a consistency check spanning two or three domains.
// Name selects the predicate.
type CrossDomainRule struct {
	Name             string        `json:"name"`
	Domains          []DomainID    `json:"domains"`
	Inputs           []QuestionRef `json:"inputs"`
	Threshold        float64       `json:"threshold"`
	Statement        string        `json:"statement"`
	Message          string        `json:"message"`
	ImpactOnTimeline bool          `json:"impact_on_timeline"`
}

// BusinessLogicRule is a single-domain quality check.
type BusinessLogicRule struct {
	Name        string   `json:"name"`
	Domain      DomainID `json:"domain"`
	QuestionIDs []string `json:"question_ids"`
	Threshold   float64  `json:"threshold"`
	Statement   string   `json:"statement"`
	Message     string   `json:"message"`
}

// BusinessModelProfile is the static rule configuration for one business model.
type BusinessModelProfile struct {
	BusinessModel      string               `json:"business_model"`
	RequiredDomains    []DomainID           `json:"required_domains"`
	OptionalDomains    []DomainID           `json:"optional_domains"`
	DomainWeighting    map[DomainID]float64 `json:"domain_weighting"`
	CrossDomainRules   []CrossDomainRule    `json:"cross_domain_rules"`
	BusinessLogicRules []BusinessLogicRule  `json:"business_logic_rules"`
}

// Weight returns the domain weight, 1.0 when unset.
func (p *BusinessModelProfile) Weight(d DomainID) float64 {
	if p == nil {
		return 1.0
	}
	if w, ok := p.DomainWeighting[d]; ok {
		return w
	}
	return 1.0
}

// IssueType classifies a validation error or warning.
type IssueType string

const (
	IssueRequired     IssueType = "required"
	IssueConsistency  IssueType = "consistency"
	IssueQuality      IssueType = "quality"
	IssueCompleteness IssueType = "completeness"
	IssueOptional     IssueType = "optional"
)

// ValidationIssue is one error or warning. Field, Message and Type are enough to render it.
type ValidationIssue struct {
	Field            string    `json:"field"`
	Message          string    `json:"message"`
	Type             IssueType `json:"type"`
	Rule             string    `json:"rule,omitempty"`
	Domain           DomainID  `json:"domain,omitempty"`
	Questions        []string  `json:"questions,omitempty"`
	ImpactOnTimeline bool      `json:"impact_on_timeline,omitempty"`
}

// ValidationResult is a view recomputed on demand.
// Completeness is the coarse response-count metric, not the dynamic-graph progress.
type ValidationResult struct {
	Errors       []ValidationIssue `json:"errors"`
	Warnings     []ValidationIssue `json:"warnings"`
	Completeness int               `json:"completeness"`
}

// Blocking reports whether the result blocks the submit gate.
func (r ValidationResult) Blocking() bool {
	return len(r.Errors) > 0
}

// GapCategory is the severity of a gap.
type GapCategory string

const (
	GapCritical   GapCategory = "critical"
	GapImportant  GapCategory = "important"
	GapNiceToHave GapCategory = "nice-to-have"
)

// Rank orders categories; higher is more severe.
func (c GapCategory) Rank() int {
	switch c {
	case GapCritical:
		return 3
	case GapImportant:
		return 2
	case GapNiceToHave:
		return 1
	}
	return 0
}

// Gap is a detected deficiency. Resolved and Skipped are the only externally set fields.
type Gap struct {
	GapID                   string      `json:"gap_id" db:"gap_id"`
	AssessmentID            string      `json:"assessment_id" db:"assessment_id"`
	Domain                  DomainID    `json:"domain" db:"domain"`
	RuleName                string      `json:"rule_name" db:"rule_name"`
	Category                GapCategory `json:"category" db:"category"`
	Description             string      `json:"description" db:"description"`
	SuggestedQuestions      []string    `json:"suggested_questions"`
	FollowUpPrompts         []string    `json:"follow_up_prompts"`
	Resolved                bool        `json:"resolved" db:"resolved"`
	Skipped                 bool        `json:"skipped" db:"skipped"`
	ImpactOnTimeline        bool        `json:"impact_on_timeline" db:"impact_on_timeline"`
	Priority                int         `json:"priority" db:"priority"`
	EstimatedResolutionTime int         `json:"estimated_resolution_time" db:"estimated_resolution_time"`
	FirstDetectedAt         time.Time   `json:"first_detected_at" db:"first_detected_at"`
	DetectedAt              time.Time   `json:"detected_at" db:"detected_at"`
}

// Open reports whether the gap still needs attention.
func (g Gap) Open() bool {
	return !g.Resolved && !g.Skipped
}

// UrgencyLevel is attached to founder notification verdicts.
type UrgencyLevel string

const (
	UrgencyNone     UrgencyLevel = "none"
	UrgencyLow      UrgencyLevel = "low"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// Verdict tells the notification collaborator whether to contact the founder.
type Verdict struct {
	ShouldNotify  bool         `json:"should_notify"`
	UrgencyLevel  UrgencyLevel `json:"urgency_level"`
	CriticalCount int          `json:"critical_count"`
	GapIDs        []string     `json:"gap_ids,omitempty"`
	Domains       []DomainID   `json:"domains,omitempty"`
}

// Assessment is the persisted header of one questionnaire run.
type Assessment struct {
	ID               string                  `json:"id" db:"id"`
	CompanyID        string                  `json:"company_id" db:"company_id"`
	RespondentID     string                  `json:"respondent_id,omitempty" db:"respondent_id"`
	Classification   *IndustryClassification `json:"classification,omitempty"`
	ScoringStartedAt *time.Time              `json:"scoring_started_at,omitempty" db:"scoring_started_at"`
	CreatedAt        time.Time               `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at" db:"updated_at"`
}

// BusinessModel returns the classification's business model tag, or "".
func (a Assessment) BusinessModel() string {
	if a.Classification == nil {
		return ""
	}
	return a.Classification.BusinessModel
}

// Evaluation is the full output of one engine pass.
type Evaluation struct {
	AssessmentID string                      `json:"assessment_id"`
	Progress     map[DomainID]DomainProgress `json:"progress"`
	Overall      Overall                     `json:"overall"`
	Validation   ValidationResult            `json:"validation"`
	Gaps         []Gap                       `json:"gaps"`
	Verdict      Verdict                     `json:"verdict"`
	EvaluatedAt  time.Time                   `json:"evaluated_at"`
}
