// Package store persists assessments, answers, progress and gaps in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/assessment"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/db"
)

// ErrNotFound is returned when an assessment or gap does not exist.
var ErrNotFound = errors.New("not found")

// Store is a pgx-backed repository.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateAssessment inserts a new assessment header.
func (s *Store) CreateAssessment(ctx context.Context, a assess.Assessment) error {
	classification, err := marshalClassification(a.Classification)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO assessments (id, company_id, respondent_id, classification, business_model, scoring_started_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.CompanyID, a.RespondentID, classification, a.BusinessModel(), a.ScoringStartedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert assessment %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAssessment writes classification, scoring lock and timestamps.
func (s *Store) UpdateAssessment(ctx context.Context, a assess.Assessment) error {
	classification, err := marshalClassification(a.Classification)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE assessments
		SET classification = $2, business_model = $3, scoring_started_at = $4, updated_at = $5
		WHERE id = $1
	`, a.ID, classification, a.BusinessModel(), a.ScoringStartedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update assessment %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assessment %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

// GetAssessment loads an assessment header.
func (s *Store) GetAssessment(ctx context.Context, id string) (assess.Assessment, error) {
	var a assess.Assessment
	var classification []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, respondent_id, classification, scoring_started_at, created_at, updated_at
		FROM assessments WHERE id = $1
	`, id).Scan(&a.ID, &a.CompanyID, &a.RespondentID, &classification, &a.ScoringStartedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("fetch assessment %s: %w", id, err)
	}
	if classification != nil {
		var c assess.IndustryClassification
		if err := json.Unmarshal(classification, &c); err != nil {
			return a, fmt.Errorf("unmarshal classification for %s: %w", id, err)
		}
		a.Classification = &c
	}
	return a, nil
}

// ListAssessments returns headers, newest first. An empty companyID lists all.
func (s *Store) ListAssessments(ctx context.Context, companyID string) ([]assess.Assessment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, respondent_id, business_model, scoring_started_at, created_at, updated_at
		FROM assessments
		WHERE $1 = '' OR company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []assess.Assessment
	for rows.Next() {
		var a assess.Assessment
		var model string
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.RespondentID, &model, &a.ScoringStartedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if model != "" {
			a.Classification = &assess.IndustryClassification{BusinessModel: model}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RecordAnswer upserts the current answer and appends it to the answer log.
func (s *Store) RecordAnswer(ctx context.Context, assessmentID string, domain assess.DomainID, a assess.Answer) error {
	value, err := json.Marshal(a.Value)
	if err != nil {
		return fmt.Errorf("marshal answer %s: %w", a.QuestionID, err)
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO answers (assessment_id, domain, question_id, value, answered_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (assessment_id, domain, question_id)
			DO UPDATE SET value = EXCLUDED.value, answered_at = EXCLUDED.answered_at
		`, assessmentID, string(domain), a.QuestionID, value, a.AnsweredAt); err != nil {
			return fmt.Errorf("upsert answer %s: %w", a.QuestionID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO answer_log (assessment_id, domain, question_id, value, answered_at)
			VALUES ($1, $2, $3, $4, $5)
		`, assessmentID, string(domain), a.QuestionID, value, a.AnsweredAt); err != nil {
			return fmt.Errorf("log answer %s: %w", a.QuestionID, err)
		}
		if _, err := tx.Exec(ctx, `UPDATE assessments SET updated_at = $2 WHERE id = $1`, assessmentID, a.AnsweredAt); err != nil {
			return fmt.Errorf("touch assessment %s: %w", assessmentID, err)
		}
		return nil
	})
}

// LoadResponses rebuilds the ledger snapshot: current answers, history and
// the last stored completeness per domain.
func (s *Store) LoadResponses(ctx context.Context, assessmentID string) (map[assess.DomainID]assess.DomainResponse, error) {
	out := make(map[assess.DomainID]assess.DomainResponse)
	get := func(d assess.DomainID) assess.DomainResponse {
		r, ok := out[d]
		if !ok {
			r = assess.DomainResponse{Domain: d, Questions: make(map[string]assess.Answer)}
		}
		return r
	}

	rows, err := s.pool.Query(ctx, `
		SELECT domain, question_id, value, answered_at FROM answers WHERE assessment_id = $1
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	for rows.Next() {
		d, a, err := scanAnswer(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		r := get(d)
		r.Questions[a.QuestionID] = a
		if a.AnsweredAt.After(r.LastUpdated) {
			r.LastUpdated = a.AnsweredAt
		}
		out[d] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT domain, question_id, value, answered_at FROM answer_log
		WHERE assessment_id = $1 ORDER BY id
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query answer log: %w", err)
	}
	for rows.Next() {
		d, a, err := scanAnswer(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		r := get(d)
		r.History = append(r.History, a)
		out[d] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read answer log: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT domain, percentage FROM domain_progress WHERE assessment_id = $1`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query domain progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d string
		var pct int
		if err := rows.Scan(&d, &pct); err != nil {
			return nil, fmt.Errorf("scan domain progress: %w", err)
		}
		if r, ok := out[assess.DomainID(d)]; ok {
			r.Completeness = pct
			out[assess.DomainID(d)] = r
		}
	}
	return out, rows.Err()
}

func scanAnswer(rows pgx.Rows) (assess.DomainID, assess.Answer, error) {
	var d string
	var raw []byte
	var a assess.Answer
	if err := rows.Scan(&d, &a.QuestionID, &raw, &a.AnsweredAt); err != nil {
		return "", a, fmt.Errorf("scan answer: %w", err)
	}
	if err := json.Unmarshal(raw, &a.Value); err != nil {
		return "", a, fmt.Errorf("unmarshal answer %s: %w", a.QuestionID, err)
	}
	return assess.DomainID(d), a, nil
}

// LoadGaps returns stored gaps ordered by priority.
func (s *Store) LoadGaps(ctx context.Context, assessmentID string) ([]assess.Gap, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT gap_id, assessment_id, domain, rule_name, category, description,
		       suggested_questions, follow_up_prompts, resolved, skipped, impact_on_timeline,
		       priority, estimated_resolution_time, first_detected_at, detected_at
		FROM gaps WHERE assessment_id = $1
		ORDER BY priority DESC, gap_id
	`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var out []assess.Gap
	for rows.Next() {
		var g assess.Gap
		var domain, category string
		if err := rows.Scan(&g.GapID, &g.AssessmentID, &domain, &g.RuleName, &category, &g.Description,
			&g.SuggestedQuestions, &g.FollowUpPrompts, &g.Resolved, &g.Skipped, &g.ImpactOnTimeline,
			&g.Priority, &g.EstimatedResolutionTime, &g.FirstDetectedAt, &g.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan gap: %w", err)
		}
		g.Domain = assess.DomainID(domain)
		g.Category = assess.GapCategory(category)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Load assembles the editing aggregate for an assessment.
func (s *Store) Load(ctx context.Context, cat *catalog.Catalog, assessmentID string) (*assessment.Aggregate, error) {
	a, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	responses, err := s.LoadResponses(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	found, err := s.LoadGaps(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return assessment.Restore(cat, a, responses, found), nil
}

// SaveEvaluation stores progress, the validation snapshot and the gap list in
// one transaction. Gaps no longer produced are deleted.
func (s *Store) SaveEvaluation(ctx context.Context, ev assess.Evaluation) error {
	validation, err := json.Marshal(ev.Validation)
	if err != nil {
		return fmt.Errorf("marshal validation: %w", err)
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, p := range ev.Progress {
			if _, err := tx.Exec(ctx, `
				INSERT INTO domain_progress (assessment_id, domain, completed, total, status,
					required_questions, optional_questions, required_answered, percentage, missing, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (assessment_id, domain) DO UPDATE SET
					completed = EXCLUDED.completed, total = EXCLUDED.total, status = EXCLUDED.status,
					required_questions = EXCLUDED.required_questions, optional_questions = EXCLUDED.optional_questions,
					required_answered = EXCLUDED.required_answered, percentage = EXCLUDED.percentage,
					missing = EXCLUDED.missing, updated_at = EXCLUDED.updated_at
			`, ev.AssessmentID, string(p.Domain), p.Completed, p.Total, string(p.Status),
				p.RequiredQuestions, p.OptionalQuestions, p.RequiredAnswered, p.Percentage,
				nonNil(p.Missing), ev.EvaluatedAt); err != nil {
				return fmt.Errorf("upsert progress %s: %w", p.Domain, err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO assessment_progress (assessment_id, overall_percentage, remaining_questions,
				estimated_time_remaining, coverage, validation, critical_count, should_notify, urgency_level, evaluated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (assessment_id) DO UPDATE SET
				overall_percentage = EXCLUDED.overall_percentage, remaining_questions = EXCLUDED.remaining_questions,
				estimated_time_remaining = EXCLUDED.estimated_time_remaining, coverage = EXCLUDED.coverage,
				validation = EXCLUDED.validation, critical_count = EXCLUDED.critical_count,
				should_notify = EXCLUDED.should_notify, urgency_level = EXCLUDED.urgency_level,
				evaluated_at = EXCLUDED.evaluated_at
		`, ev.AssessmentID, ev.Overall.Percentage, ev.Overall.RemainingQuestions, ev.Overall.EstimatedTimeRemaining,
			ev.Validation.Completeness, validation, ev.Verdict.CriticalCount, ev.Verdict.ShouldNotify,
			string(ev.Verdict.UrgencyLevel), ev.EvaluatedAt); err != nil {
			return fmt.Errorf("upsert assessment progress: %w", err)
		}

		ids := make([]string, 0, len(ev.Gaps))
		for _, g := range ev.Gaps {
			ids = append(ids, g.GapID)
			if err := upsertGap(ctx, tx, g); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM gaps WHERE assessment_id = $1 AND NOT (gap_id = ANY($2))
		`, ev.AssessmentID, ids); err != nil {
			return fmt.Errorf("prune gaps: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE assessments SET scoring_started_at = COALESCE(scoring_started_at, $2) WHERE id = $1
		`, ev.AssessmentID, ev.EvaluatedAt); err != nil {
			return fmt.Errorf("mark scoring started: %w", err)
		}
		return nil
	})
}

// upsertGap writes a detected gap. The resolved and skipped flags are only
// taken on insert; afterwards SetGapState owns them.
func upsertGap(ctx context.Context, tx pgx.Tx, g assess.Gap) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO gaps (gap_id, assessment_id, domain, rule_name, category, description,
			suggested_questions, follow_up_prompts, resolved, skipped, impact_on_timeline,
			priority, estimated_resolution_time, first_detected_at, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (gap_id) DO UPDATE SET
			category = EXCLUDED.category, description = EXCLUDED.description,
			suggested_questions = EXCLUDED.suggested_questions, follow_up_prompts = EXCLUDED.follow_up_prompts,
			impact_on_timeline = EXCLUDED.impact_on_timeline, priority = EXCLUDED.priority,
			estimated_resolution_time = EXCLUDED.estimated_resolution_time, detected_at = EXCLUDED.detected_at
	`, g.GapID, g.AssessmentID, string(g.Domain), g.RuleName, string(g.Category), g.Description,
		nonNil(g.SuggestedQuestions), nonNil(g.FollowUpPrompts), g.Resolved, g.Skipped, g.ImpactOnTimeline,
		g.Priority, g.EstimatedResolutionTime, g.FirstDetectedAt, g.DetectedAt)
	if err != nil {
		return fmt.Errorf("upsert gap %s: %w", g.GapID, err)
	}
	return nil
}

// SetGapState sets the externally owned resolved and skipped flags.
func (s *Store) SetGapState(ctx context.Context, gapID string, resolved, skipped bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE gaps SET resolved = $2, skipped = $3 WHERE gap_id = $1`, gapID, resolved, skipped)
	if err != nil {
		return fmt.Errorf("update gap %s: %w", gapID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("gap %s: %w", gapID, ErrNotFound)
	}
	return nil
}

// GapAssessment returns the assessment a gap belongs to.
func (s *Store) GapAssessment(ctx context.Context, gapID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT assessment_id FROM gaps WHERE gap_id = $1`, gapID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("gap %s: %w", gapID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch gap %s: %w", gapID, err)
	}
	return id, nil
}

// ClearDerived deletes progress and gaps, keeping answers.
func (s *Store) ClearDerived(ctx context.Context, assessmentID string) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"gaps", "domain_progress", "assessment_progress"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE assessment_id = $1`, assessmentID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// ResetAssessment deletes answers and everything derived from them.
func (s *Store) ResetAssessment(ctx context.Context, assessmentID string, at time.Time) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"gaps", "domain_progress", "assessment_progress", "answer_log", "answers"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE assessment_id = $1`, assessmentID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE assessments SET scoring_started_at = NULL, updated_at = $2 WHERE id = $1
		`, assessmentID, at)
		if err != nil {
			return fmt.Errorf("reset assessment %s: %w", assessmentID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("assessment %s: %w", assessmentID, ErrNotFound)
		}
		return nil
	})
}

// LoadEvaluation reads back the last stored evaluation.
func (s *Store) LoadEvaluation(ctx context.Context, assessmentID string) (assess.Evaluation, error) {
	ev := assess.Evaluation{AssessmentID: assessmentID, Progress: make(map[assess.DomainID]assess.DomainProgress)}
	var validation []byte
	var urgency string
	err := s.pool.QueryRow(ctx, `
		SELECT overall_percentage, remaining_questions, estimated_time_remaining, validation,
		       critical_count, should_notify, urgency_level, evaluated_at
		FROM assessment_progress WHERE assessment_id = $1
	`, assessmentID).Scan(&ev.Overall.Percentage, &ev.Overall.RemainingQuestions, &ev.Overall.EstimatedTimeRemaining,
		&validation, &ev.Verdict.CriticalCount, &ev.Verdict.ShouldNotify, &urgency, &ev.EvaluatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ev, fmt.Errorf("evaluation for %s: %w", assessmentID, ErrNotFound)
	}
	if err != nil {
		return ev, fmt.Errorf("fetch evaluation %s: %w", assessmentID, err)
	}
	ev.Verdict.UrgencyLevel = assess.UrgencyLevel(urgency)
	if err := json.Unmarshal(validation, &ev.Validation); err != nil {
		return ev, fmt.Errorf("unmarshal validation for %s: %w", assessmentID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT domain, completed, total, status, required_questions, optional_questions,
		       required_answered, percentage, missing
		FROM domain_progress WHERE assessment_id = $1
	`, assessmentID)
	if err != nil {
		return ev, fmt.Errorf("query domain progress: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p assess.DomainProgress
		var domain, status string
		if err := rows.Scan(&domain, &p.Completed, &p.Total, &status, &p.RequiredQuestions,
			&p.OptionalQuestions, &p.RequiredAnswered, &p.Percentage, &p.Missing); err != nil {
			return ev, fmt.Errorf("scan domain progress: %w", err)
		}
		p.Domain = assess.DomainID(domain)
		p.Status = assess.DomainStatus(status)
		ev.Progress[p.Domain] = p
	}
	if err := rows.Err(); err != nil {
		return ev, fmt.Errorf("read domain progress: %w", err)
	}

	ev.Gaps, err = s.LoadGaps(ctx, assessmentID)
	return ev, err
}

func marshalClassification(c *assess.IndustryClassification) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal classification: %w", err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WithLock runs fn while holding a session advisory lock keyed by the
// assessment id. The lock and unlock share one pooled connection.
func (s *Store) WithLock(ctx context.Context, assessmentID string, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	key := lockKey(assessmentID)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("lock %s: %w", assessmentID, err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", key)

	return fn(ctx)
}

// lockKey is FNV-1a over the id.
func lockKey(s string) int64 {
	var h uint64 = 14695981039346656037
	for _, c := range []byte(s) {
		h ^= uint64(c)
		h *= 1099511628211
	}
	return int64(h)
}
