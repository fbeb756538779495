// Package scorer consumes score requests, re-evaluates assessments and
// publishes founder notification verdicts.
package scorer

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/assessment"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/engine"
	"github.com/sbenjam1n/bizassess/internal/gaps"
	"github.com/sbenjam1n/bizassess/internal/queue"
)

// Repository is the persistence the scorer needs. *store.Store satisfies it.
type Repository interface {
	Load(ctx context.Context, cat *catalog.Catalog, assessmentID string) (*assessment.Aggregate, error)
	SaveEvaluation(ctx context.Context, ev assess.Evaluation) error
	WithLock(ctx context.Context, assessmentID string, fn func(ctx context.Context) error) error
}

// Source delivers score requests. *queue.Queue satisfies it.
type Source interface {
	ReadScores(ctx context.Context, consumer string, count int64, block time.Duration) ([]queue.Delivery[queue.ScoreRequest], error)
	AckScores(ctx context.Context, ids ...string) error
}

// Publisher receives verdicts that warrant a founder notification.
type Publisher interface {
	PushNotification(ctx context.Context, n queue.Notification) (string, error)
}

// Options tunes the consume loop.
type Options struct {
	Consumer string
	// Debounce is how long the loop keeps collecting requests after the
	// first one of a batch arrives.
	Debounce time.Duration
	// BatchSize caps one read from the stream.
	BatchSize int64
	// PollInterval bounds each blocking read so cancellation is noticed.
	PollInterval time.Duration
}

// Scorer runs the engine for queued assessments.
type Scorer struct {
	engine  *engine.Engine
	repo    Repository
	source  Source
	publish Publisher
	opts    Options
}

// New creates a Scorer.
func New(e *engine.Engine, repo Repository, source Source, publish Publisher, opts Options) *Scorer {
	if opts.Consumer == "" {
		opts.Consumer = "scorer_1"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Scorer{engine: e, repo: repo, source: source, publish: publish, opts: opts}
}

// Run blocks on the scoring stream until ctx is cancelled.
func (s *Scorer) Run(ctx context.Context) error {
	for {
		batch, err := s.collect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("score read error: %v", err)
			continue
		}
		if len(batch) == 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		s.processBatch(ctx, batch)
	}
}

// collect reads one batch. Once the first request arrives it keeps reading
// until the debounce window closes.
func (s *Scorer) collect(ctx context.Context) ([]queue.Delivery[queue.ScoreRequest], error) {
	batch, err := s.source.ReadScores(ctx, s.opts.Consumer, s.opts.BatchSize, s.opts.PollInterval)
	if err != nil || len(batch) == 0 || s.opts.Debounce <= 0 {
		return batch, err
	}

	deadline := time.Now().Add(s.opts.Debounce)
	for {
		// XREADGROUP blocks in whole milliseconds and BLOCK 0 waits forever.
		remaining := time.Until(deadline)
		if remaining < time.Millisecond || ctx.Err() != nil {
			return batch, nil
		}
		more, err := s.source.ReadScores(ctx, s.opts.Consumer, s.opts.BatchSize, remaining)
		if err != nil {
			// Whatever was already read still gets scored.
			log.Printf("score read error during debounce: %v", err)
			return batch, nil
		}
		batch = append(batch, more...)
	}
}

// processBatch scores each distinct assessment once and acks every message.
func (s *Scorer) processBatch(ctx context.Context, batch []queue.Delivery[queue.ScoreRequest]) {
	ids := make([]string, 0, len(batch))
	for _, d := range batch {
		ids = append(ids, d.ID)
	}

	for _, assessmentID := range Coalesce(batch) {
		if _, err := s.Score(ctx, assessmentID); err != nil {
			log.Printf("score %s failed: %v", assessmentID, err)
		}
	}

	if err := s.source.AckScores(ctx, ids...); err != nil {
		log.Printf("ack %d score requests: %v", len(ids), err)
	}
}

// Score re-evaluates one assessment under its advisory lock, saves the
// result and publishes a notification when the verdict newly calls for one.
func (s *Scorer) Score(ctx context.Context, assessmentID string) (assess.Evaluation, error) {
	var ev assess.Evaluation
	err := s.repo.WithLock(ctx, assessmentID, func(ctx context.Context) error {
		agg, err := s.repo.Load(ctx, s.engine.Catalog(), assessmentID)
		if err != nil {
			return fmt.Errorf("load assessment: %w", err)
		}

		before := gaps.Evaluate(agg.Gaps, s.engine.Policy())
		ev = agg.Evaluate(s.engine)
		if err := s.repo.SaveEvaluation(ctx, ev); err != nil {
			return fmt.Errorf("save evaluation: %w", err)
		}

		if !ShouldPublish(before, ev.Verdict) {
			return nil
		}
		if _, err := s.publish.PushNotification(ctx, queue.Notification{
			AssessmentID:  assessmentID,
			CompanyID:     agg.Assessment.CompanyID,
			UrgencyLevel:  ev.Verdict.UrgencyLevel,
			CriticalCount: ev.Verdict.CriticalCount,
			GapIDs:        ev.Verdict.GapIDs,
			Domains:       ev.Verdict.Domains,
			EvaluatedAt:   ev.EvaluatedAt,
		}); err != nil {
			return fmt.Errorf("publish verdict: %w", err)
		}
		log.Printf("assessment %s: %d critical gaps, urgency %s", assessmentID, ev.Verdict.CriticalCount, ev.Verdict.UrgencyLevel)
		return nil
	})
	return ev, err
}

// Coalesce returns the distinct assessment ids in a batch in first-seen order.
func Coalesce(batch []queue.Delivery[queue.ScoreRequest]) []string {
	seen := make(map[string]bool, len(batch))
	var out []string
	for _, d := range batch {
		id := d.Message.AssessmentID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ShouldPublish reports whether after warrants a notification given the
// verdict derived from the previous gap list. Unchanged notifying verdicts
// are not republished.
func ShouldPublish(before, after assess.Verdict) bool {
	if !after.ShouldNotify {
		return false
	}
	if !before.ShouldNotify || before.UrgencyLevel != after.UrgencyLevel {
		return true
	}
	return !slices.Equal(sorted(before.GapIDs), sorted(after.GapIDs))
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
