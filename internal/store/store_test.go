package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/assessment"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/db"
	"github.com/sbenjam1n/bizassess/internal/engine"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("ASSESS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ASSESS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = db.Migrate(ctx, pool)
	require.NoError(t, err)
	return New(pool)
}

func TestRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	cat, err := catalog.Default()
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)

	g := assessment.New(cat, "company-store-test", "r-1", now)
	require.NoError(t, g.Classify(assess.IndustryClassification{Sector: "software", BusinessModel: "b2b-saas"}, now))
	require.NoError(t, s.CreateAssessment(ctx, g.Assessment))
	t.Cleanup(func() { s.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, g.Assessment.ID) })

	for _, in := range []struct {
		d   assess.DomainID
		id  string
		val any
	}{
		{assess.DomainRevenueEngine, "3.4", 5.0},
		{assess.DomainRevenueEngine, "3.5", []string{"direct-sales"}},
		{assess.DomainCustomerSuccess, "7.2", 2.0},
		{assess.DomainCustomerSuccess, "7.2", 4.0},
	} {
		a, err := g.Answer(in.d, in.id, in.val, now)
		require.NoError(t, err)
		require.NoError(t, s.RecordAnswer(ctx, g.Assessment.ID, in.d, a))
	}

	responses, err := s.LoadResponses(ctx, g.Assessment.ID)
	require.NoError(t, err)
	cs := responses[assess.DomainCustomerSuccess]
	assert.Len(t, cs.History, 2)
	v, ok := cs.Value("7.2")
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	e, err := engine.FromCatalog(cat, engine.Options{})
	require.NoError(t, err)
	ev := g.Evaluate(e)
	require.NoError(t, s.SaveEvaluation(ctx, ev))

	stored, err := s.LoadGaps(ctx, g.Assessment.ID)
	require.NoError(t, err)
	require.Len(t, stored, len(ev.Gaps))

	require.NoError(t, s.SetGapState(ctx, stored[0].GapID, true, false))
	owner, err := s.GapAssessment(ctx, stored[0].GapID)
	require.NoError(t, err)
	assert.Equal(t, g.Assessment.ID, owner)
	loaded, err := s.Load(ctx, cat, g.Assessment.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Gaps[0].Resolved)
	assert.NotNil(t, loaded.Assessment.ScoringStartedAt)

	back, err := s.LoadEvaluation(ctx, g.Assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Overall, back.Overall)
	assert.Len(t, back.Progress, len(assess.AllDomains))

	require.NoError(t, s.ResetAssessment(ctx, g.Assessment.ID, now))
	responses, err = s.LoadResponses(ctx, g.Assessment.ID)
	require.NoError(t, err)
	assert.Empty(t, responses)
}

func TestSaveEvaluationKeepsGapStateSetMidPass(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	cat, err := catalog.Default()
	require.NoError(t, err)
	e, err := engine.FromCatalog(cat, engine.Options{})
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)

	g := assessment.New(cat, "company-gap-state", "r-1", now)
	require.NoError(t, g.Classify(assess.IndustryClassification{Sector: "software", BusinessModel: "b2b-saas"}, now))
	require.NoError(t, s.CreateAssessment(ctx, g.Assessment))
	t.Cleanup(func() { s.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, g.Assessment.ID) })
	require.NoError(t, s.SaveEvaluation(ctx, g.Evaluate(e)))

	// A scoring pass loads, someone resolves a gap, then the pass saves.
	pass, err := s.Load(ctx, cat, g.Assessment.ID)
	require.NoError(t, err)
	require.NotEmpty(t, pass.Gaps)
	gapID := pass.Gaps[0].GapID
	require.False(t, pass.Gaps[0].Resolved)

	require.NoError(t, s.SetGapState(ctx, gapID, true, false))
	require.NoError(t, s.SaveEvaluation(ctx, pass.Evaluate(e)))

	after, err := s.Load(ctx, cat, g.Assessment.ID)
	require.NoError(t, err)
	gap, ok := after.Gap(gapID)
	require.True(t, ok)
	assert.True(t, gap.Resolved)
}

func TestWithLockSerializes(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithLock(ctx, "lock-test", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	second := make(chan struct{})
	go func() {
		s.WithLock(ctx, "lock-test", func(context.Context) error { return nil })
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("second holder entered while the lock was held")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-done)
	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.GetAssessment(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetGapState(context.Background(), "does-not-exist", true, false), ErrNotFound)
}

func TestLockKeyStable(t *testing.T) {
	assert.Equal(t, lockKey("a-1"), lockKey("a-1"))
	assert.NotEqual(t, lockKey("a-1"), lockKey("a-2"))
}
