package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/assessment"
	"github.com/sbenjam1n/bizassess/internal/engine"
	"github.com/sbenjam1n/bizassess/internal/queue"
	"github.com/sbenjam1n/bizassess/internal/store"
)

var assessmentCmd = &cobra.Command{
	Use:     "assessment",
	Aliases: []string{"a"},
	Short:   "Create, classify and answer assessments",
}

var assessmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new assessment for a company",
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		respondent, _ := cmd.Flags().GetString("respondent")
		if company == "" {
			return fmt.Errorf("--company is required")
		}

		ctx := context.Background()
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		g := assessment.New(cat, company, respondent, time.Now())
		if cmd.Flags().Changed("model") {
			c, err := classificationFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := g.Classify(c, time.Now()); err != nil {
				return err
			}
		}
		if err := s.CreateAssessment(ctx, g.Assessment); err != nil {
			return err
		}

		fmt.Printf("Assessment %s created for %s.\n", g.Assessment.ID, company)
		return nil
	},
}

var assessmentClassifyCmd = &cobra.Command{
	Use:   "classify [assessment-id]",
	Short: "Set the industry classification that selects the business model profile",
	Long: `Set the industry classification. Once scoring has started the classification
is locked; pass --force to reclassify, which drops existing gaps and restarts scoring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		c, err := classificationFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		e, err := loadEngine()
		if err != nil {
			return err
		}
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		id := args[0]
		err = s.WithLock(ctx, id, func(ctx context.Context) error {
			g, err := s.Load(ctx, e.Catalog(), id)
			if err != nil {
				return err
			}

			now := time.Now()
			err = g.Classify(c, now)
			switch {
			case errors.Is(err, assessment.ErrClassificationLocked) && force:
				g.Reclassify(c, now)
				if err := s.ClearDerived(ctx, id); err != nil {
					return err
				}
				fmt.Println("Scoring had started; existing gaps dropped.")
			case errors.Is(err, assessment.ErrClassificationLocked):
				return fmt.Errorf("%w (use --force to reclassify)", err)
			case err != nil:
				return err
			}
			return s.UpdateAssessment(ctx, g.Assessment)
		})
		if err != nil {
			return err
		}

		if e.Profile(c.BusinessModel) == nil {
			fmt.Printf("Warning: business model %q has no profile; known models: %s\n",
				c.BusinessModel, strings.Join(e.Profiles().Models(), ", "))
		}
		fmt.Printf("Assessment %s classified as %s.\n", id, c.BusinessModel)
		requestScore(ctx, id, "classify")
		return nil
	},
}

var assessmentAnswerCmd = &cobra.Command{
	Use:   "answer [assessment-id] [domain] [question-id] [value]",
	Short: "Record an answer",
	Long: `Record an answer. The value is parsed by question type: a number for scale
questions, true or false for boolean, an option for single-choice and a comma
separated list for multi-choice.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDomain(args[1])
		if err != nil {
			return err
		}

		ctx := context.Background()
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		g, err := s.Load(ctx, cat, args[0])
		if err != nil {
			return err
		}
		a, err := g.AnswerRaw(d, args[2], args[3], time.Now())
		if err != nil {
			return err
		}
		if err := s.RecordAnswer(ctx, g.Assessment.ID, d, a); err != nil {
			return err
		}

		fmt.Printf("Recorded %s/%s = %v\n", d, a.QuestionID, a.Value)
		if noScore, _ := cmd.Flags().GetBool("no-score"); !noScore {
			requestScore(ctx, g.Assessment.ID, "answer")
		}
		return nil
	},
}

var assessmentFillCmd = &cobra.Command{
	Use:   "fill [assessment-id] [domain]",
	Short: "Answer a domain's open questions one by one",
	Long: `Walk the dynamic question graph of one domain, prompting for each open
question. Follow-ups appear as soon as their trigger is answered. Press enter
to skip a question, or type q to stop.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDomain(args[1])
		if err != nil {
			return err
		}

		ctx := context.Background()
		e, err := loadEngine()
		if err != nil {
			return err
		}
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		g, err := s.Load(ctx, e.Catalog(), args[0])
		if err != nil {
			return err
		}

		n, err := fill(os.Stdin, os.Stdout, e, g, d, func(a assess.Answer) error {
			return s.RecordAnswer(ctx, g.Assessment.ID, d, a)
		})
		if err != nil {
			return err
		}
		fmt.Printf("\n%d answer(s) recorded.\n", n)
		if n > 0 {
			requestScore(ctx, g.Assessment.ID, "fill")
		}
		return nil
	},
}

// fill prompts for unanswered questions of d until none are left, the input
// ends or the user quits. It returns the number of answers recorded.
func fill(in io.Reader, out io.Writer, e *engine.Engine, g *assessment.Aggregate, d assess.DomainID, record func(assess.Answer) error) (int, error) {
	scanner := bufio.NewScanner(in)
	skipped := make(map[string]bool)
	recorded := 0
	for {
		q, ok := nextOpen(e, g, d, skipped)
		if !ok {
			fmt.Fprintln(out, "No open questions left.")
			return recorded, nil
		}

		fmt.Fprintf(out, "\n[%s] %s\n", q.ID, q.Text)
		switch {
		case q.Scale != nil:
			fmt.Fprintf(out, "  scale %d-%d\n", q.Scale.Min, q.Scale.Max)
		case len(q.Options) > 0:
			fmt.Fprintf(out, "  options: %s\n", strings.Join(q.Options, ", "))
		case q.Type == assess.QuestionBoolean:
			fmt.Fprintln(out, "  true/false")
		}
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			return recorded, scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "q", "quit":
			return recorded, nil
		case "":
			skipped[q.ID] = true
			continue
		}

		a, err := g.AnswerRaw(d, q.ID, line, time.Now())
		if err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		if err := record(a); err != nil {
			return recorded, err
		}
		recorded++
	}
}

func nextOpen(e *engine.Engine, g *assessment.Aggregate, d assess.DomainID, skipped map[string]bool) (assess.Question, bool) {
	r := g.Ledger.Domain(d)
	gr, ok := e.Graph(d, r)
	if !ok {
		return assess.Question{}, false
	}
	for q := range gr.Seq() {
		if _, answered := r.Value(q.ID); answered || skipped[q.ID] {
			continue
		}
		return q, true
	}
	return assess.Question{}, false
}

var assessmentShowCmd = &cobra.Command{
	Use:   "show [assessment-id]",
	Short: "Show an assessment with its last stored evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		a, err := s.GetAssessment(ctx, args[0])
		if err != nil {
			return err
		}
		printAssessment(a)

		ev, err := s.LoadEvaluation(ctx, a.ID)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println("\nNot evaluated yet. Run: assess evaluate " + a.ID)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println()
		printEvaluation(ev)
		return nil
	},
}

var assessmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		ctx := context.Background()
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		list, err := s.ListAssessments(ctx, company)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("  (none)")
			return nil
		}
		for _, a := range list {
			model := a.BusinessModel()
			if model == "" {
				model = "-"
			}
			state := "editing"
			if a.ScoringStartedAt != nil {
				state = "scoring"
			}
			fmt.Printf("  %s  company=%s  model=%s  %s  created %s\n",
				a.ID, a.CompanyID, model, state, a.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var assessmentResetCmd = &cobra.Command{
	Use:   "reset [assessment-id]",
	Short: "Discard all answers, progress and gaps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		id := args[0]
		err = s.WithLock(ctx, id, func(ctx context.Context) error {
			g, err := s.Load(ctx, cat, id)
			if err != nil {
				return err
			}
			g.Reset(time.Now())
			return s.ResetAssessment(ctx, id, g.Assessment.UpdatedAt)
		})
		if err != nil {
			return err
		}
		fmt.Printf("Assessment %s reset; classification kept.\n", id)
		return nil
	},
}

func classificationFromFlags(cmd *cobra.Command) (assess.IndustryClassification, error) {
	var c assess.IndustryClassification
	c.BusinessModel, _ = cmd.Flags().GetString("model")
	c.Sector, _ = cmd.Flags().GetString("sector")
	c.SubSector, _ = cmd.Flags().GetString("sub-sector")
	c.RegulatoryClassification, _ = cmd.Flags().GetString("regulatory")
	c.CompanyStage, _ = cmd.Flags().GetString("stage")
	c.EmployeeCount, _ = cmd.Flags().GetInt("employees")
	if c.BusinessModel == "" {
		return c, fmt.Errorf("--model is required")
	}
	return c, nil
}

func addClassificationFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "Business model (b2b-saas, b2c-marketplace, manufacturing, services, hybrid)")
	cmd.Flags().String("sector", "", "Industry sector")
	cmd.Flags().String("sub-sector", "", "Industry sub-sector")
	cmd.Flags().String("regulatory", "", "Regulatory classification")
	cmd.Flags().String("stage", "", "Company stage")
	cmd.Flags().Int("employees", 0, "Employee count")
}

// requestScore queues a re-evaluation. A missing Redis only warns: the
// answer is already stored and 'assess evaluate' scores synchronously.
func requestScore(ctx context.Context, assessmentID, reason string) {
	rdb, err := connectRedis()
	if err != nil {
		fmt.Printf("Warning: score request not queued: %v\n", err)
		return
	}
	defer rdb.Close()

	if _, err := queue.New(rdb).PushScore(ctx, queue.ScoreRequest{
		AssessmentID: assessmentID,
		Reason:       reason,
		RequestedAt:  time.Now().UTC(),
	}); err != nil {
		fmt.Printf("Warning: score request not queued: %v\n", err)
	}
}

func printAssessment(a assess.Assessment) {
	fmt.Printf("Assessment: %s\n", a.ID)
	fmt.Printf("Company:    %s\n", a.CompanyID)
	if a.RespondentID != "" {
		fmt.Printf("Respondent: %s\n", a.RespondentID)
	}
	if c := a.Classification; c != nil {
		fmt.Printf("Model:      %s\n", c.BusinessModel)
		if c.Sector != "" {
			fmt.Printf("Sector:     %s %s\n", c.Sector, c.SubSector)
		}
		if c.CompanyStage != "" || c.EmployeeCount > 0 {
			fmt.Printf("Stage:      %s, %d employees\n", c.CompanyStage, c.EmployeeCount)
		}
	} else {
		fmt.Println("Model:      (unclassified)")
	}
	if a.ScoringStartedAt != nil {
		fmt.Printf("Scoring since %s (classification locked)\n", a.ScoringStartedAt.Format(time.RFC3339))
	}
}

func init() {
	assessmentCreateCmd.Flags().String("company", "", "Company id (required)")
	assessmentCreateCmd.Flags().String("respondent", "", "Respondent id")
	addClassificationFlags(assessmentCreateCmd)

	addClassificationFlags(assessmentClassifyCmd)
	assessmentClassifyCmd.Flags().Bool("force", false, "Reclassify after scoring has started")

	assessmentAnswerCmd.Flags().Bool("no-score", false, "Do not queue a score request")

	assessmentListCmd.Flags().String("company", "", "Only this company")

	assessmentCmd.AddCommand(assessmentCreateCmd)
	assessmentCmd.AddCommand(assessmentClassifyCmd)
	assessmentCmd.AddCommand(assessmentAnswerCmd)
	assessmentCmd.AddCommand(assessmentFillCmd)
	assessmentCmd.AddCommand(assessmentShowCmd)
	assessmentCmd.AddCommand(assessmentListCmd)
	assessmentCmd.AddCommand(assessmentResetCmd)
}
