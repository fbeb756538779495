package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/queue"
	"github.com/sbenjam1n/bizassess/internal/scorer"
)

// snapshot is the offline input of 'assess evaluate --file'.
type snapshot struct {
	Assessment assess.Assessment                         `json:"assessment"`
	Responses  map[assess.DomainID]assess.DomainResponse `json:"responses"`
	Gaps       []assess.Gap                              `json:"gaps,omitempty"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [assessment-id]",
	Short: "Run an evaluation pass now",
	Long: `Evaluate a stored assessment synchronously, save progress and gaps, and
publish a founder notification when the verdict calls for one.

With --file, evaluate a JSON snapshot ({"assessment", "responses", "gaps"})
without a database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := loadEngine()
		if err != nil {
			return err
		}

		var ev assess.Evaluation
		switch {
		case file != "":
			snap, err := readSnapshot(file)
			if err != nil {
				return err
			}
			ev = e.Evaluate(snap.Assessment, snap.Responses, snap.Gaps)
		case len(args) == 1:
			ctx := context.Background()
			s, pool, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			var pub scorer.Publisher = printPublisher{}
			if rdb, err := connectRedis(); err == nil {
				defer rdb.Close()
				if rdb.Ping(ctx).Err() == nil {
					pub = queue.New(rdb)
				}
			}
			ev, err = scorer.New(e, s, nil, pub, scorer.Options{}).Score(ctx, args[0])
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("give an assessment id or --file")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		}
		printEvaluation(ev)
		return nil
	},
}

func readSnapshot(path string) (snapshot, error) {
	var snap snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Assessment.ID == "" {
		snap.Assessment.ID = "offline"
	}
	return snap, nil
}

// printPublisher stands in for the notification stream when Redis is down.
type printPublisher struct{}

func (printPublisher) PushNotification(_ context.Context, n queue.Notification) (string, error) {
	fmt.Printf("Founder notification (not queued): %d critical gaps, urgency %s\n", n.CriticalCount, n.UrgencyLevel)
	return "", nil
}

func printEvaluation(ev assess.Evaluation) {
	fmt.Printf("Progress: %d%%  (%d questions left, about %s)\n",
		ev.Overall.Percentage, ev.Overall.RemainingQuestions, ev.Overall.EstimatedTimeRemaining)
	fmt.Printf("Coverage: %d%%\n\n", ev.Validation.Completeness)

	domains := make([]assess.DomainID, 0, len(ev.Progress))
	for d := range ev.Progress {
		domains = append(domains, d)
	}
	sort.Slice(domains, func(i, j int) bool { return domainOrder(domains[i]) < domainOrder(domains[j]) })
	for _, d := range domains {
		p := ev.Progress[d]
		fmt.Printf("  %-26s %3d%%  %2d/%-2d  %s\n", d, p.Percentage, p.Completed, p.Total, p.Status)
	}

	if len(ev.Validation.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, issue := range ev.Validation.Errors {
			fmt.Printf("  [%s] %s: %s\n", issue.Type, issue.Field, issue.Message)
		}
	}
	if len(ev.Validation.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, issue := range ev.Validation.Warnings {
			fmt.Printf("  [%s] %s: %s\n", issue.Type, issue.Field, issue.Message)
		}
	}

	open := 0
	for _, g := range ev.Gaps {
		if g.Open() {
			open++
		}
	}
	fmt.Printf("\nGaps: %d open of %d\n", open, len(ev.Gaps))
	fmt.Printf("Verdict: %d critical, urgency %s", ev.Verdict.CriticalCount, ev.Verdict.UrgencyLevel)
	if ev.Verdict.ShouldNotify {
		fmt.Print(", founder notification due")
	}
	fmt.Println()
}

func domainOrder(d assess.DomainID) int {
	for i, known := range assess.AllDomains {
		if d == known {
			return i
		}
	}
	return len(assess.AllDomains)
}

func init() {
	evaluateCmd.Flags().String("file", "", "Evaluate a JSON snapshot offline")
	evaluateCmd.Flags().Bool("json", false, "Print the evaluation as JSON")
}
