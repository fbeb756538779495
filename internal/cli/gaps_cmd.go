package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/assessment"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "List and triage gaps",
}

var gapsListCmd = &cobra.Command{
	Use:   "list [assessment-id]",
	Short: "List gaps by priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		ctx := context.Background()
		s, pool, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		list, err := s.LoadGaps(ctx, args[0])
		if err != nil {
			return err
		}
		shown := 0
		for _, g := range list {
			if !all && !g.Open() {
				continue
			}
			shown++
			printGap(g)
		}
		if shown == 0 {
			fmt.Println("  (none)")
		}
		return nil
	},
}

func printGap(g assess.Gap) {
	state := ""
	switch {
	case g.Resolved:
		state = " (resolved)"
	case g.Skipped:
		state = " (skipped)"
	}
	domain := string(g.Domain)
	if domain == "" {
		domain = "-"
	}
	fmt.Printf("%s  [%s] p%d  %s  %s%s\n", g.GapID, g.Category, g.Priority, domain, g.RuleName, state)
	fmt.Printf("    %s\n", g.Description)
	if len(g.SuggestedQuestions) > 0 {
		fmt.Printf("    ask: %s  (~%d min)\n", strings.Join(g.SuggestedQuestions, ", "), g.EstimatedResolutionTime)
	}
	for _, p := range g.FollowUpPrompts {
		fmt.Printf("    - %s\n", p)
	}
}

func gapStateCmd(use, short, done string, apply func(g *assessment.Aggregate, gapID string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [gap-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gapID := args[0]
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

			assessmentID, err := s.GapAssessment(ctx, gapID)
			if err != nil {
				return err
			}
			err = s.WithLock(ctx, assessmentID, func(ctx context.Context) error {
				g, err := s.Load(ctx, cat, assessmentID)
				if err != nil {
					return err
				}
				if err := apply(g, gapID); err != nil {
					return err
				}
				gap, _ := g.Gap(gapID)
				return s.SetGapState(ctx, gapID, gap.Resolved, gap.Skipped)
			})
			if err != nil {
				return err
			}
			fmt.Printf("Gap %s %s.\n", gapID, done)
			requestScore(ctx, assessmentID, "gap-"+use)
			return nil
		},
	}
}

func init() {
	gapsListCmd.Flags().Bool("all", false, "Include resolved and skipped gaps")

	gapsCmd.AddCommand(gapsListCmd)
	gapsCmd.AddCommand(gapStateCmd("resolve", "Mark a gap resolved", "resolved", (*assessment.Aggregate).Resolve))
	gapsCmd.AddCommand(gapStateCmd("skip", "Skip a gap", "skipped", (*assessment.Aggregate).Skip))
	gapsCmd.AddCommand(gapStateCmd("reopen", "Reopen a resolved or skipped gap", "reopened", (*assessment.Aggregate).Reopen))
}
