package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export assessment reports",
}

var reportExportCmd = &cobra.Command{
	Use:   "export [assessment-id]",
	Short: "Export the last stored evaluation as an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("assessment-%s.xlsx", args[0])
		}
		if !filepath.IsAbs(out) {
			out = filepath.Join(cfg.ProjectRoot, out)
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

		a, err := s.GetAssessment(ctx, args[0])
		if err != nil {
			return err
		}
		ev, err := s.LoadEvaluation(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("%w (run 'assess evaluate %s' first)", err, a.ID)
		}
		if err := report.SaveAs(out, a, ev, cat); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", out)
		return nil
	},
}

func init() {
	reportExportCmd.Flags().StringP("out", "o", "", "Output path (default assessment-<id>.xlsx in the project root)")
	reportCmd.AddCommand(reportExportCmd)
}
