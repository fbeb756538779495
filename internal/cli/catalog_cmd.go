package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/assess"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the question catalog and business model profiles",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List domains with their question counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}
		cat := e.Catalog()

		fmt.Printf("%-26s %-32s %8s %8s %10s\n", "DOMAIN", "NAME", "BASE", "REQUIRED", "FOLLOW-UPS")
		for _, d := range assess.AllDomains {
			dom, ok := cat.Domain(d)
			if !ok {
				continue
			}
			fmt.Printf("%-26s %-32s %8d %8d %10d\n",
				d, dom.Name, len(dom.Questions), dom.RequiredQuestionCount(), len(dom.FollowUps))
		}

		fmt.Println("\nBusiness models:")
		for _, model := range e.Profiles().Models() {
			p := e.Profile(model)
			fmt.Printf("  %-18s required: %s\n", model, joinDomains(p.RequiredDomains))
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show [domain]",
	Short: "Show the questions and follow-up triggers of one domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDomain(args[0])
		if err != nil {
			return err
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		dom, ok := cat.Domain(d)
		if !ok {
			return fmt.Errorf("domain %s is not in the catalog", d)
		}

		fmt.Printf("%s (%s)\n", dom.Name, dom.ID)
		if dom.Description != "" {
			fmt.Printf("%s\n", dom.Description)
		}
		fmt.Println()
		for _, q := range dom.Questions {
			printQuestion(q, "")
		}
		if len(dom.FollowUps) > 0 {
			fmt.Println("\nFollow-ups:")
			for _, q := range dom.FollowUps {
				printQuestion(q, "  ")
			}
		}
		return nil
	},
}

func printQuestion(q assess.Question, indent string) {
	marker := " "
	if q.Required {
		marker = "*"
	}
	fmt.Printf("%s%s %-6s [%s] %s\n", indent, marker, q.ID, q.Type, q.Text)
	if q.Conditional != nil {
		fmt.Printf("%s         when %s\n", indent, describeCondition(*q.Conditional))
	}
	if len(q.Options) > 0 {
		fmt.Printf("%s         options: %s\n", indent, strings.Join(q.Options, ", "))
	}
}

func describeCondition(c assess.Conditional) string {
	var parts []string
	if len(c.ShowIf) > 0 {
		parts = append(parts, fmt.Sprintf("%s is one of %s", c.DependsOn, strings.Join(c.ShowIf, ", ")))
	}
	if c.AtLeast != nil {
		parts = append(parts, fmt.Sprintf("%s >= %g", c.DependsOn, *c.AtLeast))
	}
	return strings.Join(parts, " or ")
}

func joinDomains(ds []assess.DomainID) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}
