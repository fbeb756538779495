// Package report exports an evaluation as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
)

// Sheet names, in workbook order.
const (
	SheetSummary    = "Summary"
	SheetProgress   = "Progress"
	SheetGaps       = "Gaps"
	SheetValidation = "Validation"
)

var (
	progressHeader   = []any{"Domain", "Name", "Status", "Completed", "Total", "Progress %", "Required", "Required answered", "Missing"}
	gapsHeader       = []any{"Priority", "Category", "Domain", "Rule", "Description", "Suggested questions", "Minutes", "State", "First detected"}
	validationHeader = []any{"Severity", "Type", "Field", "Rule", "Message", "Questions"}
)

// Build lays out the workbook in memory. The caller closes the file.
func Build(a assess.Assessment, ev assess.Evaluation, cat *catalog.Catalog) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetProgress, SheetGaps, SheetValidation} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := &sheetWriter{f: f, bold: bold}
	w.summary(a, ev)
	w.progress(ev, cat)
	w.gaps(ev)
	w.validation(ev)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// Write builds the workbook and streams it to out.
func Write(out io.Writer, a assess.Assessment, ev assess.Evaluation, cat *catalog.Catalog) error {
	f, err := Build(a, ev, cat)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveAs builds the workbook and saves it to path.
func SaveAs(path string, a assess.Assessment, ev assess.Evaluation, cat *catalog.Catalog) error {
	f, err := Build(a, ev, cat)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// sheetWriter keeps the first error so the layout code reads top to bottom.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("%s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) header(sheet string, values []any) {
	w.row(sheet, 1, values)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.bold); err != nil {
		w.err = fmt.Errorf("%s header style: %w", sheet, err)
		return
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		w.err = fmt.Errorf("%s freeze header: %w", sheet, err)
	}
}

func (w *sheetWriter) summary(a assess.Assessment, ev assess.Evaluation) {
	model := a.BusinessModel()
	if model == "" {
		model = "unclassified"
	}
	rows := [][]any{
		{"Assessment", a.ID},
		{"Company", a.CompanyID},
		{"Business model", model},
		{"Progress %", ev.Overall.Percentage},
		{"Coverage %", ev.Validation.Completeness},
		{"Remaining questions", ev.Overall.RemainingQuestions},
		{"Estimated time remaining", ev.Overall.EstimatedTimeRemaining},
		{"Open critical gaps", ev.Verdict.CriticalCount},
		{"Urgency", string(ev.Verdict.UrgencyLevel)},
		{"Notify founder", ev.Verdict.ShouldNotify},
		{"Evaluated at", ev.EvaluatedAt.UTC().Format("2006-01-02 15:04:05")},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+1, r)
	}
	if w.err == nil {
		if err := w.f.SetColWidth(SheetSummary, "A", "A", 26); err != nil {
			w.err = err
		}
	}
}

func (w *sheetWriter) progress(ev assess.Evaluation, cat *catalog.Catalog) {
	w.header(SheetProgress, progressHeader)
	n := 2
	for _, d := range assess.AllDomains {
		p, ok := ev.Progress[d]
		if !ok {
			continue
		}
		name := string(d)
		if dom, ok := cat.Domain(d); ok {
			name = dom.Name
		}
		w.row(SheetProgress, n, []any{
			string(d), name, string(p.Status), p.Completed, p.Total, p.Percentage,
			p.RequiredQuestions, p.RequiredAnswered, strings.Join(p.Missing, ", "),
		})
		n++
	}
}

func (w *sheetWriter) gaps(ev assess.Evaluation) {
	w.header(SheetGaps, gapsHeader)
	for i, g := range ev.Gaps {
		w.row(SheetGaps, i+2, []any{
			g.Priority, string(g.Category), string(g.Domain), g.RuleName, g.Description,
			strings.Join(g.SuggestedQuestions, ", "), g.EstimatedResolutionTime, gapState(g),
			g.FirstDetectedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
}

func (w *sheetWriter) validation(ev assess.Evaluation) {
	w.header(SheetValidation, validationHeader)
	n := 2
	for _, group := range []struct {
		severity string
		issues   []assess.ValidationIssue
	}{
		{"error", ev.Validation.Errors},
		{"warning", ev.Validation.Warnings},
	} {
		for _, issue := range group.issues {
			w.row(SheetValidation, n, []any{
				group.severity, string(issue.Type), issue.Field, issue.Rule, issue.Message,
				strings.Join(issue.Questions, ", "),
			})
			n++
		}
	}
}

func gapState(g assess.Gap) string {
	switch {
	case g.Resolved:
		return "resolved"
	case g.Skipped:
		return "skipped"
	default:
		return "open"
	}
}
