package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rmera/scoper/ensemble"
	"github.com/rmera/scoper/pipeline"
)

// printReport prints the ranking, marking the selected candidates, and
// a summary of what happened after selection.
func printReport(w io.Writer, rep *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + rep.RunID)
	t.AppendHeader(table.Row{"Rank", "Candidate", "Chi^2", "Selected"})
	for i, s := range rep.Ranked {
		sel := ""
		if i < len(rep.TopK) {
			sel = "*"
		}
		t.AppendRow(table.Row{i + 1, s.Name, fmt.Sprintf("%.4f", s.Score), sel})
	}
	for _, f := range rep.Failed {
		t.AppendRow(table.Row{"-", f.Name, "excluded", ""})
	}
	if rep.Stats.N > 0 {
		t.AppendFooter(table.Row{"", "mean ± sd", fmt.Sprintf("%.4f ± %.4f", rep.Stats.Mean, rep.Stats.StdDev), ""})
	}
	t.Render()

	if r := rep.Refinement; r != nil && (len(r.Refined) > 0 || len(r.Failed) > 0) {
		fmt.Fprintf(w, "Refined: %s\n", strings.Join(r.Refined, ", "))
		for _, f := range r.Failed {
			fmt.Fprintf(w, "Refinement failed for %s: %s\n", f.Name, f.Reason)
		}
	}
	switch {
	case rep.Ensemble != nil:
		printEnsemble(w, rep.Ensemble)
	case rep.EnsembleSkipped != "":
		fmt.Fprintf(w, "Not running MultiFoXS: %s\n", rep.EnsembleSkipped)
	}
}

func printEnsemble(w io.Writer, res *ensemble.Result) {
	fmt.Fprintf(w, "MultiFoXS lowest score is %g", res.BestScore)
	if res.Size > 0 {
		fmt.Fprintf(w, " (%d structures: %s)", res.Size, strings.Join(res.Members, ", "))
	}
	fmt.Fprintln(w)
}
