package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hupe1980/trainmesh/core"
)

const rule = "============================================================"

// WriteSummary renders the end-of-run summary: one line per job, then the
// totals.
func WriteSummary(w io.Writer, rep core.ExperimentReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nEXPERIMENT SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Workload: %s\n", rep.Workload)
	if rep.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", rep.RunID)
	}
	if rep.Cancelled {
		b.WriteString("Run cancelled before completion\n")
	}
	fmt.Fprintf(&b, "Total experiments: %d\n", rep.Total)
	fmt.Fprintf(&b, "Successful: %d\n", rep.Successful)
	fmt.Fprintf(&b, "Failed: %d\n", rep.Failed)
	fmt.Fprintf(&b, "Total time: %.2f hours\n", rep.TotalTimeHours)
	fmt.Fprintf(&b, "Average time per experiment: %.1f minutes\n\n", rep.AverageJobTime.Minutes())

	names := make([]string, 0, len(rep.Results))
	for name := range rep.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := rep.Results[name]
		mark := "✅"
		if !res.Success {
			mark = "❌"
		}
		fmt.Fprintf(&b, "  %s %s: %.1f min", mark, name, res.Duration.Minutes())
		if res.Error != "" {
			fmt.Fprintf(&b, " (%s)", res.Error)
		}
		b.WriteByte('\n')
	}

	if len(rep.Artifacts) > 0 {
		b.WriteString("\nArtifacts:\n")
		for _, a := range rep.Artifacts {
			fmt.Fprintf(&b, "  %s: %s\n", a.Job, strings.Join(a.Files, ", "))
		}
	}
	if len(rep.MissingArtifacts) > 0 {
		fmt.Fprintf(&b, "\nNo artifacts found for: %s\n", strings.Join(rep.MissingArtifacts, ", "))
	}
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
