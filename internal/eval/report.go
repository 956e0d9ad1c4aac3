package eval

import (
	"fmt"
	"io"
	"strings"
)

// SaveReport writes a run summary as JSON, creating parent directories.
func SaveReport(path string, summary RunSummary) error {
	return writeJSONFile(path, summary)
}

func LoadReport(path string) (*RunSummary, error) {
	var summary RunSummary
	if err := readJSONFile(path, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// PrintSummary writes a human-readable summary of a run to w.
func PrintSummary(w io.Writer, summary *RunSummary) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Evaluation run: %s\n", summary.RunID)
	if summary.CatalogVersion != "" {
		fmt.Fprintf(w, "Catalog:        %s\n", summary.CatalogVersion)
	}
	if summary.JudgeModel != "" {
		fmt.Fprintf(w, "Judge model:    %s\n", summary.JudgeModel)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Total tests:    %d\n", summary.Total)
	fmt.Fprintf(w, "Passed:         %d\n", summary.Passed)
	fmt.Fprintf(w, "Failed:         %d (errors: %d)\n", summary.Failed, summary.Errored)
	fmt.Fprintf(w, "Pass rate:      %s\n", summary.PassRate)
	fmt.Fprintln(w)

	if summary.Failed > 0 {
		fmt.Fprintln(w, "Failed Tests:")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, res := range summary.Results {
			if res.Passed {
				continue
			}
			fmt.Fprintf(w, "\n[%s] %s (%s)\n", res.TestCategory, res.TestName, res.Outcome)
			fmt.Fprintf(w, "  Student:  %q\n", res.StudentInput)
			fmt.Fprintf(w, "  Tutor:    %q\n", res.OrbitResponse)
			if res.FailureReason != nil {
				fmt.Fprintf(w, "  Reason:   %s\n", *res.FailureReason)
			}
			if len(res.RedFlagsFound) > 0 {
				fmt.Fprintf(w, "  Red flags: %s\n", strings.Join(res.RedFlagsFound, ", "))
			}
		}
		fmt.Fprintln(w)
	}

	if summary.Passed > 0 {
		fmt.Fprintln(w, "Passed Tests:")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, res := range summary.Results {
			if res.Passed {
				fmt.Fprintf(w, "✓ [%s] %s\n", res.TestCategory, res.TestName)
			}
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}
