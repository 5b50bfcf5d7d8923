package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/sells-group/similar-cli/internal/model"
)

// writeJSON writes v to w as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatResult writes one lookup result as a ranked table.
func formatResult(out io.Writer, res *model.ProcessingResult) {
	_, _ = fmt.Fprintf(out, "%s %s: %s (%s)\n", res.Catalog, res.SourceID, res.Status, res.Duration.Round(time.Millisecond))
	if res.Error != "" {
		_, _ = fmt.Fprintf(out, "error: %s\n", res.Error)
	}
	if len(res.Recommendations) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tCANDIDATE\tSCORE\tTAG\tSIZES\tSTOCK")
	_, _ = fmt.Fprintln(w, "----\t---------\t-----\t---\t-----\t-----")
	for i, r := range res.Recommendations {
		rec := r.Candidate.Base()
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%s\t%d\n",
			i+1,
			rec.ID,
			r.Score,
			r.Tag,
			strings.Join(r.Candidate.Sizes().Strings(), ","),
			rec.Stock,
		)
	}
	_ = w.Flush()
}

// formatExplanations writes the per-rule explanation of every recommendation.
func formatExplanations(out io.Writer, res *model.ProcessingResult) {
	for i, r := range res.Recommendations {
		_, _ = fmt.Fprintf(out, "\n%d. %s (%s)\n%s\n", i+1, r.CandidateID(), r.Tag, r.Explanation)
	}
}

// formatBatchSummary writes per-status counts of a batch run.
func formatBatchSummary(out io.Writer, b *model.BatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", b.RunID)
	_, _ = fmt.Fprintf(w, "Items:\t%d\n", b.Total)
	for _, s := range model.Statuses {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", s, b.Counts[s])
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", b.Duration.Round(time.Millisecond))
	_ = w.Flush()
}
