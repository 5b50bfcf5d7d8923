package recommend

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/db"
	"github.com/sells-group/similar-cli/internal/model"
)

// ResultRows flattens a batch into results-table rows in catalog.ResultColumns
// order: one row per recommendation, or one row with an empty candidate id for
// items without recommendations. Repeated source ids are written once.
func ResultRows(batch *model.BatchResult, configHash string) [][]any {
	type key struct{ source, candidate string }
	seen := make(map[key]bool)

	var rows [][]any
	add := func(r model.ProcessingResult, candidate string, rank int, score float64, tag model.Tag, explanation string) {
		k := key{r.SourceID, candidate}
		if seen[k] {
			return
		}
		seen[k] = true
		rows = append(rows, []any{
			batch.RunID, r.SourceID, candidate, string(r.Catalog), rank,
			score, string(tag), explanation, string(r.Status), configHash,
		})
	}

	for _, r := range batch.Results {
		if len(r.Recommendations) == 0 {
			add(r, "", 0, 0, "", r.Error)
			continue
		}
		for i, rec := range r.Recommendations {
			add(r, rec.CandidateID(), i+1, rec.Score, rec.Tag, rec.Explanation)
		}
	}
	return rows
}

// SaveResults upserts a batch into the results table.
func SaveResults(ctx context.Context, pool db.Pool, table string, batch *model.BatchResult, configHash string) (int64, error) {
	rows := ResultRows(batch, configHash)
	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        table,
		Columns:      catalog.ResultColumns,
		ConflictKeys: catalog.ResultKeys,
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "recommend: save results for run %s", batch.RunID)
	}
	zap.L().Info("recommend: results saved",
		zap.String("run_id", batch.RunID),
		zap.String("table", table),
		zap.Int64("rows", n),
	)
	return n, nil
}
