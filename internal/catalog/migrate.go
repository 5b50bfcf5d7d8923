package catalog

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/db"
)

// ResultColumns are the columns written to the results table, in COPY order.
var ResultColumns = []string{
	"run_id", "source_id", "candidate_id", "catalog", "rank",
	"score", "tag", "explanation", "status", "config_hash",
}

// ResultKeys form the results table's primary key.
var ResultKeys = []string{"run_id", "source_id", "candidate_id"}

const resultsDDL = `CREATE TABLE IF NOT EXISTS %[1]s (
	run_id       TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	candidate_id TEXT NOT NULL DEFAULT '',
	catalog      TEXT NOT NULL,
	rank         INTEGER NOT NULL DEFAULT 0,
	score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	tag          TEXT NOT NULL DEFAULT '',
	explanation  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	config_hash  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, source_id, candidate_id)
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (source_id, created_at DESC);`

// Migrate creates the results table if it does not exist. Catalog tables are
// managed elsewhere and are never touched.
func Migrate(ctx context.Context, pool db.Pool, resultsTable string) error {
	if resultsTable == "" {
		return eris.New("catalog: migrate: results table is not configured")
	}
	index := db.SanitizeTable(shortName(resultsTable) + "_source_idx")
	if _, err := pool.Exec(ctx, fmt.Sprintf(resultsDDL, db.SanitizeTable(resultsTable), index)); err != nil {
		return eris.Wrapf(err, "catalog: migrate %s", resultsTable)
	}
	zap.L().Info("catalog: results table ready", zap.String("table", resultsTable))
	return nil
}

func shortName(table string) string {
	for i := len(table) - 1; i >= 0; i-- {
		if table[i] == '.' {
			return table[i+1:]
		}
	}
	return table
}
