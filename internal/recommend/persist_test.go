package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/model"
)

func sampleBatch() *model.BatchResult {
	return &model.BatchResult{
		RunID: "run-1",
		Results: []model.ProcessingResult{
			{
				SourceID: "S0", Catalog: model.CatalogPrimary, Status: model.StatusSuccess,
				Recommendations: []model.Recommendation{
					{Candidate: sandal("A1", "38", "", "", 1), Score: 81, Explanation: "x", Tag: model.TagQualified},
					{Candidate: sandal("B1", "38", "", "", 1), Score: 34.5, Explanation: "y", Tag: model.TagRelaxed},
				},
			},
			{SourceID: "missing", Catalog: model.CatalogPrimary, Status: model.StatusNoData},
			{SourceID: "S0", Catalog: model.CatalogPrimary, Status: model.StatusSuccess,
				Recommendations: []model.Recommendation{
					{Candidate: sandal("A1", "38", "", "", 1), Score: 81, Explanation: "x", Tag: model.TagQualified},
				},
			},
			{SourceID: "bad", Catalog: model.CatalogPrimary, Status: model.StatusError, Error: "recommend: boom"},
		},
	}
}

func TestResultRows(t *testing.T) {
	rows := ResultRows(sampleBatch(), "abc123")

	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Len(t, r, len(catalog.ResultColumns))
	}
	assert.Equal(t, []any{"run-1", "S0", "A1", "primary", 1, 81.0, "qualified", "x", "SUCCESS", "abc123"}, rows[0])
	assert.Equal(t, []any{"run-1", "S0", "B1", "primary", 2, 34.5, "relaxed", "y", "SUCCESS", "abc123"}, rows[1])
	assert.Equal(t, []any{"run-1", "missing", "", "primary", 0, 0.0, "", "", "NO_DATA", "abc123"}, rows[2])
	assert.Equal(t, []any{"run-1", "bad", "", "primary", 0, 0.0, "", "recommend: boom", "ERROR", "abc123"}, rows[3])
}

func TestSaveResults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_similarity_results"}, catalog.ResultColumns).
		WillReturnResult(4)
	mock.ExpectExec(`INSERT INTO "similarity_results"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 4))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := SaveResults(context.Background(), mock, "similarity_results", sampleBatch(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResults_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err = SaveResults(context.Background(), mock, "similarity_results", sampleBatch(), "abc123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recommend: save results for run run-1")
}
