package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
)

var testTables = config.CatalogConfig{
	PrimaryTable:   "catalog_primary",
	SecondaryTable: "catalog_secondary",
	ReferenceTable: "construction_reference",
	BarcodeTable:   "item_barcodes",
	ResultsTable:   "similarity_results",
}

var (
	primaryCols = []string{
		"id", "type", "demographic", "brand", "season", "color", "fastening", "stock",
		"material", "mold_1", "mold_2", "mold_3", "size",
	}
	secondaryCols = []string{
		"id", "type", "demographic", "brand", "season", "color", "fastening", "stock",
		"material", "mold_1", "mold_2", "mold_3", "sizes",
		"heel_type", "sole_type", "heel_up_type", "lacing_type", "nose_type", "price",
	}
	referenceCols = []string{
		"id", "material", "mold_1", "mold_2", "mold_3",
		"heel_type", "sole_type", "heel_up_type", "lacing_type", "nose_type",
	}
)

func primaryRow(id, size string, stock int) []any {
	return []any{id, "Sandal", "Adult-F", "Acme", "Summer", "red", "buckle", stock, "", "", "", "", size}
}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock, testTables)
}

func TestPostgresStore_GetProduct(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM "catalog_primary" WHERE id = \$1`).
		WithArgs("P1").
		WillReturnRows(pgxmock.NewRows(primaryCols).AddRow(primaryRow("P1", "38,5", 4)...))

	p, err := store.GetProduct(context.Background(), model.CatalogPrimary, "P1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "P1", p.Base().ID)
	assert.Equal(t, "Acme", p.Base().Brand)
	assert.Equal(t, 4, p.Base().Stock)
	s, ok := p.SingleSize()
	assert.True(t, ok)
	assert.Equal(t, "38.5", s.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProduct_NotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM "catalog_primary" WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(primaryCols))

	p, err := store.GetProduct(context.Background(), model.CatalogPrimary, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProduct_UnknownCatalog(t *testing.T) {
	_, store := newMockStore(t)
	_, err := store.GetProduct(context.Background(), model.Catalog("tertiary"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown catalog")
}

func TestPostgresStore_GetProducts_Secondary(t *testing.T) {
	mock, store := newMockStore(t)

	price := 89.5
	mock.ExpectQuery(`(?s)SELECT .+ FROM "catalog_secondary" WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"S1", "S2"}).
		WillReturnRows(pgxmock.NewRows(secondaryCols).
			AddRow("S1", "Boot", "Adult-M", "Acme", "Winter", "brown", "zip", 3,
				"leather", "L1", "", "", "41;42;43", "block", "rubber", "", "", "round", &price).
			AddRow("S2", "Boot", "Adult-M", "Acme", "", "", "", 0,
				"", "", "", "", "", "", "", "", "", "", (*float64)(nil)))

	got, err := store.GetProducts(context.Background(), model.CatalogSecondary, []string{"S1", "S2", "S1", ""})
	require.NoError(t, err)
	require.Len(t, got, 2)

	s1, ok := got["S1"].(*model.SecondaryProduct)
	require.True(t, ok)
	assert.Equal(t, []string{"41", "42", "43"}, s1.Sizes().Strings())
	assert.Equal(t, "block", s1.Details.HeelType)
	v, ok := s1.Price()
	assert.True(t, ok)
	assert.Equal(t, 89.5, v)

	_, ok = got["S2"].(model.Extended).Price()
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProducts_Empty(t *testing.T) {
	mock, store := newMockStore(t)
	got, err := store.GetProducts(context.Background(), model.CatalogPrimary, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCandidates(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`WHERE type = \$1 AND demographic = \$2 AND brand = \$3 AND stock > 0 AND id <> \$4`).
		WithArgs("Sandal", "Adult-F", "Acme", "SRC").
		WillReturnRows(pgxmock.NewRows(primaryCols).
			AddRow(primaryRow("A", "39", 2)...).
			AddRow(primaryRow("", "40", 2)...).
			AddRow(primaryRow("B", "44", 8)...))

	key := model.GroupKey{Type: "Sandal", Demographic: "Adult-F", Brand: "Acme"}
	got, err := store.FindCandidates(context.Background(), model.CatalogPrimary, key, "SRC")
	require.NoError(t, err)
	// The row with an empty id is skipped.
	assert.Equal(t, []string{"A", "B"}, model.IDs(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCandidates_StoredKeyBytes(t *testing.T) {
	mock, store := newMockStore(t)

	row := []any{"Q2", "Sandal ", "Adult-F", "Acme  Shoes", "", "", "", 3, "", "", "", "", "39"}
	mock.ExpectQuery(`WHERE type = \$1 AND demographic = \$2 AND brand = \$3`).
		WithArgs("Sandal ", "Adult-F", "Acme  Shoes", "Q1").
		WillReturnRows(pgxmock.NewRows(primaryCols).AddRow(row...))

	src, err := model.NewPrimary(model.Record{ID: "Q1", Type: "Sandal ", Demographic: "Adult-F", Brand: "Acme  Shoes"}, "38")
	require.NoError(t, err)

	got, err := store.FindCandidates(context.Background(), model.CatalogPrimary, model.KeyOf(src), "Q1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	// Candidates come back with the same key as the source.
	assert.Equal(t, model.KeyOf(src), model.KeyOf(got[0]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCandidates_MissingMandatory(t *testing.T) {
	mock, store := newMockStore(t)

	got, err := store.FindCandidates(context.Background(), model.CatalogPrimary,
		model.GroupKey{Type: "Sandal", Brand: "Acme"}, "SRC")
	require.NoError(t, err)
	assert.Empty(t, got)
	// No query was issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindCandidates_QueryError(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`WHERE type = \$1`).
		WillReturnError(errors.New("connection refused"))

	key := model.GroupKey{Type: "Sandal", Demographic: "Adult-F", Brand: "Acme"}
	_, err := store.FindCandidates(context.Background(), model.CatalogPrimary, key, "SRC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog: find candidates for Sandal/Adult-F/Acme")
}

func TestPostgresStore_FindGroupMembers(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`unnest\(\$1::text\[\], \$2::text\[\], \$3::text\[\]\)`).
		WithArgs([]string{"Sandal", "Boot"}, []string{"Adult-F", "Adult-M"}, []string{"Acme", "Acme"}).
		WillReturnRows(pgxmock.NewRows(primaryCols).AddRow(primaryRow("A", "39", 2)...))

	got, err := store.FindGroupMembers(context.Background(), model.CatalogPrimary, []model.GroupKey{
		{Type: "Sandal", Demographic: "Adult-F", Brand: "Acme"},
		{Type: "", Demographic: "Adult-F", Brand: "Acme"},
		{Type: "Boot", Demographic: "Adult-M", Brand: "Acme"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReferenceAttrs(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`FROM "construction_reference" WHERE id = ANY\(\$1\)`).
		WithArgs([]string{"P1", "P2"}).
		WillReturnRows(pgxmock.NewRows(referenceCols).
			AddRow("P1", "leather", "L-1", "", "", "block", "", "", "", "").
			AddRow("P2", "", "", "", "", "", "", "", "", ""))

	refs, err := store.GetReferenceAttrs(context.Background(), []string{"P1", "P2"})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "leather", refs["P1"].Get(model.AttrMaterial))
	assert.Equal(t, "L-1", refs["P1"].Get(model.AttrMold1))
	assert.Equal(t, "block", refs["P1"].Get(model.AttrHeelType))
	assert.True(t, refs["P2"].Empty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ResolveLinks(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery(`FROM "item_barcodes" a\s+JOIN "item_barcodes" b ON b.barcode = a.barcode AND b.catalog <> a.catalog\s+WHERE a.catalog = \$1 AND a.item_id = ANY\(\$2\)`).
		WithArgs("secondary", []string{"S1", "S2"}).
		WillReturnRows(pgxmock.NewRows([]string{"item_id", "linked_id"}).
			AddRow("S1", "P1").
			AddRow("S1", "P2"))

	links, err := store.ResolveLinks(context.Background(), model.CatalogSecondary, []string{"S1", "S2"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"S1": {"P1", "P2"}}, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "merch"."similarity_results"(.|\n)+CREATE INDEX IF NOT EXISTS "similarity_results_source_idx"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock, "merch.similarity_results"))
	assert.NoError(t, mock.ExpectationsWereMet())

	err = Migrate(context.Background(), mock, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results table is not configured")
}
