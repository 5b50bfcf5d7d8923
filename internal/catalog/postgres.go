package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/db"
	"github.com/sells-group/similar-cli/internal/model"
)

// PostgresStore implements Backend using pgx.
type PostgresStore struct {
	pool   db.Pool
	tables config.CatalogConfig
}

// NewPostgresStore creates a new PostgresStore over the configured tables.
func NewPostgresStore(pool db.Pool, tables config.CatalogConfig) *PostgresStore {
	return &PostgresStore{pool: pool, tables: tables}
}

func (s *PostgresStore) itemTable(cat model.Catalog) (string, error) {
	table, err := tableFor(s.tables, cat)
	if err != nil {
		return "", err
	}
	return db.SanitizeTable(table), nil
}

// GetProduct returns the item with id, or nil when absent.
func (s *PostgresStore) GetProduct(ctx context.Context, cat model.Catalog, id string) (model.Product, error) {
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, columnsFor(cat), table), id)
	p, err := scanProduct(row, cat)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: get product %s", id)
	}
	return p, nil
}

// GetProducts fetches every item among ids in one query.
func (s *PostgresStore) GetProducts(ctx context.Context, cat model.Catalog, ids []string) (map[string]model.Product, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]model.Product{}, nil
	}
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, columnsFor(cat), table), ids)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get products")
	}
	defer rows.Close()

	ps, err := collectProducts(rows, cat, "get products")
	if err != nil {
		return nil, err
	}
	return byID(ps), nil
}

// FindCandidates runs the mandatory-attribute candidate query.
func (s *PostgresStore) FindCandidates(ctx context.Context, cat model.Catalog, key model.GroupKey, excludeID string) ([]model.Product, error) {
	if !key.Complete() {
		return nil, nil
	}
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE type = $1 AND demographic = $2 AND brand = $3 AND stock > 0 AND id <> $4
		ORDER BY id`, columnsFor(cat), table),
		key.Type, key.Demographic, key.Brand, excludeID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: find candidates for %s", key)
	}
	defer rows.Close()

	return collectProducts(rows, cat, "find candidates")
}

// FindGroupMembers fetches every in-stock item for a set of group keys in one query.
func (s *PostgresStore) FindGroupMembers(ctx context.Context, cat model.Catalog, keys []model.GroupKey) ([]model.Product, error) {
	var types, demos, brands []string
	for _, k := range keys {
		if !k.Complete() {
			continue
		}
		types = append(types, k.Type)
		demos = append(demos, k.Demographic)
		brands = append(brands, k.Brand)
	}
	if len(types) == 0 {
		return nil, nil
	}
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE (type, demographic, brand) IN (
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[])
		) AND stock > 0
		ORDER BY id`, columnsFor(cat), table),
		types, demos, brands,
	)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: find group members")
	}
	defer rows.Close()

	return collectProducts(rows, cat, "find group members")
}

// GetReferenceAttrs fetches construction-reference rows for ids in one query.
func (s *PostgresStore) GetReferenceAttrs(ctx context.Context, ids []string) (map[string]model.ReferenceAttrs, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string]model.ReferenceAttrs{}, nil
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, referenceColumns, db.SanitizeTable(s.tables.ReferenceTable)),
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: get reference attrs")
	}
	defer rows.Close()

	return collectReferences(rows)
}

// ResolveLinks maps ids to items in other catalogs sharing a barcode.
func (s *PostgresStore) ResolveLinks(ctx context.Context, cat model.Catalog, ids []string) (map[string][]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return map[string][]string{}, nil
	}

	rows, err := s.pool.Query(ctx,
		linkSQL(db.SanitizeTable(s.tables.BarcodeTable), "$1", "= ANY($2)"),
		string(cat), ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: resolve links")
	}
	defer rows.Close()

	return collectLinks(rows)
}
