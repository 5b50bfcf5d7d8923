package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
)

// maxInList bounds the number of placeholders per IN list.
const maxInList = 500

// SQLStore implements Backend over database/sql for embedded and analytical
// catalog files. Supported drivers are "sqlite" (modernc.org/sqlite) and
// "duckdb" (registered by the duckdb build tag).
type SQLStore struct {
	db     *sql.DB
	driver string
	tables config.CatalogConfig
}

// OpenSQL opens a catalog database with the named driver. SQLite databases are
// configured for WAL mode.
func OpenSQL(driver, dsn string, tables config.CatalogConfig) (*SQLStore, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: open %s", driver)
	}
	if driver == "sqlite" {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := conn.Exec(pragma); err != nil {
				conn.Close() //nolint:errcheck
				return nil, eris.Wrapf(err, "catalog: exec %s", pragma)
			}
		}
	}
	return NewSQLStore(conn, driver, tables), nil
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(conn *sql.DB, driver string, tables config.CatalogConfig) *SQLStore {
	return &SQLStore{db: conn, driver: driver, tables: tables}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) itemTable(cat model.Catalog) (string, error) {
	table, err := tableFor(s.tables, cat)
	if err != nil {
		return "", err
	}
	return quoteIdent(table), nil
}

// GetProduct returns the item with id, or nil when absent.
func (s *SQLStore) GetProduct(ctx context.Context, cat model.Catalog, id string) (model.Product, error) {
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columnsFor(cat), table), id)
	p, err := scanProduct(row, cat)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: get product %s", id)
	}
	return p, nil
}

// GetProducts fetches every item among ids, one query per chunk of ids.
func (s *SQLStore) GetProducts(ctx context.Context, cat model.Catalog, ids []string) (map[string]model.Product, error) {
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.Product)
	for _, chunk := range chunkIDs(dedupe(ids), maxInList) {
		in, args := inList(chunk)
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE id IN %s`, columnsFor(cat), table, in), args...)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: get products")
		}
		ps, err := collectProducts(rows, cat, "get products")
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
		for id, p := range byID(ps) {
			out[id] = p
		}
	}
	return out, nil
}

// FindCandidates runs the mandatory-attribute candidate query.
func (s *SQLStore) FindCandidates(ctx context.Context, cat model.Catalog, key model.GroupKey, excludeID string) ([]model.Product, error) {
	if !key.Complete() {
		return nil, nil
	}
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE type = ? AND demographic = ? AND brand = ? AND stock > 0 AND id <> ?
		ORDER BY id`, columnsFor(cat), table),
		key.Type, key.Demographic, key.Brand, excludeID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: find candidates for %s", key)
	}
	defer rows.Close()

	return collectProducts(rows, cat, "find candidates")
}

// FindGroupMembers fetches every in-stock item for a set of group keys.
func (s *SQLStore) FindGroupMembers(ctx context.Context, cat model.Catalog, keys []model.GroupKey) ([]model.Product, error) {
	var complete []model.GroupKey
	for _, k := range keys {
		if k.Complete() {
			complete = append(complete, k)
		}
	}
	if len(complete) == 0 {
		return nil, nil
	}
	table, err := s.itemTable(cat)
	if err != nil {
		return nil, err
	}

	var out []model.Product
	for start := 0; start < len(complete); start += maxInList / 3 {
		end := min(start+maxInList/3, len(complete))
		clauses := make([]string, 0, end-start)
		args := make([]any, 0, 3*(end-start))
		for _, k := range complete[start:end] {
			clauses = append(clauses, "(type = ? AND demographic = ? AND brand = ?)")
			args = append(args, k.Type, k.Demographic, k.Brand)
		}

		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM %s
			WHERE (%s) AND stock > 0 ORDER BY id`,
			columnsFor(cat), table, strings.Join(clauses, " OR ")), args...)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: find group members")
		}
		ps, err := collectProducts(rows, cat, "find group members")
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
		out = append(out, ps...)
	}
	return out, nil
}

// GetReferenceAttrs fetches construction-reference rows for ids.
func (s *SQLStore) GetReferenceAttrs(ctx context.Context, ids []string) (map[string]model.ReferenceAttrs, error) {
	out := make(map[string]model.ReferenceAttrs)
	for _, chunk := range chunkIDs(dedupe(ids), maxInList) {
		in, args := inList(chunk)
		rows, err := s.db.QueryContext(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE id IN %s`, referenceColumns, quoteIdent(s.tables.ReferenceTable), in),
			args...)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: get reference attrs")
		}
		refs, err := collectReferences(rows)
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
		for id, r := range refs {
			out[id] = r
		}
	}
	return out, nil
}

// ResolveLinks maps ids to items in other catalogs sharing a barcode.
func (s *SQLStore) ResolveLinks(ctx context.Context, cat model.Catalog, ids []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, chunk := range chunkIDs(dedupe(ids), maxInList) {
		in, args := inList(chunk)
		rows, err := s.db.QueryContext(ctx,
			linkSQL(quoteIdent(s.tables.BarcodeTable), "?", "IN "+in),
			append([]any{string(cat)}, args...)...)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: resolve links")
		}
		links, err := collectLinks(rows)
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, err
		}
		for id, l := range links {
			out[id] = l
		}
	}
	return out, nil
}

// quoteIdent quotes a possibly schema-qualified identifier for SQLite and DuckDB.
func quoteIdent(name string) string {
	parts := strings.SplitN(name, ".", 2)
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// inList returns "(?, ?, ...)" and the matching args.
func inList(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")", args
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}
	return chunks
}
