package catalog

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/config"
	"github.com/sells-group/similar-cli/internal/model"
)

// Catalog tables are external; these are the columns the stores read.
const (
	commonColumns = `id, COALESCE(type, ''), COALESCE(demographic, ''), COALESCE(brand, ''),
		COALESCE(season, ''), COALESCE(color, ''), COALESCE(fastening, ''), COALESCE(stock, 0),
		COALESCE(material, ''), COALESCE(mold_1, ''), COALESCE(mold_2, ''), COALESCE(mold_3, '')`

	primaryColumns = commonColumns + `, COALESCE(size, '')`

	secondaryColumns = commonColumns + `, COALESCE(sizes, ''),
		COALESCE(heel_type, ''), COALESCE(sole_type, ''), COALESCE(heel_up_type, ''),
		COALESCE(lacing_type, ''), COALESCE(nose_type, ''), price`

	referenceColumns = `id, COALESCE(material, ''), COALESCE(mold_1, ''), COALESCE(mold_2, ''),
		COALESCE(mold_3, ''), COALESCE(heel_type, ''), COALESCE(sole_type, ''),
		COALESCE(heel_up_type, ''), COALESCE(lacing_type, ''), COALESCE(nose_type, '')`
)

// scanner is satisfied by pgx.Rows, pgx.Row, *sql.Rows, and *sql.Row.
type scanner interface {
	Scan(dest ...any) error
}

func columnsFor(cat model.Catalog) string {
	if cat == model.CatalogSecondary {
		return secondaryColumns
	}
	return primaryColumns
}

func tableFor(tables config.CatalogConfig, cat model.Catalog) (string, error) {
	switch cat {
	case model.CatalogPrimary:
		return tables.PrimaryTable, nil
	case model.CatalogSecondary:
		return tables.SecondaryTable, nil
	}
	return "", eris.Errorf("catalog: unknown catalog %q", cat)
}

func scanProduct(sc scanner, cat model.Catalog) (model.Product, error) {
	var rec model.Record
	dest := []any{
		&rec.ID, &rec.Type, &rec.Demographic, &rec.Brand,
		&rec.Season, &rec.Color, &rec.Fastening, &rec.Stock,
		&rec.Material, &rec.Molds[0], &rec.Molds[1], &rec.Molds[2],
	}

	if cat != model.CatalogSecondary {
		var size string
		if err := sc.Scan(append(dest, &size)...); err != nil {
			return nil, err
		}
		return model.NewPrimary(rec, size)
	}

	var (
		sizes string
		c     model.Construction
		price *float64
	)
	dest = append(dest, &sizes, &c.HeelType, &c.SoleType, &c.HeelUpType, &c.LacingType, &c.NoseType, &price)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	return model.NewSecondary(rec, model.ParseSizeSet(sizes), c, price)
}

func scanReference(sc scanner) (model.ReferenceAttrs, error) {
	var (
		ref  model.ReferenceAttrs
		vals [model.NumReferenceAttrs]string
	)
	dest := []any{&ref.ID}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := sc.Scan(dest...); err != nil {
		return ref, err
	}
	for i, v := range vals {
		ref.Set(model.ReferenceAttr(i), v)
	}
	return ref, nil
}

// rowIter is the iteration subset shared by pgx.Rows and *sql.Rows.
type rowIter interface {
	scanner
	Next() bool
	Err() error
}

// collectProducts scans every row. Rows that fail normalization are skipped
// with a warning so one malformed item never fails a whole query.
func collectProducts(rows rowIter, cat model.Catalog, op string) ([]model.Product, error) {
	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows, cat)
		if err != nil {
			if !eris.Is(err, model.ErrEmptyID) {
				return nil, eris.Wrapf(err, "catalog: %s: scan", op)
			}
			zap.L().Warn("catalog: skipping malformed row", zap.String("op", op), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "catalog: %s: rows", op)
	}
	return out, nil
}

func collectReferences(rows rowIter) (map[string]model.ReferenceAttrs, error) {
	out := make(map[string]model.ReferenceAttrs)
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: scan reference row")
		}
		out[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: reference rows")
	}
	return out, nil
}

func collectLinks(rows rowIter) (map[string][]string, error) {
	out := make(map[string][]string)
	for rows.Next() {
		var id, linked string
		if err := rows.Scan(&id, &linked); err != nil {
			return nil, eris.Wrap(err, "catalog: scan link row")
		}
		out[id] = append(out[id], linked)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: link rows")
	}
	return out, nil
}

func byID(ps []model.Product) map[string]model.Product {
	out := make(map[string]model.Product, len(ps))
	for _, p := range ps {
		out[p.Base().ID] = p
	}
	return out
}

// dedupe returns the distinct non-empty ids in first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func linkSQL(barcodeTable, placeholderCat, inList string) string {
	return fmt.Sprintf(`SELECT DISTINCT a.item_id, b.item_id
		FROM %s a
		JOIN %s b ON b.barcode = a.barcode AND b.catalog <> a.catalog
		WHERE a.catalog = %s AND a.item_id %s
		ORDER BY a.item_id, b.item_id`,
		barcodeTable, barcodeTable, placeholderCat, inList)
}
