package recommend

import (
	"context"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/model"
)

// SelectCandidates returns the in-stock items of src's catalog sharing its
// type, demographic, and brand, excluding src itself. A source missing any
// of the three yields no candidates and no query.
func SelectCandidates(ctx context.Context, store catalog.Store, src model.Product) ([]model.Product, error) {
	key := model.KeyOf(src)
	if !key.Complete() {
		return nil, nil
	}
	return store.FindCandidates(ctx, src.Catalog(), key, src.Base().ID)
}

// SelectFromPool applies the candidate filter to in-memory records.
func SelectFromPool(pool []model.Product, key model.GroupKey, excludeID string) []model.Product {
	if !key.Complete() {
		return nil
	}
	var out []model.Product
	for _, p := range pool {
		if p.Base().ID == excludeID || p.Base().Stock <= 0 {
			continue
		}
		if model.KeyOf(p) == key {
			out = append(out, p)
		}
	}
	return out
}
