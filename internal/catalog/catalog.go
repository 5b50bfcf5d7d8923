// Package catalog reads catalog items, construction-reference rows, and
// barcode links from the catalog database.
package catalog

import (
	"context"

	"github.com/sells-group/similar-cli/internal/model"
)

// Store is the read-only item query interface used by the engine.
type Store interface {
	// GetProduct returns the item with id, or nil when it does not exist.
	GetProduct(ctx context.Context, cat model.Catalog, id string) (model.Product, error)
	// GetProducts returns the items found among ids, keyed by id.
	GetProducts(ctx context.Context, cat model.Catalog, ids []string) (map[string]model.Product, error)
	// FindCandidates returns in-stock items matching key exactly, excluding excludeID.
	FindCandidates(ctx context.Context, cat model.Catalog, key model.GroupKey, excludeID string) ([]model.Product, error)
	// FindGroupMembers returns every in-stock item whose group key is in keys.
	FindGroupMembers(ctx context.Context, cat model.Catalog, keys []model.GroupKey) ([]model.Product, error)
}

// ReferenceSource reads construction-reference rows.
type ReferenceSource interface {
	// GetReferenceAttrs returns the reference rows found among ids, keyed by id.
	GetReferenceAttrs(ctx context.Context, ids []string) (map[string]model.ReferenceAttrs, error)
}

// Linker resolves cross-catalog identity through shared barcodes.
type Linker interface {
	// ResolveLinks maps each id of catalog cat to the ids of items in other
	// catalogs sharing at least one barcode. Ids without links are omitted.
	ResolveLinks(ctx context.Context, cat model.Catalog, ids []string) (map[string][]string, error)
}

// Backend is a complete catalog database.
type Backend interface {
	Store
	ReferenceSource
	Linker
}
