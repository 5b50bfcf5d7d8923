// Package enrich attaches construction-reference attributes to catalog
// records, either from the record's own reference row or, failing that, from
// the most frequent values among the records it is barcode-linked to.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/model"
)

// Pipeline enriches records with a fixed number of queries per call,
// independent of the number of records.
type Pipeline struct {
	refs   catalog.ReferenceSource
	linker catalog.Linker
	cache  *Cache
}

// New creates a Pipeline. linker and cache may be nil; without a linker only
// own reference rows are used.
func New(refs catalog.ReferenceSource, linker catalog.Linker, cache *Cache) *Pipeline {
	return &Pipeline{refs: refs, linker: linker, cache: cache}
}

// Cache returns the pipeline's cache, which may be nil.
func (p *Pipeline) Cache() *Cache { return p.cache }

// EnrichOne enriches a single record in place.
func (p *Pipeline) EnrichOne(ctx context.Context, rec model.Product) bool {
	return p.EnrichMany(ctx, []model.Product{rec}) == 1
}

// EnrichMany enriches records in place and returns how many gained at least
// one attribute. Query failures are logged and leave the affected records
// partially enriched.
func (p *Pipeline) EnrichMany(ctx context.Context, recs []model.Product) int {
	byCatalog := make(map[model.Catalog][]string)
	for _, r := range recs {
		byCatalog[r.Catalog()] = append(byCatalog[r.Catalog()], r.Base().ID)
	}

	lookups := make(map[model.Catalog]*Lookup, len(byCatalog))
	for cat, ids := range byCatalog {
		lookups[cat] = p.load(ctx, cat, ids, p.cache)
	}

	enriched := 0
	for _, r := range recs {
		if lookups[r.Catalog()].Apply(r) != model.SourceNone {
			enriched++
		}
	}
	return enriched
}

// Preload fetches everything needed to enrich ids of catalog cat: reference
// rows for ids, their links, and reference rows for every linked id. It
// bypasses the cache. The returned Lookup is read-only and safe to share.
func (p *Pipeline) Preload(ctx context.Context, cat model.Catalog, ids []string) *Lookup {
	return p.load(ctx, cat, ids, nil)
}

func (p *Pipeline) load(ctx context.Context, cat model.Catalog, ids []string, cache *Cache) *Lookup {
	ids = unique(ids)
	l := &Lookup{
		refs:  make(map[string]model.ReferenceAttrs),
		links: make(map[string][]string),
	}
	if len(ids) == 0 {
		return l
	}

	p.fetchReferences(ctx, cat, ids, cache, l)

	if p.linker != nil {
		p.fetchLinks(ctx, cat, ids, cache, l)

		var linked []string
		for _, id := range ids {
			linked = append(linked, l.links[id]...)
		}
		p.fetchReferences(ctx, cat, unique(linked), cache, l)
	}
	return l
}

func (p *Pipeline) fetchReferences(ctx context.Context, cat model.Catalog, ids []string, cache *Cache, l *Lookup) {
	var want []string
	for _, id := range ids {
		if _, ok := l.refs[id]; !ok {
			want = append(want, id)
		}
	}
	found, missing := cache.references(want)
	for id, r := range found {
		l.refs[id] = r
	}
	if len(missing) == 0 {
		return
	}

	got, err := p.refs.GetReferenceAttrs(ctx, missing)
	if err != nil {
		zap.L().Warn("enrich: reference query failed, continuing with partial enrichment",
			zap.String("catalog", string(cat)),
			zap.Int("ids", len(missing)),
			zap.Error(err),
		)
		return
	}
	cache.storeReferences(missing, got)
	for id, r := range got {
		l.refs[id] = r
	}
}

func (p *Pipeline) fetchLinks(ctx context.Context, cat model.Catalog, ids []string, cache *Cache, l *Lookup) {
	if len(ids) == 0 {
		return
	}
	found, missing := cache.linksFor(cat, ids)
	for id, linked := range found {
		l.links[id] = linked
	}
	if len(missing) == 0 {
		return
	}

	got, err := p.linker.ResolveLinks(ctx, cat, missing)
	if err != nil {
		zap.L().Warn("enrich: link query failed, continuing with partial enrichment",
			zap.String("catalog", string(cat)),
			zap.Int("ids", len(missing)),
			zap.Int("resolved", len(got)),
			zap.Error(err),
		)
		// A failed link query may still carry the chunks resolved before the
		// failure. Those are used but not cached.
		for id, linked := range got {
			l.links[id] = linked
		}
		return
	}
	cache.storeLinks(cat, missing, got)
	for id, linked := range got {
		l.links[id] = linked
	}
}

// Lookup is the in-memory result of a preload.
type Lookup struct {
	refs  map[string]model.ReferenceAttrs
	links map[string][]string
}

// Links returns the ids linked to id.
func (l *Lookup) Links(id string) []string {
	return l.links[id]
}

// Apply fills blank attributes of rec and records where they came from. The
// record's own reference row is applied first; attributes still blank are
// resolved from the rows of its linked records.
func (l *Lookup) Apply(rec model.Product) model.EnrichmentSource {
	if l == nil {
		return model.SourceNone
	}
	base := rec.Base()
	source := model.SourceNone

	if own, ok := l.refs[base.ID]; ok && own.Apply(rec) > 0 {
		source = model.SourceReferenceTable
	}

	if linked := l.links[base.ID]; len(linked) > 0 {
		rows := make([]model.ReferenceAttrs, 0, len(linked))
		for _, id := range linked {
			if r, ok := l.refs[id]; ok {
				rows = append(rows, r)
			}
		}
		if Resolve(rows).Apply(rec) > 0 && source == model.SourceNone {
			source = model.SourcePrimaryCatalog
		}
	}

	if source != model.SourceNone {
		base.Source = source
	}
	return source
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
