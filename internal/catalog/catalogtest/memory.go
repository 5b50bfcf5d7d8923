// Package catalogtest provides an in-memory catalog backend for tests.
package catalogtest

import (
	"context"
	"sort"
	"sync"

	"github.com/sells-group/similar-cli/internal/catalog"
	"github.com/sells-group/similar-cli/internal/model"
)

var _ catalog.Backend = (*Memory)(nil)

// Memory is an in-memory catalog.Backend. Returned products are copies, so
// callers may mutate them without affecting stored state.
type Memory struct {
	mu       sync.Mutex
	products map[model.Catalog]map[string]model.Product
	refs     map[string]model.ReferenceAttrs
	links    map[model.Catalog]map[string][]string
	failures map[string][]error
	calls    map[string]int
}

// NewMemory creates an empty backend.
func NewMemory() *Memory {
	return &Memory{
		products: make(map[model.Catalog]map[string]model.Product),
		refs:     make(map[string]model.ReferenceAttrs),
		links:    make(map[model.Catalog]map[string][]string),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// Add stores products in their own catalogs.
func (m *Memory) Add(ps ...model.Product) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		cat := p.Catalog()
		if m.products[cat] == nil {
			m.products[cat] = make(map[string]model.Product)
		}
		m.products[cat][p.Base().ID] = p
	}
	return m
}

// AddReference stores construction-reference rows.
func (m *Memory) AddReference(refs ...model.ReferenceAttrs) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range refs {
		m.refs[r.ID] = r
	}
	return m
}

// Link records that id in cat shares a barcode with the linked ids.
func (m *Memory) Link(cat model.Catalog, id string, linked ...string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links[cat] == nil {
		m.links[cat] = make(map[string][]string)
	}
	m.links[cat][id] = append(m.links[cat][id], linked...)
	return m
}

// FailNext makes the next calls of op return errs, one per call, in order.
// Op names match the method names ("GetProduct", "ResolveLinks", ...).
func (m *Memory) FailNext(op string, errs ...error) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
	return m
}

// Calls returns how many times op was invoked.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	if errs := m.failures[op]; len(errs) > 0 {
		m.failures[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (m *Memory) GetProduct(_ context.Context, cat model.Catalog, id string) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProduct"); err != nil {
		return nil, err
	}
	p, ok := m.products[cat][id]
	if !ok {
		return nil, nil
	}
	return Clone(p), nil
}

func (m *Memory) GetProducts(_ context.Context, cat model.Catalog, ids []string) (map[string]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetProducts"); err != nil {
		return nil, err
	}
	out := make(map[string]model.Product)
	for _, id := range ids {
		if p, ok := m.products[cat][id]; ok {
			out[id] = Clone(p)
		}
	}
	return out, nil
}

func (m *Memory) FindCandidates(_ context.Context, cat model.Catalog, key model.GroupKey, excludeID string) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindCandidates"); err != nil {
		return nil, err
	}
	if !key.Complete() {
		return nil, nil
	}
	return m.match(cat, func(p model.Product) bool {
		return p.Base().ID != excludeID && model.KeyOf(p) == key
	}), nil
}

func (m *Memory) FindGroupMembers(_ context.Context, cat model.Catalog, keys []model.GroupKey) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindGroupMembers"); err != nil {
		return nil, err
	}
	want := make(map[model.GroupKey]bool, len(keys))
	for _, k := range keys {
		if k.Complete() {
			want[k] = true
		}
	}
	return m.match(cat, func(p model.Product) bool {
		return want[model.KeyOf(p)]
	}), nil
}

// match returns in-stock products satisfying keep, ordered by id.
func (m *Memory) match(cat model.Catalog, keep func(model.Product) bool) []model.Product {
	var out []model.Product
	for _, p := range m.products[cat] {
		if p.Base().Stock > 0 && keep(p) {
			out = append(out, Clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base().ID < out[j].Base().ID })
	return out
}

func (m *Memory) GetReferenceAttrs(_ context.Context, ids []string) (map[string]model.ReferenceAttrs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetReferenceAttrs"); err != nil {
		return nil, err
	}
	out := make(map[string]model.ReferenceAttrs)
	for _, id := range ids {
		if r, ok := m.refs[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (m *Memory) ResolveLinks(_ context.Context, cat model.Catalog, ids []string) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ResolveLinks"); err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, id := range ids {
		if l, ok := m.links[cat][id]; ok {
			out[id] = append([]string(nil), l...)
		}
	}
	return out, nil
}

// Clone returns a shallow copy of p that can be enriched independently.
func Clone(p model.Product) model.Product {
	switch v := p.(type) {
	case *model.PrimaryProduct:
		cp := *v
		return &cp
	case *model.SecondaryProduct:
		cp := *v
		return &cp
	}
	return p
}

// Primary builds a primary product and panics on invalid input.
func Primary(rec model.Record, size string) *model.PrimaryProduct {
	p, err := model.NewPrimary(rec, size)
	if err != nil {
		panic(err)
	}
	return p
}

// Secondary builds a secondary product and panics on invalid input.
func Secondary(rec model.Record, sizes string, c model.Construction, price *float64) *model.SecondaryProduct {
	p, err := model.NewSecondary(rec, model.ParseSizeSet(sizes), c, price)
	if err != nil {
		panic(err)
	}
	return p
}
