package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrimary_Normalizes(t *testing.T) {
	t.Parallel()

	p, err := NewPrimary(Record{
		ID:          " A1 ",
		Type:        " Sandal ",
		Demographic: "Adult-F",
		Brand:       "Acme   Shoes",
		Stock:       -4,
	}, "38,5")
	require.NoError(t, err)

	assert.Equal(t, "A1", p.ID)
	// Group key fields keep the stored bytes.
	assert.Equal(t, " Sandal ", p.Type)
	assert.Equal(t, "Acme   Shoes", p.Brand)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, SourceNone, p.Source)
	assert.Equal(t, CatalogPrimary, p.Catalog())

	s, ok := p.SingleSize()
	assert.True(t, ok)
	assert.Equal(t, "38.5", s.String())
	assert.Len(t, p.Sizes(), 1)
}

func TestNewPrimary_EmptyID(t *testing.T) {
	t.Parallel()

	_, err := NewPrimary(Record{ID: "  "}, "38")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record id is empty")
}

func TestSecondaryIsExtended(t *testing.T) {
	t.Parallel()

	price := 59.9
	var p Product
	p, err := NewSecondary(Record{ID: "S1"}, NewSizeSet("38", "39"), Construction{HeelType: " Block "}, &price)
	require.NoError(t, err)

	ext, ok := p.(Extended)
	require.True(t, ok)
	assert.Equal(t, "Block", ext.Construction().HeelType)
	v, ok := ext.Price()
	assert.True(t, ok)
	assert.InDelta(t, 59.9, v, 1e-9)

	_, single := p.SingleSize()
	assert.False(t, single)

	var prim Product = &PrimaryProduct{Record: Record{ID: "P1"}}
	_, ok = prim.(Extended)
	assert.False(t, ok)
}

func TestEnrichmentQuality(t *testing.T) {
	t.Parallel()

	prim := &PrimaryProduct{Record: Record{ID: "P", Season: "Summer", Color: "red", Molds: [3]string{"M1"}}}
	assert.InDelta(t, 3.0/7.0, EnrichmentQuality(prim), 1e-9)

	sec := &SecondaryProduct{Record: Record{ID: "S"}}
	assert.Zero(t, EnrichmentQuality(sec))

	sec.Details.HeelType = "block"
	sec.Material = "leather"
	assert.InDelta(t, 2.0/13.0, EnrichmentQuality(sec), 1e-9)

	// Derived from fields on every call.
	sec.Material = ""
	assert.InDelta(t, 1.0/13.0, EnrichmentQuality(sec), 1e-9)
}

func TestGroupKey(t *testing.T) {
	t.Parallel()

	p := &PrimaryProduct{Record: Record{ID: "A", Type: "Sandal", Demographic: "Adult-F", Brand: "Acme"}}
	assert.True(t, HasMandatory(p))
	assert.Equal(t, GroupKey{"Sandal", "Adult-F", "Acme"}, KeyOf(p))
	assert.Equal(t, "Sandal/Adult-F/Acme", KeyOf(p).String())

	p.Brand = " "
	assert.False(t, HasMandatory(p))
}

func TestKeyOf_KeepsStoredBytes(t *testing.T) {
	t.Parallel()

	p, err := NewPrimary(Record{ID: "Q1", Type: "Sandal ", Demographic: "Adult-F", Brand: "Acme  Shoes"}, "38")
	require.NoError(t, err)
	q, err := NewPrimary(Record{ID: "Q2", Type: "Sandal", Demographic: "Adult-F", Brand: "Acme Shoes"}, "38")
	require.NoError(t, err)

	assert.Equal(t, GroupKey{"Sandal ", "Adult-F", "Acme  Shoes"}, KeyOf(p))
	assert.NotEqual(t, KeyOf(p), KeyOf(q))
	assert.True(t, KeyOf(p).Complete())

	// Scoring comparisons still fold whitespace and case.
	assert.True(t, EqualFold(p.Brand, q.Brand))
}

func TestParseCatalog(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog(" Secondary ")
	require.NoError(t, err)
	assert.Equal(t, CatalogSecondary, c)

	_, err = ParseCatalog("tertiary")
	assert.Error(t, err)
}

func TestEqualFold(t *testing.T) {
	t.Parallel()

	assert.True(t, EqualFold("Leather", "LEATHER"))
	assert.True(t, EqualFold("Straße", "STRASSE"))
	assert.True(t, EqualFold(" navy  blue", "Navy Blue"))
	assert.False(t, EqualFold("", ""))
	assert.False(t, EqualFold("red", "blue"))
}

func TestIDs(t *testing.T) {
	t.Parallel()

	ps := []Product{&PrimaryProduct{Record: Record{ID: "a"}}, &SecondaryProduct{Record: Record{ID: "b"}}}
	assert.Equal(t, []string{"a", "b"}, IDs(ps))
}
