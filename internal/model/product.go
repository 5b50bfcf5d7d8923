// Package model defines the catalog records, scoring results, and statuses
// shared by the scorer, enrichment pipeline, and recommendation engine.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrEmptyID is returned when a record has no identifier.
var ErrEmptyID = eris.New("model: record id is empty")

// Catalog identifies which marketplace catalog a record belongs to.
type Catalog string

const (
	CatalogPrimary   Catalog = "primary"
	CatalogSecondary Catalog = "secondary"
)

// ParseCatalog validates a catalog name.
func ParseCatalog(s string) (Catalog, error) {
	switch Catalog(strings.ToLower(strings.TrimSpace(s))) {
	case CatalogPrimary:
		return CatalogPrimary, nil
	case CatalogSecondary:
		return CatalogSecondary, nil
	}
	return "", eris.Errorf("model: unknown catalog %q", s)
}

// EnrichmentSource records where a record's construction attributes came from.
type EnrichmentSource string

const (
	SourceNone           EnrichmentSource = "none"
	SourcePrimaryCatalog EnrichmentSource = "primary-catalog"
	SourceReferenceTable EnrichmentSource = "reference-table"
)

// NumMolds is the number of mold/last tiers.
const NumMolds = 3

// Record holds the attributes common to both catalog variants.
type Record struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Demographic string           `json:"demographic"`
	Brand       string           `json:"brand"`
	Season      string           `json:"season,omitempty"`
	Color       string           `json:"color,omitempty"`
	Fastening   string           `json:"fastening,omitempty"`
	Stock       int              `json:"stock"`
	Material    string           `json:"material,omitempty"`
	Molds       [NumMolds]string `json:"molds"`
	Source      EnrichmentSource `json:"enrichment_source"`
}

// Construction holds the secondary catalog's construction attributes.
type Construction struct {
	HeelType   string `json:"heel_type,omitempty"`
	SoleType   string `json:"sole_type,omitempty"`
	HeelUpType string `json:"heel_up_type,omitempty"`
	LacingType string `json:"lacing_type,omitempty"`
	NoseType   string `json:"nose_type,omitempty"`
}

// Product is the scoring view shared by both catalog variants.
type Product interface {
	Base() *Record
	Catalog() Catalog
	// Sizes returns every size variant of the item.
	Sizes() SizeSet
	// SingleSize returns the item's size when its catalog carries one size per item.
	SingleSize() (Size, bool)
}

// Extended is implemented by records that carry construction and price data.
type Extended interface {
	Product
	Construction() Construction
	Price() (float64, bool)
}

// PrimaryProduct is a primary catalog item with a single size.
type PrimaryProduct struct {
	Record
	Size Size `json:"size"`
}

// NewPrimary builds a normalized primary catalog record.
func NewPrimary(rec Record, size string) (*PrimaryProduct, error) {
	if err := normalize(&rec); err != nil {
		return nil, err
	}
	s, _ := ParseSize(size)
	return &PrimaryProduct{Record: rec, Size: s}, nil
}

func (p *PrimaryProduct) Base() *Record    { return &p.Record }
func (p *PrimaryProduct) Catalog() Catalog { return CatalogPrimary }

func (p *PrimaryProduct) Sizes() SizeSet {
	if p.Size.IsZero() {
		return nil
	}
	return SizeSet{p.Size}
}

func (p *PrimaryProduct) SingleSize() (Size, bool) {
	return p.Size, !p.Size.IsZero()
}

// SecondaryProduct is a secondary catalog item with several size variants,
// construction attributes, and an optional price.
type SecondaryProduct struct {
	Record
	SizeSet    SizeSet      `json:"sizes"`
	Details    Construction `json:"construction"`
	PriceValue *float64     `json:"price,omitempty"`
}

// NewSecondary builds a normalized secondary catalog record.
func NewSecondary(rec Record, sizes SizeSet, c Construction, price *float64) (*SecondaryProduct, error) {
	if err := normalize(&rec); err != nil {
		return nil, err
	}
	c.HeelType = NormalizeTag(c.HeelType)
	c.SoleType = NormalizeTag(c.SoleType)
	c.HeelUpType = NormalizeTag(c.HeelUpType)
	c.LacingType = NormalizeTag(c.LacingType)
	c.NoseType = NormalizeTag(c.NoseType)
	return &SecondaryProduct{Record: rec, SizeSet: sizes, Details: c, PriceValue: price}, nil
}

func (p *SecondaryProduct) Base() *Record            { return &p.Record }
func (p *SecondaryProduct) Catalog() Catalog         { return CatalogSecondary }
func (p *SecondaryProduct) Sizes() SizeSet           { return p.SizeSet }
func (p *SecondaryProduct) SingleSize() (Size, bool) { return Size{}, false }

func (p *SecondaryProduct) Construction() Construction { return p.Details }

// ConstructionRef exposes the construction details for in-place enrichment.
func (p *SecondaryProduct) ConstructionRef() *Construction { return &p.Details }

func (p *SecondaryProduct) Price() (float64, bool) {
	if p.PriceValue == nil {
		return 0, false
	}
	return *p.PriceValue, true
}

func normalize(rec *Record) error {
	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		return ErrEmptyID
	}
	// Type, Demographic and Brand stay byte-for-byte as stored: they are
	// matched by exact equality against the catalog columns.
	rec.Season = NormalizeTag(rec.Season)
	rec.Color = NormalizeTag(rec.Color)
	rec.Fastening = NormalizeTag(rec.Fastening)
	rec.Material = NormalizeTag(rec.Material)
	for i := range rec.Molds {
		rec.Molds[i] = NormalizeTag(rec.Molds[i])
	}
	if rec.Stock < 0 {
		rec.Stock = 0
	}
	if rec.Source == "" {
		rec.Source = SourceNone
	}
	return nil
}

// EnrichmentQuality returns the fraction of optional attributes populated on p.
// It is derived from the fields on every call.
func EnrichmentQuality(p Product) float64 {
	r := p.Base()
	fields := []string{r.Season, r.Color, r.Fastening, r.Material, r.Molds[0], r.Molds[1], r.Molds[2]}
	total := len(fields)
	filled := 0
	for _, f := range fields {
		if f != "" {
			filled++
		}
	}
	if ext, ok := p.(Extended); ok {
		c := ext.Construction()
		for _, f := range []string{c.HeelType, c.SoleType, c.HeelUpType, c.LacingType, c.NoseType} {
			total++
			if f != "" {
				filled++
			}
		}
		total++
		if _, ok := ext.Price(); ok {
			filled++
		}
	}
	return float64(filled) / float64(total)
}

// GroupKey is the mandatory-attribute tuple candidates must match exactly.
type GroupKey struct {
	Type        string `json:"type"`
	Demographic string `json:"demographic"`
	Brand       string `json:"brand"`
}

// KeyOf returns the group key of p.
func KeyOf(p Product) GroupKey {
	r := p.Base()
	return GroupKey{Type: r.Type, Demographic: r.Demographic, Brand: r.Brand}
}

// Complete reports whether every mandatory attribute is non-empty.
func (k GroupKey) Complete() bool {
	return strings.TrimSpace(k.Type) != "" &&
		strings.TrimSpace(k.Demographic) != "" &&
		strings.TrimSpace(k.Brand) != ""
}

func (k GroupKey) String() string {
	return k.Type + "/" + k.Demographic + "/" + k.Brand
}

// HasMandatory reports whether p carries type, demographic, and brand.
func HasMandatory(p Product) bool {
	return KeyOf(p).Complete()
}

// IDs returns the identifiers of ps in order.
func IDs[P Product](ps []P) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Base().ID
	}
	return out
}
