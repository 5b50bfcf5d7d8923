package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceAttrNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "material", AttrMaterial.String())
	assert.Equal(t, "mold_3", AttrMold3.String())
	assert.Equal(t, "nose_type", AttrNoseType.String())
	assert.Equal(t, "unknown", ReferenceAttr(99).String())
	assert.Len(t, AllReferenceAttrs(), int(NumReferenceAttrs))
}

func TestReferenceAttrs_Apply(t *testing.T) {
	t.Parallel()

	var ref ReferenceAttrs
	assert.True(t, ref.Empty())
	ref.Set(AttrMaterial, " leather ")
	ref.Set(AttrMold1, "L-100")
	ref.Set(AttrHeelType, "block")
	assert.False(t, ref.Empty())
	assert.Equal(t, "leather", ref.Get(AttrMaterial))

	prim := &PrimaryProduct{Record: Record{ID: "P", Material: "suede"}}
	// Existing material is kept; construction attrs do not apply to primary records.
	assert.Equal(t, 1, ref.Apply(prim))
	assert.Equal(t, "suede", prim.Material)
	assert.Equal(t, "L-100", prim.Molds[0])

	sec := &SecondaryProduct{Record: Record{ID: "S"}}
	assert.Equal(t, 3, ref.Apply(sec))
	assert.Equal(t, "block", sec.Details.HeelType)
}

type editableProduct struct {
	PrimaryProduct
	details Construction
}

func (e *editableProduct) ConstructionRef() *Construction { return &e.details }

func TestReferenceAttrs_ApplyUsesConstructionEditor(t *testing.T) {
	t.Parallel()

	var ref ReferenceAttrs
	ref.Set(AttrHeelType, "block")
	ref.Set(AttrNoseType, "round")

	prim := &PrimaryProduct{Record: Record{ID: "P"}}
	assert.Zero(t, ref.Apply(prim))

	p := &editableProduct{PrimaryProduct: PrimaryProduct{Record: Record{ID: "E"}}}
	assert.Equal(t, 2, ref.Apply(p))
	assert.Equal(t, "block", p.details.HeelType)
	assert.Equal(t, "round", p.details.NoseType)

	sec := &SecondaryProduct{Record: Record{ID: "S"}, Details: Construction{HeelType: "stiletto"}}
	assert.Equal(t, 1, ref.Apply(sec))
	assert.Equal(t, "stiletto", sec.Details.HeelType)
	assert.Equal(t, "round", sec.ConstructionRef().NoseType)
}

func TestBatchResultTally(t *testing.T) {
	t.Parallel()

	b := &BatchResult{Results: []ProcessingResult{
		{SourceID: "a", Status: StatusSuccess},
		{SourceID: "b", Status: StatusError},
		{SourceID: "c", Status: StatusSuccess},
	}}
	b.Tally()
	assert.Equal(t, 3, b.Total)
	assert.Equal(t, 2, b.Counts[StatusSuccess])
	assert.Equal(t, 1, b.Counts[StatusError])
	assert.Zero(t, b.Counts[StatusNoData])
}
