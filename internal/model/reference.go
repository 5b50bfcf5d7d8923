package model

// ReferenceAttr enumerates the construction-reference attributes resolved by enrichment.
type ReferenceAttr int

const (
	AttrMaterial ReferenceAttr = iota
	AttrMold1
	AttrMold2
	AttrMold3
	AttrHeelType
	AttrSoleType
	AttrHeelUpType
	AttrLacingType
	AttrNoseType

	NumReferenceAttrs
)

var referenceAttrNames = [NumReferenceAttrs]string{
	"material", "mold_1", "mold_2", "mold_3",
	"heel_type", "sole_type", "heel_up_type", "lacing_type", "nose_type",
}

func (a ReferenceAttr) String() string {
	if a < 0 || a >= NumReferenceAttrs {
		return "unknown"
	}
	return referenceAttrNames[a]
}

// AllReferenceAttrs lists every attribute in enum order.
func AllReferenceAttrs() []ReferenceAttr {
	out := make([]ReferenceAttr, NumReferenceAttrs)
	for i := range out {
		out[i] = ReferenceAttr(i)
	}
	return out
}

// ReferenceAttrs is one construction-reference row keyed by attribute.
type ReferenceAttrs struct {
	ID     string
	values [NumReferenceAttrs]string
}

// Get returns the attribute value, or "" when absent.
func (r ReferenceAttrs) Get(a ReferenceAttr) string {
	if a < 0 || a >= NumReferenceAttrs {
		return ""
	}
	return r.values[a]
}

// Set stores a normalized attribute value.
func (r *ReferenceAttrs) Set(a ReferenceAttr, v string) {
	if a < 0 || a >= NumReferenceAttrs {
		return
	}
	r.values[a] = NormalizeTag(v)
}

// Empty reports whether no attribute is populated.
func (r ReferenceAttrs) Empty() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// ConstructionEditor is implemented by products whose construction details
// can be filled in place.
type ConstructionEditor interface {
	ConstructionRef() *Construction
}

// Apply fills attributes that are still blank on p and returns how many were filled.
// Construction attributes only apply to products implementing ConstructionEditor.
func (r ReferenceAttrs) Apply(p Product) int {
	rec := p.Base()
	filled := 0
	fill := func(dst *string, a ReferenceAttr) {
		if *dst == "" && r.values[a] != "" {
			*dst = r.values[a]
			filled++
		}
	}

	fill(&rec.Material, AttrMaterial)
	fill(&rec.Molds[0], AttrMold1)
	fill(&rec.Molds[1], AttrMold2)
	fill(&rec.Molds[2], AttrMold3)

	if ed, ok := p.(ConstructionEditor); ok {
		c := ed.ConstructionRef()
		fill(&c.HeelType, AttrHeelType)
		fill(&c.SoleType, AttrSoleType)
		fill(&c.HeelUpType, AttrHeelUpType)
		fill(&c.LacingType, AttrLacingType)
		fill(&c.NoseType, AttrNoseType)
	}
	return filled
}
