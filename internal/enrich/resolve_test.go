package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/similar-cli/internal/model"
)

func TestMostFrequent(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
		ok     bool
	}{
		{"empty", nil, "", false},
		{"only blanks", []string{"", ""}, "", false},
		{"single", []string{"L1"}, "L1", true},
		{"majority", []string{"L1", "L2", "L2"}, "L2", true},
		{"tie goes to first seen", []string{"L2", "L1", "L1", "L2"}, "L2", true},
		{"blanks ignored", []string{"", "L3", "", ""}, "L3", true},
		{"case insensitive keeps first spelling", []string{"Leather", "suede", "LEATHER"}, "Leather", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MostFrequent(tt.values)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	row := func(material, mold1, heel string) model.ReferenceAttrs {
		var r model.ReferenceAttrs
		r.Set(model.AttrMaterial, material)
		r.Set(model.AttrMold1, mold1)
		r.Set(model.AttrHeelType, heel)
		return r
	}

	got := Resolve([]model.ReferenceAttrs{
		row("leather", "L1", ""),
		row("suede", "L2", "block"),
		row("suede", "L1", ""),
	})
	assert.Equal(t, "suede", got.Get(model.AttrMaterial))
	assert.Equal(t, "L1", got.Get(model.AttrMold1))
	assert.Equal(t, "block", got.Get(model.AttrHeelType))
	assert.Equal(t, "", got.Get(model.AttrMold2))

	assert.True(t, Resolve(nil).Empty())
}
