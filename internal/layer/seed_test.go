package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedSource_Range(t *testing.T) {
	src := NewSeedSource(1)
	for i := 0; i < 1000; i++ {
		s := src.Next()
		assert.GreaterOrEqual(t, s, float64(MinSeed))
		assert.Less(t, s, float64(MaxSeed))
	}
}

func TestAssignSeeds_AssignsOnlyUnset(t *testing.T) {
	inner := &Layer{Name: "inner", Zoom: 1}
	layers := []Layer{
		{Name: "fixed", Seed: 123, Zoom: 1},
		{Name: "lazy", Zoom: 1, Ranges: []ValueRange{{Min: 0, Max: 1, Inner: inner}}},
	}

	AssignSeeds(layers, NewSeedSource(77))

	assert.Equal(t, 123.0, layers[0].Seed)
	assert.NotZero(t, layers[1].Seed)
	assert.NotZero(t, inner.Seed)

	// Повторное назначение ничего не меняет
	before := layers[1].Seed
	AssignSeeds(layers, NewSeedSource(999))
	assert.Equal(t, before, layers[1].Seed)
}

func TestAssignSeeds_DeterministicPerWorld(t *testing.T) {
	a := []Layer{{Name: "a", Zoom: 1}, {Name: "b", Zoom: 1}}
	b := Clone(a)

	AssignSeeds(a, NewSeedSource(2024))
	AssignSeeds(b, NewSeedSource(2024))

	assert.Equal(t, a, b)
}

func TestClone_KeepsNilRanges(t *testing.T) {
	orig := []Layer{
		{Name: "leaf", Zoom: 1},
		{Name: "empty", Zoom: 1, Ranges: []ValueRange{}},
	}

	cp := Clone(orig)

	assert.Equal(t, orig, cp)
	assert.Nil(t, cp[0].Ranges)
	assert.NotNil(t, cp[1].Ranges)
}

func TestClone_DeepCopiesInnerLayers(t *testing.T) {
	orig := []Layer{{Name: "outer", Zoom: 1, Ranges: []ValueRange{
		{Min: 0, Max: 1, Inner: &Layer{Name: "inner", Zoom: 1}},
	}}}

	cp := Clone(orig)
	AssignSeeds(cp, NewSeedSource(5))

	assert.Zero(t, orig[0].Seed)
	assert.Zero(t, orig[0].Ranges[0].Inner.Seed)
	assert.NotZero(t, cp[0].Ranges[0].Inner.Seed)
}
