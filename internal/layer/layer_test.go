package layer

import (
	"errors"
	"testing"

	"github.com/annel0/tilestream/internal/noise"
	"github.com/annel0/tilestream/internal/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedField возвращает значение, заданное для сида слоя
type seedField map[float64]float64

func (f seedField) Sample(_, _, seed, _ float64) float64 {
	return f[seed]
}

func TestClassify_InclusiveBounds(t *testing.T) {
	ranges := []ValueRange{
		{Min: 0.0, Max: 0.3, Visual: "water"},
		{Min: 0.3, Max: 0.7, Visual: "grass"},
		{Min: 0.8, Max: 1.0, Visual: "rock"},
	}

	visual, idx, ok := Classify(0.0, ranges)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("water"), visual)
	assert.Equal(t, 0, idx)

	// 0.3 попадает в оба диапазона: побеждает объявленный раньше
	visual, idx, ok = Classify(0.3, ranges)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("water"), visual)
	assert.Equal(t, 0, idx)

	visual, _, ok = Classify(1.0, ranges)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("rock"), visual)

	// Промежуток (0.7, 0.8) даёт пустую клетку, а не ошибку
	visual, idx, ok = Classify(0.75, ranges)
	assert.False(t, ok)
	assert.Equal(t, tile.None, visual)
	assert.Equal(t, -1, idx)
}

func TestClassify_EmptyRanges(t *testing.T) {
	_, _, ok := Classify(0.5, nil)
	assert.False(t, ok)
}

func TestLayer_Validate(t *testing.T) {
	good := Always("ground", "dirt")
	require.NoError(t, good.Validate())

	badZoom := Layer{Name: "z", Zoom: 0}
	assert.True(t, errors.Is(badZoom.Validate(), noise.ErrInvalidZoom))

	badRange := Layer{Name: "r", Zoom: 1, Ranges: []ValueRange{{Min: 0.6, Max: 0.2}}}
	assert.True(t, errors.Is(badRange.Validate(), ErrInvalidRange))

	badInner := Layer{Name: "outer", Zoom: 1, Ranges: []ValueRange{
		{Min: 0, Max: 1, Inner: &Layer{Name: "inner", Zoom: -1}},
	}}
	assert.True(t, errors.Is(badInner.Validate(), noise.ErrInvalidZoom))

	empty := Layer{Name: "empty", Zoom: 3}
	assert.NoError(t, empty.Validate())
}

func TestClassifier_ResolveNested(t *testing.T) {
	inner := &Layer{Name: "features", Seed: 2, Zoom: 1, Ranges: []ValueRange{
		{Min: 0.0, Max: 0.4, Visual: "forest"},
	}}
	land := Layer{Name: "land", Seed: 1, Zoom: 1, Ranges: []ValueRange{
		{Min: 0.0, Max: 0.3, Visual: "sea"},
		{Min: 0.3, Max: 1.0, Visual: "plains", Inner: inner},
	}}

	c := NewClassifier(seedField{1: 0.5, 2: 0.2})
	visual, ok := c.Resolve(0, 0, &land)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("forest"), visual)

	// Вложенный слой не совпал, остаётся визуал внешнего диапазона
	c = NewClassifier(seedField{1: 0.5, 2: 0.9})
	visual, ok = c.Resolve(0, 0, &land)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("plains"), visual)

	// Внешний диапазон не совпал, вложенный слой не рассматривается
	c = NewClassifier(seedField{1: 0.1, 2: 0.2})
	visual, ok = c.Resolve(0, 0, &land)
	assert.True(t, ok)
	assert.Equal(t, tile.Visual("sea"), visual)
}

func TestClassifier_ResolveNestedWithoutOuterVisual(t *testing.T) {
	land := Layer{Name: "land", Seed: 1, Zoom: 1, Ranges: []ValueRange{
		{Min: 0.5, Max: 1.0, Inner: &Layer{Name: "trees", Seed: 2, Zoom: 1, Ranges: []ValueRange{
			{Min: 0.0, Max: 0.2, Visual: "tree"},
		}}},
	}}

	c := NewClassifier(seedField{1: 0.8, 2: 0.5})
	_, ok := c.Resolve(0, 0, &land)
	assert.False(t, ok, "без визуала внешнего диапазона клетка остаётся пустой")
}

func TestClassifier_ResolveStackPolicies(t *testing.T) {
	layers := []Layer{
		{Name: "first", Seed: 1, Zoom: 1, Ranges: []ValueRange{{Min: 0, Max: 0.5, Visual: "visualA"}}},
		{Name: "second", Seed: 2, Zoom: 1, Ranges: []ValueRange{{Min: 0, Max: 1, Visual: "visualB"}}},
	}
	c := NewClassifier(seedField{1: 0.3, 2: 0.3})

	m, ok := c.ResolveStack(0, 0, layers, FirstWins)
	require.True(t, ok)
	assert.Equal(t, Match{Visual: "visualA", Layer: 0}, m)

	m, ok = c.ResolveStack(0, 0, layers, LastWins)
	require.True(t, ok)
	assert.Equal(t, Match{Visual: "visualB", Layer: 1}, m)

	_, ok = c.ResolveStack(0, 0, nil, FirstWins)
	assert.False(t, ok)
}

func TestParseOverlapPolicy(t *testing.T) {
	p, err := ParseOverlapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FirstWins, p)

	p, err = ParseOverlapPolicy("Overwrite")
	require.NoError(t, err)
	assert.Equal(t, LastWins, p)
	assert.Equal(t, "last_wins", p.String())

	_, err = ParseOverlapPolicy("random")
	assert.Error(t, err)
}
