package pool

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/annel0/tilestream/internal/scene"
	"github.com/annel0/tilestream/internal/tile"
	"github.com/annel0/tilestream/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Prefill(t *testing.T) {
	sc := scene.New()
	p := New(sc, 4, []string{"a"}, nil)

	st := p.Stats()
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 4, st.Idle)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 4, sc.Created())
	assert.Empty(t, sc.EnabledNodes(), "заготовленные тайлы должны быть выключены")
}

func TestPool_AcquireIsFIFO(t *testing.T) {
	p := New(scene.New(), 3, nil, nil)

	a := p.Acquire()
	b := p.Acquire()
	assert.Equal(t, TileID(0), a)
	assert.Equal(t, TileID(1), b)

	require.NoError(t, p.Release(a))
	// В очереди: 2, затем 0
	assert.Equal(t, TileID(2), p.Acquire())
	assert.Equal(t, TileID(0), p.Acquire())
}

func TestPool_GrowsWhenExhausted(t *testing.T) {
	sc := scene.New()
	p := New(sc, 1, nil, nil)

	p.Acquire()
	grown := p.Acquire()

	st := p.Stats()
	assert.Equal(t, TileID(1), grown)
	assert.Equal(t, uint64(1), st.Grown)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 0, st.Idle)
	assert.Equal(t, 2, sc.Created())
	assert.Len(t, sc.EnabledNodes(), 2)
}

func TestPool_ZeroSize(t *testing.T) {
	p := New(scene.New(), 0, nil, nil)

	for i := 0; i < 5; i++ {
		p.Acquire()
		assert.Equal(t, 0, p.IdleLen())
	}
	assert.Equal(t, uint64(5), p.Stats().Grown)
}

func TestPool_ReleaseRoundTrip(t *testing.T) {
	p := New(scene.New(), 8, nil, nil)
	before := p.IdleLen()

	id := p.Acquire()
	require.NoError(t, p.Release(id))

	assert.Equal(t, before, p.IdleLen())
}

func TestPool_DoubleReleaseRejected(t *testing.T) {
	p := New(scene.New(), 2, nil, nil)

	id := p.Acquire()
	require.NoError(t, p.Release(id))

	err := p.Release(id)
	assert.True(t, errors.Is(err, ErrNotActive))
	assert.Equal(t, 2, p.IdleLen(), "очередь не должна содержать дубликатов")

	assert.True(t, errors.Is(p.Release(TileID(99)), ErrUnknownTile))
	assert.True(t, errors.Is(p.Release(TileID(-1)), ErrUnknownTile))
}

func TestPool_PlaceAppliesToHost(t *testing.T) {
	sc := scene.New()
	p := New(sc, 1, nil, nil)

	id := p.Acquire()
	tr := tile.Transform{Position: vec.Vec2Float{X: 3, Z: -2}, YawDegrees: 180}
	require.NoError(t, p.Place(id, tr, "sand"))

	node := sc.Nodes()[0]
	assert.True(t, node.Enabled)
	assert.Equal(t, tr, node.Transform)
	assert.Equal(t, tile.Visual("sand"), node.Visual)

	s, ok := p.Slot(id)
	require.True(t, ok)
	assert.Equal(t, tile.Visual("sand"), s.Visual)
	assert.Equal(t, 180.0, s.YawDegrees)

	require.NoError(t, p.Release(id))
	assert.False(t, node.Enabled)
	assert.True(t, errors.Is(p.Place(id, tr, "sand"), ErrNotActive))
}

func TestPool_Conservation(t *testing.T) {
	sc := scene.New()
	p := New(sc, 3, nil, nil)
	rng := rand.New(rand.NewSource(11))

	var active []TileID
	for i := 0; i < 500; i++ {
		if len(active) > 0 && rng.Intn(2) == 0 {
			j := rng.Intn(len(active))
			require.NoError(t, p.Release(active[j]))
			active = append(active[:j], active[j+1:]...)
		} else {
			active = append(active, p.Acquire())
		}

		st := p.Stats()
		require.Equal(t, st.Total, st.Idle+st.Active)
		require.Equal(t, len(active), st.Active)
		require.Equal(t, sc.Created(), st.Total)
	}
}

func TestPool_TemplatesPickedFromList(t *testing.T) {
	sc := scene.New()
	New(sc, 50, []string{"grass_tile", "dirt_tile"}, rand.New(rand.NewSource(3)))

	seen := map[string]bool{}
	for _, n := range sc.Nodes() {
		seen[n.Template] = true
	}
	assert.Equal(t, map[string]bool{"grass_tile": true, "dirt_tile": true}, seen)
}

func TestIDQueue_WrapAndGrow(t *testing.T) {
	q := newIDQueue(2)
	q.push(1)
	q.push(2)
	id, _ := q.pop()
	assert.Equal(t, TileID(1), id)
	q.push(3)
	q.push(4) // рост при заполненном кольце

	var got []TileID
	for q.len() > 0 {
		id, _ := q.pop()
		got = append(got, id)
	}
	assert.Equal(t, []TileID{2, 3, 4}, got)

	_, ok := q.pop()
	assert.False(t, ok)
}
