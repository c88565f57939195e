package noise

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_Deterministic(t *testing.T) {
	f := NewField(DefaultParams(42))
	other := NewField(DefaultParams(42))

	for x := -20; x <= 20; x += 3 {
		for z := -20; z <= 20; z += 7 {
			a := f.Sample(float64(x), float64(z), 3_000_000, 10)
			b := f.Sample(float64(x), float64(z), 3_000_000, 10)
			c := other.Sample(float64(x), float64(z), 3_000_000, 10)
			assert.Equal(t, a, b, "повторный вызов должен давать то же значение")
			assert.Equal(t, a, c, "одинаковые параметры должны давать одинаковое поле")
		}
	}
}

func TestField_RangeIsUnitInterval(t *testing.T) {
	f := NewField(DefaultParams(7))

	for x := -50; x <= 50; x++ {
		for z := -50; z <= 50; z += 5 {
			v := f.Sample(float64(x)+0.37, float64(z)+0.61, 4_200_000, 6.5)
			require.False(t, math.IsNaN(v))
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestField_SeedShiftsField(t *testing.T) {
	f := NewField(DefaultParams(1))

	differs := false
	for x := 0; x < 32 && !differs; x++ {
		a := f.Sample(float64(x)+0.5, 0.25, 2_500_000, 8)
		b := f.Sample(float64(x)+0.5, 0.25, 7_000_000, 8)
		differs = a != b
	}
	assert.True(t, differs, "разные сиды слоя должны давать разные значения")
}

func TestField_ConcurrentSampling(t *testing.T) {
	f := NewField(DefaultParams(99))
	want := f.Sample(12.5, -3.25, 5_000_000, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, f.Sample(12.5, -3.25, 5_000_000, 4))
			}
		}()
	}
	wg.Wait()
}

func TestValidateZoom(t *testing.T) {
	assert.NoError(t, ValidateZoom(0.5))
	assert.True(t, errors.Is(ValidateZoom(0), ErrInvalidZoom))
	assert.True(t, errors.Is(ValidateZoom(-3), ErrInvalidZoom))
	assert.True(t, errors.Is(ValidateZoom(math.NaN()), ErrInvalidZoom))

	f := NewField(DefaultParams(1))
	assert.Equal(t, 0.0, f.Sample(1, 1, 0, 0))
}

func TestNewField_Defaults(t *testing.T) {
	f := NewField(Params{Seed: 5})
	assert.Equal(t, Params{Alpha: DefaultAlpha, Beta: DefaultBeta, Octaves: DefaultOctaves, Seed: 5}, f.Params())
}

func TestConstant(t *testing.T) {
	assert.Equal(t, 0.3, Constant(0.3).Sample(1, 2, 3, 4))
	assert.Equal(t, 1.0, Constant(2).Sample(0, 0, 0, 1))
}
