package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTidyReleasesBuffers(t *testing.T) {
	before := Outstanding()

	err := Tidy(func(s *Scope) error {
		s.Alloc(10)
		s.Matrix(3, 2)
		assert.Equal(t, before+2, Outstanding())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, before, Outstanding())
}

func TestTidyReleasesOnError(t *testing.T) {
	before := Outstanding()
	boom := errors.New("boom")

	err := Tidy(func(s *Scope) error {
		s.Alloc(4)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, Outstanding())
}

func TestTidyReleasesOnPanic(t *testing.T) {
	before := Outstanding()

	assert.Panics(t, func() {
		_ = Tidy(func(s *Scope) error {
			s.Alloc(4)
			panic("boom")
		})
	})
	assert.Equal(t, before, Outstanding())
}

func TestAllocIsZeroed(t *testing.T) {
	_ = Tidy(func(s *Scope) error {
		v := s.Alloc(8)
		for i := range v {
			v[i] = 42
		}
		return nil
	})

	_ = Tidy(func(s *Scope) error {
		for i, x := range s.Alloc(8) {
			assert.Zerof(t, x, "index %d", i)
		}
		return nil
	})
}

func TestKeepSurvivesScope(t *testing.T) {
	var kept *mat.Dense
	_ = Tidy(func(s *Scope) error {
		m := s.Column([]float64{1, 2, 3})
		kept = s.Keep(m)
		m.Set(0, 0, 99)
		return nil
	})

	r, c := kept.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)
	assert.Equal(t, []float64{1, 2, 3}, mat.Col(nil, 0, kept))
}
