// Package tensor scopes the lifetime of intermediate numeric buffers.
//
// Buffers handed out by a Scope go back to a shared pool when the Tidy
// callback returns, so repeated normalization and prediction runs reuse
// memory instead of growing the heap. Anything that must outlive the scope
// is copied out with Keep.
package tensor

import (
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

var (
	pool        sync.Pool
	outstanding atomic.Int64
)

// Scope tracks buffers acquired inside a Tidy call.
type Scope struct {
	bufs []*[]float64
}

// Tidy runs fn with a fresh Scope and releases every buffer acquired through
// it once fn returns, including when fn panics.
func Tidy(fn func(s *Scope) error) error {
	s := &Scope{}
	defer s.release()
	return fn(s)
}

// Alloc returns a zeroed slice of length n owned by the scope.
func (s *Scope) Alloc(n int) []float64 {
	var buf *[]float64
	if v, ok := pool.Get().(*[]float64); ok && cap(*v) >= n {
		buf = v
	} else {
		if ok {
			pool.Put(v)
		}
		b := make([]float64, n)
		buf = &b
	}
	*buf = (*buf)[:n]
	clear(*buf)

	s.bufs = append(s.bufs, buf)
	outstanding.Add(1)
	return *buf
}

// Vector returns a scope-owned copy of data.
func (s *Scope) Vector(data []float64) []float64 {
	v := s.Alloc(len(data))
	copy(v, data)
	return v
}

// Matrix returns a zeroed r×c matrix backed by scope-owned memory.
func (s *Scope) Matrix(r, c int) *mat.Dense {
	return mat.NewDense(r, c, s.Alloc(r*c))
}

// Column returns a len(data)×1 matrix holding a scope-owned copy of data.
func (s *Scope) Column(data []float64) *mat.Dense {
	return mat.NewDense(len(data), 1, s.Vector(data))
}

// Keep copies m into memory that is not owned by any scope.
func (s *Scope) Keep(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m)
}

func (s *Scope) release() {
	for _, buf := range s.bufs {
		pool.Put(buf)
		outstanding.Add(-1)
	}
	s.bufs = nil
}

// Outstanding reports how many scoped buffers have not been released yet.
func Outstanding() int64 {
	return outstanding.Load()
}
