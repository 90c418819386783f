package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	assert.Empty(t, r.Values())

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{1, 2}, r.Values())

	r.Push(3)
	r.Push(4)
	r.Push(5)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
	assert.Equal(t, []int{3, 4, 5}, r.Values())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing[string](0)
	r.Push("a")
	r.Push("b")
	assert.Equal(t, []string{"b"}, r.Values())
}
