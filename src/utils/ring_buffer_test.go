package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer[int](3)
	assert.Empty(t, rb.GetAll())

	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}

	assert.Equal(t, 3, rb.Size())
	assert.Equal(t, 3, rb.Capacity())
	assert.Equal(t, []int{3, 4, 5}, rb.GetAll())
	assert.Equal(t, []int{4, 5}, rb.GetLatest(2))
	assert.Equal(t, []int{3, 4, 5}, rb.GetLatest(10))
	assert.Empty(t, rb.GetLatest(0))
}

func TestRingBufferFilter(t *testing.T) {
	rb := NewRingBuffer[int](4)
	for i := 1; i <= 6; i++ {
		rb.Append(i)
	}

	assert.Equal(t, 0, rb.Filter(func(int) bool { return true }))
	assert.Equal(t, []int{3, 4, 5, 6}, rb.GetAll())

	removed := rb.Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, []int{4, 6}, rb.GetAll())

	rb.Append(7)
	rb.Append(8)
	rb.Append(9)
	assert.Equal(t, []int{6, 7, 8, 9}, rb.GetAll())

	assert.Equal(t, 4, rb.Filter(func(int) bool { return false }))
	assert.Equal(t, 0, rb.Size())
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	assert.Equal(t, 1000, NewRingBuffer[string](0).Capacity())
}
