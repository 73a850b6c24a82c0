package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "title", Coalesce("", "title", "other"))
	assert.Equal(t, 720, Coalesce(0, 720))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(2), CeilDiv[uint32](16, 8))
	assert.Equal(t, uint32(3), CeilDiv[uint32](17, 8))
	assert.Equal(t, uint32(0), CeilDiv[uint32](5, 0))
	assert.Equal(t, 1, CeilDiv(1, 64))
}

func TestRowBands(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, RowBands(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, RowBands(2, 8))
	assert.Equal(t, [][2]int{{0, 5}}, RowBands(5, 0))
	assert.Nil(t, RowBands(0, 4))

	// Ten rows in four bands of three leave only four ranges, never an empty one.
	bands := RowBands(10, 4)
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 10}}, bands)
	covered := 0
	for _, b := range bands {
		assert.Less(t, b[0], b[1])
		covered += b[1] - b[0]
	}
	assert.Equal(t, 10, covered)
}
