package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrustumIntersectsSphere(t *testing.T) {
	var proj, view, vp [16]float32
	Perspective(proj[:], float32(math.Pi/2), 1, 1, 100)
	LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
	Mul4(vp[:], proj[:], view[:])
	f := ExtractFrustumFromMatrix(vp[:])

	tests := []struct {
		name   string
		center [3]float32
		radius float32
		want   bool
	}{
		{"ahead", [3]float32{0, 0, -10}, 1, true},
		{"behind camera", [3]float32{0, 0, 10}, 1, false},
		{"straddles near plane", [3]float32{0, 0, -0.5}, 1, true},
		{"beyond far", [3]float32{0, 0, -150}, 10, false},
		{"far left", [3]float32{-50, 0, -10}, 1, false},
		{"clipping left plane", [3]float32{-10.5, 0, -10}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsSphere(tt.center, tt.radius))
		})
	}
}
