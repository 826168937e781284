package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScoreBands(t *testing.T) {
	cases := []struct {
		lines int
		want  float64
	}{
		{0, 0.3},
		{5, 0.3},
		{10, 0.3},
		{11, 0.6},
		{25, 0.6},
		{50, 0.6},
		{51, 0.9},
		{100, 0.9},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeScore(tc.lines), "lines=%d", tc.lines)
	}
}
