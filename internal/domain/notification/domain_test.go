package notification

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Offset(t *testing.T) {
	cases := []struct {
		name string
		f    ListFilter
		want int
	}{
		{"first page", ListFilter{Page: 1, Limit: 20}, 0},
		{"zero page", ListFilter{Page: 0, Limit: 20}, 0},
		{"third page", ListFilter{Page: 3, Limit: 20}, 40},
		{"huge page saturates", ListFilter{Page: 92233720368547760, Limit: 100}, math.MaxInt},
		{"zero limit", ListFilter{Page: 5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.f.Offset()
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0)
		})
	}
}
