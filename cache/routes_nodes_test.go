// ABOUTME: Tests for selecting routes by the switch positions they require.
// ABOUTME: Uses the small infrastructure's three routes through the point switch.
package cache_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/infracache/cache"
	"github.com/2389-research/infracache/cache/cachetest"
)

func strPtr(s string) *string { return &s }

func TestRoutesCrossingNodes(t *testing.T) {
	c := cachetest.SmallInfraCache(t)

	tests := []struct {
		name   string
		states map[string]*string
		want   cache.RoutesFromNodes
	}{
		{
			name:   "no nodes",
			states: nil,
			want:   cache.RoutesFromNodes{Routes: []string{}, AvailableNodePositions: map[string][]string{}},
		},
		{
			name:   "any position",
			states: map[string]*string{"switch": nil},
			want: cache.RoutesFromNodes{
				Routes:                 []string{"R1", "R2", "R3"},
				AvailableNodePositions: map[string][]string{"switch": {"A_B1", "A_B2"}},
			},
		},
		{
			name:   "fixed position",
			states: map[string]*string{"switch": strPtr("A_B2")},
			want: cache.RoutesFromNodes{
				Routes:                 []string{"R2", "R3"},
				AvailableNodePositions: map[string][]string{"switch": {"A_B2"}},
			},
		},
		{
			name:   "node crossed by no route",
			states: map[string]*string{"switch": nil, "link": nil},
			want:   cache.RoutesFromNodes{Routes: []string{}, AvailableNodePositions: map[string][]string{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.RoutesCrossingNodes(tt.states)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
