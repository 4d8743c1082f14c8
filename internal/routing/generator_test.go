package routing

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_AlwaysWithinBounds(t *testing.T) {
	g := NewGenerator(rand.NewPCG(42, 7))

	pairs := [][2]string{
		{"", ""},
		{"123 Main St, San Francisco", "456 Main St, San Francisco"},
		{"123 Main St, San Francisco", "456 Oak Ave, Daly City"},
		{"1 Infinite Loop, Cupertino, CA 95014, United States of America",
			"350 Fifth Avenue, Manhattan, New York, NY 10118, United States of America"},
		{"Somewhere very long " + fmt.Sprint(make([]int, 200)), "elsewhere"},
	}
	for _, p := range pairs {
		for range 20 {
			path := g.Generate(p[0], p[1])
			assert.GreaterOrEqual(t, path.DistanceMeters, MinProceduralMeters, "%q -> %q", p[0], p[1])
			assert.LessOrEqual(t, path.DistanceMeters, MaxProceduralMeters, "%q -> %q", p[0], p[1])
			assert.GreaterOrEqual(t, len(path.Coordinates), 3)
			assert.Positive(t, path.DurationSeconds)
			assert.True(t, path.Usable())
			assert.Equal(t, ReferencePoint, path.Coordinates[0])
		}
	}
}

func TestGenerator_Heuristics(t *testing.T) {
	tests := []struct {
		name        string
		origin      string
		destination string
		lo, hi      int
	}{
		{"same street", "123 Main St, San Francisco", "456 Main St, San Francisco", 2000, 2000},
		{"same neighborhood", "10 Jones St, Nob Hill, San Francisco", "88 Pine St, Nob Hill, San Francisco", 2000, 3000},
		{"same city", "123 Main St, San Francisco", "9 Valencia St, San Francisco", 3000, 5000},
		{"same region", "123 Main St, San Francisco", "456 Oak Ave, Daly City", 8000, 12000},
		{"neighborhood implies city", "1 Broadway, Temescal", "2 College Ave, Oakland", 3000, 5000},
	}

	g := NewGenerator(rand.NewPCG(1, 2))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 10 {
				d := g.Generate(tt.origin, tt.destination).DistanceMeters
				assert.GreaterOrEqual(t, d, tt.lo)
				assert.LessOrEqual(t, d, tt.hi)
			}
		})
	}
}

func TestGenerator_WaypointDensityScalesWithDistance(t *testing.T) {
	g := NewGenerator(rand.NewPCG(3, 4))

	short := g.Generate("123 Main St, San Francisco", "456 Main St, San Francisco")
	region := g.Generate("123 Main St, San Francisco", "456 Oak Ave, Daly City")

	assert.Len(t, short.Coordinates, 3)
	assert.Greater(t, len(region.Coordinates), len(short.Coordinates))
	assert.InDelta(t, region.DistanceMeters/2000+1, len(region.Coordinates), 1)
}

func TestGenerator_DeterministicForSeed(t *testing.T) {
	a := NewGenerator(rand.NewPCG(9, 9)).Generate("1 A St, Berkeley", "2 B St, Fremont")
	b := NewGenerator(rand.NewPCG(9, 9)).Generate("1 A St, Berkeley", "2 B St, Fremont")
	require.Equal(t, a, b)
}

func TestTokenOverlapReducesEstimate(t *testing.T) {
	a := parseAddress("742 Evergreen Terrace, Springfield")
	b := parseAddress("744 Evergreen Terrace, Springfield")
	c := parseAddress("31 Spooner Street, Quahog")

	assert.Greater(t, tokenOverlap(a.tokens, b.tokens), tokenOverlap(a.tokens, c.tokens))
	assert.Zero(t, tokenOverlap(a.tokens, c.tokens))
}

func TestParseAddress(t *testing.T) {
	p := parseAddress("  123  Main St,  San Francisco, CA ")
	assert.Equal(t, "main st", p.street)
	assert.Equal(t, "san francisco", p.city)
	assert.Equal(t, "bay area", p.region)

	q := parseAddress("Golden Gate Park")
	assert.Empty(t, q.street)
	assert.Empty(t, q.city)
}
