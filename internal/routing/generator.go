package routing

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode"

	"delivery_tracker/internal/geo"
	"delivery_tracker/internal/models"
)

const (
	MinProceduralMeters = 2000
	MaxProceduralMeters = 50000

	metersPerWaypoint = 2000.0
	minWaypoints      = 3
	waypointJitterDeg = 0.0005
)

// ReferencePoint anchors every procedurally generated path (San Francisco).
var ReferencePoint = models.Coordinate{Lat: 37.7749, Lng: -122.4194}

// distanceBand is an inclusive range of plausible trip lengths.
type distanceBand struct{ lo, hi float64 }

var (
	sameStreetBand       = distanceBand{500, 2000}
	sameNeighborhoodBand = distanceBand{2000, 3000}
	sameCityBand         = distanceBand{3000, 5000}
	sameRegionBand       = distanceBand{8000, 12000}
)

// neighborhoods maps known neighbourhood names to their city.
var neighborhoods = map[string]string{
	"mission district":   "san francisco",
	"soma":               "san francisco",
	"south of market":    "san francisco",
	"castro":             "san francisco",
	"nob hill":           "san francisco",
	"noe valley":         "san francisco",
	"haight":             "san francisco",
	"marina":             "san francisco",
	"sunset district":    "san francisco",
	"richmond district":  "san francisco",
	"financial district": "san francisco",
	"chinatown":          "san francisco",
	"downtown oakland":   "oakland",
	"temescal":           "oakland",
	"rockridge":          "oakland",
	"westlake":           "daly city",
	"downtown berkeley":  "berkeley",
	"willow glen":        "san jose",
	"castro street":      "mountain view",
	"university avenue":  "palo alto",
}

// cities maps known city names to their region.
var cities = map[string]string{
	"san francisco": "bay area",
	"daly city":     "bay area",
	"oakland":       "bay area",
	"berkeley":      "bay area",
	"alameda":       "bay area",
	"san mateo":     "bay area",
	"redwood city":  "bay area",
	"palo alto":     "bay area",
	"mountain view": "bay area",
	"sunnyvale":     "bay area",
	"san jose":      "bay area",
	"fremont":       "bay area",
	"los angeles":   "southern california",
	"santa monica":  "southern california",
	"pasadena":      "southern california",
	"long beach":    "southern california",
	"san diego":     "southern california",
	"new york":      "new york metro",
	"brooklyn":      "new york metro",
	"jersey city":   "new york metro",
	"hoboken":       "new york metro",
}

// Generator synthesises plausible paths from address strings alone.
// It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator drawing from src. A nil src seeds from the clock.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Generator{rng: rand.New(src)}
}

// Generate always returns a usable path of at least three waypoints whose
// distance lies in [MinProceduralMeters, MaxProceduralMeters].
func (g *Generator) Generate(origin, destination string) Path {
	g.mu.Lock()
	defer g.mu.Unlock()

	distance := clamp(g.estimate(origin, destination), MinProceduralMeters, MaxProceduralMeters)
	meters := int(math.Round(distance))

	return Path{
		Coordinates:     g.waypoints(float64(meters)),
		DistanceMeters:  meters,
		DurationSeconds: int(math.Ceil(float64(meters) / 1000 / models.CruisingSpeedKmh * 3600)),
	}
}

func (g *Generator) estimate(origin, destination string) float64 {
	a, b := parseAddress(origin), parseAddress(destination)

	switch {
	case a.street != "" && a.street == b.street:
		return g.within(sameStreetBand)
	case a.neighborhood != "" && a.neighborhood == b.neighborhood:
		return g.within(sameNeighborhoodBand)
	case a.city != "" && a.city == b.city:
		return g.within(sameCityBand)
	case a.region != "" && a.region == b.region:
		return g.within(sameRegionBand)
	}

	// Longer, more specific addresses tend to be further apart; shared
	// tokens pull the estimate back down.
	length := float64(len(a.normalized) + len(b.normalized))
	estimate := 3000 + length*120*(0.75+0.5*g.rng.Float64())
	return estimate * (1 - 0.6*tokenOverlap(a.tokens, b.tokens))
}

func (g *Generator) within(b distanceBand) float64 {
	return b.lo + g.rng.Float64()*(b.hi-b.lo)
}

// waypoints chains points from ReferencePoint to a synthetic endpoint
// distance meters away on a random bearing, jittering interior points.
func (g *Generator) waypoints(distance float64) []models.Coordinate {
	n := max(minWaypoints, int(math.Round(distance/metersPerWaypoint))+1)
	end := geo.Destination(ReferencePoint, g.rng.Float64()*360, distance)

	pts := make([]models.Coordinate, n)
	for i := range n {
		pt := geo.Lerp(ReferencePoint, end, float64(i)/float64(n-1))
		if i > 0 && i < n-1 {
			pt.Lat += (g.rng.Float64()*2 - 1) * waypointJitterDeg
			pt.Lng += (g.rng.Float64()*2 - 1) * waypointJitterDeg
		}
		pts[i] = pt
	}
	return pts
}

type parsedAddress struct {
	normalized   string
	tokens       map[string]struct{}
	street       string
	neighborhood string
	city         string
	region       string
}

func parseAddress(s string) parsedAddress {
	norm := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	p := parsedAddress{normalized: norm, tokens: map[string]struct{}{}}

	for _, tok := range strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) > 1 && !isNumeric(tok) {
			p.tokens[tok] = struct{}{}
		}
	}

	first, _, _ := strings.Cut(norm, ",")
	p.street = streetName(first)

	padded := " " + strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, norm) + " "
	p.neighborhood = longestMatch(padded, neighborhoods)
	if p.neighborhood != "" {
		p.city = neighborhoods[p.neighborhood]
	}
	if c := longestMatch(padded, cities); c != "" {
		p.city = c
	}
	if p.city != "" {
		p.region = cities[p.city]
	}
	return p
}

// streetName strips the house number from the first address segment, so
// "123 Main St" becomes "main st". A segment without a leading number is
// not treated as a street.
func streetName(segment string) string {
	fields := strings.Fields(segment)
	if len(fields) < 2 || !isNumeric(strings.TrimRight(fields[0], "abcdefghijklmnopqrstuvwxyz-")) {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func longestMatch(padded string, known map[string]string) string {
	best := ""
	for name := range known {
		if len(name) > len(best) && strings.Contains(padded, " "+name+" ") {
			best = name
		}
	}
	return best
}

// tokenOverlap is the Jaccard similarity of two token sets.
func tokenOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
