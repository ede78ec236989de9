package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersection"
	"github.com/twpayne/go-geom/xy/lineintersector"
)

// DefaultMaxHalvings bounds how often the tolerance is halved for a ring
// whose simplified form breaks topology.
const DefaultMaxHalvings = 8

// minRingPoints is the smallest valid closed ring (a triangle plus closure).
const minRingPoints = 4

// Simplifier reduces polygon ring vertices with Douglas-Peucker while keeping
// every ring simple and free of crossings with its sibling rings.
type Simplifier struct {
	Tolerance   float64
	MaxHalvings int
}

// NewSimplifier returns a Simplifier with the given tolerance in degrees.
func NewSimplifier(tolerance float64) *Simplifier {
	return &Simplifier{Tolerance: tolerance, MaxHalvings: DefaultMaxHalvings}
}

// Simplify simplifies polygons and multipolygons. Points pass through.
// The input is never modified.
func (s *Simplifier) Simplify(g orb.Geometry) (orb.Geometry, error) {
	switch v := g.(type) {
	case orb.Point:
		return v, nil
	case orb.Polygon:
		if len(v) == 0 {
			return nil, eris.New("geometry: polygon has no rings")
		}
		return s.Polygon(v), nil
	case orb.MultiPolygon:
		if len(v) == 0 {
			return nil, eris.New("geometry: multipolygon has no polygons")
		}
		return s.MultiPolygon(v), nil
	case nil:
		return nil, eris.New("geometry: nil geometry")
	default:
		return nil, eris.Errorf("geometry: cannot simplify %s", g.GeoJSONType())
	}
}

// MultiPolygon simplifies each polygon in order. The rings of the other
// polygons are siblings too: accepted rings for earlier polygons and the
// original rings for later ones.
func (s *Simplifier) MultiPolygon(mp orb.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(mp))
	for i, p := range mp {
		var others []orb.Ring
		for _, q := range out {
			others = append(others, q...)
		}
		for _, q := range mp[i+1:] {
			others = append(others, q...)
		}
		out = append(out, s.polygon(p, others))
	}
	return out
}

// Polygon simplifies each ring in order. A candidate ring must not cross the
// rings already accepted nor the original form of the rings still pending.
func (s *Simplifier) Polygon(p orb.Polygon) orb.Polygon {
	return s.polygon(p, nil)
}

func (s *Simplifier) polygon(p orb.Polygon, others []orb.Ring) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		siblings := make([]orb.Ring, 0, len(others)+len(p)-1)
		siblings = append(siblings, others...)
		siblings = append(siblings, out...)
		siblings = append(siblings, p[i+1:]...)
		out = append(out, s.Ring(r, siblings))
	}
	return out
}

// Ring simplifies r. The result never has more vertices than r. A candidate
// must be simple and must not touch any sibling. The first vertex of each
// sibling must also stay on the same side of the candidate as of r. When no
// candidate down to Tolerance/2^MaxHalvings qualifies, a copy of r is
// returned.
func (s *Simplifier) Ring(r orb.Ring, siblings []orb.Ring) orb.Ring {
	if s.Tolerance <= 0 || len(r) <= minRingPoints {
		return r.Clone()
	}

	anchors := make([]anchor, 0, len(siblings))
	for _, sib := range siblings {
		if len(sib) == 0 {
			continue
		}
		anchors = append(anchors, anchor{pt: sib[0], inside: planar.RingContains(r, sib[0])})
	}

	tol := s.Tolerance
	for attempt := 0; attempt <= s.MaxHalvings; attempt++ {
		candidate := simplify.DouglasPeucker(tol).Ring(r.Clone())
		if validRing(candidate, siblings, anchors) {
			return candidate
		}
		tol /= 2
	}
	return r.Clone()
}

// anchor records whether a sibling vertex lies inside the original ring.
type anchor struct {
	pt     orb.Point
	inside bool
}

func validRing(r orb.Ring, siblings []orb.Ring, anchors []anchor) bool {
	if len(r) < minRingPoints {
		return false
	}
	segs := ringSegments(r)
	if len(segs) < 3 || selfIntersects(segs) {
		return false
	}
	for _, sib := range siblings {
		if crosses(segs, ringSegments(sib)) {
			return false
		}
	}
	for _, a := range anchors {
		if planar.RingContains(r, a.pt) != a.inside {
			return false
		}
	}
	return true
}

type segment struct {
	a, b orb.Point
	bbox orb.Bound
}

func (s segment) coords() (geom.Coord, geom.Coord) {
	return geom.Coord{s.a[0], s.a[1]}, geom.Coord{s.b[0], s.b[1]}
}

// ringSegments returns the edges of r, closing it when needed and dropping
// zero-length edges.
func ringSegments(r orb.Ring) []segment {
	pts := make([]orb.Point, 0, len(r)+1)
	for _, p := range r {
		if len(pts) > 0 && pts[len(pts)-1].Equal(p) {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) > 1 && !pts[0].Equal(pts[len(pts)-1]) {
		pts = append(pts, pts[0])
	}

	segs := make([]segment, 0, len(pts))
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		segs = append(segs, segment{a: a, b: b, bbox: orb.MultiPoint{a, b}.Bound()})
	}
	return segs
}

func intersect(s1, s2 segment) lineintersection.Result {
	if !s1.bbox.Intersects(s2.bbox) {
		return lineintersection.NewResult(lineintersection.NoIntersection, nil)
	}
	a1, b1 := s1.coords()
	a2, b2 := s2.coords()
	return lineintersector.LineIntersectsLine(lineintersector.RobustLineIntersector{}, a1, b1, a2, b2)
}

// selfIntersects reports whether edges of a closed ring touch anywhere other
// than at the vertex shared by neighbouring edges.
func selfIntersects(segs []segment) bool {
	n := len(segs)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			res := intersect(segs[i], segs[j])
			if !res.HasIntersection() {
				continue
			}
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if !adjacent || res.Type() == lineintersection.CollinearIntersection {
				return true
			}
		}
	}
	return false
}

func crosses(a, b []segment) bool {
	for _, s1 := range a {
		for _, s2 := range b {
			res := intersect(s1, s2)
			if res.HasIntersection() {
				return true
			}
		}
	}
	return false
}
