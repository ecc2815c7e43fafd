package pdfprim

import (
	"math"
	"sort"
)

const (
	ruleTol      = 2.0 // points: intersection and clustering tolerance
	minRuleLen   = 3.0
	minTableW    = 20.0
	minTableH    = 10.0
	thinRectSize = 3.0 // filled rectangles thinner than this are rules
)

// segment is a straight line in device space.
type segment struct {
	x0, y0, x1, y1 float64
}

func (s segment) norm() segment {
	if s.x0 > s.x1 {
		s.x0, s.x1 = s.x1, s.x0
	}
	if s.y0 > s.y1 {
		s.y0, s.y1 = s.y1, s.y0
	}
	return s
}

func (s segment) horizontal() bool {
	return math.Abs(s.y1-s.y0) <= 1 && math.Abs(s.x1-s.x0) >= minRuleLen
}

func (s segment) vertical() bool {
	return math.Abs(s.x1-s.x0) <= 1 && math.Abs(s.y1-s.y0) >= minRuleLen
}

// tableRegion is a ruled grid found on a page.
type tableRegion struct {
	bbox BBox
	cols []float64 // x of the vertical rules, ascending
}

// column returns the index of the grid column containing x.
func (t tableRegion) column(x float64) int {
	return sort.SearchFloat64s(t.cols, x)
}

// detectTables groups horizontal and vertical rules into connected grids.
// A grid needs at least two rules in each direction and one inner divider,
// so a plain framed box is not a table.
func detectTables(segs []segment) []tableRegion {
	var hs, vs []segment
	for _, s := range segs {
		s = s.norm()
		switch {
		case s.horizontal():
			hs = append(hs, s)
		case s.vertical():
			vs = append(vs, s)
		}
	}
	if len(hs) < 2 || len(vs) < 2 {
		return nil
	}

	// Union-find over hs (0..len(hs)-1) followed by vs.
	parent := make([]int, len(hs)+len(vs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i, h := range hs {
		for j, v := range vs {
			if v.x0 >= h.x0-ruleTol && v.x0 <= h.x1+ruleTol &&
				h.y0 >= v.y0-ruleTol && h.y0 <= v.y1+ruleTol {
				a, b := find(i), find(len(hs)+j)
				if a != b {
					parent[a] = b
				}
			}
		}
	}

	type group struct {
		ys, xs []float64
		box    BBox
	}
	groups := make(map[int]*group)
	var order []int
	add := func(root int, s segment) *group {
		g, ok := groups[root]
		if !ok {
			g = &group{}
			groups[root] = g
			order = append(order, root)
		}
		g.box = g.box.Union(BBox{X0: s.x0, Y0: s.y0, X1: s.x1, Y1: s.y1})
		return g
	}
	for i, h := range hs {
		g := add(find(i), h)
		g.ys = append(g.ys, h.y0)
	}
	for j, v := range vs {
		g := add(find(len(hs)+j), v)
		g.xs = append(g.xs, v.x0)
	}

	var out []tableRegion
	for _, root := range order {
		g := groups[root]
		ys, xs := cluster(g.ys), cluster(g.xs)
		if len(ys) < 2 || len(xs) < 2 || len(ys)+len(xs) < 5 {
			continue
		}
		if g.box.X1-g.box.X0 < minTableW || g.box.Y1-g.box.Y0 < minTableH {
			continue
		}
		out = append(out, tableRegion{bbox: g.box, cols: xs})
	}
	// Top of page first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].bbox.Y1 > out[j].bbox.Y1 })
	return out
}

// cluster sorts values and merges those closer than ruleTol.
func cluster(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	out := []float64{s[0]}
	for _, v := range s[1:] {
		if v-out[len(out)-1] > ruleTol {
			out = append(out, v)
		}
	}
	return out
}
