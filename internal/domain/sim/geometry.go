package sim

import "gonum.org/v1/gonum/spatial/r2"

// Point is a position on the canvas, in canvas pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec converts p for use with gonum's planar vector functions
func (p Point) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// PointOf is the inverse of Point.Vec
func PointOf(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Distance returns the euclidean distance between p and q
func Distance(p, q Point) float64 {
	return r2.Norm(r2.Sub(q.Vec(), p.Vec()))
}

// Lerp returns start + t*(end-start). The endpoints are returned exactly at
// t <= 0 and t >= 1 so that a packet sits precisely on its process node.
func Lerp(start, end Point, t float64) Point {
	switch {
	case t <= 0:
		return start
	case t >= 1:
		return end
	}
	delta := r2.Sub(end.Vec(), start.Vec())
	return PointOf(r2.Add(start.Vec(), r2.Scale(t, delta)))
}
