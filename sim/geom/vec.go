package geom

import "math"

// Vec3 is a point or direction in 3D space.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Dist returns the Euclidean distance between v and w.
func (v Vec3) Dist(w Vec3) float64 {
	return v.Sub(w).Norm()
}

// DefineLine computes the unit direction and length of the segment from p1 to p2.
// A zero-length segment yields a zero direction vector.
func DefineLine(p1, p2 Vec3) (dir Vec3, length float64) {
	length = p1.Dist(p2)
	if length > 0 {
		dir = p2.Sub(p1).Scale(1 / length)
	}
	return dir, length
}

// PushPoint advances p by dist along the unit direction dir.
func PushPoint(p Vec3, dir Vec3, dist float64) Vec3 {
	return p.Add(dir.Scale(dist))
}
