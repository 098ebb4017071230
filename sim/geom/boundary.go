// Package geom implements the boundary-shape algebra used by the simulation
// kernel: containment, intersection, adjacency, line-boundary hit testing,
// reflection, and measure computation over axis-aligned boxes, spheres, and
// axis-aligned cylinders (plus their 2D and 1D degenerate cousins).
//
// All operations are pure functions over Boundary values. Near-boundary
// comparisons take the tolerance as an explicit argument; there is no hidden
// epsilon. Shape pairs that an operation does not implement return
// ErrUnsupportedShapeCombination rather than a silent false.
package geom

import (
	"math"
)

// Shape tags a Boundary's parameter vector with its interpretation.
type Shape int

const (
	Rectangle Shape = iota // axis-aligned rectangle, one zero-extent axis
	Circle                 // disc in an axis-aligned plane
	Box                    // axis-aligned rectangular box
	Sphere
	Cylinder // axis-aligned circular cylinder
	Line     // finite segment
)

func (s Shape) String() string {
	switch s {
	case Rectangle:
		return "rectangle"
	case Circle:
		return "circle"
	case Box:
		return "box"
	case Sphere:
		return "sphere"
	case Cylinder:
		return "cylinder"
	case Line:
		return "line"
	}
	return "undefined"
}

// Axis identifies a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "?"
}

// planarAxes returns the two axes orthogonal to a, in ascending order.
func (a Axis) planarAxes() (Axis, Axis) {
	switch a {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

// Face identifies one face of a boundary. The six planar faces double as
// adjacency directions between neighbouring boundaries. FaceCurved is the
// spherical surface or the cylinder mantle.
type Face int

const (
	FaceXMin Face = iota
	FaceXMax
	FaceYMin
	FaceYMax
	FaceZMin
	FaceZMax
	FaceCurved
	FaceNone Face = -1
)

func (f Face) String() string {
	switch f {
	case FaceXMin:
		return "x-min"
	case FaceXMax:
		return "x-max"
	case FaceYMin:
		return "y-min"
	case FaceYMax:
		return "y-max"
	case FaceZMin:
		return "z-min"
	case FaceZMax:
		return "z-max"
	case FaceCurved:
		return "curved"
	}
	return "none"
}

// Axis returns the coordinate axis normal to a planar face.
func (f Face) Axis() Axis {
	return Axis(f / 2)
}

// IsUpper reports whether f is the upper face along its axis.
func (f Face) IsUpper() bool {
	return f%2 == 1
}

// Opposite returns the face on the other side of the same axis.
func (f Face) Opposite() Face {
	if f.IsUpper() {
		return f - 1
	}
	return f + 1
}

// faceOf builds the Face for the given axis and side.
func faceOf(a Axis, upper bool) Face {
	f := Face(2 * a)
	if upper {
		f++
	}
	return f
}

// Boundary is a shape tag plus a fixed-length parameter vector. The field
// semantics depend on the tag:
//
//	Rectangle: [xMin xMax yMin yMax zMin zMax], exactly one zero-extent axis
//	Box:       [xMin xMax yMin yMax zMin zMax]
//	Sphere:    [cx cy cz r - -]
//	Cylinder:  [c1 c2 base r axis length]; c1,c2 are the cross-section centre
//	           in the plane orthogonal to axis (ascending axis order), base is
//	           the lower coordinate along axis
//	Circle:    [c1 c2 base r axis -], a zero-length cylinder cross-section
//	Line:      [x1 y1 z1 x2 y2 z2]
type Boundary struct {
	Shape Shape
	V     [6]float64
}

// NewBox builds an axis-aligned box boundary.
func NewBox(xMin, xMax, yMin, yMax, zMin, zMax float64) Boundary {
	return Boundary{Shape: Box, V: [6]float64{xMin, xMax, yMin, yMax, zMin, zMax}}
}

// NewRectangle builds a planar rectangle. The zero-extent axis identifies the
// plane the rectangle lies in; its min and max must be equal.
func NewRectangle(xMin, xMax, yMin, yMax, zMin, zMax float64) Boundary {
	return Boundary{Shape: Rectangle, V: [6]float64{xMin, xMax, yMin, yMax, zMin, zMax}}
}

// NewSphere builds a sphere boundary centred at c with radius r.
func NewSphere(c Vec3, r float64) Boundary {
	return Boundary{Shape: Sphere, V: [6]float64{c[0], c[1], c[2], r}}
}

// NewCylinder builds an axis-aligned cylinder. base is the centre of the
// lower cap; the cylinder extends length along axis.
func NewCylinder(base Vec3, axis Axis, r, length float64) Boundary {
	pa, pb := axis.planarAxes()
	return Boundary{Shape: Cylinder, V: [6]float64{
		base[pa], base[pb], base[axis], r, float64(axis), length,
	}}
}

// NewCircle builds a disc centred at c with radius r, lying in the plane
// orthogonal to axis.
func NewCircle(c Vec3, axis Axis, r float64) Boundary {
	pa, pb := axis.planarAxes()
	return Boundary{Shape: Circle, V: [6]float64{
		c[pa], c[pb], c[axis], r, float64(axis), 0,
	}}
}

// NewLine builds a finite segment from p1 to p2.
func NewLine(p1, p2 Vec3) Boundary {
	return Boundary{Shape: Line, V: [6]float64{p1[0], p1[1], p1[2], p2[0], p2[1], p2[2]}}
}

// sphereCenter returns the centre of a Sphere boundary.
func (b Boundary) sphereCenter() Vec3 {
	return Vec3{b.V[0], b.V[1], b.V[2]}
}

// cylAxis returns the axis of a Cylinder or Circle boundary.
func (b Boundary) cylAxis() Axis {
	return Axis(b.V[4])
}

// cylPlanar projects p onto the cylinder's cross-section plane, returning the
// two planar coordinates (in ascending axis order) and the axial coordinate.
func (b Boundary) cylPlanar(p Vec3) (pa, pb, ax float64) {
	paAxis, pbAxis := b.cylAxis().planarAxes()
	return p[paAxis], p[pbAxis], p[b.cylAxis()]
}

// cylPoint reconstructs a 3D point from cross-section plane coordinates and an
// axial coordinate.
func (b Boundary) cylPoint(pa, pb, ax float64) Vec3 {
	paAxis, pbAxis := b.cylAxis().planarAxes()
	var p Vec3
	p[paAxis] = pa
	p[pbAxis] = pb
	p[b.cylAxis()] = ax
	return p
}

// FlatAxis returns the zero-extent axis of a Rectangle, or (AxisX, false) if
// the rectangle has none or several.
func (b Boundary) FlatAxis() (Axis, bool) {
	var flat []Axis
	for a := AxisX; a <= AxisZ; a++ {
		if b.V[2*a] == b.V[2*a+1] {
			flat = append(flat, a)
		}
	}
	if len(flat) != 1 {
		return AxisX, false
	}
	return flat[0], true
}

// Degenerate reports whether the boundary has inverted or zero spatial
// measure. Degenerate boundaries are tolerated by the measure functions
// (they report zero) but make most geometric predicates vacuous.
func (b Boundary) Degenerate() bool {
	switch b.Shape {
	case Rectangle:
		_, ok := b.FlatAxis()
		if !ok {
			return true
		}
		for a := AxisX; a <= AxisZ; a++ {
			if b.V[2*a+1] < b.V[2*a] {
				return true
			}
		}
		return false
	case Box:
		return b.V[1] < b.V[0] || b.V[3] < b.V[2] || b.V[5] < b.V[4]
	case Sphere, Circle:
		return b.V[3] <= 0
	case Cylinder:
		return b.V[3] <= 0 || b.V[5] <= 0
	case Line:
		p1 := Vec3{b.V[0], b.V[1], b.V[2]}
		p2 := Vec3{b.V[3], b.V[4], b.V[5]}
		return p1.Dist(p2) == 0
	}
	return true
}

// Volume returns the spatial measure of the boundary: volume for 3D shapes,
// area for 2D shapes, length for a line. Degenerate boundaries yield zero.
func (b Boundary) Volume() float64 {
	if b.Degenerate() {
		return 0
	}
	switch b.Shape {
	case Rectangle:
		area := 1.0
		for a := AxisX; a <= AxisZ; a++ {
			if ext := b.V[2*a+1] - b.V[2*a]; ext > 0 {
				area *= ext
			}
		}
		return area
	case Box:
		return (b.V[1] - b.V[0]) * (b.V[3] - b.V[2]) * (b.V[5] - b.V[4])
	case Sphere:
		return 4.0 / 3.0 * math.Pi * b.V[3] * b.V[3] * b.V[3]
	case Circle:
		return math.Pi * b.V[3] * b.V[3]
	case Cylinder:
		return math.Pi * b.V[3] * b.V[3] * b.V[5]
	case Line:
		p1 := Vec3{b.V[0], b.V[1], b.V[2]}
		p2 := Vec3{b.V[3], b.V[4], b.V[5]}
		return p1.Dist(p2)
	}
	return 0
}

// SurfaceArea returns the area of the boundary's surface. For shapes that are
// themselves surfaces (rectangle, circle) this equals their measure.
func (b Boundary) SurfaceArea() float64 {
	if b.Degenerate() {
		return 0
	}
	switch b.Shape {
	case Rectangle, Circle:
		return b.Volume()
	case Box:
		l := b.V[1] - b.V[0]
		w := b.V[3] - b.V[2]
		h := b.V[5] - b.V[4]
		return 2 * (l*w + l*h + w*h)
	case Sphere:
		return 4 * math.Pi * b.V[3] * b.V[3]
	case Cylinder:
		return 2 * math.Pi * b.V[3] * (b.V[5] + b.V[3])
	case Line:
		return b.Volume()
	}
	return 0
}

// PointInBoundary reports whether p lies inside (or on) the boundary.
func PointInBoundary(p Vec3, b Boundary) bool {
	switch b.Shape {
	case Rectangle, Box:
		return p[0] >= b.V[0] && p[0] <= b.V[1] &&
			p[1] >= b.V[2] && p[1] <= b.V[3] &&
			p[2] >= b.V[4] && p[2] <= b.V[5]
	case Sphere:
		return p.Dist(b.sphereCenter()) < b.V[3]
	case Cylinder:
		pa, pb, ax := b.cylPlanar(p)
		da := pa - b.V[0]
		db := pb - b.V[1]
		return da*da+db*db <= b.V[3]*b.V[3] &&
			ax >= b.V[2] && ax <= b.V[2]+b.V[5]
	case Circle:
		pa, pb, ax := b.cylPlanar(p)
		da := pa - b.V[0]
		db := pb - b.V[1]
		return ax == b.V[2] && da*da+db*db <= b.V[3]*b.V[3]
	case Line:
		p1 := Vec3{b.V[0], b.V[1], b.V[2]}
		p2 := Vec3{b.V[3], b.V[4], b.V[5]}
		dir, length := DefineLine(p1, p2)
		d := p.Sub(p1).Dot(dir)
		return d >= 0 && d <= length && p.Dist(p1.Add(dir.Scale(d))) == 0
	}
	return false
}

// DistanceToBoundary returns the distance from p to the nearest point on the
// boundary's surface.
func DistanceToBoundary(p Vec3, b Boundary) (float64, error) {
	switch b.Shape {
	case Box, Rectangle:
		if PointInBoundary(p, b) {
			// Closest face from inside.
			dist := math.Inf(1)
			for a := AxisX; a <= AxisZ; a++ {
				if d := p[a] - b.V[2*a]; d < dist {
					dist = d
				}
				if d := b.V[2*a+1] - p[a]; d < dist {
					dist = d
				}
			}
			return dist, nil
		}
		var sq float64
		for a := AxisX; a <= AxisZ; a++ {
			if p[a] < b.V[2*a] {
				sq += sq1(b.V[2*a] - p[a])
			} else if p[a] > b.V[2*a+1] {
				sq += sq1(p[a] - b.V[2*a+1])
			}
		}
		return math.Sqrt(sq), nil
	case Sphere:
		return math.Abs(p.Dist(b.sphereCenter()) - b.V[3]), nil
	case Cylinder:
		pa, pb, ax := b.cylPlanar(p)
		planar := math.Hypot(pa-b.V[0], pb-b.V[1])
		lo, hi := b.V[2], b.V[2]+b.V[5]
		if PointInBoundary(p, b) {
			dist := b.V[3] - planar
			if d := ax - lo; d < dist {
				dist = d
			}
			if d := hi - ax; d < dist {
				dist = d
			}
			return dist, nil
		}
		var radialExcess, axialExcess float64
		if planar > b.V[3] {
			radialExcess = planar - b.V[3]
		}
		if ax < lo {
			axialExcess = lo - ax
		} else if ax > hi {
			axialExcess = ax - hi
		}
		if radialExcess == 0 {
			return axialExcess, nil
		}
		return math.Hypot(radialExcess, axialExcess), nil
	}
	return 0, unsupportedShape("DistanceToBoundary", b.Shape)
}

func sq1(v float64) float64 { return v * v }
