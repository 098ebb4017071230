package geom

// Rand is the minimal random stream the samplers draw from. Both math/rand
// and golang.org/x/exp/rand streams satisfy it.
type Rand interface {
	Float64() float64
}

// RandomPoint draws a point uniformly from the interior (or, for 2D shapes,
// the surface) of the boundary. Sphere, circle, and cylinder interiors use
// rejection sampling; rectangular shapes sample each axis range directly.
// The caller supplies the random stream so sampling stays deterministic.
func RandomPoint(rng Rand, b Boundary) Vec3 {
	switch b.Shape {
	case Box, Rectangle:
		return Vec3{
			uniformRange(rng, b.V[0], b.V[1]),
			uniformRange(rng, b.V[2], b.V[3]),
			uniformRange(rng, b.V[4], b.V[5]),
		}
	case Sphere:
		for {
			p := Vec3{
				2*rng.Float64() - 1,
				2*rng.Float64() - 1,
				2*rng.Float64() - 1,
			}
			if p.Dot(p) < 1 {
				return b.sphereCenter().Add(p.Scale(b.V[3]))
			}
		}
	case Cylinder, Circle:
		for {
			pa := 2*rng.Float64() - 1
			pb := 2*rng.Float64() - 1
			if pa*pa+pb*pb >= 1 {
				continue
			}
			ax := b.V[2]
			if b.Shape == Cylinder {
				ax = uniformRange(rng, b.V[2], b.V[2]+b.V[5])
			}
			return b.cylPoint(b.V[0]+pa*b.V[3], b.V[1]+pb*b.V[3], ax)
		}
	case Line:
		p1 := Vec3{b.V[0], b.V[1], b.V[2]}
		p2 := Vec3{b.V[3], b.V[4], b.V[5]}
		return p1.Add(p2.Sub(p1).Scale(rng.Float64()))
	}
	return Vec3{}
}

// RandomSurfacePoint draws a point uniformly from the boundary's surface:
// rejection-sampled directions scaled to the radius for a sphere, an
// area-weighted face choice for a box.
func RandomSurfacePoint(rng Rand, b Boundary) Vec3 {
	switch b.Shape {
	case Sphere:
		for {
			p := Vec3{
				2*rng.Float64() - 1,
				2*rng.Float64() - 1,
				2*rng.Float64() - 1,
			}
			n := p.Norm()
			if n > 0 && n < 1 {
				return b.sphereCenter().Add(p.Scale(b.V[3] / n))
			}
		}
	case Box:
		faces := make([]float64, 6)
		var total float64
		for f := FaceXMin; f <= FaceZMax; f++ {
			faces[f] = FaceBoundary(b, f).Volume()
			total += faces[f]
		}
		pick := rng.Float64() * total
		for f := FaceXMin; f <= FaceZMax; f++ {
			pick -= faces[f]
			if pick <= 0 {
				return RandomPoint(rng, FaceBoundary(b, f))
			}
		}
		return RandomPoint(rng, FaceBoundary(b, FaceZMax))
	case Rectangle, Circle:
		return RandomPoint(rng, b)
	}
	return RandomPoint(rng, b)
}

func uniformRange(rng Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*rng.Float64()
}
