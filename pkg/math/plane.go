package math

// Plane is the set of points p with Normal·p == Distance.
// Points with Normal·p > Distance are on the front side.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistance returns Normal·p - Distance. It is a true distance only
// when Normal has unit length.
func (p Plane) SignedDistance(point Vec3) float32 {
	return p.Normal.Dot(point) - p.Distance
}

// InFront reports whether point lies strictly on the front side.
func (p Plane) InFront(point Vec3) bool {
	return p.Normal.Dot(point) > p.Distance
}

// Normalized rescales the plane so Normal has unit length.
func (p Plane) Normalized() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Scale(1 / l), Distance: p.Distance / l}
}

// planeFromCoefficients builds a plane from ax + by + cz + d >= 0 (front side).
func planeFromCoefficients(a, b, c, d float32) Plane {
	return Plane{Normal: Vec3{a, b, c}, Distance: -d}.Normalized()
}
