package math

// ClipType is the result of classifying a volume against a frustum.
type ClipType int

const (
	// ClipOut means the volume is fully outside at least one plane.
	ClipOut ClipType = iota
	// ClipIn means the volume is fully inside every tested plane.
	ClipIn
	// ClipCrossing means the volume straddles at least one tested plane.
	ClipCrossing
)

func (c ClipType) String() string {
	switch c {
	case ClipIn:
		return "in"
	case ClipCrossing:
		return "crossing"
	default:
		return "out"
	}
}

// Frustum plane indices.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
	NumFrustumPlanes
)

// AllClipPlanes has one bit set for every frustum plane.
const AllClipPlanes = 1<<NumFrustumPlanes - 1

// NoFailCache marks a fail cache that holds no plane.
const NoFailCache = -1

// Frustum holds six inward-facing planes; a point is inside when it is in
// front of every plane.
type Frustum struct {
	Planes [NumFrustumPlanes]Plane
}

// FrustumFromMatrix extracts the planes of a column-major view-projection
// matrix (OpenGL clip space, -w <= z <= w).
func FrustumFromMatrix(m Mat4) Frustum {
	row := func(i int) [4]float32 {
		return [4]float32{m[i], m[4+i], m[8+i], m[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	combine := func(a, b [4]float32, sign float32) Plane {
		return planeFromCoefficients(
			a[0]+sign*b[0],
			a[1]+sign*b[1],
			a[2]+sign*b[2],
			a[3]+sign*b[3],
		)
	}

	var f Frustum
	f.Planes[PlaneLeft] = combine(r3, r0, 1)
	f.Planes[PlaneRight] = combine(r3, r0, -1)
	f.Planes[PlaneBottom] = combine(r3, r1, 1)
	f.Planes[PlaneTop] = combine(r3, r1, -1)
	f.Planes[PlaneNear] = combine(r3, r2, 1)
	f.Planes[PlaneFar] = combine(r3, r2, -1)
	return f
}

// ContainsPoint reports whether p is inside all six planes.
func (f *Frustum) ContainsPoint(p Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(p) < 0 {
			return false
		}
	}
	return true
}

// ClassifyBox tests box against the planes selected by clipFlags.
//
// Planes the box lies fully inside are cleared from the returned flags so
// children of the box can skip them. failCache holds the index of the plane
// that rejected this box last time (or NoFailCache); that plane is tested
// first and the cache is updated with the rejecting plane. failCache may be nil.
func (f *Frustum) ClassifyBox(box AABB, clipFlags int, failCache *int) (ClipType, int) {
	if clipFlags == 0 {
		return ClipIn, 0
	}

	if failCache != nil && *failCache >= 0 && *failCache < NumFrustumPlanes {
		i := *failCache
		if clipFlags&(1<<i) != 0 && boxOutside(f.Planes[i], box) {
			return ClipOut, clipFlags
		}
	}

	for i := 0; i < NumFrustumPlanes; i++ {
		bit := 1 << i
		if clipFlags&bit == 0 {
			continue
		}
		plane := f.Planes[i]
		if boxOutside(plane, box) {
			if failCache != nil {
				*failCache = i
			}
			return ClipOut, clipFlags
		}
		if plane.SignedDistance(negativeVertex(plane, box)) >= 0 {
			clipFlags &^= bit
		}
	}

	if failCache != nil {
		*failCache = NoFailCache
	}
	if clipFlags == 0 {
		return ClipIn, 0
	}
	return ClipCrossing, clipFlags
}

func boxOutside(p Plane, box AABB) bool {
	return p.SignedDistance(positiveVertex(p, box)) < 0
}

// positiveVertex is the box corner furthest along the plane normal.
func positiveVertex(p Plane, box AABB) Vec3 {
	v := box.Min
	if p.Normal.X >= 0 {
		v.X = box.Max.X
	}
	if p.Normal.Y >= 0 {
		v.Y = box.Max.Y
	}
	if p.Normal.Z >= 0 {
		v.Z = box.Max.Z
	}
	return v
}

// negativeVertex is the box corner furthest against the plane normal.
func negativeVertex(p Plane, box AABB) Vec3 {
	v := box.Max
	if p.Normal.X >= 0 {
		v.X = box.Min.X
	}
	if p.Normal.Y >= 0 {
		v.Y = box.Min.Y
	}
	if p.Normal.Z >= 0 {
		v.Z = box.Min.Z
	}
	return v
}
