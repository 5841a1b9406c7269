package math

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns an inverted box that any Extend call will overwrite.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// IsValid reports whether Min <= Max on every axis.
func (b AABB) IsValid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Extend grows the box to contain p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Intersect returns the overlap of both boxes. The result is invalid
// (see IsValid) when they do not overlap.
func (b AABB) Intersect(other AABB) AABB {
	return AABB{Min: b.Min.Max(other.Min), Max: b.Max.Min(other.Max)}
}

// Overlaps reports whether the boxes share any point.
func (b AABB) Overlaps(other AABB) bool {
	return b.Intersect(other).IsValid()
}

// Contains reports whether p lies inside the box (inclusive).
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the length of the box diagonal.
func (b AABB) Size() float32 {
	return b.Max.Sub(b.Min).Length()
}

// DistanceToPoint returns the euclidean distance from p to the closest
// point of the box. Points inside the box have distance 0.
func (b AABB) DistanceToPoint(p Vec3) float32 {
	dx := axisDistance(p.X, b.Min.X, b.Max.X)
	dy := axisDistance(p.Y, b.Min.Y, b.Max.Y)
	dz := axisDistance(p.Z, b.Min.Z, b.Max.Z)
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

func axisDistance(v, lo, hi float32) float32 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

// Transform returns the box enclosing all eight corners of b transformed by m.
func (b AABB) Transform(m Mat4) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min.X, b.Min.Y, b.Min.Z}
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		out = out.Extend(m.TransformVec3(corner))
	}
	return out
}
