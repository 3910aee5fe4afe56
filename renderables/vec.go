package renderables

import (
	"math"

	"github.com/wippyai/reveal-bridge/i3df"
)

type vec3 struct{ x, y, z float64 }

var (
	xAxis = vec3{1, 0, 0}
	zAxis = vec3{0, 0, 1}
)

func fromI3DF(v i3df.Vector3) vec3 {
	return vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

func (a vec3) add(b vec3) vec3      { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) sub(b vec3) vec3      { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) scale(s float64) vec3 { return vec3{a.x * s, a.y * s, a.z * s} }
func (a vec3) dot(b vec3) float64   { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) length() float64      { return math.Sqrt(a.dot(a)) }
func (a vec3) negate() vec3         { return vec3{-a.x, -a.y, -a.z} }

func (a vec3) normalize() vec3 {
	l := a.length()
	if l == 0 {
		return a
	}
	return a.scale(1 / l)
}

type quat struct{ x, y, z, w float64 }

// rotationFromZ returns the shortest rotation taking +Z onto dir. Opposite
// vectors rotate half a turn about Y.
func rotationFromZ(dir vec3) quat {
	to := dir.normalize()
	r := zAxis.dot(to) + 1
	var q quat
	if r < 1e-12 {
		q = quat{0, -zAxis.z, zAxis.y, 0}
	} else {
		q = quat{
			x: zAxis.y*to.z - zAxis.z*to.y,
			y: zAxis.z*to.x - zAxis.x*to.z,
			z: zAxis.x*to.y - zAxis.y*to.x,
			w: r,
		}
	}
	l := math.Sqrt(q.x*q.x + q.y*q.y + q.z*q.z + q.w*q.w)
	return quat{q.x / l, q.y / l, q.z / l, q.w / l}
}

func (q quat) rotate(v vec3) vec3 {
	ix := q.w*v.x + q.y*v.z - q.z*v.y
	iy := q.w*v.y + q.z*v.x - q.x*v.z
	iz := q.w*v.z + q.x*v.y - q.y*v.x
	iw := -q.x*v.x - q.y*v.y - q.z*v.z
	return vec3{
		x: ix*q.w + iw*-q.x + iy*-q.z - iz*-q.y,
		y: iy*q.w + iw*-q.y + iz*-q.x - ix*-q.z,
		z: iz*q.w + iw*-q.z + ix*-q.y - iy*-q.x,
	}
}

func appendVec(dst []float32, v vec3) []float32 {
	return append(dst, float32(v.x), float32(v.y), float32(v.z))
}
