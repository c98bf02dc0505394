package shared

import "math"

// Vector3 is an immutable position in world space
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewVector3 creates a new position
func NewVector3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// DistanceTo calculates Euclidean distance to another position
func (v Vector3) DistanceTo(other Vector3) float64 {
	dx := other.X - v.X
	dy := other.Y - v.Y
	dz := other.Z - v.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Add returns the component-wise sum of two positions
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// ToMap exports the position as three scalar components
func (v Vector3) ToMap() map[string]any {
	return map[string]any{"x": v.X, "y": v.Y, "z": v.Z}
}

// Vector3FromMap rebuilds a position exported by ToMap
func Vector3FromMap(m map[string]any) (Vector3, error) {
	r := NewStateReader(m)
	v := Vector3{X: r.Float("x"), Y: r.Float("y"), Z: r.Float("z")}
	return v, r.Err()
}

// FindNearest returns the nearest position from a list and its distance
// Returns false if targets list is empty
func FindNearest(from Vector3, targets []Vector3) (Vector3, float64, bool) {
	if len(targets) == 0 {
		return Vector3{}, 0, false
	}

	nearest := targets[0]
	minDistance := from.DistanceTo(targets[0])

	for _, target := range targets[1:] {
		distance := from.DistanceTo(target)
		if distance < minDistance {
			minDistance = distance
			nearest = target
		}
	}

	return nearest, minDistance, true
}
