package dynamo

import (
	"fmt"
	"math"
)

// Tick is one discrete unit of simulated time. Only tick modulo a cycle
// length is ever observed, so wraparound of the counter is harmless.
type Tick uint64

// Vec2 is a position in the normalized [0,100]x[0,100] diagram space.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

const (
	SpaceMin = 0.0
	SpaceMax = 100.0
)

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Clamp pins both coordinates into the diagram space.
func (v Vec2) Clamp() Vec2 {
	return Vec2{clamp(v.X), clamp(v.Y)}
}

func (v Vec2) InSpace() bool {
	return v.X >= SpaceMin && v.X <= SpaceMax && v.Y >= SpaceMin && v.Y <= SpaceMax
}

func (v Vec2) IsValid() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

func clamp(x float64) float64 {
	return math.Max(SpaceMin, math.Min(SpaceMax, x))
}
