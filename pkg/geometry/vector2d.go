package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Epsilon is the tolerance used by Eq and by the zero-length checks.
const (
	Epsilon = 1e-9
)

// ErrDivideByZero is returned by Div when the scalar is zero.
var ErrDivideByZero = errors.New("vector cannot be divided by zero")

// Vector2D is a point or a displacement in the simulation plane.
// Fields are exported so literals like Vector2D{1, 2} stay readable.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zero is the null vector.
var Zero = Vector2D{}

// NewVector creates a new Vector2D.
func NewVector(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// String implements fmt.Stringer with two decimals per axis.
func (v Vector2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

// ---------------------------------------------------------------------
// Arithmetic
// All methods use value receivers and return new values.
// ---------------------------------------------------------------------

// Add returns v + other.
func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{v.X - other.X, v.Y - other.Y}
}

// Mul scales the vector by a scalar value.
func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{v.X * scalar, v.Y * scalar}
}

// Neg returns the opposite vector.
func (v Vector2D) Neg() Vector2D {
	return Vector2D{-v.X, -v.Y}
}

// Div scales the vector by 1/scalar.
// A zero scalar yields ErrDivideByZero and the zero vector, never an Inf.
func (v Vector2D) Div(scalar float64) (Vector2D, error) {
	if scalar == 0 {
		return Zero, ErrDivideByZero
	}
	return Vector2D{v.X / scalar, v.Y / scalar}, nil
}

// Dot calculates the dot product of two vectors.
func (v Vector2D) Dot(other Vector2D) float64 {
	return v.X*other.X + v.Y*other.Y
}

// ---------------------------------------------------------------------
// Magnitude
// ---------------------------------------------------------------------

// LenSqr is the squared magnitude. Prefer it for comparisons.
func (v Vector2D) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Len is the magnitude of the vector.
func (v Vector2D) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns a unit vector in the same direction,
// or the zero vector if the length is effectively zero.
func (v Vector2D) Normalize() Vector2D {
	l := v.Len()
	if l < Epsilon {
		return Zero
	}
	return v.Mul(1 / l)
}

// ClampLen rescales v to exactly max when it is longer than max,
// keeping its direction. Shorter vectors are returned unchanged.
func (v Vector2D) ClampLen(max float64) Vector2D {
	if v.Len() > max {
		return v.Normalize().Mul(max)
	}
	return v
}

// IsFinite reports whether both components are neither NaN nor Inf.
func (v Vector2D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// ---------------------------------------------------------------------
// Geometric utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another point.
func (v Vector2D) DistanceTo(other Vector2D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another point.
func (v Vector2D) DistanceSquaredTo(other Vector2D) float64 {
	return v.Sub(other).LenSqr()
}

// Angle returns the heading of the vector relative to the X-axis, in [-Pi, Pi].
func (v Vector2D) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Lerp moves from v towards target by the fraction t: v + (target - v) * t.
func (v Vector2D) Lerp(target Vector2D, t float64) Vector2D {
	return v.Add(target.Sub(v).Mul(t))
}

// Eq checks if two vectors are equal within Epsilon.
func (v Vector2D) Eq(other Vector2D) bool {
	return v.EqWithin(other, Epsilon)
}

// EqWithin checks if two vectors are equal within the given tolerance.
func (v Vector2D) EqWithin(other Vector2D, tol float64) bool {
	return math.Abs(v.X-other.X) <= tol && math.Abs(v.Y-other.Y) <= tol
}
