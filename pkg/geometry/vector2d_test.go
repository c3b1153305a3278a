package geometry

import (
	"errors"
	"math"
	"testing"
)

// floatEquals is a helper for testing scalar float values with epsilon.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

func TestVector_String(t *testing.T) {
	v := Vector2D{1.234, -5.678}
	want := "(1.23, -5.68)"
	if got := v.String(); got != want {
		t.Errorf("Vector2D.String() = %q; want %q", got, want)
	}
}

func TestVector_Arithmetic(t *testing.T) {
	v1 := Vector2D{1, 2}
	v2 := Vector2D{3, 4}

	t.Run("Add", func(t *testing.T) {
		want := Vector2D{4, 6}
		if got := v1.Add(v2); !got.Eq(want) {
			t.Errorf("%v.Add(%v) = %v; want %v", v1, v2, got, want)
		}
	})

	t.Run("Sub", func(t *testing.T) {
		want := Vector2D{-2, -2}
		if got := v1.Sub(v2); !got.Eq(want) {
			t.Errorf("%v.Sub(%v) = %v; want %v", v1, v2, got, want)
		}
	})

	t.Run("Neg", func(t *testing.T) {
		want := Vector2D{-1, -2}
		if got := v1.Neg(); !got.Eq(want) {
			t.Errorf("%v.Neg() = %v; want %v", v1, got, want)
		}
	})

	t.Run("Div", func(t *testing.T) {
		want := Vector2D{0.5, 1}
		got, err := v1.Div(2)
		if err != nil {
			t.Fatalf("%v.Div(2) returned error %v", v1, err)
		}
		if !got.Eq(want) {
			t.Errorf("%v.Div(2) = %v; want %v", v1, got, want)
		}
	})

	t.Run("DivByZero", func(t *testing.T) {
		got, err := v1.Div(0)
		if !errors.Is(err, ErrDivideByZero) {
			t.Errorf("%v.Div(0) error = %v; want %v", v1, err, ErrDivideByZero)
		}
		if !got.IsFinite() {
			t.Errorf("%v.Div(0) = %v; want a finite vector", v1, got)
		}
	})
}

func TestVector_Magnitude(t *testing.T) {
	v := Vector2D{3, 4}
	if !floatEquals(v.Len(), 5) {
		t.Errorf("%v.Len() = %v; want 5", v, v.Len())
	}
	if !floatEquals(v.LenSqr(), 25) {
		t.Errorf("%v.LenSqr() = %v; want 25", v, v.LenSqr())
	}

	n := v.Normalize()
	if !n.Eq(Vector2D{0.6, 0.8}) {
		t.Errorf("%v.Normalize() = %v; want (0.6, 0.8)", v, n)
	}
	if z := Zero.Normalize(); !z.Eq(Zero) {
		t.Errorf("Zero.Normalize() = %v; want zero", z)
	}
}

func TestVector_ClampLen(t *testing.T) {
	tests := []struct {
		name string
		v    Vector2D
		max  float64
		want Vector2D
	}{
		{"shorter is untouched", Vector2D{0.3, 0.4}, 1, Vector2D{0.3, 0.4}},
		{"equal is untouched", Vector2D{3, 4}, 5, Vector2D{3, 4}},
		{"longer is rescaled", Vector2D{30, 40}, 5, Vector2D{3, 4}},
		{"negative direction kept", Vector2D{-6, 8}, 1, Vector2D{-0.6, 0.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.ClampLen(tt.max)
			if !got.Eq(tt.want) {
				t.Errorf("%v.ClampLen(%v) = %v; want %v", tt.v, tt.max, got, tt.want)
			}
		})
	}
}

func TestVector_Distance(t *testing.T) {
	a := Vector2D{0, 0}
	b := Vector2D{3, 4}
	if !floatEquals(a.DistanceTo(b), 5) {
		t.Errorf("DistanceTo = %v; want 5", a.DistanceTo(b))
	}
	if !floatEquals(a.DistanceSquaredTo(b), 25) {
		t.Errorf("DistanceSquaredTo = %v; want 25", a.DistanceSquaredTo(b))
	}
}

func TestVector_Lerp(t *testing.T) {
	from := Vector2D{0, 0}
	to := Vector2D{10, -10}
	tests := []struct {
		t    float64
		want Vector2D
	}{
		{0, Vector2D{0, 0}},
		{0.1, Vector2D{1, -1}},
		{0.5, Vector2D{5, -5}},
		{1, Vector2D{10, -10}},
	}
	for _, tt := range tests {
		if got := from.Lerp(to, tt.t); !got.Eq(tt.want) {
			t.Errorf("%v.Lerp(%v, %v) = %v; want %v", from, to, tt.t, got, tt.want)
		}
	}
}

func TestVector_Angle(t *testing.T) {
	if got := (Vector2D{0, 1}).Angle(); !floatEquals(got, math.Pi/2) {
		t.Errorf("Angle() = %v; want Pi/2", got)
	}
}

func TestVector_IsFinite(t *testing.T) {
	if !(Vector2D{1, 2}).IsFinite() {
		t.Error("Expected (1, 2) to be finite")
	}
	if (Vector2D{math.NaN(), 0}).IsFinite() {
		t.Error("Expected NaN vector to be reported as not finite")
	}
	if (Vector2D{0, math.Inf(-1)}).IsFinite() {
		t.Error("Expected Inf vector to be reported as not finite")
	}
}

func TestVector_Eq(t *testing.T) {
	v := Vector2D{1, 1}
	if !v.Eq(Vector2D{1 + Epsilon/2, 1}) {
		t.Error("Expected vectors within Epsilon to be equal")
	}
	if v.Eq(Vector2D{1.001, 1}) {
		t.Error("Expected vectors outside Epsilon to differ")
	}
	if !v.EqWithin(Vector2D{1.001, 1}, 0.01) {
		t.Error("Expected EqWithin to accept a looser tolerance")
	}
}
