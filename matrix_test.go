package sprite

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMatrixTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		in   Point
		want Point
	}{
		{"identity", Identity(), Pt(3, 4), Pt(3, 4)},
		{"translate", Translate(10, -2), Pt(3, 4), Pt(13, 2)},
		{"scale", Scale(2, 3), Pt(3, 4), Pt(6, 12)},
		{"rotate", Rotate(3.14159265 / 2), Pt(1, 0), Pt(0, 1)},
		{"translate then scale", Translate(1, 1).Multiply(Scale(2, 2)), Pt(1, 1), Pt(3, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformPoint(tt.in)
			if absDiff(got.X, tt.want.X) > 1e-5 || absDiff(got.Y, tt.want.Y) > 1e-5 {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatrixInvert(t *testing.T) {
	m := Translate(5, 7).Multiply(Scale(2, 4))
	p := Pt(3, -1)
	got := m.Invert().TransformPoint(m.TransformPoint(p))
	if absDiff(got.X, p.X) > 1e-5 || absDiff(got.Y, p.Y) > 1e-5 {
		t.Errorf("round trip = %v, want %v", got, p)
	}
	if !Scale(0, 1).Invert().IsIdentity() {
		t.Error("singular matrix should invert to identity")
	}
}

func TestMatrixMat4(t *testing.T) {
	m := Translate(5, 7).Multiply(Rotate(0.3)).Multiply(Scale(2, 3))
	p := Pt(1.5, -2)
	want := m.TransformPoint(p)
	got := m.Mat4().Mul4x1(mgl32.Vec4{p.X, p.Y, 0.25, 1})
	if absDiff(got[0], want.X) > 1e-4 || absDiff(got[1], want.Y) > 1e-4 {
		t.Errorf("Mat4 maps %v to (%v, %v), want %v", p, got[0], got[1], want)
	}
	if got[2] != 0.25 || got[3] != 1 {
		t.Errorf("Mat4 changed depth or w: %v", got)
	}
}
