package sprite

import (
	"image/color"
)

// Color is a premultiplied RGBA tint. Each component is in [0, 1] and the
// color components never exceed A.
type Color struct {
	R, G, B, A float32
}

// RGB creates an opaque color.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// NRGBA creates a color from non-premultiplied components.
func NRGBA(r, g, b, a float32) Color {
	return Color{R: r * a, G: g * a, B: b * a, A: a}
}

// FromColor converts a standard color.Color. color.Color values are already
// premultiplied.
func FromColor(c color.Color) Color {
	r, g, b, a := c.RGBA()
	return Color{
		R: float32(r) / 65535,
		G: float32(g) / 65535,
		B: float32(b) / 65535,
		A: float32(a) / 65535,
	}
}

// Hex creates an opaque or translucent color from a hex string.
// Supports formats: "RGB", "RGBA", "RRGGBB", "RRGGBBAA", with or without
// a leading '#'. Invalid strings yield opaque black.
func Hex(hex string) Color {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}

	var digits [4]string
	switch len(hex) {
	case 3, 4:
		for i := range len(hex) {
			digits[i] = hex[i : i+1]
		}
	case 6, 8:
		for i := range len(hex) / 2 {
			digits[i] = hex[2*i : 2*i+2]
		}
	default:
		return Black
	}

	v := [4]uint32{0, 0, 0, 255}
	for i, d := range digits {
		if d == "" {
			continue
		}
		n, ok := parseHex(d)
		if !ok {
			return Black
		}
		if len(d) == 1 {
			n *= 17
		}
		v[i] = n
	}
	return NRGBA(float32(v[0])/255, float32(v[1])/255, float32(v[2])/255, float32(v[3])/255)
}

// parseHex parses one or two hex digits. It reports false for any other
// character.
func parseHex(s string) (uint32, bool) {
	var v uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		v *= 16
		switch {
		case '0' <= c && c <= '9':
			v += uint32(c - '0')
		case 'a' <= c && c <= 'f':
			v += uint32(c - 'a' + 10)
		case 'A' <= c && c <= 'F':
			v += uint32(c - 'A' + 10)
		default:
			return 0, false
		}
	}
	return v, true
}

// Fade scales every component by alpha.
func (c Color) Fade(alpha float32) Color {
	return Color{R: c.R * alpha, G: c.G * alpha, B: c.B * alpha, A: c.A * alpha}
}

// Lerp performs linear interpolation between two colors.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// IsZero reports whether all components are zero.
func (c Color) IsZero() bool {
	return c == Color{}
}

// RGBA8 returns the color packed as four unorm8 bytes.
func (c Color) RGBA8() [4]uint8 {
	return [4]uint8{unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)}
}

func unorm8(x float32) uint8 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 255
	}
	return uint8(x*255 + 0.5)
}

// Common colors
var (
	Black       = RGB(0, 0, 0)
	White       = RGB(1, 1, 1)
	Red         = RGB(1, 0, 0)
	Green       = RGB(0, 1, 0)
	Blue        = RGB(0, 0, 1)
	Yellow      = RGB(1, 1, 0)
	Transparent = Color{}
)
