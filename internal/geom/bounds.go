package geom

// Vec2 is a point or size in world units.
// Value type, passed by value (immutable).
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// NewVec2 creates a Vec2.
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Scale returns v multiplied by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Bounds is an axis-aligned rectangle in world units.
// Invariant: X0 <= X1 and Y0 <= Y1.
type Bounds struct {
	X0 float64 `json:"x0" msgpack:"x0"`
	Y0 float64 `json:"y0" msgpack:"y0"`
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// NewBounds creates Bounds centred on center with the given size.
// X1-X0 equals size.X and Y1-Y0 equals size.Y.
func NewBounds(center, size Vec2) Bounds {
	x0 := center.X - size.X*0.5
	y0 := center.Y - size.Y*0.5
	return Bounds{
		X0: x0,
		Y0: y0,
		X1: x0 + size.X,
		Y1: y0 + size.Y,
	}
}

// NewBoundsMinMax creates Bounds from corner coordinates, swapping them if needed.
func NewBoundsMinMax(x0, y0, x1, y1 float64) Bounds {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Bounds{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Intersects reports whether b and o overlap on both axes.
// Intervals are closed: touching edges count as overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.X0 <= o.X1 && b.X1 >= o.X0 &&
		b.Y0 <= o.Y1 && b.Y1 >= o.Y0
}

// ContainsPoint reports whether p lies inside b (edges included).
func (b Bounds) ContainsPoint(p Vec2) bool {
	return p.X >= b.X0 && p.X <= b.X1 && p.Y >= b.Y0 && p.Y <= b.Y1
}

// Width returns X1-X0.
func (b Bounds) Width() float64 {
	return b.X1 - b.X0
}

// Height returns Y1-Y0.
func (b Bounds) Height() float64 {
	return b.Y1 - b.Y0
}

// Center returns the centre point.
func (b Bounds) Center() Vec2 {
	return Vec2{X: (b.X0 + b.X1) * 0.5, Y: (b.Y0 + b.Y1) * 0.5}
}

// Size returns width and height as a Vec2.
func (b Bounds) Size() Vec2 {
	return Vec2{X: b.Width(), Y: b.Height()}
}

// Expand returns b grown by dx on both X sides and dy on both Y sides.
func (b Bounds) Expand(dx, dy float64) Bounds {
	return NewBoundsMinMax(b.X0-dx, b.Y0-dy, b.X1+dx, b.Y1+dy)
}

// Scale returns b scaled around its centre.
func (b Bounds) Scale(s float64) Bounds {
	return NewBounds(b.Center(), b.Size().Scale(s))
}

// Encapsulate returns the smallest Bounds containing both b and o.
func (b Bounds) Encapsulate(o Bounds) Bounds {
	return Bounds{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}
