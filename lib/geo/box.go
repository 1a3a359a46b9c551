package geo

import (
	"fmt"
	"math"
)

type Box struct {
	TopLeft *Point
	Width   float64
	Height  float64
}

func NewBox(tl *Point, width, height float64) *Box {
	return &Box{
		TopLeft: tl,
		Width:   width,
		Height:  height,
	}
}

func (b *Box) Copy() *Box {
	if b == nil {
		return nil
	}
	return NewBox(b.TopLeft.Copy(), b.Width, b.Height)
}

func (b *Box) MaxX() float64 {
	return b.TopLeft.X + b.Width
}

func (b *Box) MaxY() float64 {
	return b.TopLeft.Y + b.Height
}

func (b *Box) Center() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y+b.Height/2)
}

func (b *Box) TopCenter() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y)
}

func (b *Box) BottomCenter() *Point {
	return NewPoint(b.TopLeft.X+b.Width/2, b.TopLeft.Y+b.Height)
}

func (b *Box) LeftCenter() *Point {
	return NewPoint(b.TopLeft.X, b.TopLeft.Y+b.Height/2)
}

func (b *Box) RightCenter() *Point {
	return NewPoint(b.TopLeft.X+b.Width, b.TopLeft.Y+b.Height/2)
}

// Union grows b to the smallest box covering both b and other.
// Either side may be nil.
func (b *Box) Union(other *Box) *Box {
	if b == nil {
		return other.Copy()
	}
	if other == nil {
		return b.Copy()
	}
	minX := math.Min(b.TopLeft.X, other.TopLeft.X)
	minY := math.Min(b.TopLeft.Y, other.TopLeft.Y)
	maxX := math.Max(b.MaxX(), other.MaxX())
	maxY := math.Max(b.MaxY(), other.MaxY())
	return NewBox(NewPoint(minX, minY), maxX-minX, maxY-minY)
}

// Expand returns b grown by margin on every side.
func (b *Box) Expand(margin float64) *Box {
	return NewBox(
		NewPoint(b.TopLeft.X-margin, b.TopLeft.Y-margin),
		b.Width+2*margin,
		b.Height+2*margin,
	)
}

func (b *Box) Intersections(s Segment) []*Point {
	pts := []*Point{}

	tl := b.TopLeft
	tr := NewPoint(tl.X+b.Width, tl.Y)
	br := NewPoint(tr.X, tr.Y+b.Height)
	bl := NewPoint(tl.X, br.Y)

	if p := IntersectionPoint(s.Start, s.End, tl, tr); p != nil {
		pts = append(pts, p)
	}
	if p := IntersectionPoint(s.Start, s.End, tr, br); p != nil {
		pts = append(pts, p)
	}
	if p := IntersectionPoint(s.Start, s.End, br, bl); p != nil {
		pts = append(pts, p)
	}
	if p := IntersectionPoint(s.Start, s.End, bl, tl); p != nil {
		pts = append(pts, p)
	}
	return pts
}

func (b *Box) ToString() string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("{TopLeft: %s, Width: %.0f, Height: %.0f}", b.TopLeft.ToString(), b.Width, b.Height)
}
