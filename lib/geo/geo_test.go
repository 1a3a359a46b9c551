package geo

import (
	"testing"
)

func TestIntersectionPoint(t *testing.T) {
	//    v0
	//    |
	//u0 -+--- u1
	//    |
	//    v1
	p := IntersectionPoint(
		NewPoint(0, 10), NewPoint(50, 10),
		NewPoint(10, 0), NewPoint(10, 40),
	)
	if p == nil {
		t.Fatal("expected an intersection")
	}
	if p.X != 10 || p.Y != 10 {
		t.Fatalf("expected (10, 10), got %s", p.ToString())
	}

	p = IntersectionPoint(
		NewPoint(0, 0), NewPoint(50, 0),
		NewPoint(0, 10), NewPoint(50, 10),
	)
	if p != nil {
		t.Fatalf("parallel segments should not intersect, got %s", p.ToString())
	}
}

func TestBoxIntersections(t *testing.T) {
	b := NewBox(NewPoint(100, 100), 200, 100)

	// segment entering through the left edge
	pts := b.Intersections(Segment{NewPoint(0, 150), NewPoint(200, 150)})
	if len(pts) != 1 {
		t.Fatalf("expected 1 intersection, got %d: %s", len(pts), Points(pts).ToString())
	}
	if pts[0].X != 100 || pts[0].Y != 150 {
		t.Fatalf("expected (100, 150), got %s", pts[0].ToString())
	}

	// segment fully inside
	pts = b.Intersections(Segment{NewPoint(150, 150), NewPoint(250, 150)})
	if len(pts) != 0 {
		t.Fatalf("expected no intersections, got %s", Points(pts).ToString())
	}
}

func TestBoxUnionExpand(t *testing.T) {
	a := NewBox(NewPoint(0, 0), 100, 100)
	b := NewBox(NewPoint(200, 50), 100, 100)

	u := a.Union(b)
	if u.TopLeft.X != 0 || u.TopLeft.Y != 0 || u.Width != 300 || u.Height != 150 {
		t.Fatalf("unexpected union %s", u.ToString())
	}

	var none *Box
	u = none.Union(b)
	if !u.TopLeft.Equals(b.TopLeft) || u.Width != b.Width {
		t.Fatalf("nil union should copy the other box, got %s", u.ToString())
	}

	e := a.Expand(10)
	if e.TopLeft.X != -10 || e.TopLeft.Y != -10 || e.Width != 120 || e.Height != 120 {
		t.Fatalf("unexpected expansion %s", e.ToString())
	}
}

func TestSnap(t *testing.T) {
	if s := Snap(104, 10); s != 100 {
		t.Fatalf("expected 100, got %v", s)
	}
	if s := Snap(105, 10); s != 110 {
		t.Fatalf("expected 110, got %v", s)
	}
	if s := Snap(-14, 10); s != -10 {
		t.Fatalf("expected -10, got %v", s)
	}
	if s := Snap(37, 0); s != 37 {
		t.Fatalf("unit 0 should leave the value untouched, got %v", s)
	}
}

func TestRouteGetPointAtDistance(t *testing.T) {
	route := Route{NewPoint(0, 0), NewPoint(100, 0), NewPoint(100, 100)}
	if l := route.Length(); l != 200 {
		t.Fatalf("expected length 200, got %v", l)
	}

	p, i := route.GetPointAtDistance(150)
	if i != 1 {
		t.Fatalf("expected the point on segment 1, got %d", i)
	}
	if p.X != 100 || p.Y != 50 {
		t.Fatalf("expected (100, 50), got %s", p.ToString())
	}
}
