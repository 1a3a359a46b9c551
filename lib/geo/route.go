package geo

type Route []*Point

func (route Route) Copy() Route {
	out := make(Route, len(route))
	for i, p := range route {
		out[i] = p.Copy()
	}
	return out
}

func (route Route) Length() float64 {
	l := 0.
	for i := 0; i < len(route)-1; i++ {
		l += EuclideanDistance(
			route[i].X, route[i].Y,
			route[i+1].X, route[i+1].Y,
		)
	}
	return l
}

// return the point at _distance_ along the route, and the index of the segment it's on
func (route Route) GetPointAtDistance(distance float64) (*Point, int) {
	remaining := distance
	for i := 0; i < len(route)-1; i++ {
		curr, next := route[i], route[i+1]
		length := EuclideanDistance(curr.X, curr.Y, next.X, next.Y)

		if remaining <= length {
			t := remaining / length
			// point t% of the way between curr and next
			return NewPoint(
				curr.X*(1.0-t)+next.X*t,
				curr.Y*(1.0-t)+next.Y*t,
			), i
		}
		remaining -= length
	}

	return nil, -1
}

// Flatten serializes the route as [x0, y0, x1, y1, ...] for wire transfer.
func (route Route) Flatten() []float64 {
	flat := make([]float64, 0, len(route)*2)
	for _, p := range route {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
