package geo

type Segment struct {
	Start *Point
	End   *Point
}
