package tracking

// MinBoxSize is the smallest width or height a box is allowed to have.
// Detection backends clamp to the same value, so a zero-area box never
// enters the tracker.
const MinBoxSize = 0.01

// BoundingBox is an axis-aligned box normalized to [0,1] relative to the
// frame dimensions. X and Y locate the top-left corner.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the normalized area of the box.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Clamped returns a copy of the box with its origin limited to [0,1] and its
// width and height held between [MinBoxSize] and 1.
func (b BoundingBox) Clamped() BoundingBox {
	return BoundingBox{
		X:      clamp(b.X, 0, 1),
		Y:      clamp(b.Y, 0, 1),
		Width:  clamp(b.Width, MinBoxSize, 1),
		Height: clamp(b.Height, MinBoxSize, 1),
	}
}

// IoU returns the intersection-over-union of two boxes: the ratio of the
// overlapping area to the combined area. It is 0 when the boxes do not
// overlap and 1 when they are identical.
func IoU(a, b BoundingBox) float64 {
	left := max(a.X, b.X)
	top := max(a.Y, b.Y)
	right := min(a.X+a.Width, b.X+b.Width)
	bottom := min(a.Y+a.Height, b.Y+b.Height)

	if right <= left || bottom <= top {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Lerp linearly interpolates from a to b by t, applied componentwise. t=0
// returns a and t=1 returns b.
func Lerp(a, b BoundingBox, t float64) BoundingBox {
	return BoundingBox{
		X:      a.X + (b.X-a.X)*t,
		Y:      a.Y + (b.Y-a.Y)*t,
		Width:  a.Width + (b.Width-a.Width)*t,
		Height: a.Height + (b.Height-a.Height)*t,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
