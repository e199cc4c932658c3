package common

// Overlap holds the result of comparing two boxes.
type Overlap struct {
	// IoU is Intersection / Union, in [0, 1].
	IoU float64
	// Intersection is the number of pixels shared by both boxes.
	Intersection int
	// Union is the number of pixels covered by either box.
	Union int
}

// BoxArea computes the pixel area of a box given by inclusive corner coordinates.
//
// The +1 accounts for the inclusive pixel convention: a box from 0 to 9 spans
// ten pixels. Each extent is clamped at zero, so inverted or degenerate boxes
// have zero area and the result is never negative.
//
// Arguments:
//   - xMin, yMin: The top-left corner (inclusive).
//   - xMax, yMax: The bottom-right corner (inclusive).
//
// Returns:
//   - int: The area in pixels.
//
// Example Usage:
// ```go
//
//	BoxArea(0, 0, 9, 9)   // 100
//	BoxArea(5, 5, 4, 10)  // 0, inverted on x
//
// ```
func BoxArea(xMin, yMin, xMax, yMax int) int {
	return max(0, xMax-xMin+1) * max(0, yMax-yMin+1)
}

// ComputeIoU (Intersection over Union) measures the extent of overlap between
// two bounding boxes.
//
//	IoU = Area of Intersection / Area of Union
//
//   - A value of 1.0 means the boxes cover exactly the same pixels.
//   - A value of 0.0 means the boxes don't overlap at all.
//
// **1. Intersection**
//
//	The intersection box starts at the *maximum* of the two top-left corners and
//	ends at the *minimum* of the two bottom-right corners. If the boxes do not
//	overlap, one of its extents is negative and BoxArea clamps the area to zero.
//
// **2. Union**
//
//	Area(Union) = Area(A) + Area(B) - Area(Intersection)
//
// **3. Divide**
//
//	The division is done in float64. When the union is zero (both boxes are
//	inverted) the IoU is defined as 0.0.
//
// Arguments:
//   - a, b: The two boxes to compare. Class and confidence are ignored.
//
// Returns:
//   - Overlap: The IoU together with the raw intersection and union areas.
func ComputeIoU(a, b BoundingBox) Overlap {
	inter := BoxArea(
		max(a.XMin, b.XMin),
		max(a.YMin, b.YMin),
		min(a.XMax, b.XMax),
		min(a.YMax, b.YMax),
	)
	union := a.Area() + b.Area() - inter

	return Overlap{
		IoU:          Ratio(inter, union),
		Intersection: inter,
		Union:        union,
	}
}

// Ratio divides two pixel areas as floats, returning 0 when the denominator is
// not positive.
func Ratio(inter, union int) float64 {
	if union <= 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}
