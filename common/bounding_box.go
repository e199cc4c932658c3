// Package common - Bounding box geometry shared by the evaluator and the dataset converter.
package common

import (
	"fmt"
	"image"
)

// BoundingBox represents an annotated or predicted box with its class name,
// confidence, and inclusive pixel coordinates.
//
// Confidence is only meaningful for predictions; ground-truth boxes leave it at zero.
type BoundingBox struct {
	ClassName              string
	Confidence             float64
	XMin, YMin, XMax, YMax int
}

// String formats the bounding box information for display.
//
// Returns:
// - A formatted string containing class name, confidence, and coordinates.
//
// @example
// box := BoundingBox{ClassName: "plate", Confidence: 0.95, XMin: 10, YMin: 20, XMax: 50, YMax: 40}
// fmt.Println(box.String()) // Output: Object plate (confidence 0.950000): (10, 20), (50, 40)
func (b BoundingBox) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%d, %d), (%d, %d)",
		b.ClassName, b.Confidence, b.XMin, b.YMin, b.XMax, b.YMax)
}

// ToRect converts the inclusive bounding box to an exclusive image.Rectangle.
//
// Inverted boxes convert to an empty rectangle rather than being canonicalized,
// so the area of the result always agrees with Area.
//
// Returns:
// - An image.Rectangle covering the same pixels as the box.
//
// @example
// box := BoundingBox{XMin: 0, YMin: 0, XMax: 9, YMax: 9}
// rect := box.ToRect() // (0,0)-(10,10)
func (b BoundingBox) ToRect() image.Rectangle {
	if b.XMax < b.XMin || b.YMax < b.YMin {
		return image.Rectangle{}
	}
	return image.Rect(b.XMin, b.YMin, b.XMax+1, b.YMax+1)
}

// Area returns the number of pixels covered by the box.
//
// See BoxArea.
func (b BoundingBox) Area() int {
	return BoxArea(b.XMin, b.YMin, b.XMax, b.YMax)
}

// IoU calculates the Intersection over Union between two bounding boxes.
//
// Arguments:
// - other: The other bounding box to calculate IoU with.
//
// Returns:
// - The overlap statistics of the pair.
//
// @example
// a := BoundingBox{XMin: 0, YMin: 0, XMax: 9, YMax: 9}
// b := BoundingBox{XMin: 5, YMin: 5, XMax: 14, YMax: 14}
// o := a.IoU(b) // o.Intersection == 25, o.Union == 175, o.IoU ~= 0.142857
func (b BoundingBox) IoU(other BoundingBox) Overlap {
	return ComputeIoU(b, other)
}
