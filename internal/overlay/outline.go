package overlay

import (
	"image"
	"image/color"
	"image/draw"
)

// DefaultColor is the outline colour used for highlighted elements
var DefaultColor = color.RGBA{66, 133, 244, 255}

// Thickness is the outline width in pixels
const Thickness = 3

// Outline returns a copy of frame with a rectangle drawn around rect. The
// rectangle is in frame coordinates and is clipped to the frame.
func Outline(frame image.Image, rect image.Rectangle, c color.RGBA) *image.RGBA {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	rect = rect.Canon()
	if rect.Empty() || !rect.Overlaps(bounds) {
		return result
	}

	for i := 0; i < Thickness; i++ {
		x1, y1 := rect.Min.X-i, rect.Min.Y-i
		x2, y2 := rect.Max.X-1+i, rect.Max.Y-1+i
		drawLine(result, x1, y1, x2, y1, c)
		drawLine(result, x2, y1, x2, y2, c)
		drawLine(result, x2, y2, x1, y2, c)
		drawLine(result, x1, y2, x1, y1, c)
	}
	return result
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
