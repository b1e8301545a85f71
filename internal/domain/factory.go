package domain

import (
	"math"

	"whiteboard/api/internal/ids"
)

// Frame is the position and bounding size of a new shape.
type Frame struct {
	X float64
	Y float64
	W float64
	H float64
}

// DefaultFrame is used when a constructor is given a zero Frame.
var DefaultFrame = Frame{W: 100, H: 100}

const (
	DefaultFontFamily  = "Inter"
	DefaultFontSize    = 18
	DefaultStickyColor = "#fff59d"
	ArrowMarker        = "arrow"
)

func newShape(layerID ids.LayerID, frame Frame, props ShapeProps) Shape {
	if frame == (Frame{}) {
		frame = DefaultFrame
	}
	return Shape{
		ID:      ids.New[ids.ShapeID](),
		LayerID: layerID,
		X:       frame.X,
		Y:       frame.Y,
		W:       frame.W,
		H:       frame.H,
		Meta:    map[string]any{},
		Props:   props,
	}
}

func NewRect(layerID ids.LayerID, frame Frame) Shape {
	return newShape(layerID, frame, RectProps{})
}

func NewEllipse(layerID ids.LayerID, frame Frame) Shape {
	return newShape(layerID, frame, EllipseProps{})
}

// NewLine builds a line from (x1,y1) to (x2,y2); its frame is the bounding
// box of the two points.
func NewLine(layerID ids.LayerID, x1, y1, x2, y2 float64) Shape {
	return newShape(layerID, segmentFrame(x1, y1, x2, y2), LineProps{Segment{Points: [4]float64{x1, y1, x2, y2}}})
}

func NewArrow(layerID ids.LayerID, x1, y1, x2, y2 float64) Shape {
	marker := ArrowMarker
	return newShape(layerID, segmentFrame(x1, y1, x2, y2), ArrowProps{Segment{
		Points:    [4]float64{x1, y1, x2, y2},
		MarkerEnd: &marker,
	}})
}

func segmentFrame(x1, y1, x2, y2 float64) Frame {
	return Frame{
		X: math.Min(x1, x2),
		Y: math.Min(y1, y2),
		W: math.Abs(x2 - x1),
		H: math.Abs(y2 - y1),
	}
}

func NewPath(layerID ids.LayerID, frame Frame, d string, closed bool) Shape {
	if d == "" {
		d = "M0 0 L100 0"
	}
	return newShape(layerID, frame, PathProps{D: d, Closed: closed})
}

func NewText(layerID ids.LayerID, frame Frame, text string) Shape {
	shape := newShape(layerID, frame, TextProps{Text: text})
	shape.Style.Font = &FontStyle{Family: DefaultFontFamily, Size: DefaultFontSize}
	return shape
}

func NewImage(layerID ids.LayerID, frame Frame, src string, naturalW, naturalH float64) Shape {
	if frame == (Frame{}) && naturalW > 0 && naturalH > 0 {
		frame = Frame{W: naturalW, H: naturalH}
	}
	return newShape(layerID, frame, ImageProps{Src: src, NaturalW: naturalW, NaturalH: naturalH})
}

func NewGroup(layerID ids.LayerID, frame Frame, children ...ids.ShapeID) Shape {
	return newShape(layerID, frame, GroupProps{Children: append([]ids.ShapeID{}, children...)})
}

func NewSticky(layerID ids.LayerID, frame Frame, text string) Shape {
	shape := newShape(layerID, frame, StickyProps{Text: text, Color: DefaultStickyColor})
	shape.Style.Font = &FontStyle{Family: DefaultFontFamily, Size: DefaultFontSize}
	return shape
}

// Text returns the human-readable text carried by a shape, if any.
func Text(s Shape) string {
	var collector textCollector
	s.Accept(&collector)
	return collector.text
}

type textCollector struct {
	text string
}

func (c *textCollector) VisitRect(Shape, RectProps)       {}
func (c *textCollector) VisitEllipse(Shape, EllipseProps) {}
func (c *textCollector) VisitLine(Shape, LineProps)       {}
func (c *textCollector) VisitArrow(Shape, ArrowProps)     {}
func (c *textCollector) VisitPath(Shape, PathProps)       {}
func (c *textCollector) VisitText(_ Shape, p TextProps)   { c.text = p.Text }
func (c *textCollector) VisitImage(Shape, ImageProps)     {}
func (c *textCollector) VisitGroup(Shape, GroupProps)     {}
func (c *textCollector) VisitSticky(_ Shape, p StickyProps) {
	c.text = p.Text
}
