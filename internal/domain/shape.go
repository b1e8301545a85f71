package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"whiteboard/api/internal/ids"
)

type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
	KindLine    Kind = "line"
	KindArrow   Kind = "arrow"
	KindPath    Kind = "path"
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindGroup   Kind = "group"
	KindSticky  Kind = "sticky"
)

var ErrInvalidShape = errors.New("invalid shape")

type FontStyle struct {
	Family     string   `json:"family"`
	Size       float64  `json:"size"`
	Weight     *int     `json:"weight,omitempty"`
	Italic     bool     `json:"italic,omitempty"`
	Align      string   `json:"align,omitempty"`
	LineHeight *float64 `json:"lineHeight,omitempty"`
}

type Shadow struct {
	Blur    float64 `json:"blur"`
	Color   string  `json:"color"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type Style struct {
	Fill        *string    `json:"fill,omitempty"`
	Stroke      *string    `json:"stroke,omitempty"`
	StrokeWidth *float64   `json:"strokeWidth,omitempty"`
	Opacity     *float64   `json:"opacity,omitempty"`
	Dash        []float64  `json:"dash,omitempty"`
	Shadow      *Shadow    `json:"shadow,omitempty"`
	Font        *FontStyle `json:"font,omitempty"`
}

// Shape is a drawable object. The fields shared by every kind live on Shape;
// kind-specific fields live in Props, which is one of the *Props types below.
// On the wire both are flattened into one object keyed by "kind".
type Shape struct {
	ID       ids.ShapeID
	LayerID  ids.LayerID
	X        float64
	Y        float64
	W        float64
	H        float64
	Rotation float64
	Style    Style
	Meta     map[string]any
	Props    ShapeProps
}

// ShapeProps is the closed set of kind-specific payloads.
type ShapeProps interface {
	Kind() Kind
	accept(v ShapeVisitor, s Shape)
}

// ShapeVisitor must handle every kind; adding a kind adds a method here and
// breaks every visitor until it is handled.
type ShapeVisitor interface {
	VisitRect(Shape, RectProps)
	VisitEllipse(Shape, EllipseProps)
	VisitLine(Shape, LineProps)
	VisitArrow(Shape, ArrowProps)
	VisitPath(Shape, PathProps)
	VisitText(Shape, TextProps)
	VisitImage(Shape, ImageProps)
	VisitGroup(Shape, GroupProps)
	VisitSticky(Shape, StickyProps)
}

type RectProps struct {
	RX *float64 `json:"rx,omitempty"`
	RY *float64 `json:"ry,omitempty"`
}

type EllipseProps struct{}

// Segment holds the geometry shared by lines and arrows: x1,y1,x2,y2.
type Segment struct {
	Points    [4]float64 `json:"points"`
	MarkerEnd *string    `json:"markerEnd,omitempty"`
}

type LineProps struct{ Segment }

type ArrowProps struct{ Segment }

type PathProps struct {
	D      string `json:"d"`
	Closed bool   `json:"closed,omitempty"`
}

type TextProps struct {
	Text       string   `json:"text"`
	AutoResize bool     `json:"autoResize,omitempty"`
	MaxWidth   *float64 `json:"maxWidth,omitempty"`
}

type ImageProps struct {
	Src      string  `json:"src"`
	NaturalW float64 `json:"naturalW"`
	NaturalH float64 `json:"naturalH"`
}

type GroupProps struct {
	Children []ids.ShapeID `json:"children"`
}

type StickyProps struct {
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}

func (RectProps) Kind() Kind    { return KindRect }
func (EllipseProps) Kind() Kind { return KindEllipse }
func (LineProps) Kind() Kind    { return KindLine }
func (ArrowProps) Kind() Kind   { return KindArrow }
func (PathProps) Kind() Kind    { return KindPath }
func (TextProps) Kind() Kind    { return KindText }
func (ImageProps) Kind() Kind   { return KindImage }
func (GroupProps) Kind() Kind   { return KindGroup }
func (StickyProps) Kind() Kind  { return KindSticky }

func (p RectProps) accept(v ShapeVisitor, s Shape)    { v.VisitRect(s, p) }
func (p EllipseProps) accept(v ShapeVisitor, s Shape) { v.VisitEllipse(s, p) }
func (p LineProps) accept(v ShapeVisitor, s Shape)    { v.VisitLine(s, p) }
func (p ArrowProps) accept(v ShapeVisitor, s Shape)   { v.VisitArrow(s, p) }
func (p PathProps) accept(v ShapeVisitor, s Shape)    { v.VisitPath(s, p) }
func (p TextProps) accept(v ShapeVisitor, s Shape)    { v.VisitText(s, p) }
func (p ImageProps) accept(v ShapeVisitor, s Shape)   { v.VisitImage(s, p) }
func (p GroupProps) accept(v ShapeVisitor, s Shape)   { v.VisitGroup(s, p) }
func (p StickyProps) accept(v ShapeVisitor, s Shape)  { v.VisitSticky(s, p) }

func (s Shape) Kind() Kind {
	if s.Props == nil {
		return ""
	}
	return s.Props.Kind()
}

// Accept dispatches s to the visitor method for its kind.
func (s Shape) Accept(v ShapeVisitor) {
	if s.Props != nil {
		s.Props.accept(v, s)
	}
}

type shapeHeader struct {
	ID       ids.ShapeID    `json:"id"`
	LayerID  ids.LayerID    `json:"layerId"`
	Kind     Kind           `json:"kind"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	W        float64        `json:"w"`
	H        float64        `json:"h"`
	Rotation float64        `json:"rotation"`
	Style    Style          `json:"style"`
	Meta     map[string]any `json:"meta"`
}

func (s Shape) MarshalJSON() ([]byte, error) {
	if s.Props == nil {
		return nil, fmt.Errorf("%w: shape %s has no kind", ErrInvalidShape, s.ID)
	}
	header, err := json.Marshal(shapeHeader{
		ID:       s.ID,
		LayerID:  s.LayerID,
		Kind:     s.Props.Kind(),
		X:        s.X,
		Y:        s.Y,
		W:        s.W,
		H:        s.H,
		Rotation: s.Rotation,
		Style:    s.Style,
		Meta:     s.Meta,
	})
	if err != nil {
		return nil, err
	}
	props, err := json.Marshal(s.Props)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(props, &extra); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, taken := fields[key]; !taken {
			fields[key] = value
		}
	}
	return json.Marshal(fields)
}

func (s *Shape) UnmarshalJSON(data []byte) error {
	var header shapeHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	props, err := decodeProps(header.Kind, data)
	if err != nil {
		return err
	}
	*s = Shape{
		ID:       header.ID,
		LayerID:  header.LayerID,
		X:        header.X,
		Y:        header.Y,
		W:        header.W,
		H:        header.H,
		Rotation: header.Rotation,
		Style:    header.Style,
		Meta:     header.Meta,
		Props:    props,
	}
	return nil
}

func decodeProps(kind Kind, data []byte) (ShapeProps, error) {
	var (
		props ShapeProps
		err   error
	)
	switch kind {
	case KindRect:
		var p RectProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindEllipse:
		props = EllipseProps{}
	case KindLine:
		var p LineProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindArrow:
		var p ArrowProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindPath:
		var p PathProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindText:
		var p TextProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindImage:
		var p ImageProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindGroup:
		var p GroupProps
		err = json.Unmarshal(data, &p)
		props = p
	case KindSticky:
		var p StickyProps
		err = json.Unmarshal(data, &p)
		props = p
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidShape, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s props: %v", ErrInvalidShape, kind, err)
	}
	return props, nil
}

// Merge shallow-merges fields into the wire form of s and decodes the result.
// The id and kind of a shape cannot be changed.
func (s Shape) Merge(fields map[string]any) (Shape, error) {
	encoded, err := json.Marshal(s)
	if err != nil {
		return Shape{}, err
	}
	var current map[string]any
	if err := json.Unmarshal(encoded, &current); err != nil {
		return Shape{}, err
	}
	for key, value := range fields {
		switch key {
		case "id":
			if fmt.Sprint(value) != string(s.ID) {
				return Shape{}, fmt.Errorf("%w: id is immutable", ErrInvalidShape)
			}
		case "kind":
			if fmt.Sprint(value) != string(s.Kind()) {
				return Shape{}, fmt.Errorf("%w: kind is immutable", ErrInvalidShape)
			}
		}
		current[key] = value
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return Shape{}, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	var next Shape
	if err := json.Unmarshal(merged, &next); err != nil {
		return Shape{}, err
	}
	return next, nil
}
