package credential

import "context"

// ImageFormat names an encoded raster the engine can embed.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "PNG"
	FormatJPEG ImageFormat = "JPEG"
)

type Image struct {
	Name   string
	Format ImageFormat
	Data   []byte
}

// Engine hands out document handles. A handle is owned by one render call and
// must be closed on every path; Open blocks until a handle is free or ctx ends.
type Engine interface {
	Open(ctx context.Context, width, height float64) (Document, error)
}

// Fit is how fitted text was laid out, in layout units. Width includes the cell
// padding on both sides.
type Fit struct {
	Size   float64
	Lines  []string
	Width  float64
	Height float64
}

// Document is a single-page drawing surface.
type Document interface {
	// AddFont registers a TrueType face under font.Family and font.Style.
	AddFont(font Font, ttf []byte) error
	DrawImage(img Image, box Box) error
	DrawText(text string, box Box, font Font, color Color) error
	// DrawFittedText draws text inside box starting at font.Size, wrapping at
	// word boundaries and stepping the size down until it fits. Nothing is
	// clipped or dropped.
	DrawFittedText(text string, box Box, font Font, color Color) (Fit, error)
	DrawPlaceholder(box Box, label string) error
	Bytes() ([]byte, error)
	Close() error
}
