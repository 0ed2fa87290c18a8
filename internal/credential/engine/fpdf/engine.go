// Package fpdf implements the credential engine on github.com/go-pdf/fpdf.
package fpdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"volid/internal/credential"
)

// fixedDate stamps every document so identical inputs give identical bytes.
var fixedDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const DefaultConcurrency = 4

const (
	// lineSpacing is the line pitch as a multiple of the font size.
	lineSpacing = 1.15
	fitStep     = 0.5
	smallestFit = 1.0
)

var errClosed = errors.New("document is closed")

// Engine bounds the number of open documents with a weighted semaphore.
type Engine struct {
	slots *semaphore.Weighted
	inUse prometheus.Gauge
}

type Option func(*Engine)

// WithInUseGauge tracks checked-out handles.
func WithInUseGauge(g prometheus.Gauge) Option {
	return func(e *Engine) {
		e.inUse = g
	}
}

func New(concurrency int, opts ...Option) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	e := &Engine{slots: semaphore.NewWeighted(int64(concurrency))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open waits for a free slot and returns a fresh single-page document in
// millimetres, landscape when width exceeds height.
func (e *Engine) Open(ctx context.Context, width, height float64) (credential.Document, error) {
	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if e.inUse != nil {
		e.inUse.Inc()
	}

	orientation := "P"
	if width > height {
		orientation = "L"
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetCreationDate(fixedDate)
	pdf.SetModificationDate(fixedDate)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	return &document{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		unicode:   make(map[string]bool),
		release:   e.release,
	}, nil
}

func (e *Engine) release() {
	if e.inUse != nil {
		e.inUse.Dec()
	}
	e.slots.Release(1)
}

type document struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
	unicode   map[string]bool
	release   func()
	closeOnce sync.Once
	closed    bool
}

func fontKey(f credential.Font) string {
	return strings.ToLower(f.Family) + "|" + strings.ToUpper(f.Style)
}

// encode leaves text alone for embedded TrueType faces and maps it to cp1252 for
// core fonts.
func (d *document) encode(font credential.Font, text string) string {
	if d.unicode[fontKey(font)] {
		return text
	}
	return d.translate(text)
}

func (d *document) AddFont(font credential.Font, ttf []byte) error {
	if d.closed {
		return errClosed
	}
	d.pdf.AddUTF8FontFromBytes(font.Family, font.Style, ttf)
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("add font %s: %w", font.Family, err)
	}
	d.unicode[fontKey(font)] = true
	return nil
}

func (d *document) DrawImage(img credential.Image, box credential.Box) error {
	if d.closed {
		return errClosed
	}
	opts := fpdf.ImageOptions{ImageType: string(img.Format)}
	d.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	d.pdf.ImageOptions(img.Name, box.X, box.Y, box.W, box.H, false, opts, 0, "")
	return d.pdf.Error()
}

func (d *document) DrawText(text string, box credential.Box, font credential.Font, color credential.Color) error {
	if d.closed {
		return errClosed
	}
	d.pdf.SetFont(font.Family, font.Style, font.Size)
	d.pdf.SetTextColor(color.R, color.G, color.B)
	d.pdf.SetXY(box.X, box.Y)
	d.pdf.CellFormat(box.W, box.H, d.encode(font, text), "", 0, "LM", false, 0, "")
	return d.pdf.Error()
}

func (d *document) DrawFittedText(text string, box credential.Box, font credential.Font, color credential.Color) (credential.Fit, error) {
	if d.closed {
		return credential.Fit{}, errClosed
	}
	d.pdf.SetFont(font.Family, font.Style, font.Size)
	if err := d.pdf.Error(); err != nil {
		return credential.Fit{}, err
	}

	margin := d.pdf.GetCellMargin()
	avail := box.W - 2*margin
	size := font.Size
	var (
		lines  []string
		widest float64
		lineH  float64
	)
	for {
		d.pdf.SetFontSize(size)
		lineH = d.pdf.PointConvert(size) * lineSpacing
		lines, widest = d.wrap(text, font, avail)
		if (widest <= avail && float64(len(lines))*lineH <= box.H) || size <= smallestFit {
			break
		}
		size = max(size-fitStep, smallestFit)
	}

	d.pdf.SetTextColor(color.R, color.G, color.B)
	top := box.Y + (box.H-float64(len(lines))*lineH)/2
	for i, line := range lines {
		d.pdf.SetXY(box.X, top+float64(i)*lineH)
		d.pdf.CellFormat(box.W, lineH, d.encode(font, line), "", 0, "LM", false, 0, "")
	}
	fit := credential.Fit{
		Size:   size,
		Lines:  lines,
		Width:  widest + 2*margin,
		Height: float64(len(lines)) * lineH,
	}
	return fit, d.pdf.Error()
}

// wrap breaks text greedily at spaces for the current font size. A word wider
// than avail is split between runes. It returns the lines and the widest one.
func (d *document) wrap(text string, font credential.Font, avail float64) ([]string, float64) {
	width := func(s string) float64 {
		return d.pdf.GetStringWidth(d.encode(font, s))
	}
	var (
		lines  []string
		widest float64
		line   string
	)
	flush := func() {
		if line == "" {
			return
		}
		lines = append(lines, line)
		widest = max(widest, width(line))
		line = ""
	}
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if width(candidate) <= avail {
			line = candidate
			continue
		}
		flush()
		for width(word) > avail {
			head, rest := splitToWidth(word, avail, width)
			line = head
			flush()
			if rest == "" {
				break
			}
			word = rest
		}
		line = word
	}
	flush()
	return lines, widest
}

// splitToWidth returns the longest rune prefix of word that fits avail, and the
// remainder. The prefix always holds at least one rune.
func splitToWidth(word string, avail float64, width func(string) float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && width(string(runes[:n+1])) <= avail {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

func (d *document) DrawPlaceholder(box credential.Box, label string) error {
	if d.closed {
		return errClosed
	}
	d.pdf.SetFillColor(220, 224, 230)
	d.pdf.SetDrawColor(160, 166, 176)
	d.pdf.Rect(box.X, box.Y, box.W, box.H, "FD")
	d.pdf.SetFont("Helvetica", "B", 7)
	d.pdf.SetTextColor(110, 116, 126)
	d.pdf.SetXY(box.X, box.Y)
	d.pdf.CellFormat(box.W, box.H, d.translate(label), "", 0, "CM", false, 0, "")
	return d.pdf.Error()
}

func (d *document) Bytes() ([]byte, error) {
	if d.closed {
		return nil, errClosed
	}
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Close returns the slot. It is safe to call more than once.
func (d *document) Close() error {
	d.closeOnce.Do(func() {
		d.closed = true
		d.release()
	})
	return nil
}
