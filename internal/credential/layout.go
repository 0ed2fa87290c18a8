package credential

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed assets/layout.yaml assets/background.png assets/fonts/DejaVuSansCondensed-Bold.ttf
var embedded embed.FS

const defaultLayoutName = "layout.yaml"

// Box is a rectangle on the card in layout units.
type Box struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Font selects a typeface. With File set the family is embedded from that
// TrueType file (relative to the layout) and can draw any Unicode text; without
// it Family names a PDF core font limited to cp1252.
type Font struct {
	Family string  `yaml:"family"`
	Style  string  `yaml:"style"`
	Size   float64 `yaml:"size"`
	File   string  `yaml:"file"`
}

type Color struct {
	R int `yaml:"r"`
	G int `yaml:"g"`
	B int `yaml:"b"`
}

type TextField struct {
	Text  string `yaml:"text"`
	Box   Box    `yaml:"box"`
	Font  Font   `yaml:"font"`
	Color Color  `yaml:"color"`
}

// NameField sizes the holder's name by its length. The engine then wraps and
// shrinks further until the name fits Box.
type NameField struct {
	Box          Box     `yaml:"box"`
	Font         Font    `yaml:"font"`
	Color        Color   `yaml:"color"`
	BaselineSize float64 `yaml:"baseline_size"`
	Threshold    int     `yaml:"threshold"`
	MinSize      float64 `yaml:"min_size"`
}

// FontSize shrinks the baseline by one point per character over the threshold,
// never below MinSize.
func (n NameField) FontSize(name string) float64 {
	excess := utf8.RuneCountInString(name) - n.Threshold
	size := n.BaselineSize - float64(max(0, excess))
	return max(size, n.MinSize)
}

type PhotoField struct {
	Box             Box    `yaml:"box"`
	PlaceholderText string `yaml:"placeholder_text"`
}

type QRField struct {
	Box    Box `yaml:"box"`
	Pixels int `yaml:"pixels"`
}

// Layout is the card template.
type Layout struct {
	Page struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"page"`
	Background  string     `yaml:"background"`
	Title       TextField  `yaml:"title"`
	Photo       PhotoField `yaml:"photo"`
	Name        NameField  `yaml:"name"`
	VolunteerID TextField  `yaml:"volunteer_id"`
	Caption     TextField  `yaml:"caption"`
	QR          QRField    `yaml:"qr"`
}

func (l *Layout) validate() error {
	switch {
	case l.Page.Width <= 0 || l.Page.Height <= 0:
		return fmt.Errorf("page size must be positive")
	case l.Background == "":
		return fmt.Errorf("background is required")
	case l.Name.BaselineSize <= 0 || l.Name.MinSize <= 0 || l.Name.MinSize > l.Name.BaselineSize:
		return fmt.Errorf("name sizes must satisfy 0 < min_size <= baseline_size")
	case l.QR.Box.W <= 0 || l.QR.Box.H <= 0:
		return fmt.Errorf("qr box must be positive")
	case l.QR.Pixels <= 0:
		return fmt.Errorf("qr pixels must be positive")
	}
	return nil
}

// FontFile is an embedded typeface the engine registers before drawing.
type FontFile struct {
	Font Font
	Data []byte
}

// Assets is a loaded template: the layout, the background image bytes and the
// TrueType fonts it references, in layout order.
type Assets struct {
	Layout     *Layout
	Background []byte
	Fonts      []FontFile
}

func (l *Layout) fonts() []Font {
	return []Font{l.Title.Font, l.Name.Font, l.VolunteerID.Font, l.Caption.Font}
}

// AssetSource locates the template. The background path inside the layout is
// resolved relative to the layout file.
type AssetSource struct {
	fsys fs.FS
	name string
}

// EmbeddedAssets is the template compiled into the binary.
func EmbeddedAssets() AssetSource {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return AssetSource{fsys: sub, name: defaultLayoutName}
}

// DirAssets reads the layout file at path and its background from the same directory.
func DirAssets(path string) AssetSource {
	return AssetSource{fsys: os.DirFS(filepath.Dir(path)), name: filepath.Base(path)}
}

// FSAssets reads the named layout from fsys.
func FSAssets(fsys fs.FS, name string) AssetSource {
	return AssetSource{fsys: fsys, name: name}
}

// Load reads and validates the layout and its background.
func (s AssetSource) Load() (*Assets, error) {
	raw, err := fs.ReadFile(s.fsys, s.name)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", s.name, err)
	}
	var layout Layout
	if err := yaml.Unmarshal(raw, &layout); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", s.name, err)
	}
	if err := layout.validate(); err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", s.name, err)
	}
	background, err := fs.ReadFile(s.fsys, s.resolve(layout.Background))
	if err != nil {
		return nil, fmt.Errorf("read background %s: %w", layout.Background, err)
	}

	var fonts []FontFile
	seen := make(map[string]bool)
	for _, f := range layout.fonts() {
		key := strings.ToLower(f.Family) + "|" + strings.ToUpper(f.Style)
		if f.File == "" || seen[key] {
			continue
		}
		seen[key] = true
		data, err := fs.ReadFile(s.fsys, s.resolve(f.File))
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", f.File, err)
		}
		fonts = append(fonts, FontFile{Font: f, Data: data})
	}
	return &Assets{Layout: &layout, Background: background, Fonts: fonts}, nil
}

func (s AssetSource) resolve(rel string) string {
	return filepath.ToSlash(filepath.Join(filepath.Dir(s.name), rel))
}
