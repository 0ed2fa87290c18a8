package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	"volid/pkg/requestcontext"
)

var tracer = otel.Tracer("volid/internal/credential")

const DefaultRenderTimeout = 60 * time.Second

// Renderer produces ID card PDFs for active volunteers.
type Renderer struct {
	engine  Engine
	assets  AssetSource
	photos  PhotoFetcher
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Renderer)

func WithAssets(src AssetSource) Option {
	return func(r *Renderer) {
		r.assets = src
	}
}

func WithPhotoFetcher(f PhotoFetcher) Option {
	return func(r *Renderer) {
		r.photos = f
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// NewRenderer builds a renderer whose QR codes point at baseURL/verify/<id>.
func NewRenderer(engine Engine, baseURL string, opts ...Option) *Renderer {
	r := &Renderer{
		engine:  engine,
		assets:  EmbeddedAssets(),
		photos:  NewHTTPPhotoFetcher(nil),
		baseURL: baseURL,
		timeout: DefaultRenderTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckEligible reports whether a credential may be issued for v.
func CheckEligible(v *models.Volunteer) error {
	if v == nil || v.Status != models.StatusActive || v.VolunteerID.IsZero() {
		return dErrors.New(dErrors.CodeIneligibleRecord, "credentials are issued only for active volunteers")
	}
	return nil
}

type renderResult struct {
	pdf []byte
	err error
}

// Render returns the card PDF for v. Ineligible records fail before any engine
// handle is requested. Asset loading and drawing share one deadline; on expiry
// the call returns and the worker releases its handle when it finishes.
func (r *Renderer) Render(ctx context.Context, v *models.Volunteer) ([]byte, error) {
	if err := CheckEligible(v); err != nil {
		r.observe("ineligible", time.Time{})
		return nil, err
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "credential.render",
		trace.WithAttributes(attribute.String("volunteer.id", string(v.VolunteerID))),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan renderResult, 1)
	snapshot := v.Clone()
	go func() {
		pdf, err := r.render(ctx, snapshot)
		done <- renderResult{pdf: pdf, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, "render failed")
			r.observe("error", start)
			return nil, res.err
		}
		r.observe("ok", start)
		return res.pdf, nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "render timed out")
		r.observe("timeout", start)
		r.logger.ErrorContext(ctx, "credential render timed out",
			"request_id", requestcontext.RequestID(ctx),
			"volunteer_id", v.VolunteerID,
			"timeout", r.timeout,
		)
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeRenderFailed, "credential rendering timed out")
	}
}

func (r *Renderer) render(ctx context.Context, v *models.Volunteer) ([]byte, error) {
	assets, err := r.assets.Load()
	if err != nil {
		return nil, r.fail(ctx, v, "failed to load card template", err)
	}
	layout := assets.Layout

	qr, err := QRCode(VerificationURL(r.baseURL, string(v.VolunteerID)), layout.QR.Pixels)
	if err != nil {
		return nil, r.fail(ctx, v, "failed to encode verification code", err)
	}
	photo, hasPhoto := r.fetchPhoto(ctx, v)

	doc, err := r.engine.Open(ctx, layout.Page.Width, layout.Page.Height)
	if err != nil {
		return nil, r.fail(ctx, v, "failed to acquire render engine", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			r.logger.WarnContext(ctx, "failed to release render engine",
				"request_id", requestcontext.RequestID(ctx),
				"error", cerr,
			)
		}
	}()

	for _, f := range assets.Fonts {
		if err := doc.AddFont(f.Font, f.Data); err != nil {
			return nil, r.fail(ctx, v, "failed to load card font", err)
		}
	}

	page := Box{W: layout.Page.Width, H: layout.Page.Height}
	steps := []func() error{
		func() error {
			return doc.DrawImage(Image{Name: "background", Format: FormatPNG, Data: assets.Background}, page)
		},
		func() error {
			return doc.DrawText(layout.Title.Text, layout.Title.Box, layout.Title.Font, layout.Title.Color)
		},
		func() error {
			if hasPhoto {
				return doc.DrawImage(photo, layout.Photo.Box)
			}
			return doc.DrawPlaceholder(layout.Photo.Box, layout.Photo.PlaceholderText)
		},
		func() error {
			font := layout.Name.Font
			font.Size = layout.Name.FontSize(v.FullName)
			fit, err := doc.DrawFittedText(v.FullName, layout.Name.Box, font, layout.Name.Color)
			if err != nil {
				return err
			}
			if len(fit.Lines) > 1 || fit.Size < font.Size {
				r.logger.DebugContext(ctx, "name fitted to card",
					"request_id", requestcontext.RequestID(ctx),
					"volunteer_id", v.VolunteerID,
					"lines", len(fit.Lines),
					"size", fit.Size,
				)
			}
			return nil
		},
		func() error {
			return doc.DrawText(string(v.VolunteerID), layout.VolunteerID.Box, layout.VolunteerID.Font, layout.VolunteerID.Color)
		},
		func() error {
			return doc.DrawText(layout.Caption.Text, layout.Caption.Box, layout.Caption.Font, layout.Caption.Color)
		},
		func() error {
			return doc.DrawImage(qr, layout.QR.Box)
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRenderFailed, "credential rendering timed out")
		}
		if err := step(); err != nil {
			return nil, r.fail(ctx, v, "failed to draw credential", err)
		}
	}

	pdf, err := doc.Bytes()
	if err != nil {
		return nil, r.fail(ctx, v, "failed to encode credential", err)
	}
	return pdf, nil
}

func (r *Renderer) fetchPhoto(ctx context.Context, v *models.Volunteer) (Image, bool) {
	if !models.IsRemoteReference(v.ProfileImage) {
		return Image{}, false
	}
	img, err := r.photos.Fetch(ctx, v.ProfileImage)
	if err != nil {
		r.logger.WarnContext(ctx, "profile photo unavailable, using placeholder",
			"request_id", requestcontext.RequestID(ctx),
			"volunteer_id", v.VolunteerID,
			"error", err,
		)
		return Image{}, false
	}
	return img, true
}

func (r *Renderer) fail(ctx context.Context, v *models.Volunteer, msg string, cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) {
		return dErrors.Wrap(cause, dErrors.CodeRenderFailed, "credential rendering timed out")
	}
	r.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"volunteer_id", v.VolunteerID,
		"error", cause,
	)
	return dErrors.Wrap(fmt.Errorf("%s: %w", msg, cause), dErrors.CodeRenderFailed, "failed to render credential")
}

func (r *Renderer) observe(result string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.IncrementRender(result)
	if !start.IsZero() {
		r.metrics.ObserveRenderDuration(start)
	}
}
