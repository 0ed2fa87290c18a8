package credential_test

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks Engine,Document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"volid/internal/credential"
	"volid/internal/credential/mocks"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
)

type stubPhotos struct {
	img   credential.Image
	err   error
	calls int
}

func (s *stubPhotos) Fetch(_ context.Context, _ string) (credential.Image, error) {
	s.calls++
	return s.img, s.err
}

type RendererSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	engine *mocks.MockEngine
	doc    *mocks.MockDocument
	photos *stubPhotos
	logger *slog.Logger
}

func TestRendererSuite(t *testing.T) {
	suite.Run(t, new(RendererSuite))
}

func (s *RendererSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.engine = mocks.NewMockEngine(s.ctrl)
	s.doc = mocks.NewMockDocument(s.ctrl)
	s.photos = &stubPhotos{img: credential.Image{Name: "photo", Format: credential.FormatJPEG, Data: []byte{0xff, 0xd8}}}
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *RendererSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RendererSuite) renderer(opts ...credential.Option) *credential.Renderer {
	base := []credential.Option{
		credential.WithPhotoFetcher(s.photos),
		credential.WithLogger(s.logger),
	}
	return credential.NewRenderer(s.engine, "https://volunteers.example.org/", append(base, opts...)...)
}

func activeVolunteer() *models.Volunteer {
	return &models.Volunteer{
		ID:           uuid.New(),
		ApplicantID:  "applicant-1",
		VolunteerID:  "VOL0503264821",
		FullName:     "Amara Okafor",
		ProfileImage: "https://files.example.org/photos/amara.jpg",
		Status:       models.StatusActive,
		JoiningDate:  time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
}

func (s *RendererSuite) TestIneligibleRecordsNeverOpenTheEngine() {
	pending := activeVolunteer()
	pending.Status = models.StatusPending
	pending.VolunteerID = ""

	noID := activeVolunteer()
	noID.VolunteerID = ""

	banned := activeVolunteer()
	banned.Status = models.StatusBanned

	temporary := activeVolunteer()
	temporary.Status = models.StatusTemporary

	r := s.renderer()
	for _, v := range []*models.Volunteer{pending, noID, banned, temporary, nil} {
		start := time.Now()
		_, err := r.Render(context.Background(), v)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIneligibleRecord))
		s.Less(time.Since(start), 100*time.Millisecond)
	}
	s.Zero(s.photos.calls)
}

func (s *RendererSuite) TestRendersLayoutAndReleasesHandle() {
	assets, err := credential.EmbeddedAssets().Load()
	s.Require().NoError(err)
	layout := assets.Layout
	wantQR, err := credential.QRCode("https://volunteers.example.org/verify/VOL0503264821", layout.QR.Pixels)
	s.Require().NoError(err)

	s.Require().Len(assets.Fonts, 1)
	nameFont := assets.Fonts[0]
	s.Equal("DejaVuSansCondensed", nameFont.Font.Family)
	s.NotEmpty(nameFont.Data)

	s.engine.EXPECT().Open(gomock.Any(), layout.Page.Width, layout.Page.Height).Return(s.doc, nil)
	gomock.InOrder(
		s.doc.EXPECT().AddFont(nameFont.Font, gomock.Any()).Return(nil),
		s.doc.EXPECT().DrawImage(gomock.Any(), credential.Box{W: layout.Page.Width, H: layout.Page.Height}).Return(nil),
		s.doc.EXPECT().DrawText(layout.Title.Text, layout.Title.Box, layout.Title.Font, layout.Title.Color).Return(nil),
		s.doc.EXPECT().DrawImage(s.photos.img, layout.Photo.Box).Return(nil),
		s.doc.EXPECT().DrawFittedText("Amara Okafor", layout.Name.Box, gomock.Any(), layout.Name.Color).
			DoAndReturn(func(text string, _ credential.Box, font credential.Font, _ credential.Color) (credential.Fit, error) {
				s.Equal(layout.Name.BaselineSize, font.Size)
				s.Equal(nameFont.Font.Family, font.Family)
				return credential.Fit{Size: font.Size, Lines: []string{text}}, nil
			}),
		s.doc.EXPECT().DrawText("VOL0503264821", layout.VolunteerID.Box, layout.VolunteerID.Font, gomock.Any()).Return(nil),
		s.doc.EXPECT().DrawText(layout.Caption.Text, layout.Caption.Box, gomock.Any(), gomock.Any()).Return(nil),
		s.doc.EXPECT().DrawImage(wantQR, layout.QR.Box).Return(nil),
		s.doc.EXPECT().Bytes().Return([]byte("%PDF-1.3"), nil),
		s.doc.EXPECT().Close().Return(nil),
	)

	pdf, err := s.renderer().Render(context.Background(), activeVolunteer())
	s.Require().NoError(err)
	s.Equal([]byte("%PDF-1.3"), pdf)
}

func (s *RendererSuite) TestMissingOrBrokenPhotoUsesPlaceholder() {
	cases := []struct {
		name  string
		ref   string
		fetch error
	}{
		{name: "no photo", ref: ""},
		{name: "relative reference", ref: "uploads/amara.jpg"},
		{name: "fetch fails", ref: "https://files.example.org/gone.jpg", fetch: errors.New("404")},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.photos.err = tc.fetch
			v := activeVolunteer()
			v.ProfileImage = tc.ref

			s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.doc, nil)
			s.doc.EXPECT().AddFont(gomock.Any(), gomock.Any()).Return(nil)
			s.doc.EXPECT().DrawImage(gomock.Any(), gomock.Any()).Return(nil).Times(2)
			s.doc.EXPECT().DrawText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
			s.doc.EXPECT().DrawFittedText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(credential.Fit{}, nil)
			s.doc.EXPECT().DrawPlaceholder(gomock.Any(), "NO PHOTO").Return(nil)
			s.doc.EXPECT().Bytes().Return([]byte("%PDF"), nil)
			s.doc.EXPECT().Close().Return(nil)

			_, err := s.renderer().Render(context.Background(), v)
			s.Require().NoError(err)
		})
	}
}

func (s *RendererSuite) TestDrawFailureReleasesHandle() {
	s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.doc, nil)
	s.doc.EXPECT().AddFont(gomock.Any(), gomock.Any()).Return(nil)
	s.doc.EXPECT().DrawImage(gomock.Any(), gomock.Any()).Return(errors.New("corrupt png"))
	s.doc.EXPECT().Close().Return(nil)

	_, err := s.renderer().Render(context.Background(), activeVolunteer())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRenderFailed))
	s.NotContains(dErrors.MessageOf(err), "corrupt")
}

func (s *RendererSuite) TestFontFailureReleasesHandle() {
	s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.doc, nil)
	s.doc.EXPECT().AddFont(gomock.Any(), gomock.Any()).Return(errors.New("bad ttf"))
	s.doc.EXPECT().Close().Return(nil)

	_, err := s.renderer().Render(context.Background(), activeVolunteer())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRenderFailed))
}

func (s *RendererSuite) TestLongNameIsHandedToFitting() {
	v := activeVolunteer()
	v.FullName = "Venkata Subramanian Ramachandran Iyer"
	assets, err := credential.EmbeddedAssets().Load()
	s.Require().NoError(err)
	layout := assets.Layout

	s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.doc, nil)
	s.doc.EXPECT().AddFont(gomock.Any(), gomock.Any()).Return(nil)
	s.doc.EXPECT().DrawImage(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.doc.EXPECT().DrawText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	s.doc.EXPECT().DrawFittedText(v.FullName, layout.Name.Box, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ string, _ credential.Box, font credential.Font, _ credential.Color) (credential.Fit, error) {
			s.Less(font.Size, layout.Name.BaselineSize)
			return credential.Fit{Size: font.Size - 1, Lines: []string{"Venkata Subramanian", "Ramachandran Iyer"}}, nil
		})
	s.doc.EXPECT().Bytes().Return([]byte("%PDF"), nil)
	s.doc.EXPECT().Close().Return(nil)

	_, err = s.renderer().Render(context.Background(), v)
	s.Require().NoError(err)
}

func (s *RendererSuite) TestEngineUnavailable() {
	s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("pool closed"))

	_, err := s.renderer().Render(context.Background(), activeVolunteer())
	s.True(dErrors.HasCode(err, dErrors.CodeRenderFailed))
}

func (s *RendererSuite) TestTimeoutReturnsAndWorkerStillReleases() {
	released := make(chan struct{})
	s.engine.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.doc, nil)
	s.doc.EXPECT().AddFont(gomock.Any(), gomock.Any()).Return(nil)
	s.doc.EXPECT().DrawImage(gomock.Any(), gomock.Any()).DoAndReturn(func(credential.Image, credential.Box) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})
	s.doc.EXPECT().Close().DoAndReturn(func() error {
		close(released)
		return nil
	})

	start := time.Now()
	_, err := s.renderer(credential.WithTimeout(50*time.Millisecond)).Render(context.Background(), activeVolunteer())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRenderFailed))
	s.Less(time.Since(start), 250*time.Millisecond)

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		s.Fail("engine handle was not released after timeout")
	}
}

func (s *RendererSuite) TestTemplateLoadFailure() {
	broken := fstest.MapFS{"layout.yaml": &fstest.MapFile{Data: []byte("page: {width: 0}")}}
	r := s.renderer(credential.WithAssets(credential.FSAssets(broken, "layout.yaml")))

	_, err := r.Render(context.Background(), activeVolunteer())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRenderFailed))
}

func TestVerificationURL(t *testing.T) {
	cases := map[string]string{
		"https://volunteers.example.org":   "https://volunteers.example.org/verify/VOL0503264821",
		"https://volunteers.example.org/":  "https://volunteers.example.org/verify/VOL0503264821",
		"https://example.org/volunteers//": "https://example.org/volunteers/verify/VOL0503264821",
	}
	for base, want := range cases {
		if got := credential.VerificationURL(base, "VOL0503264821"); got != want {
			t.Errorf("VerificationURL(%q) = %q, want %q", base, got, want)
		}
	}
}
