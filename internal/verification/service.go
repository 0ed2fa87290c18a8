package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	"volid/pkg/platform/sentinel"
	"volid/pkg/requestcontext"
)

// Store resolves a public identifier to its record.
type Store interface {
	FindByVolunteerID(ctx context.Context, vid models.VolunteerID) (*models.Volunteer, error)
}

// Cache holds public views keyed by identifier. A miss is (nil, nil).
//
// Writes are fenced by a per-identifier generation. A loader reads Generation
// before it reads the store, and SetIfCurrent only stores the view while no
// Invalidate has bumped the generation since.
type Cache interface {
	Get(ctx context.Context, vid models.VolunteerID) (*PublicStatus, error)
	Generation(ctx context.Context, vid models.VolunteerID) (uint64, error)
	SetIfCurrent(ctx context.Context, vid models.VolunteerID, gen uint64, status *PublicStatus) (bool, error)
	Invalidate(ctx context.Context, vid models.VolunteerID) error
}

// DefaultLoadTimeout bounds a shared store read.
const DefaultLoadTimeout = 5 * time.Second

// Service answers public "is this volunteer genuine" lookups.
type Service struct {
	prefix      string
	store       Store
	cache       Cache
	group       singleflight.Group
	loadTimeout time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Service)

// WithCache enables the read-through cache. Without it every lookup reads the store.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLoadTimeout bounds the store read shared by concurrent lookups.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(prefix string, store Store, opts ...Option) *Service {
	s := &Service{
		prefix:      prefix,
		store:       store,
		loadTimeout: DefaultLoadTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errNotFound = dErrors.New(dErrors.CodeNotFound, "volunteer not found")

// Verify resolves raw (any case, surrounding whitespace allowed) to a public view.
// Malformed identifiers are reported exactly like unknown ones.
func (s *Service) Verify(ctx context.Context, raw string) (*PublicStatus, error) {
	vid, ok := models.ParseVolunteerID(s.prefix, raw)
	if !ok {
		s.observe("malformed")
		return nil, errNotFound
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, vid)
		if err != nil {
			s.logger.WarnContext(ctx, "verification cache read failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		} else if cached != nil {
			s.observe("cache_hit")
			return cached, nil
		}
	}

	// The shared load outlives any single caller so one disconnect does not fail
	// every waiter.
	ch := s.group.DoChan(string(vid), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(loadCtx, vid)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if dErrors.HasCode(res.Err, dErrors.CodeNotFound) {
				s.observe("not_found")
			}
			return nil, res.Err
		}
		s.observe("found")
		return res.Val.(*PublicStatus), nil
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "verification timed out")
	}
}

func (s *Service) load(ctx context.Context, vid models.VolunteerID) (*PublicStatus, error) {
	var (
		gen    uint64
		fenced bool
	)
	if s.cache != nil {
		g, err := s.cache.Generation(ctx, vid)
		if err != nil {
			s.logger.WarnContext(ctx, "verification cache generation read failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		} else {
			gen, fenced = g, true
		}
	}

	v, err := s.store.FindByVolunteerID(ctx, vid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify volunteer")
	}
	status := FromVolunteer(v)
	if fenced {
		stored, err := s.cache.SetIfCurrent(ctx, vid, gen, status)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "verification cache write failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		case !stored:
			s.logger.DebugContext(ctx, "verification cache write skipped, record changed during load",
				"request_id", requestcontext.RequestID(ctx),
				"volunteer_id", vid,
			)
		}
	}
	return status, nil
}

// Invalidate drops the cached view of vid and fences out loads that read the
// store before the change. Failures are logged; the entry then expires on its TTL.
func (s *Service) Invalidate(ctx context.Context, vid models.VolunteerID) {
	if s.cache == nil || vid.IsZero() {
		return
	}
	s.group.Forget(string(vid))
	if err := s.cache.Invalidate(ctx, vid); err != nil {
		s.logger.WarnContext(ctx, "verification cache invalidation failed",
			"request_id", requestcontext.RequestID(ctx),
			"volunteer_id", vid,
			"error", err,
		)
	}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.IncrementLookup(result)
	}
}
