package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"volid/internal/notification"
	volunteermetrics "volid/internal/volunteer/metrics"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
	audit "volid/pkg/platform/audit"
	"volid/pkg/platform/sentinel"
	txcontext "volid/pkg/platform/tx"
)

var tracer = otel.Tracer("volid/internal/volunteer/service")

// defaultCommitAttempts bounds how often a transition is retried when the store
// rejects the allocated identifier at commit.
const defaultCommitAttempts = 3

type Store interface {
	Create(ctx context.Context, v *models.Volunteer) (*models.Volunteer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Volunteer, error)
	FindByApplicant(ctx context.Context, applicantID string) (*models.Volunteer, error)
	FindByVolunteerID(ctx context.Context, vid models.VolunteerID) (*models.Volunteer, error)
	Execute(ctx context.Context, id uuid.UUID, fn func(*models.Volunteer) error) (*models.Volunteer, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Volunteer, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Volunteer, error)
}

type IdentifierAllocator interface {
	Allocate(ctx context.Context, joining time.Time) (models.VolunteerID, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier accepts notifications for asynchronous delivery. It must not block.
type Notifier interface {
	Enqueue(ctx context.Context, msg notification.Message) bool
}

// CacheInvalidator drops cached public views of an identifier.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, vid models.VolunteerID)
}

// Service owns the volunteer lifecycle: applications, status transitions with
// identifier binding, owner edits and administrative deletes.
type Service struct {
	store          Store
	allocator      IdentifierAllocator
	tx             txcontext.Runner
	audit          AuditPublisher
	notifier       Notifier
	cache          CacheInvalidator
	logger         *slog.Logger
	metrics        *volunteermetrics.Metrics
	commitAttempts int
}

type Option func(*Service)

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *volunteermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithCommitAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.commitAttempts = n
		}
	}
}

func New(store Store, allocator IdentifierAllocator, opts ...Option) *Service {
	s := &Service{
		store:          store,
		allocator:      allocator,
		logger:         slog.Default(),
		commitAttempts: defaultCommitAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txcontext.NewLocalRunner()
	}
	return s
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Emit(ctx, event)
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, msg)
}

func (s *Service) invalidate(ctx context.Context, vid models.VolunteerID) {
	if s.cache == nil || vid.IsZero() {
		return
	}
	s.cache.Invalidate(ctx, vid)
}

// wrapStoreErr keeps domain errors and translates store sentinels.
func wrapStoreErr(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "volunteer not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
