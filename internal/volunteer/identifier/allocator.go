package identifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"volid/internal/volunteer/metrics"
	"volid/internal/volunteer/models"
	dErrors "volid/pkg/domain-errors"
)

// DefaultMaxAttempts bounds the random draws per allocation. With 9000 suffixes
// per joining date, 64 misses in a row means the date is close to saturated.
const DefaultMaxAttempts = 64

// Store answers whether an identifier is already bound to a record.
type Store interface {
	VolunteerIDExists(ctx context.Context, vid models.VolunteerID) (bool, error)
}

// Reserver claims a candidate for a short time so concurrent allocators do not
// hand out the same identifier before either one is persisted.
type Reserver interface {
	Reserve(ctx context.Context, vid models.VolunteerID) (bool, error)
}

// Allocator mints volunteer identifiers of the form <PREFIX><DDMMYY><NNNN>.
//
// The existence check and the reservation only reduce collisions; the store's
// unique constraint on the identifier is the final arbiter and callers retry the
// surrounding transaction when it fires.
type Allocator struct {
	prefix      string
	store       Store
	reserver    Reserver
	maxAttempts int
	suffix      func() int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Allocator)

func WithReserver(r Reserver) Option {
	return func(a *Allocator) {
		a.reserver = r
	}
}

func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithSuffixSource replaces the random suffix draw. The function must be safe
// for concurrent use.
func WithSuffixSource(fn func() int) Option {
	return func(a *Allocator) {
		a.suffix = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

func New(prefix string, store Store, opts ...Option) (*Allocator, error) {
	if err := models.ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("identifier store is required")
	}
	a := &Allocator{
		prefix:      prefix,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		suffix:      randomSuffix,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Allocator) Prefix() string {
	return a.prefix
}

// Allocate returns an identifier for the joining date that is neither bound to a
// record nor reserved by a concurrent allocation. It gives up with
// CodeAllocationExhausted after the attempt bound and honors ctx cancellation.
func (a *Allocator) Allocate(ctx context.Context, joining time.Time) (models.VolunteerID, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeTimeout, "identifier allocation cancelled")
		}

		candidate, err := models.NewVolunteerID(a.prefix, joining, a.suffix())
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build identifier")
		}

		exists, err := a.store.VolunteerIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check identifier %s: %w", candidate, err)
		}
		if exists {
			continue
		}

		if a.reserver != nil {
			ok, err := a.reserver.Reserve(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("reserve identifier %s: %w", candidate, err)
			}
			if !ok {
				continue
			}
		}

		if a.metrics != nil {
			a.metrics.ObserveAllocationAttempts(attempt)
		}
		return candidate, nil
	}

	if a.metrics != nil {
		a.metrics.IncrementAllocationExhausted()
	}
	a.logger.WarnContext(ctx, "identifier allocation exhausted",
		"date_component", models.DateComponent(joining),
		"attempts", a.maxAttempts,
	)
	return "", dErrors.New(dErrors.CodeAllocationExhausted,
		"no volunteer identifier available for this joining date, retry later")
}

func randomSuffix() int {
	return models.SuffixMin + rand.IntN(models.SuffixMax-models.SuffixMin+1)
}
