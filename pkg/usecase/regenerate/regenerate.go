package regenerate

import (
	"context"
	"time"

	"github.com/m-mizutani/lifesync/pkg/policy"
	"github.com/m-mizutani/lifesync/pkg/repository"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"golang.org/x/time/rate"
)

// Generator is the part of imagegen.Generator the pipeline depends on
type Generator interface {
	Generate(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error)
}

const (
	// PlaceholderMarker identifies demo images that are due for replacement
	PlaceholderMarker = "unsplash"

	DefaultDays       = 30
	DefaultStartDelay = 500 * time.Millisecond

	// DefaultInterval is the minimum spacing of generation calls
	DefaultInterval = 2 * time.Second
)

// UseCase replaces placeholder images of recent entries one at a time
type UseCase struct {
	repo       repository.Repository
	generator  Generator
	policy     *policy.Policy
	limiter    *rate.Limiter
	retry      RetryPolicy
	startDelay time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*UseCase)

// WithPolicy narrows the candidate set with a Rego policy
func WithPolicy(p *policy.Policy) Option {
	return func(u *UseCase) {
		u.policy = p
	}
}

// WithLimiter replaces the limiter that gates every generation call. Share
// one limiter between use cases to keep a process wide budget.
func WithLimiter(l *rate.Limiter) Option {
	return func(u *UseCase) {
		u.limiter = l
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(u *UseCase) {
		u.retry = p
	}
}

func WithStartDelay(d time.Duration) Option {
	return func(u *UseCase) {
		u.startDelay = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

// WithSleep replaces the context aware wait used for backoff and the start delay
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(u *UseCase) {
		u.sleep = sleep
	}
}

// NewLimiter returns the default generation limiter: one call per interval, no burst
func NewLimiter(interval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(interval), 1)
}

func New(repo repository.Repository, generator Generator, opts ...Option) *UseCase {
	u := &UseCase{
		repo:       repo,
		generator:  generator,
		limiter:    NewLimiter(DefaultInterval),
		retry:      DefaultRetryPolicy(),
		startDelay: DefaultStartDelay,
		now:        time.Now,
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
