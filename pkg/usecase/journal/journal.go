package journal

import (
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"github.com/m-mizutani/lifesync/pkg/repository"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
)

var (
	ErrAIUnavailable        = goerr.New("AI features require a Gemini API key")
	ErrNoEntries            = goerr.New("no entries for the requested day")
	ErrStorageNotConfigured = goerr.New("snapshot storage is not configured")
	ErrExportNotConfigured  = goerr.New("analytics export is not configured")
	ErrInvalidProfileMode   = goerr.New("invalid profile mode")
	ErrInvalidDate          = goerr.New("invalid date")
)

// UseCase groups the journal operations around one store. A nil gemini
// puts text analysis into offline mode.
type UseCase struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	images   *imagegen.Generator
	storage  adapter.Storage
	bigquery adapter.BigQuery
	now      func() time.Time
	loc      *time.Location
	rnd      *rand.Rand
}

type Option func(*UseCase)

func WithImageGenerator(g *imagegen.Generator) Option {
	return func(u *UseCase) {
		u.images = g
	}
}

func WithStorage(s adapter.Storage) Option {
	return func(u *UseCase) {
		u.storage = s
	}
}

func WithBigQuery(bq adapter.BigQuery) Option {
	return func(u *UseCase) {
		u.bigquery = bq
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

// WithLocation sets the time zone that defines calendar days
func WithLocation(loc *time.Location) Option {
	return func(u *UseCase) {
		u.loc = loc
	}
}

// WithRand fixes the random source used for demo data
func WithRand(r *rand.Rand) Option {
	return func(u *UseCase) {
		u.rnd = r
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	u := &UseCase{
		repo:   repo,
		gemini: gemini,
		now:    time.Now,
		loc:    time.Local,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6c696665)),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.images == nil {
		u.images = imagegen.New(gemini)
	}

	return u
}

// Online reports whether text analysis reaches the model
func (u *UseCase) Online() bool {
	return u.gemini != nil
}

func (u *UseCase) dayOf(ts int64) time.Time {
	t := time.UnixMilli(ts).In(u.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, u.loc)
}

func (u *UseCase) today() time.Time {
	return u.dayOf(u.now().UnixMilli())
}
