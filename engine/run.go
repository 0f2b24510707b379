// Package engine evaluates indicators bar by bar.
//
// A Run owns the bar clock and the memoization store for one simulation.
// Formulas build series through Buffered, Lambda and Stateful, which
// guarantee that each distinct invocation is computed at most once per bar
// and that its private state survives from one bar to the next.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/taengine/ident"
	"github.com/rustyeddy/taengine/internal/id"
	"github.com/rustyeddy/taengine/memo"
)

var (
	// ErrNotStarted is returned when an indicator is evaluated before the
	// first Advance.
	ErrNotStarted = errors.New("run not started")

	ErrOutOfOrderBar = memo.ErrOutOfOrderBar
	ErrKeyCollision  = memo.ErrKeyCollision
	ErrReentrant     = memo.ErrReentrant
)

// DefaultDepth is the history a produced series keeps unless a formula
// asks for more.
const DefaultDepth = 16

// Run is one simulation run. It is not safe for concurrent use.
type Run struct {
	id    string
	bar   int
	depth int
	store *memo.Store
	log   *zap.Logger
	err   error
}

type Option func(*Run)

func WithLogger(l *zap.Logger) Option {
	return func(r *Run) { r.log = l }
}

// WithStore replaces the store the run starts with. The store must be empty.
func WithStore(s *memo.Store) Option {
	return func(r *Run) { r.store = s }
}

func WithDepth(n int) Option {
	return func(r *Run) { r.depth = n }
}

func WithID(s string) Option {
	return func(r *Run) { r.id = s }
}

// NewRun creates a run positioned before its first bar, with an empty store.
func NewRun(opts ...Option) *Run {
	r := &Run{
		bar:   memo.BeforeTime,
		depth: DefaultDepth,
	}
	for _, o := range opts {
		o(r)
	}
	if r.id == "" {
		r.id = id.New()
	}
	if r.store == nil {
		r.store = memo.NewStore()
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.depth <= 0 {
		r.depth = DefaultDepth
	}
	r.log = r.log.With(zap.String("run", r.id))
	return r
}

func (r *Run) ID() string          { return r.id }
func (r *Run) Bar() int            { return r.bar }
func (r *Run) Store() *memo.Store  { return r.store }
func (r *Run) Logger() *zap.Logger { return r.log }
func (r *Run) Depth() int          { return r.depth }

// Started reports whether the first bar has been entered.
func (r *Run) Started() bool { return r.bar >= 0 }

// Err returns the first fatal error recorded during the run. The driver
// checks it after every bar and aborts when it is set.
func (r *Run) Err() error { return r.err }

// Fail records err as the run's fatal error. Only the first one is kept.
func (r *Run) Fail(err error) {
	if err == nil || r.err != nil {
		return
	}
	r.err = err
	r.log.Error("run failed", zap.Int("bar", r.bar), zap.Error(err))
}

// Advance moves the clock to the next bar.
func (r *Run) Advance() error {
	return r.AdvanceTo(r.bar + 1)
}

// AdvanceTo moves the clock to bar. Bars must strictly increase; gaps are
// allowed. A bar at or before the current one fails the run with
// ErrOutOfOrderBar.
func (r *Run) AdvanceTo(bar int) error {
	if r.err != nil {
		return r.err
	}
	if bar <= r.bar {
		err := fmt.Errorf("engine: advance to bar %d from %d: %w", bar, r.bar, ErrOutOfOrderBar)
		r.Fail(err)
		return err
	}
	r.bar = bar
	return nil
}

// Root returns the top-level scope of the run.
func (r *Run) Root() Scope {
	return Scope{run: r, parent: ident.Root}
}
