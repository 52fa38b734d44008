// Package board holds what the dashboard currently shows for the fleet
// health interpretation and refreshes it from the data source.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/essboard/essboard/pkg/log"
	"github.com/essboard/essboard/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// Interpreter produces a health interpretation. It must not fail.
type Interpreter interface {
	Interpret(ctx context.Context, avgScore float64, sites []string) types.HealthInterpretation
}

// Source provides the dashboard whose score and sites are interpreted.
type Source interface {
	GetDashboard(ctx context.Context) (types.Dashboard, error)
}

// State is a snapshot of the interpretation panel.
type State struct {
	// Loading is true while any refresh is in flight.
	Loading bool `json:"loading"`
	// Interpretation is nil until the first refresh completes.
	Interpretation *types.HealthInterpretation `json:"interpretation"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
	// Version increases with every change. A higher version is always the
	// more recent state.
	Version uint64 `json:"version"`
}

// Board owns the interpretation panel state.
type Board struct {
	interpreter Interpreter
	source      Source
	interval    time.Duration

	mu        sync.Mutex
	state     State
	seq       uint64
	applied   uint64
	inflight  int
	listeners []func(State)

	// notifyMu serializes delivery so listeners see versions in order
	notifyMu  sync.Mutex
	delivered uint64
}

// New returns a Board that refreshes every interval once Run is called. An
// interval of zero only refreshes at startup.
func New(interpreter Interpreter, source Source, interval time.Duration) *Board {
	return &Board{
		interpreter: interpreter,
		source:      source,
		interval:    interval,
	}
}

// Configured registers the refresh flags and returns a Board.
func Configured(interpreter Interpreter, source Source) *Board {
	interval := lflag.Duration("refresh-interval", 0, "How often to refresh the health interpretation (0 only refreshes at startup)")

	b := New(interpreter, source, 0)
	lflag.Do(func() {
		b.interval = *interval
	})
	return b
}

// State returns a copy of the current state.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Board) snapshot() State {
	s := b.state
	if s.Interpretation != nil {
		h := s.Interpretation.Clone()
		s.Interpretation = &h
	}
	return s
}

// OnChange registers fn to be called after state changes. Calls are never
// concurrent and versions only increase; a state superseded before it could be
// delivered is skipped. fn should return quickly since it delays delivery to
// every other listener.
func (b *Board) OnChange(fn func(State)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *Board) notify(s State) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	if s.Version <= b.delivered {
		return
	}
	b.delivered = s.Version

	b.mu.Lock()
	listeners := append([]func(State){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// Refresh loads the dashboard and replaces the interpretation with a new one.
// A refresh that finishes after a newer one started and finished is dropped.
// The error is only non-nil when the dashboard could not be loaded.
func (b *Board) Refresh(ctx context.Context) (State, error) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.inflight++
	b.state.Loading = true
	b.state.Version++
	started := b.snapshot()
	b.mu.Unlock()
	b.notify(started)

	var next *types.HealthInterpretation
	d, err := b.source.GetDashboard(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load dashboard: %w", err)
	} else {
		h := b.interpreter.Interpret(ctx, d.AverageHealthScore, d.SiteNames()).Normalized()
		next = &h
	}

	b.mu.Lock()
	b.inflight--
	if next != nil && seq > b.applied {
		b.applied = seq
		b.state.Interpretation = next
		b.state.UpdatedAt = time.Now()
	} else if next != nil {
		log.Ctx(ctx).DebugContext(ctx, "dropping stale interpretation", slog.Uint64("seq", seq), slog.Uint64("applied", b.applied))
	}
	b.state.Loading = b.inflight > 0
	b.state.Version++
	done := b.snapshot()
	b.mu.Unlock()
	b.notify(done)

	return done, err
}

// Run refreshes once immediately and then on every interval until ctx is
// done.
func (b *Board) Run(ctx context.Context) error {
	b.refreshAndLog(ctx)

	if b.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.refreshAndLog(ctx)
		}
	}
}

func (b *Board) refreshAndLog(ctx context.Context) {
	if _, err := b.Refresh(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh interpretation", slog.Any("error", err))
	}
}
