// Package probe implements the async checks run by asyncprobe and the runner
// that executes them.
package probe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ajramos/asyncprobe/internal/async"
	"github.com/ajramos/asyncprobe/internal/config"
	"github.com/ajramos/asyncprobe/internal/db"
	"github.com/ajramos/asyncprobe/internal/executor"
)

// Probe is a single self-contained check
type Probe interface {
	Name() string
	Run(ctx context.Context) error
}

// Fetcher retrieves a JSON object over HTTP
type Fetcher interface {
	GetJSON(ctx context.Context, path string) (map[string]any, error)
}

// ValueProbe awaits an async operation and checks its result
type ValueProbe struct {
	Expected int
	// Op defaults to an operation returning 42
	Op func(ctx context.Context) (int, error)
}

// NewValueProbe returns the probe expecting 42
func NewValueProbe() *ValueProbe {
	return &ValueProbe{Expected: 42}
}

func (p *ValueProbe) Name() string { return config.ProbeValue }

func (p *ValueProbe) Run(ctx context.Context) error {
	op := p.Op
	if op == nil {
		op = func(ctx context.Context) (int, error) { return 42, nil }
	}

	got, err := async.Run(ctx, op).Await(ctx)
	if err != nil {
		return err
	}
	if got != p.Expected {
		return assertionf("got %d, want %d", got, p.Expected)
	}
	return nil
}

// ErrorProbe awaits an async operation that must fail with a ValueError
// whose message contains Match
type ErrorProbe struct {
	Match string
	// Op defaults to an operation failing with ValueError("Expected error")
	Op func(ctx context.Context) (struct{}, error)
}

// NewErrorProbe returns the probe expecting "Expected error"
func NewErrorProbe() *ErrorProbe {
	return &ErrorProbe{Match: "Expected error"}
}

func (p *ErrorProbe) Name() string { return config.ProbeError }

func (p *ErrorProbe) Run(ctx context.Context) error {
	op := p.Op
	if op == nil {
		op = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, &ValueError{Message: "Expected error"}
		}
	}

	_, err := async.Run(ctx, op).Await(ctx)
	if err == nil {
		return assertionf("operation succeeded, want value error")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var valueErr *ValueError
	if !errors.As(err, &valueErr) {
		return assertionf("got %T (%v), want value error", err, err)
	}
	if !strings.Contains(valueErr.Message, p.Match) {
		return assertionf("message %q does not contain %q", valueErr.Message, p.Match)
	}
	return nil
}

// HTTPProbe fetches one JSON document and checks that a key is present
type HTTPProbe struct {
	Fetcher   Fetcher
	Path      string
	ExpectKey string
}

func (p *HTTPProbe) Name() string { return config.ProbeHTTP }

func (p *HTTPProbe) Run(ctx context.Context) error {
	if p.Fetcher == nil {
		return errors.New("http probe has no fetcher")
	}

	data, err := async.Run(ctx, func(ctx context.Context) (map[string]any, error) {
		return p.Fetcher.GetJSON(ctx, p.Path)
	}).Await(ctx)
	if err != nil {
		return err
	}
	if _, ok := data[p.ExpectKey]; !ok {
		return assertionf("key %q missing from response", p.ExpectKey)
	}
	return nil
}

// DatabaseProbe opens a store, inserts Value, commits and reads it back.
// The store lives only for the duration of one Run.
type DatabaseProbe struct {
	DSN   string
	Value string
}

func (p *DatabaseProbe) Name() string { return config.ProbeDatabase }

func (p *DatabaseProbe) Run(ctx context.Context) error {
	_, err := async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.roundTrip(ctx)
	}).Await(ctx)
	return err
}

func (p *DatabaseProbe) roundTrip(ctx context.Context) error {
	dsn := p.DSN
	if strings.TrimSpace(dsn) == "" {
		dsn = db.MemoryDSN
	}

	store, err := db.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	values := db.NewValueStore(store)
	id, err := values.Insert(ctx, p.Value)
	if err != nil {
		return err
	}
	if err := checkRowID(store.IsMemory(), id); err != nil {
		return err
	}

	got, ok, err := values.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return assertionf("row %d not found after commit", id)
	}
	if got != p.Value {
		return assertionf("row %d holds %q, want %q", id, got, p.Value)
	}
	return nil
}

// checkRowID requires the first row of a fresh in-memory table to get id 1.
// File-backed stores keep earlier rows, so any id is accepted there.
func checkRowID(memory bool, id int64) error {
	if memory && id != 1 {
		return assertionf("fresh table assigned id %d, want 1", id)
	}
	return nil
}

// ExecutorProbe hands an async task to a worker pool and awaits its result.
// The task sleeps for Delay before returning "Completed".
type ExecutorProbe struct {
	// Pool is used when set; otherwise a single-worker pool is created per Run
	Pool  *executor.Pool
	Delay time.Duration
}

// Completed is the marker returned by the executor probe's task
const Completed = "Completed"

func (p *ExecutorProbe) Name() string { return config.ProbeExecutor }

func (p *ExecutorProbe) Run(ctx context.Context) (err error) {
	pool := p.Pool
	if pool == nil {
		pool = executor.New(1, 1, nil)
		defer func() {
			if shutdownErr := pool.Shutdown(context.WithoutCancel(ctx)); err == nil {
				err = shutdownErr
			}
		}()
	}

	f, err := executor.Submit(ctx, pool, func(ctx context.Context) (string, error) {
		task := async.Run(ctx, func(ctx context.Context) (string, error) {
			if err := sleep(ctx, p.Delay); err != nil {
				return "", err
			}
			return Completed, nil
		})
		return task.Await(ctx)
	})
	if err != nil {
		return err
	}

	got, err := f.Await(ctx)
	if err != nil {
		return err
	}
	if got != Completed {
		return assertionf("got %q, want %q", got, Completed)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
