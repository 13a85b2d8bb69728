package probe

import (
	"context"
	"time"

	"github.com/ajramos/asyncprobe/internal/async"
	"github.com/ajramos/asyncprobe/internal/db"
	"github.com/ajramos/asyncprobe/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the outcome of one probe
type Result struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report is the outcome of one run over all configured probes
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
}

// Passed reports whether every probe passed
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failing results
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Records converts the report into run history rows
func (r *Report) Records() []db.RunRecord {
	records := make([]db.RunRecord, 0, len(r.Results))
	for _, res := range r.Results {
		records = append(records, db.RunRecord{
			RunID:     r.RunID,
			Probe:     res.Name,
			Passed:    res.Passed,
			Error:     res.Error,
			Duration:  res.Duration,
			CreatedAt: r.StartedAt,
		})
	}
	return records
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Logger  *zap.Logger
	Metrics *Metrics
	// Parallel runs probes concurrently; results keep probe order either way
	Parallel bool
	// ProbeTimeout bounds each probe; zero means no deadline
	ProbeTimeout time.Duration
}

// Runner executes a fixed set of probes
type Runner struct {
	probes []Probe
	opts   RunnerOptions
	logger *zap.Logger
}

// NewRunner creates a runner for probes
func NewRunner(probes []Probe, opts RunnerOptions) *Runner {
	return &Runner{
		probes: probes,
		opts:   opts,
		logger: logging.OrNop(opts.Logger).Named("runner"),
	}
}

// Run executes every probe once. Probe failures are reported in the Report,
// never returned; probes do not affect one another.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]Result, len(r.probes)),
	}
	logger := r.logger.With(zap.String("run_id", report.RunID))
	logger.Info("run started", zap.Int("probes", len(r.probes)), zap.Bool("parallel", r.opts.Parallel))

	if r.opts.Parallel {
		futures := make([]*async.Future[Result], len(r.probes))
		for i, p := range r.probes {
			futures[i] = async.Run(ctx, func(ctx context.Context) (Result, error) {
				return r.runProbe(ctx, logger, p), nil
			})
		}
		// runProbe never fails, so only a canceled ctx could end All early
		results, _ := async.All(context.WithoutCancel(ctx), futures...)
		copy(report.Results, results)
	} else {
		for i, p := range r.probes {
			report.Results[i] = r.runProbe(ctx, logger, p)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	r.opts.Metrics.ObserveReport(report)
	logger.Info("run finished",
		zap.Bool("passed", report.Passed()),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("elapsed", report.Duration))

	return report
}

func (r *Runner) runProbe(ctx context.Context, logger *zap.Logger, p Probe) Result {
	if r.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.ProbeTimeout)
		defer cancel()
	}

	start := time.Now()
	_, err := async.Invoke(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Run(ctx)
	})
	res := Result{
		Name:     p.Name(),
		Passed:   err == nil,
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Error = err.Error()
		logger.Warn("probe failed",
			zap.String("probe", res.Name),
			zap.Bool("assertion", IsAssertion(err)),
			zap.Duration("elapsed", res.Duration),
			zap.Error(err))
	} else {
		logger.Debug("probe passed", zap.String("probe", res.Name), zap.Duration("elapsed", res.Duration))
	}

	r.opts.Metrics.Observe(res)
	return res
}
