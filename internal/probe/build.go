package probe

import (
	"fmt"
	"strings"

	"github.com/ajramos/asyncprobe/internal/config"
	"github.com/ajramos/asyncprobe/internal/executor"
)

// Deps carries the shared components probes are built from
type Deps struct {
	Fetcher Fetcher
	Pool    *executor.Pool
}

// FromConfig builds the probes named in cfg.Runner.Probes, in that order.
// An empty list selects every probe.
func FromConfig(cfg *config.Config, deps Deps) ([]Probe, error) {
	names := cfg.Runner.Probes
	if len(names) == 0 {
		names = config.AllProbes
	}

	seen := make(map[string]bool, len(names))
	probes := make([]Probe, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case config.ProbeValue:
			probes = append(probes, NewValueProbe())
		case config.ProbeError:
			probes = append(probes, NewErrorProbe())
		case config.ProbeHTTP:
			if deps.Fetcher == nil {
				return nil, fmt.Errorf("probe %q requires an HTTP fetcher", name)
			}
			probes = append(probes, &HTTPProbe{
				Fetcher:   deps.Fetcher,
				Path:      cfg.HTTP.Path,
				ExpectKey: cfg.HTTP.ExpectKey,
			})
		case config.ProbeDatabase:
			probes = append(probes, &DatabaseProbe{
				DSN:   cfg.Database.DSN,
				Value: cfg.Database.Value,
			})
		case config.ProbeExecutor:
			probes = append(probes, &ExecutorProbe{
				Pool:  deps.Pool,
				Delay: cfg.GetTaskDelay(),
			})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProbe, raw)
		}
	}
	return probes, nil
}
