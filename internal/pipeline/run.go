package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gotimescales/formats/tsa"
	"gotimescales/internal/detrend"
	"gotimescales/internal/logger"
	"gotimescales/internal/series"
)

type UnknownLakeError struct {
	Lake series.Lake
}

func (e *UnknownLakeError) Error() string {
	return fmt.Sprintf("lake %q is not in the table", e.Lake)
}

type task struct {
	lake      series.Lake
	variable  series.Variable
	timescale time.Duration
}

func (this Config) lakes(tbl series.Table) ([]series.Lake, error) {
	present := tbl.Lakes()
	if len(this.Lakes) == 0 {
		return present, nil
	}
	known := make(map[series.Lake]bool, len(present))
	for _, l := range present {
		known[l] = true
	}
	seen := make(map[series.Lake]bool)
	var out []series.Lake
	for _, l := range this.Lakes {
		if !known[l] {
			return nil, &UnknownLakeError{Lake: l}
		}
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func panel(tbl series.Table, cfg Config, t task, log *logger.Logger) (*tsa.Panel, error) {
	s, err := Resample(Reshape(tbl, t.lake, t.variable), t.timescale, cfg.Mode)
	if err != nil {
		return nil, err
	}
	if d, err := detrend.Apply(s, cfg.Detrend); err != nil {
		log.Warn("detrending failed, using raw series",
			"lake", t.lake, "variable", t.variable.String(), "timescale", t.timescale.String(), "error", err)
	} else {
		s = d
	}

	p, err := Compute(s, cfg, t.timescale)
	var wts *WindowTooSmallError
	if errors.As(err, &wts) {
		log.Warn("indicator skipped",
			"lake", t.lake, "variable", t.variable.String(), "timescale", t.timescale.String(), "error", err)
		return p, nil
	}
	return p, err
}

// Run computes the analysis of every (lake, variable, timescale)
// combination of cfg. Panels are ordered by lake, variable and timescale,
// heat maps by lake and variable, regardless of the order tasks finish in.
func Run(ctx context.Context, tbl series.Table, cfg Config, log *logger.Logger) (*tsa.Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	lakes, err := cfg.lakes(tbl)
	if err != nil {
		return nil, err
	}
	variables := cfg.variables()
	timescales := cfg.timescales()

	a, err := tsa.New(cfg.Name, 0, cfg)
	if err != nil {
		return nil, err
	}

	var tasks []task
	for _, l := range lakes {
		for _, v := range variables {
			for _, ts := range timescales {
				tasks = append(tasks, task{lake: l, variable: v, timescale: ts})
			}
		}
	}
	a.Panels = make([]*tsa.Panel, len(tasks))
	if cfg.HeatBlock > 0 {
		a.HeatMaps = make([]*tsa.Grid, len(lakes)*len(variables))
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	log.Info("analysis started", "id", a.Id.String(), "lakes", len(lakes), "tasks", len(tasks))
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := panel(tbl, cfg, t, log)
			if err != nil {
				return fmt.Errorf("%s/%s/%v: %w", t.lake, t.variable, t.timescale, err)
			}
			a.Panels[i] = p
			return nil
		})
	}
	for i := range a.HeatMaps {
		i := i
		l, v := lakes[i/len(variables)], variables[i%len(variables)]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			grid, err := HeatMap(Reshape(tbl, l, v), timescales, cfg)
			if err != nil {
				return fmt.Errorf("%s/%s heat map: %w", l, v, err)
			}
			a.HeatMaps[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("analysis finished", "id", a.Id.String(), "panels", len(a.Panels), "heatmaps", len(a.HeatMaps))
	return a, nil
}
