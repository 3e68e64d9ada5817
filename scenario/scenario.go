// Package scenario runs a configured MSX simulation end to end.
//
// A Runner turns a config.Config into engine calls: open the input file,
// apply overrides by name, obtain hydraulics, solve or step water quality
// while sampling watched values, write the requested outputs, and close the
// project on every exit path. Names in overrides and watches are resolved
// to engine indices with GetIndex, so run files never hard-code indices.
//
// Runs that need to be driven one step at a time (the interactive CLI) use
// Start to get a Session and step it themselves.
package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/errors"
	"github.com/wippyai/msx-toolkit/toolkit"
)

// Probe is a resolved watch: one species at one node or link.
type Probe struct {
	Label   string
	Type    msx.ObjectType
	Index   int
	Species int
}

// Sample holds the probe values after one step, in probe order. A sample
// taken after a full solve has a zero Clock: the engine reports no clock
// for SolveQ.
type Sample struct {
	Clock  toolkit.Clock
	Values []float64
}

// Result summarizes a finished run. Steps and Final are set in step mode
// only.
type Result struct {
	RunID   string
	Input   string
	Mode    string
	Steps   int
	Final   toolkit.Clock
	Probes  []Probe
	Samples []Sample
	Elapsed time.Duration
}

// Runner executes one configured scenario.
type Runner struct {
	tk       *toolkit.Toolkit
	cfg      *config.Config
	observer func(Sample)
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers fn to receive every sample as it is taken.
func WithObserver(fn func(Sample)) Option {
	return func(r *Runner) { r.observer = fn }
}

// NewRunner returns a Runner for cfg over tk.
func NewRunner(tk *toolkit.Toolkit, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{tk: tk, cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the scenario to completion.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	s, err := r.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close(ctx)

	res := &Result{
		RunID:  s.ID,
		Input:  r.cfg.Project.Input,
		Mode:   r.cfg.Project.Mode,
		Probes: s.Probes(),
	}
	record := func(smp Sample) {
		res.Samples = append(res.Samples, smp)
		if r.observer != nil {
			r.observer(smp)
		}
	}

	switch r.cfg.Project.Mode {
	case config.ModeSolve:
		smp, err := s.Solve(ctx)
		if err != nil {
			return nil, err
		}
		record(smp)
	default:
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		for {
			smp, err := s.Step(ctx)
			if err != nil {
				return nil, err
			}
			record(smp)
			if smp.Clock.Done() {
				break
			}
		}
		res.Final = s.Clock()
	}
	res.Steps = s.Steps()

	if err := s.Finish(ctx); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	s.log.Info("run finished",
		zap.String("mode", res.Mode),
		zap.Int("steps", res.Steps),
		zap.Int64("sim_time", res.Final.Time),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Session is an open project prepared for a quality run.
// It is NOT safe for concurrent use.
type Session struct {
	ID string

	cfg     *config.Config
	project *toolkit.Project
	probes  []Probe
	log     *zap.Logger
	clock   toolkit.Clock
	steps   int
	closed  bool
}

// Start opens the input file, applies overrides, obtains hydraulics and
// resolves the watch list. On failure the project is already closed.
func (r *Runner) Start(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	log := Logger().With(zap.String("run_id", id), zap.String("input", r.cfg.Project.Input))

	p, err := r.tk.Open(ctx, r.cfg.Project.Input)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "open "+r.cfg.Project.Input)
	}
	s := &Session{ID: id, cfg: r.cfg, project: p, log: log}

	if err := s.prepare(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	log.Info("run started", zap.String("mode", r.cfg.Project.Mode), zap.Int("probes", len(s.probes)))
	return s, nil
}

func (s *Session) prepare(ctx context.Context) error {
	if err := applyOverrides(ctx, s.project, &s.cfg.Overrides, s.log); err != nil {
		return err
	}

	proj := &s.cfg.Project
	if proj.Hydraulics != "" {
		if err := s.project.UseHydFile(ctx, proj.Hydraulics); err != nil {
			return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "use hydraulics "+proj.Hydraulics)
		}
		s.log.Debug("hydraulics loaded", zap.String("path", proj.Hydraulics))
	} else {
		if err := s.project.SolveH(ctx); err != nil {
			return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "solve hydraulics")
		}
		s.log.Debug("hydraulics solved")
	}

	probes, err := resolveProbes(ctx, s.project, s.cfg.Watch)
	if err != nil {
		return err
	}
	s.probes = probes
	return nil
}

// Project returns the open project.
func (s *Session) Project() *toolkit.Project { return s.project }

// Probes returns the resolved watch list.
func (s *Session) Probes() []Probe { return append([]Probe(nil), s.probes...) }

// Clock returns the clock of the last step.
func (s *Session) Clock() toolkit.Clock { return s.clock }

// Steps returns the number of steps taken.
func (s *Session) Steps() int { return s.steps }

// Init starts a stepped quality run.
func (s *Session) Init(ctx context.Context) error {
	if err := s.project.Init(ctx, s.cfg.Project.SaveScratch); err != nil {
		return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "initialize quality")
	}
	s.clock = toolkit.Clock{}
	s.steps = 0
	return nil
}

// Step advances one quality step and samples the probes.
func (s *Session) Step(ctx context.Context) (Sample, error) {
	c, err := s.project.Step(ctx)
	if err != nil {
		return Sample{}, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err,
			fmt.Sprintf("step %d", s.steps+1))
	}
	s.clock = c
	s.steps++
	return s.sample(ctx)
}

// Solve runs the whole quality simulation and samples the probes once.
func (s *Session) Solve(ctx context.Context) (Sample, error) {
	if err := s.project.SolveQ(ctx); err != nil {
		return Sample{}, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "solve quality")
	}
	return s.sample(ctx)
}

func (s *Session) sample(ctx context.Context) (Sample, error) {
	smp := Sample{Clock: s.clock, Values: make([]float64, len(s.probes))}
	for i, pr := range s.probes {
		v, err := s.project.GetQual(ctx, pr.Type, pr.Index, pr.Species)
		if err != nil {
			return Sample{}, errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "sample "+pr.Label)
		}
		smp.Values[i] = v
	}
	return smp, nil
}

// Finish writes the configured outputs and closes the project. The project
// is closed even when an output fails.
func (s *Session) Finish(ctx context.Context) error {
	err := s.outputs(ctx)
	if cerr := s.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (s *Session) outputs(ctx context.Context) error {
	proj := &s.cfg.Project
	if proj.Output != "" {
		if err := s.project.SaveOutFile(ctx, proj.Output); err != nil {
			return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "save results "+proj.Output)
		}
		s.log.Info("results saved", zap.String("path", proj.Output))
	}
	if proj.SaveProject != "" {
		if err := s.project.SaveMsxFile(ctx, proj.SaveProject); err != nil {
			return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "save project "+proj.SaveProject)
		}
		s.log.Info("project saved", zap.String("path", proj.SaveProject))
	}
	if proj.Report {
		if err := s.project.Report(ctx); err != nil {
			return errors.Wrap(errors.PhaseScenario, errors.KindInvalidData, err, "write report")
		}
	}
	return nil
}

// Close closes the project. Later calls do nothing.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.project.Close(ctx); err != nil {
		s.log.Warn("close failed", zap.Error(err))
		return err
	}
	return nil
}

func elementName(t msx.ObjectType) string {
	return strings.ToLower(strings.TrimPrefix(t.String(), "MSX_"))
}
