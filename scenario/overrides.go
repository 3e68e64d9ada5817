package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/config"
	"github.com/wippyai/msx-toolkit/errors"
	"github.com/wippyai/msx-toolkit/toolkit"
)

// resolver caches name lookups for one project.
type resolver struct {
	ctx context.Context
	p   *toolkit.Project
	ids map[msx.ObjectType]map[string]int
}

func newResolver(ctx context.Context, p *toolkit.Project) *resolver {
	return &resolver{ctx: ctx, p: p, ids: make(map[msx.ObjectType]map[string]int)}
}

func (r *resolver) index(t msx.ObjectType, name string) (int, error) {
	if idx, ok := r.ids[t][name]; ok {
		return idx, nil
	}
	idx, err := r.p.GetIndex(r.ctx, t, name)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseScenario, errors.KindNotFound, err,
			fmt.Sprintf("%s %q", elementName(t), name))
	}
	if r.ids[t] == nil {
		r.ids[t] = make(map[string]int)
	}
	r.ids[t][name] = idx
	return idx, nil
}

// applyOverrides applies patterns first so sources can refer to patterns
// the same run file creates.
func applyOverrides(ctx context.Context, p *toolkit.Project, o *config.Overrides, log *zap.Logger) error {
	r := newResolver(ctx, p)
	fail := func(what string, err error) error {
		return errors.Wrap(errors.PhaseScenario, errors.KindInvalidInput, err, "override "+what)
	}

	for _, v := range o.Patterns {
		if v.Create {
			if err := p.AddPattern(ctx, v.Name); err != nil {
				return fail("pattern "+v.Name, err)
			}
		}
		if len(v.Multipliers) == 0 {
			continue
		}
		idx, err := r.index(msx.Pattern, v.Name)
		if err != nil {
			return fail("pattern "+v.Name, err)
		}
		if err := p.SetPattern(ctx, idx, v.Multipliers); err != nil {
			return fail("pattern "+v.Name, err)
		}
	}

	for _, v := range o.Constants {
		idx, err := r.index(msx.Constant, v.Name)
		if err == nil {
			err = p.SetConstant(ctx, idx, v.Value)
		}
		if err != nil {
			return fail("constant "+v.Name, err)
		}
	}

	for _, v := range o.Parameters {
		param, err := r.index(msx.Parameter, v.Name)
		if err == nil {
			err = p.SetParameter(ctx, v.Type, v.Index, param, v.Value)
		}
		if err != nil {
			return fail("parameter "+v.Name, err)
		}
	}

	for _, v := range o.InitQuality {
		sp, err := r.index(msx.Species, v.Species)
		if err == nil {
			err = p.SetInitQual(ctx, v.Type, v.Index, sp, v.Value)
		}
		if err != nil {
			return fail("initial quality of "+v.Species, err)
		}
	}

	for _, v := range o.Sources {
		sp, err := r.index(msx.Species, v.Species)
		if err != nil {
			return fail("source of "+v.Species, err)
		}
		pat := 0
		if v.Pattern != "" {
			if pat, err = r.index(msx.Pattern, v.Pattern); err != nil {
				return fail("source of "+v.Species, err)
			}
		}
		if err := p.SetSource(ctx, v.Node, sp, v.Type, v.Level, pat); err != nil {
			return fail("source of "+v.Species, err)
		}
	}

	n := len(o.Patterns) + len(o.Constants) + len(o.Parameters) + len(o.InitQuality) + len(o.Sources)
	if n > 0 {
		log.Debug("overrides applied", zap.Int("count", n))
	}
	return nil
}

// resolveProbes resolves watched species names. Nodes and links are
// addressed by index; the engine has no ID lookup for them.
func resolveProbes(ctx context.Context, p *toolkit.Project, watch []config.Watch) ([]Probe, error) {
	r := newResolver(ctx, p)
	probes := make([]Probe, 0, len(watch))
	for _, w := range watch {
		sp, err := r.index(msx.Species, w.Species)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseScenario, errors.KindNotFound, err, "watch")
		}
		probes = append(probes, Probe{
			Label:   fmt.Sprintf("%s %d %s", elementName(w.Type), w.Index, w.Species),
			Type:    w.Type,
			Index:   w.Index,
			Species: sp,
		})
	}
	return probes, nil
}
