package toolkit

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	msx "github.com/wippyai/msx-toolkit"
	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/errors"
)

// Clock is the simulation clock reported by one quality step, in seconds.
type Clock struct {
	Time     int64
	TimeLeft int64
}

// Done reports whether the step reached the end of the simulation.
func (c Clock) Done() bool { return c.TimeLeft <= 0 }

// Elapsed returns Time as a duration.
func (c Clock) Elapsed() time.Duration { return time.Duration(c.Time) * time.Second }

// Source is the external source of one species at one node.
type Source struct {
	Type    msx.SourceType
	Level   float64
	Pattern int // 0 for a constant source
}

// Species describes one chemical species.
type Species struct {
	Location msx.LocationType
	Units    string
	ATol     float64
	RTol     float64
}

// Project is an open MSX project.
// It is NOT safe for concurrent use.
type Project struct {
	tk   *Toolkit
	path string
}

// Path returns the input file the project was opened from.
func (p *Project) Path() string { return p.path }

func (p *Project) lib() engine.Library { return p.tk.lib }

// objectType rejects object types outside the engine's table.
func objectType(op string, t msx.ObjectType) (int32, error) {
	if !t.Valid() {
		return 0, errors.UnrecognizedType(op, "object type", t)
	}
	return int32(t), nil
}

// elementType admits only the types that carry water quality: nodes and links.
func elementType(op string, t msx.ObjectType) (int32, error) {
	if t != msx.Node && t != msx.Link {
		return 0, errors.UnrecognizedType(op, "element type", t)
	}
	return int32(t), nil
}

func ints(op string, names []string, vals ...int) ([]int32, error) {
	out := make([]int32, len(vals))
	for i, v := range vals {
		n, err := toInt32(op, names[i], v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Close closes the project. Closing twice reaches the engine, which reports
// that no project is open.
func (p *Project) Close(ctx context.Context) error {
	s, err := p.lib().Close(ctx)
	if err := p.tk.check(ctx, engine.SymClose, s, err); err != nil {
		return err
	}
	Logger().Debug("project closed", zap.String("path", p.path))
	return nil
}

// UseHydFile loads hydraulics from a previously saved EPANET results file.
func (p *Project) UseHydFile(ctx context.Context, path string) error {
	s, err := p.lib().UseHydFile(ctx, path)
	return p.tk.check(ctx, engine.SymUseHydFile, s, err)
}

// SolveH runs the hydraulic simulation.
func (p *Project) SolveH(ctx context.Context) error {
	s, err := p.lib().SolveH(ctx)
	return p.tk.check(ctx, engine.SymSolveH, s, err)
}

// Init prepares a quality run. With save set, results are written to the
// engine's scratch output file as the run progresses.
func (p *Project) Init(ctx context.Context, save bool) error {
	var flag int32
	if save {
		flag = 1
	}
	s, err := p.lib().Init(ctx, flag)
	return p.tk.check(ctx, engine.SymInit, s, err)
}

// SolveQ runs the whole quality simulation.
func (p *Project) SolveQ(ctx context.Context) error {
	s, err := p.lib().SolveQ(ctx)
	return p.tk.check(ctx, engine.SymSolveQ, s, err)
}

// Step advances the quality simulation by one time step.
func (p *Project) Step(ctx context.Context) (Clock, error) {
	t, tleft, s, err := p.lib().Step(ctx)
	if err := p.tk.check(ctx, engine.SymStep, s, err); err != nil {
		return Clock{}, err
	}
	return Clock{Time: t, TimeLeft: tleft}, nil
}

// Steps steps the simulation until the time left reaches zero. Iteration
// stops after the first error, which is yielded.
func (p *Project) Steps(ctx context.Context) iter.Seq2[Clock, error] {
	return func(yield func(Clock, error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(Clock{}, err)
				return
			}
			c, err := p.Step(ctx)
			if !yield(c, err) || err != nil || c.Done() {
				return
			}
		}
	}
}

// SaveOutFile writes binary results to path.
func (p *Project) SaveOutFile(ctx context.Context, path string) error {
	s, err := p.lib().SaveOutFile(ctx, path)
	return p.tk.check(ctx, engine.SymSaveOutFile, s, err)
}

// SaveMsxFile writes the project, with any changes made through the
// facade, as an MSX input file.
func (p *Project) SaveMsxFile(ctx context.Context, path string) error {
	s, err := p.lib().SaveMsxFile(ctx, path)
	return p.tk.check(ctx, engine.SymSaveMsxFile, s, err)
}

// Report writes the engine's report file.
func (p *Project) Report(ctx context.Context) error {
	s, err := p.lib().Report(ctx)
	return p.tk.check(ctx, engine.SymReport, s, err)
}

// GetIndex returns the 1-based index of the object named id.
func (p *Project) GetIndex(ctx context.Context, typ msx.ObjectType, id string) (int, error) {
	t, err := objectType(engine.SymGetIndex, typ)
	if err != nil {
		return 0, err
	}
	idx, s, err := p.lib().GetIndex(ctx, t, id)
	if err := p.tk.check(ctx, engine.SymGetIndex, s, err); err != nil {
		return 0, err
	}
	return int(idx), nil
}

// GetIDLen returns the length of an object's ID.
func (p *Project) GetIDLen(ctx context.Context, typ msx.ObjectType, index int) (int, error) {
	t, err := objectType(engine.SymGetIDLen, typ)
	if err != nil {
		return 0, err
	}
	idx, err := toInt32(engine.SymGetIDLen, "index", index)
	if err != nil {
		return 0, err
	}
	n, s, err := p.lib().GetIDLen(ctx, t, idx)
	if err := p.tk.check(ctx, engine.SymGetIDLen, s, err); err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetID returns an object's ID. The ID length is queried first so the
// buffer never truncates it.
func (p *Project) GetID(ctx context.Context, typ msx.ObjectType, index int) (string, error) {
	n, err := p.GetIDLen(ctx, typ, index)
	if err != nil {
		return "", err
	}
	size := max(n+1, engine.MinIDBufLen)
	id, s, err := p.lib().GetID(ctx, int32(typ), int32(index), int32(size-1))
	if err := p.tk.check(ctx, engine.SymGetID, s, err); err != nil {
		return "", err
	}
	return id, nil
}

// GetCount returns the number of objects of a type.
func (p *Project) GetCount(ctx context.Context, typ msx.ObjectType) (int, error) {
	t, err := objectType(engine.SymGetCount, typ)
	if err != nil {
		return 0, err
	}
	n, s, err := p.lib().GetCount(ctx, t)
	if err := p.tk.check(ctx, engine.SymGetCount, s, err); err != nil {
		return 0, err
	}
	return int(n), nil
}

// IDs returns the IDs of every object of a type, in index order.
func (p *Project) IDs(ctx context.Context, typ msx.ObjectType) ([]string, error) {
	n, err := p.GetCount(ctx, typ)
	if err != nil {
		return nil, err
	}
	ids := make([]string, n)
	for i := range n {
		if ids[i], err = p.GetID(ctx, typ, i+1); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// GetInitQual returns the initial quality of a species at a node or link.
func (p *Project) GetInitQual(ctx context.Context, typ msx.ObjectType, index, species int) (float64, error) {
	return p.quality(ctx, engine.SymGetInitQual, p.lib().GetInitQual, typ, index, species)
}

// GetQual returns the current quality of a species at a node or link.
func (p *Project) GetQual(ctx context.Context, typ msx.ObjectType, index, species int) (float64, error) {
	return p.quality(ctx, engine.SymGetQual, p.lib().GetQual, typ, index, species)
}

// GetParameter returns a reaction parameter's value at a node or link.
func (p *Project) GetParameter(ctx context.Context, typ msx.ObjectType, index, param int) (float64, error) {
	return p.quality(ctx, engine.SymGetParameter, p.lib().GetParameter, typ, index, param)
}

type elementGetter func(ctx context.Context, typ, index, col int32) (float64, engine.Status, error)

func (p *Project) quality(ctx context.Context, op string, get elementGetter, typ msx.ObjectType, index, col int) (float64, error) {
	t, err := elementType(op, typ)
	if err != nil {
		return 0, err
	}
	args, err := ints(op, []string{"index", "column"}, index, col)
	if err != nil {
		return 0, err
	}
	v, s, err := get(ctx, t, args[0], args[1])
	if err := p.tk.check(ctx, op, s, err); err != nil {
		return 0, err
	}
	return v, nil
}

// GetConstant returns a reaction constant.
func (p *Project) GetConstant(ctx context.Context, index int) (float64, error) {
	idx, err := toInt32(engine.SymGetConstant, "index", index)
	if err != nil {
		return 0, err
	}
	v, s, err := p.lib().GetConstant(ctx, idx)
	if err := p.tk.check(ctx, engine.SymGetConstant, s, err); err != nil {
		return 0, err
	}
	return v, nil
}

// GetSource returns the source of a species at a node.
func (p *Project) GetSource(ctx context.Context, node, species int) (Source, error) {
	args, err := ints(engine.SymGetSource, []string{"node", "species"}, node, species)
	if err != nil {
		return Source{}, err
	}
	typ, level, pat, s, err := p.lib().GetSource(ctx, args[0], args[1])
	if err := p.tk.check(ctx, engine.SymGetSource, s, err); err != nil {
		return Source{}, err
	}
	return Source{Type: msx.SourceType(typ), Level: level, Pattern: int(pat)}, nil
}

// GetPatternLen returns the number of periods in a pattern.
func (p *Project) GetPatternLen(ctx context.Context, pattern int) (int, error) {
	idx, err := toInt32(engine.SymGetPatternLen, "pattern", pattern)
	if err != nil {
		return 0, err
	}
	n, s, err := p.lib().GetPatternLen(ctx, idx)
	if err := p.tk.check(ctx, engine.SymGetPatternLen, s, err); err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetPatternValue returns the multiplier of one 1-based pattern period.
func (p *Project) GetPatternValue(ctx context.Context, pattern, period int) (float64, error) {
	args, err := ints(engine.SymGetPatternValue, []string{"pattern", "period"}, pattern, period)
	if err != nil {
		return 0, err
	}
	v, s, err := p.lib().GetPatternValue(ctx, args[0], args[1])
	if err := p.tk.check(ctx, engine.SymGetPatternValue, s, err); err != nil {
		return 0, err
	}
	return v, nil
}

// GetSpecies returns a species' attributes.
func (p *Project) GetSpecies(ctx context.Context, species int) (Species, error) {
	idx, err := toInt32(engine.SymGetSpecies, "species", species)
	if err != nil {
		return Species{}, err
	}
	loc, units, aTol, rTol, s, err := p.lib().GetSpecies(ctx, idx)
	if err := p.tk.check(ctx, engine.SymGetSpecies, s, err); err != nil {
		return Species{}, err
	}
	return Species{Location: msx.LocationType(loc), Units: units, ATol: aTol, RTol: rTol}, nil
}

// SetConstant changes a reaction constant.
func (p *Project) SetConstant(ctx context.Context, index int, value float64) error {
	idx, err := toInt32(engine.SymSetConstant, "index", index)
	if err != nil {
		return err
	}
	s, err := p.lib().SetConstant(ctx, idx, value)
	return p.tk.check(ctx, engine.SymSetConstant, s, err)
}

// SetParameter changes a reaction parameter at a node or link.
func (p *Project) SetParameter(ctx context.Context, typ msx.ObjectType, index, param int, value float64) error {
	return p.setElement(ctx, engine.SymSetParameter, p.lib().SetParameter, typ, index, param, value)
}

// SetInitQual changes the initial quality of a species at a node or link.
func (p *Project) SetInitQual(ctx context.Context, typ msx.ObjectType, index, species int, value float64) error {
	return p.setElement(ctx, engine.SymSetInitQual, p.lib().SetInitQual, typ, index, species, value)
}

type elementSetter func(ctx context.Context, typ, index, col int32, value float64) (engine.Status, error)

func (p *Project) setElement(ctx context.Context, op string, set elementSetter, typ msx.ObjectType, index, col int, value float64) error {
	t, err := elementType(op, typ)
	if err != nil {
		return err
	}
	args, err := ints(op, []string{"index", "column"}, index, col)
	if err != nil {
		return err
	}
	s, err := set(ctx, t, args[0], args[1], value)
	return p.tk.check(ctx, op, s, err)
}

// SetSource sets the source of a species at a node. Pattern 0 means a
// constant source.
func (p *Project) SetSource(ctx context.Context, node, species int, typ msx.SourceType, level float64, pattern int) error {
	if !typ.Valid() {
		return errors.UnrecognizedType(engine.SymSetSource, "source type", typ)
	}
	args, err := ints(engine.SymSetSource, []string{"node", "species", "pattern"}, node, species, pattern)
	if err != nil {
		return err
	}
	s, err := p.lib().SetSource(ctx, args[0], args[1], int32(typ), level, args[2])
	return p.tk.check(ctx, engine.SymSetSource, s, err)
}

// SetPattern replaces all multipliers of a pattern. An empty slice is
// rejected without calling the engine.
func (p *Project) SetPattern(ctx context.Context, pattern int, mult []float64) error {
	if len(mult) == 0 {
		return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Op(engine.SymSetPattern).
			Value(pattern).
			Detail("pattern %d: no multipliers", pattern).
			Build()
	}
	args, err := ints(engine.SymSetPattern, []string{"pattern", "length"}, pattern, len(mult))
	if err != nil {
		return err
	}
	buf := make([]float64, len(mult))
	copy(buf, mult)
	s, err := p.lib().SetPattern(ctx, args[0], buf, args[1])
	return p.tk.check(ctx, engine.SymSetPattern, s, err)
}

// SetPatternValue changes the multiplier of one 1-based pattern period.
func (p *Project) SetPatternValue(ctx context.Context, pattern, period int, value float64) error {
	args, err := ints(engine.SymSetPatternValue, []string{"pattern", "period"}, pattern, period)
	if err != nil {
		return err
	}
	s, err := p.lib().SetPatternValue(ctx, args[0], args[1], value)
	return p.tk.check(ctx, engine.SymSetPatternValue, s, err)
}

// AddPattern appends a new, empty pattern named id.
func (p *Project) AddPattern(ctx context.Context, id string) error {
	s, err := p.lib().AddPattern(ctx, id)
	return p.tk.check(ctx, engine.SymAddPattern, s, err)
}
