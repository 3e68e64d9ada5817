// Package enginetest provides an in-memory engine.Library for tests.
//
// Fake keeps a small project model per input path and answers every entry
// point with the status codes the real engine uses for the same situation:
// 503 for an unknown input file, 519 for calls without an open project, 515
// for an unknown object type, 516 for an index out of range, 517 for an
// unknown ID, 518 for an invalid value. Water quality evolves by first-order
// decay of each species' initial value, overridden at nodes with a
// concentration or setpoint source.
//
// Every call is recorded, and any entry point can be made to fail with a
// chosen status or Go error.
package enginetest

import (
	"context"
	"math"
	"sync"

	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/errors"
)

// Object type codes as the engine numbers them.
const (
	typeNode int32 = iota
	typeLink
	typeTank
	typeSpecies
	typeTerm
	typeParameter
	typeConstant
	typePattern
)

// Source type codes.
const (
	srcNone int32 = iota - 1
	srcConcen
	srcMass
	srcSetpoint
	srcFlowPaced
)

// patternStep is the fixed pattern time step in seconds.
const patternStep = 3600

// Call is one recorded entry point invocation.
type Call struct {
	Symbol string
	Args   []any
}

type source struct {
	typ     int32
	level   float64
	pattern int32
}

type project struct {
	model       Model
	hydraulics  bool
	initialized bool
	t, tleft    int64

	// indexed [element type][element][species]
	initial [2][][]float64
	quality [2][][]float64
	// indexed [element type][element][parameter]
	params  [2][][]float64
	sources [][]source
}

// Fake is an in-memory engine.Library.
type Fake struct {
	// Messages is the text GetError reports per code. Codes absent from the
	// map produce an empty message, as the engine does for codes it does not
	// document.
	Messages map[engine.Status]string

	mu       sync.Mutex
	projects map[string]Model
	hydFiles map[string]bool
	failures map[string]engine.Status
	traps    map[string]error
	calls    []Call
	cur      *project
	outputs  []string
	inputs   []string
	reports  int
	released bool
}

var _ engine.Library = (*Fake)(nil)

// New returns a Fake with no projects and the engine's own messages.
func New() *Fake {
	msgs := make(map[engine.Status]string, len(engine.Messages))
	for k, v := range engine.Messages {
		msgs[k] = v
	}
	return &Fake{
		Messages: msgs,
		projects: make(map[string]Model),
		hydFiles: make(map[string]bool),
		failures: make(map[string]engine.Status),
		traps:    make(map[string]error),
	}
}

// AddProject makes path openable with the given model.
func (f *Fake) AddProject(path string, m Model) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[path] = m.clone()
}

// AddHydFile makes path usable with UseHydFile.
func (f *Fake) AddHydFile(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hydFiles[path] = true
}

// Fail makes every call to symbol return status without side effects.
func (f *Fake) Fail(symbol string, status engine.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[symbol] = status
}

// Trap makes every call to symbol return err, as a guest trap would.
func (f *Fake) Trap(symbol string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.traps[symbol] = err
}

// Heal removes failures injected for symbol.
func (f *Fake) Heal(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, symbol)
	delete(f.traps, symbol)
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times symbol was called. An empty symbol counts
// every call.
func (f *Fake) CallCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if symbol == "" {
		return len(f.calls)
	}
	n := 0
	for _, c := range f.calls {
		if c.Symbol == symbol {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// IsOpen reports whether a project is open.
func (f *Fake) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur != nil
}

// Outputs returns the paths passed to successful SaveOutFile calls.
func (f *Fake) Outputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.outputs...)
}

// Inputs returns the paths passed to successful SaveMsxFile calls.
func (f *Fake) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

// Reports returns the number of successful Report calls.
func (f *Fake) Reports() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports
}

// Released reports whether Release was called.
func (f *Fake) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// enter records the call and applies injected failures. Callers hold mu.
func (f *Fake) enter(symbol string, args ...any) (engine.Status, error) {
	f.calls = append(f.calls, Call{Symbol: symbol, Args: args})
	if f.released {
		return 0, errors.NotInitialized(errors.PhaseCall, "fake engine")
	}
	if err := f.traps[symbol]; err != nil {
		return 0, errors.Trap(symbol, err)
	}
	if s, ok := f.failures[symbol]; ok {
		return s, nil
	}
	return engine.OK, nil
}

// open is enter plus the open-project check shared by most entry points.
func (f *Fake) open(symbol string, args ...any) (engine.Status, error) {
	s, err := f.enter(symbol, args...)
	if err != nil || s != engine.OK {
		return s, err
	}
	if f.cur == nil {
		return engine.ErrNotOpened, nil
	}
	return engine.OK, nil
}

func (p *project) ids(typ int32) ([]string, engine.Status) {
	m := &p.model
	switch typ {
	case typeNode:
		return m.Nodes, engine.OK
	case typeLink:
		return m.Links, engine.OK
	case typeTank:
		return m.Tanks, engine.OK
	case typeSpecies:
		ids := make([]string, len(m.Species))
		for i, s := range m.Species {
			ids[i] = s.ID
		}
		return ids, engine.OK
	case typeTerm:
		return m.Terms, engine.OK
	case typeParameter:
		return valueIDs(m.Parameters), engine.OK
	case typeConstant:
		return valueIDs(m.Constants), engine.OK
	case typePattern:
		ids := make([]string, len(m.Patterns))
		for i, pat := range m.Patterns {
			ids[i] = pat.ID
		}
		return ids, engine.OK
	default:
		return nil, engine.ErrInvalidObjType
	}
}

// namedIDs is ids restricted to the types the engine resolves by name:
// species, parameters, constants and patterns. Network elements and terms
// are counted but not named.
func (p *project) namedIDs(typ int32) ([]string, engine.Status) {
	switch typ {
	case typeSpecies, typeParameter, typeConstant, typePattern:
		return p.ids(typ)
	default:
		return nil, engine.ErrInvalidObjType
	}
}

func valueIDs(vs []Value) []string {
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.ID
	}
	return ids
}

func inRange(index int32, n int) bool {
	return index >= 1 && int(index) <= n
}

// element validates a node/link element and a 1-based column index into it.
func (p *project) element(typ, index, col int32, cols int) engine.Status {
	if typ != typeNode && typ != typeLink {
		return engine.ErrInvalidObjType
	}
	if !inRange(index, len(p.initial[typ])) || !inRange(col, cols) {
		return engine.ErrInvalidObjIndex
	}
	return engine.OK
}

func newProject(m Model) *project {
	p := &project{model: m, tleft: m.Duration}
	ns := len(m.Species)
	np := len(m.Parameters)
	counts := [2]int{len(m.Nodes), len(m.Links)}
	for typ, n := range counts {
		p.initial[typ] = make([][]float64, n)
		p.quality[typ] = make([][]float64, n)
		p.params[typ] = make([][]float64, n)
		for i := range n {
			p.initial[typ][i] = make([]float64, ns)
			p.quality[typ][i] = make([]float64, ns)
			for s, sp := range m.Species {
				p.initial[typ][i][s] = sp.Initial
			}
			p.params[typ][i] = make([]float64, np)
			for j, v := range m.Parameters {
				p.params[typ][i][j] = v.Value
			}
		}
	}
	p.sources = make([][]source, len(m.Nodes))
	for i := range p.sources {
		p.sources[i] = make([]source, ns)
		for s := range p.sources[i] {
			p.sources[i][s].typ = srcNone
		}
	}
	return p
}

func (p *project) reset() {
	p.initialized = true
	p.t = 0
	p.tleft = p.model.Duration
	for typ := range p.quality {
		for i := range p.quality[typ] {
			copy(p.quality[typ][i], p.initial[typ][i])
		}
	}
}

func (p *project) multiplier(pattern int32) float64 {
	if pattern < 1 || int(pattern) > len(p.model.Patterns) {
		return 1
	}
	mult := p.model.Patterns[pattern-1].Multipliers
	if len(mult) == 0 {
		return 1
	}
	return mult[int(p.t/patternStep)%len(mult)]
}

func (p *project) advance() {
	if p.tleft <= 0 {
		return
	}
	step := p.model.QualityStep
	if step <= 0 {
		step = p.model.Duration
	}
	p.t = min(p.t+step, p.model.Duration)
	p.tleft = p.model.Duration - p.t

	hours := float64(p.t) / 3600
	for typ := range p.quality {
		for i := range p.quality[typ] {
			for s, sp := range p.model.Species {
				p.quality[typ][i][s] = p.initial[typ][i][s] * math.Exp(-sp.Decay*hours)
			}
		}
	}
	for i, row := range p.sources {
		for s, src := range row {
			v := src.level * p.multiplier(src.pattern)
			switch src.typ {
			case srcConcen, srcSetpoint:
				p.quality[typeNode][i][s] = v
			case srcMass, srcFlowPaced:
				p.quality[typeNode][i][s] += v
			}
		}
	}
}

func (f *Fake) Open(_ context.Context, path string) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.enter(engine.SymOpen, path); err != nil || s != engine.OK {
		return s, err
	}
	if f.cur != nil {
		return engine.ErrAlreadyOpened, nil
	}
	m, ok := f.projects[path]
	if !ok {
		return engine.ErrOpenMsxFile, nil
	}
	f.cur = newProject(m.clone())
	return engine.OK, nil
}

func (f *Fake) Close(context.Context) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymClose); err != nil || s != engine.OK {
		return s, err
	}
	f.cur = nil
	return engine.OK, nil
}

func (f *Fake) UseHydFile(_ context.Context, path string) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymUseHydFile, path); err != nil || s != engine.OK {
		return s, err
	}
	if !f.hydFiles[path] {
		return engine.ErrOpenHydFile, nil
	}
	f.cur.hydraulics = true
	return engine.OK, nil
}

func (f *Fake) SolveH(context.Context) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSolveH); err != nil || s != engine.OK {
		return s, err
	}
	f.cur.hydraulics = true
	return engine.OK, nil
}

func (f *Fake) Init(_ context.Context, saveFlag int32) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymInit, saveFlag); err != nil || s != engine.OK {
		return s, err
	}
	if !f.cur.hydraulics {
		return engine.ErrOpenHydFile, nil
	}
	f.cur.reset()
	return engine.OK, nil
}

func (f *Fake) SolveQ(context.Context) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSolveQ); err != nil || s != engine.OK {
		return s, err
	}
	if !f.cur.hydraulics {
		return engine.ErrOpenHydFile, nil
	}
	f.cur.reset()
	for f.cur.tleft > 0 {
		f.cur.advance()
	}
	return engine.OK, nil
}

func (f *Fake) Step(context.Context) (int64, int64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymStep); err != nil || s != engine.OK {
		return 0, 0, s, err
	}
	if !f.cur.initialized {
		return 0, 0, engine.ErrIntegrate, nil
	}
	f.cur.advance()
	return f.cur.t, f.cur.tleft, engine.OK, nil
}

func (f *Fake) SaveOutFile(_ context.Context, path string) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSaveOutFile, path); err != nil || s != engine.OK {
		return s, err
	}
	if !f.cur.initialized {
		return engine.ErrIOOutFile, nil
	}
	f.outputs = append(f.outputs, path)
	return engine.OK, nil
}

func (f *Fake) SaveMsxFile(_ context.Context, path string) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSaveMsxFile, path); err != nil || s != engine.OK {
		return s, err
	}
	f.inputs = append(f.inputs, path)
	return engine.OK, nil
}

func (f *Fake) Report(context.Context) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymReport); err != nil || s != engine.OK {
		return s, err
	}
	f.reports++
	return engine.OK, nil
}

func (f *Fake) GetIndex(_ context.Context, typ int32, name string) (int32, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetIndex, typ, name); err != nil || s != engine.OK {
		return 0, s, err
	}
	ids, s := f.cur.namedIDs(typ)
	if s != engine.OK {
		return 0, s, nil
	}
	for i, id := range ids {
		if id == name {
			return int32(i + 1), engine.OK, nil
		}
	}
	return 0, engine.ErrUndefinedObjID, nil
}

func (f *Fake) id(typ, index int32) (string, engine.Status) {
	ids, s := f.cur.namedIDs(typ)
	if s != engine.OK {
		return "", s
	}
	if !inRange(index, len(ids)) {
		return "", engine.ErrInvalidObjIndex
	}
	return ids[index-1], engine.OK
}

func (f *Fake) GetIDLen(_ context.Context, typ, index int32) (int32, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetIDLen, typ, index); err != nil || s != engine.OK {
		return 0, s, err
	}
	id, s := f.id(typ, index)
	if s != engine.OK {
		return 0, s, nil
	}
	return int32(len(id)), engine.OK, nil
}

func (f *Fake) GetID(_ context.Context, typ, index, maxLen int32) (string, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetID, typ, index, maxLen); err != nil || s != engine.OK {
		return "", s, err
	}
	id, s := f.id(typ, index)
	if s != engine.OK {
		return "", s, nil
	}
	if int(maxLen) < len(id) {
		id = id[:max(maxLen, 0)]
	}
	return id, engine.OK, nil
}

func (f *Fake) GetInitQual(_ context.Context, typ, index, species int32) (float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetInitQual, typ, index, species); err != nil || s != engine.OK {
		return 0, s, err
	}
	if s := f.cur.element(typ, index, species, len(f.cur.model.Species)); s != engine.OK {
		return 0, s, nil
	}
	return f.cur.initial[typ][index-1][species-1], engine.OK, nil
}

func (f *Fake) GetQual(_ context.Context, typ, index, species int32) (float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetQual, typ, index, species); err != nil || s != engine.OK {
		return 0, s, err
	}
	if s := f.cur.element(typ, index, species, len(f.cur.model.Species)); s != engine.OK {
		return 0, s, nil
	}
	return f.cur.quality[typ][index-1][species-1], engine.OK, nil
}

func (f *Fake) GetConstant(_ context.Context, index int32) (float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetConstant, index); err != nil || s != engine.OK {
		return 0, s, err
	}
	if !inRange(index, len(f.cur.model.Constants)) {
		return 0, engine.ErrInvalidObjIndex, nil
	}
	return f.cur.model.Constants[index-1].Value, engine.OK, nil
}

func (f *Fake) GetParameter(_ context.Context, typ, index, param int32) (float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetParameter, typ, index, param); err != nil || s != engine.OK {
		return 0, s, err
	}
	if s := f.cur.element(typ, index, param, len(f.cur.model.Parameters)); s != engine.OK {
		return 0, s, nil
	}
	return f.cur.params[typ][index-1][param-1], engine.OK, nil
}

func (f *Fake) GetSource(_ context.Context, node, species int32) (int32, float64, int32, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetSource, node, species); err != nil || s != engine.OK {
		return 0, 0, 0, s, err
	}
	if s := f.cur.element(typeNode, node, species, len(f.cur.model.Species)); s != engine.OK {
		return 0, 0, 0, s, nil
	}
	src := f.cur.sources[node-1][species-1]
	return src.typ, src.level, src.pattern, engine.OK, nil
}

func (f *Fake) GetPatternLen(_ context.Context, pattern int32) (int32, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetPatternLen, pattern); err != nil || s != engine.OK {
		return 0, s, err
	}
	if !inRange(pattern, len(f.cur.model.Patterns)) {
		return 0, engine.ErrInvalidObjIndex, nil
	}
	return int32(len(f.cur.model.Patterns[pattern-1].Multipliers)), engine.OK, nil
}

func (f *Fake) GetPatternValue(_ context.Context, pattern, period int32) (float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetPatternValue, pattern, period); err != nil || s != engine.OK {
		return 0, s, err
	}
	if !inRange(pattern, len(f.cur.model.Patterns)) {
		return 0, engine.ErrInvalidObjIndex, nil
	}
	mult := f.cur.model.Patterns[pattern-1].Multipliers
	if !inRange(period, len(mult)) {
		return 0, engine.ErrInvalidObjIndex, nil
	}
	return mult[period-1], engine.OK, nil
}

func (f *Fake) GetCount(_ context.Context, typ int32) (int32, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetCount, typ); err != nil || s != engine.OK {
		return 0, s, err
	}
	ids, s := f.cur.ids(typ)
	if s != engine.OK {
		return 0, s, nil
	}
	return int32(len(ids)), engine.OK, nil
}

func (f *Fake) GetSpecies(_ context.Context, species int32) (int32, string, float64, float64, engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymGetSpecies, species); err != nil || s != engine.OK {
		return 0, "", 0, 0, s, err
	}
	if !inRange(species, len(f.cur.model.Species)) {
		return 0, "", 0, 0, engine.ErrInvalidObjIndex, nil
	}
	sp := f.cur.model.Species[species-1]
	units := sp.Units
	if len(units) > engine.UnitsBufLen-1 {
		units = units[:engine.UnitsBufLen-1]
	}
	return sp.Location, units, sp.ATol, sp.RTol, engine.OK, nil
}

func (f *Fake) GetError(_ context.Context, code, bufLen int32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.enter(engine.SymGetError, code, bufLen); err != nil {
		return "", err
	}
	if bufLen <= 0 {
		bufLen = engine.ErrorBufLen
	}
	msg := f.Messages[engine.Status(code)]
	if len(msg) > int(bufLen)-1 {
		msg = msg[:bufLen-1]
	}
	return msg, nil
}

func (f *Fake) SetConstant(_ context.Context, index int32, value float64) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetConstant, index, value); err != nil || s != engine.OK {
		return s, err
	}
	if !inRange(index, len(f.cur.model.Constants)) {
		return engine.ErrInvalidObjIndex, nil
	}
	f.cur.model.Constants[index-1].Value = value
	return engine.OK, nil
}

func (f *Fake) SetParameter(_ context.Context, typ, index, param int32, value float64) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetParameter, typ, index, param, value); err != nil || s != engine.OK {
		return s, err
	}
	if s := f.cur.element(typ, index, param, len(f.cur.model.Parameters)); s != engine.OK {
		return s, nil
	}
	f.cur.params[typ][index-1][param-1] = value
	return engine.OK, nil
}

func (f *Fake) SetInitQual(_ context.Context, typ, index, species int32, value float64) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetInitQual, typ, index, species, value); err != nil || s != engine.OK {
		return s, err
	}
	if s := f.cur.element(typ, index, species, len(f.cur.model.Species)); s != engine.OK {
		return s, nil
	}
	f.cur.initial[typ][index-1][species-1] = value
	return engine.OK, nil
}

func (f *Fake) SetSource(_ context.Context, node, species, srcType int32, level float64, pattern int32) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetSource, node, species, srcType, level, pattern); err != nil || s != engine.OK {
		return s, err
	}
	if s := f.cur.element(typeNode, node, species, len(f.cur.model.Species)); s != engine.OK {
		return s, nil
	}
	if srcType < srcNone || srcType > srcFlowPaced {
		return engine.ErrInvalidObjParam, nil
	}
	if pattern < 0 || int(pattern) > len(f.cur.model.Patterns) {
		return engine.ErrInvalidObjIndex, nil
	}
	f.cur.sources[node-1][species-1] = source{typ: srcType, level: level, pattern: pattern}
	return engine.OK, nil
}

func (f *Fake) SetPattern(_ context.Context, pattern int32, mult []float64, n int32) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetPattern, pattern, append([]float64(nil), mult...), n); err != nil || s != engine.OK {
		return s, err
	}
	if !inRange(pattern, len(f.cur.model.Patterns)) {
		return engine.ErrInvalidObjIndex, nil
	}
	if n < 0 || int(n) > len(mult) {
		return engine.ErrInvalidObjParam, nil
	}
	f.cur.model.Patterns[pattern-1].Multipliers = append([]float64(nil), mult[:n]...)
	return engine.OK, nil
}

func (f *Fake) SetPatternValue(_ context.Context, pattern, period int32, value float64) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymSetPatternValue, pattern, period, value); err != nil || s != engine.OK {
		return s, err
	}
	if !inRange(pattern, len(f.cur.model.Patterns)) {
		return engine.ErrInvalidObjIndex, nil
	}
	mult := f.cur.model.Patterns[pattern-1].Multipliers
	if !inRange(period, len(mult)) {
		return engine.ErrInvalidObjIndex, nil
	}
	mult[period-1] = value
	return engine.OK, nil
}

func (f *Fake) AddPattern(_ context.Context, name string) (engine.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, err := f.open(engine.SymAddPattern, name); err != nil || s != engine.OK {
		return s, err
	}
	if name == "" {
		return engine.ErrInvalidObjParam, nil
	}
	for _, p := range f.cur.model.Patterns {
		if p.ID == name {
			return engine.ErrInvalidObjParam, nil
		}
	}
	f.cur.model.Patterns = append(f.cur.model.Patterns, Pattern{ID: name})
	return engine.OK, nil
}

// Release marks the fake released; later calls fail as on a released backend.
func (f *Fake) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	f.cur = nil
	return nil
}
