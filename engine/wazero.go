package engine

import (
	"context"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/msx-toolkit/errors"
)

// WazeroConfig holds configuration for the wasm backend
type WazeroConfig struct {
	// Stdout and Stderr receive the engine's console output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// FSRoot is the host directory mounted at the guest's "/". Input,
	// hydraulics, output and report paths are resolved inside it.
	// Empty means the current working directory.
	FSRoot string

	// ModuleName names the guest instance. Empty means "epanetmsx".
	ModuleName string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// WazeroLibrary runs an EPANET-MSX build compiled to wasm32-wasi.
// It is NOT safe for concurrent use.
type WazeroLibrary struct {
	runtime wazero.Runtime
	module  api.Module
	memory  *WazeroMemory
	alloc   *guestAllocator
	funcs   map[string]api.Function
}

var _ Library = (*WazeroLibrary)(nil)

// LoadWazeroLibrary reads a wasm module from path and instantiates it.
func LoadWazeroLibrary(ctx context.Context, path string, cfg *WazeroConfig) (*WazeroLibrary, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read module "+path, err)
	}
	return NewWazeroLibrary(ctx, wasm, cfg)
}

// NewWazeroLibrary compiles and instantiates wasm, resolving every engine
// export up front so a missing entry point fails here rather than mid-run.
func NewWazeroLibrary(ctx context.Context, wasm []byte, cfg *WazeroConfig) (*WazeroLibrary, error) {
	if cfg == nil {
		cfg = &WazeroConfig{}
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	lib, err := instantiate(ctx, rt, wasm, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return lib, nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, wasm []byte, cfg *WazeroConfig) (*WazeroLibrary, error) {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return nil, errors.Load("instantiate WASI", err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	root := cfg.FSRoot
	if root == "" {
		root = "."
	}
	name := cfg.ModuleName
	if name == "" {
		name = "epanetmsx"
	}
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(root, "/")).
		WithStdout(stdout).
		WithStderr(stderr).
		// Reactor builds export _initialize; command builds are not supported.
		WithStartFunctions("_initialize")

	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Load("instantiate module", err)
	}

	mem := mod.Memory()
	if mem == nil {
		mod.Close(ctx)
		return nil, errors.Load("module exports no memory", nil)
	}

	alloc, err := newGuestAllocator(mod)
	if err != nil {
		mod.Close(ctx)
		return nil, err
	}

	funcs := make(map[string]api.Function, len(Symbols))
	for _, sym := range Symbols {
		fn := mod.ExportedFunction(sym)
		if fn == nil {
			mod.Close(ctx)
			return nil, errors.MissingSymbol(sym, nil)
		}
		funcs[sym] = fn
	}

	Logger().Debug("wasm engine loaded",
		zap.String("module", name),
		zap.String("fs_root", root),
		zap.Uint32("memory_bytes", mem.Size()))

	return &WazeroLibrary{
		runtime: rt,
		module:  mod,
		memory:  &WazeroMemory{mem: mem},
		alloc:   alloc,
		funcs:   funcs,
	}, nil
}

// Release closes the guest instance and the wazero runtime.
func (l *WazeroLibrary) Release(ctx context.Context) error {
	if l.runtime == nil {
		return nil
	}
	err := l.runtime.Close(ctx)
	l.runtime = nil
	l.module = nil
	l.memory = nil
	l.alloc = nil
	l.funcs = nil
	return err
}

// MemorySize returns the current guest memory size in bytes, or 0 after Release.
func (l *WazeroLibrary) MemorySize() uint32 {
	if l.memory == nil {
		return 0
	}
	return l.memory.Size()
}

func (l *WazeroLibrary) frame(ctx context.Context, op string) (*frame, error) {
	if l.module == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return &frame{ctx: ctx, alloc: l.alloc, mem: l.memory, op: op}, nil
}

func (l *WazeroLibrary) call(ctx context.Context, sym string, params ...uint64) (Status, error) {
	fn := l.funcs[sym]
	if fn == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return 0, errors.Trap(sym, err)
	}
	if len(res) == 0 {
		return OK, nil
	}
	return Status(api.DecodeI32(res[0])), nil
}

func i32(v int32) uint64 { return api.EncodeI32(v) }

func ptr(p uint32) uint64 { return api.EncodeU32(p) }

func f64(v float64) uint64 { return api.EncodeF64(v) }

func (l *WazeroLibrary) noArgs(ctx context.Context, sym string) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, sym)
}

func (l *WazeroLibrary) withPath(ctx context.Context, sym, path string) (Status, error) {
	f, err := l.frame(ctx, sym)
	if err != nil {
		return 0, err
	}
	defer f.release()

	p, err := f.cstring(path)
	if err != nil {
		return 0, err
	}
	return l.call(ctx, sym, ptr(p))
}

// outI32 runs sym with args followed by one int* out-param.
func (l *WazeroLibrary) outI32(ctx context.Context, sym string, args ...uint64) (int32, Status, error) {
	f, err := l.frame(ctx, sym)
	if err != nil {
		return 0, 0, err
	}
	defer f.release()

	out, err := f.buffer(4)
	if err != nil {
		return 0, 0, err
	}
	s, err := l.call(ctx, sym, append(args, ptr(out))...)
	if err != nil || s != OK {
		return 0, s, err
	}
	v, err := l.memory.ReadI32(sym, out)
	return v, s, err
}

// outF64 runs sym with args followed by one double* out-param.
func (l *WazeroLibrary) outF64(ctx context.Context, sym string, args ...uint64) (float64, Status, error) {
	f, err := l.frame(ctx, sym)
	if err != nil {
		return 0, 0, err
	}
	defer f.release()

	out, err := f.buffer(8)
	if err != nil {
		return 0, 0, err
	}
	s, err := l.call(ctx, sym, append(args, ptr(out))...)
	if err != nil || s != OK {
		return 0, s, err
	}
	v, err := l.memory.ReadF64(sym, out)
	return v, s, err
}

func (l *WazeroLibrary) Open(ctx context.Context, path string) (Status, error) {
	return l.withPath(ctx, SymOpen, path)
}

func (l *WazeroLibrary) Close(ctx context.Context) (Status, error) {
	return l.noArgs(ctx, SymClose)
}

func (l *WazeroLibrary) UseHydFile(ctx context.Context, path string) (Status, error) {
	return l.withPath(ctx, SymUseHydFile, path)
}

func (l *WazeroLibrary) SolveH(ctx context.Context) (Status, error) {
	return l.noArgs(ctx, SymSolveH)
}

func (l *WazeroLibrary) Init(ctx context.Context, saveFlag int32) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymInit, i32(saveFlag))
}

func (l *WazeroLibrary) SolveQ(ctx context.Context) (Status, error) {
	return l.noArgs(ctx, SymSolveQ)
}

// Step reads two wasm32 longs (4 bytes each).
func (l *WazeroLibrary) Step(ctx context.Context) (int64, int64, Status, error) {
	f, err := l.frame(ctx, SymStep)
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.release()

	out, err := f.buffer(8)
	if err != nil {
		return 0, 0, 0, err
	}
	s, err := l.call(ctx, SymStep, ptr(out), ptr(out+4))
	if err != nil || s != OK {
		return 0, 0, s, err
	}
	t, err := l.memory.ReadI32(SymStep, out)
	if err != nil {
		return 0, 0, s, err
	}
	tleft, err := l.memory.ReadI32(SymStep, out+4)
	if err != nil {
		return 0, 0, s, err
	}
	return int64(t), int64(tleft), s, nil
}

func (l *WazeroLibrary) SaveOutFile(ctx context.Context, path string) (Status, error) {
	return l.withPath(ctx, SymSaveOutFile, path)
}

func (l *WazeroLibrary) SaveMsxFile(ctx context.Context, path string) (Status, error) {
	return l.withPath(ctx, SymSaveMsxFile, path)
}

func (l *WazeroLibrary) Report(ctx context.Context) (Status, error) {
	return l.noArgs(ctx, SymReport)
}

func (l *WazeroLibrary) GetIndex(ctx context.Context, typ int32, name string) (int32, Status, error) {
	f, err := l.frame(ctx, SymGetIndex)
	if err != nil {
		return 0, 0, err
	}
	defer f.release()

	np, err := f.cstring(name)
	if err != nil {
		return 0, 0, err
	}
	out, err := f.buffer(4)
	if err != nil {
		return 0, 0, err
	}
	s, err := l.call(ctx, SymGetIndex, i32(typ), ptr(np), ptr(out))
	if err != nil || s != OK {
		return 0, s, err
	}
	v, err := l.memory.ReadI32(SymGetIndex, out)
	return v, s, err
}

func (l *WazeroLibrary) GetIDLen(ctx context.Context, typ, index int32) (int32, Status, error) {
	return l.outI32(ctx, SymGetIDLen, i32(typ), i32(index))
}

func (l *WazeroLibrary) GetID(ctx context.Context, typ, index, maxLen int32) (string, Status, error) {
	if maxLen < 0 {
		return "", 0, errors.InvalidInput(errors.PhaseMarshal, SymGetID, "negative buffer length")
	}
	f, err := l.frame(ctx, SymGetID)
	if err != nil {
		return "", 0, err
	}
	defer f.release()

	size := uint32(maxLen) + 1
	buf, err := f.buffer(size)
	if err != nil {
		return "", 0, err
	}
	s, err := l.call(ctx, SymGetID, i32(typ), i32(index), ptr(buf), i32(maxLen))
	if err != nil || s != OK {
		return "", s, err
	}
	id, err := l.memory.ReadCString(SymGetID, buf, size)
	return id, s, err
}

func (l *WazeroLibrary) GetInitQual(ctx context.Context, typ, index, species int32) (float64, Status, error) {
	return l.outF64(ctx, SymGetInitQual, i32(typ), i32(index), i32(species))
}

func (l *WazeroLibrary) GetQual(ctx context.Context, typ, index, species int32) (float64, Status, error) {
	return l.outF64(ctx, SymGetQual, i32(typ), i32(index), i32(species))
}

func (l *WazeroLibrary) GetConstant(ctx context.Context, index int32) (float64, Status, error) {
	return l.outF64(ctx, SymGetConstant, i32(index))
}

func (l *WazeroLibrary) GetParameter(ctx context.Context, typ, index, param int32) (float64, Status, error) {
	return l.outF64(ctx, SymGetParameter, i32(typ), i32(index), i32(param))
}

// GetSource lays out int type, double level and int pattern in one block.
func (l *WazeroLibrary) GetSource(ctx context.Context, node, species int32) (int32, float64, int32, Status, error) {
	f, err := l.frame(ctx, SymGetSource)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	defer f.release()

	out, err := f.buffer(16)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	typPtr, levelPtr, patPtr := out, out+8, out+4
	s, err := l.call(ctx, SymGetSource, i32(node), i32(species), ptr(typPtr), ptr(levelPtr), ptr(patPtr))
	if err != nil || s != OK {
		return 0, 0, 0, s, err
	}
	typ, err := l.memory.ReadI32(SymGetSource, typPtr)
	if err != nil {
		return 0, 0, 0, s, err
	}
	level, err := l.memory.ReadF64(SymGetSource, levelPtr)
	if err != nil {
		return 0, 0, 0, s, err
	}
	pat, err := l.memory.ReadI32(SymGetSource, patPtr)
	if err != nil {
		return 0, 0, 0, s, err
	}
	return typ, level, pat, s, nil
}

func (l *WazeroLibrary) GetPatternLen(ctx context.Context, pattern int32) (int32, Status, error) {
	return l.outI32(ctx, SymGetPatternLen, i32(pattern))
}

func (l *WazeroLibrary) GetPatternValue(ctx context.Context, pattern, period int32) (float64, Status, error) {
	return l.outF64(ctx, SymGetPatternValue, i32(pattern), i32(period))
}

func (l *WazeroLibrary) GetCount(ctx context.Context, typ int32) (int32, Status, error) {
	return l.outI32(ctx, SymGetCount, i32(typ))
}

func (l *WazeroLibrary) GetSpecies(ctx context.Context, species int32) (int32, string, float64, float64, Status, error) {
	f, err := l.frame(ctx, SymGetSpecies)
	if err != nil {
		return 0, "", 0, 0, 0, err
	}
	defer f.release()

	// int | pad | double | double | units[15]
	out, err := f.buffer(24 + UnitsBufLen)
	if err != nil {
		return 0, "", 0, 0, 0, err
	}
	typPtr, aTolPtr, rTolPtr, unitsPtr := out, out+8, out+16, out+24
	s, err := l.call(ctx, SymGetSpecies, i32(species), ptr(typPtr), ptr(unitsPtr), ptr(aTolPtr), ptr(rTolPtr))
	if err != nil || s != OK {
		return 0, "", 0, 0, s, err
	}
	typ, err := l.memory.ReadI32(SymGetSpecies, typPtr)
	if err != nil {
		return 0, "", 0, 0, s, err
	}
	units, err := l.memory.ReadCString(SymGetSpecies, unitsPtr, UnitsBufLen)
	if err != nil {
		return 0, "", 0, 0, s, err
	}
	aTol, err := l.memory.ReadF64(SymGetSpecies, aTolPtr)
	if err != nil {
		return 0, "", 0, 0, s, err
	}
	rTol, err := l.memory.ReadF64(SymGetSpecies, rTolPtr)
	if err != nil {
		return 0, "", 0, 0, s, err
	}
	return typ, units, aTol, rTol, s, nil
}

func (l *WazeroLibrary) GetError(ctx context.Context, code, bufLen int32) (string, error) {
	if bufLen <= 0 {
		bufLen = ErrorBufLen
	}
	f, err := l.frame(ctx, SymGetError)
	if err != nil {
		return "", err
	}
	defer f.release()

	buf, err := f.buffer(uint32(bufLen))
	if err != nil {
		return "", err
	}
	if _, err := l.call(ctx, SymGetError, i32(code), ptr(buf), i32(bufLen)); err != nil {
		return "", err
	}
	return l.memory.ReadCString(SymGetError, buf, uint32(bufLen))
}

func (l *WazeroLibrary) SetConstant(ctx context.Context, index int32, value float64) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymSetConstant, i32(index), f64(value))
}

func (l *WazeroLibrary) SetParameter(ctx context.Context, typ, index, param int32, value float64) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymSetParameter, i32(typ), i32(index), i32(param), f64(value))
}

func (l *WazeroLibrary) SetInitQual(ctx context.Context, typ, index, species int32, value float64) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymSetInitQual, i32(typ), i32(index), i32(species), f64(value))
}

func (l *WazeroLibrary) SetSource(ctx context.Context, node, species, srcType int32, level float64, pattern int32) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymSetSource, i32(node), i32(species), i32(srcType), f64(level), i32(pattern))
}

func (l *WazeroLibrary) SetPattern(ctx context.Context, pattern int32, mult []float64, n int32) (Status, error) {
	f, err := l.frame(ctx, SymSetPattern)
	if err != nil {
		return 0, err
	}
	defer f.release()

	arr, err := f.doubles(mult)
	if err != nil {
		return 0, err
	}
	return l.call(ctx, SymSetPattern, i32(pattern), ptr(arr), i32(n))
}

func (l *WazeroLibrary) SetPatternValue(ctx context.Context, pattern, period int32, value float64) (Status, error) {
	if l.module == nil {
		return 0, errors.NotInitialized(errors.PhaseCall, "wasm engine")
	}
	return l.call(ctx, SymSetPatternValue, i32(pattern), i32(period), f64(value))
}

func (l *WazeroLibrary) AddPattern(ctx context.Context, name string) (Status, error) {
	return l.withPath(ctx, SymAddPattern, name)
}
