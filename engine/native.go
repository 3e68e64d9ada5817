//go:build cgo && (linux || darwin)

package engine

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

static void* msx_dlopen(const char* path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static int msx_dlclose(void* h) {
	return dlclose(h);
}

// Clear dlerror, call dlsym, and return the error (if any) alongside the symbol.
static void* msx_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	if (e) { *err = e; return NULL; }
	*err = NULL;
	return p;
}

static const char* msx_dlerror(void) {
	return dlerror();
}

// One trampoline per native signature shape; cgo cannot call C function
// pointers directly.
static int msx_v(void* f) { return ((int (*)(void))f)(); }
static int msx_s(void* f, char* s) { return ((int (*)(char*))f)(s); }
static int msx_i(void* f, int a) { return ((int (*)(int))f)(a); }
static int msx_step(void* f, long* t, long* tl) { return ((int (*)(long*, long*))f)(t, tl); }
static int msx_i_s_pi(void* f, int a, char* s, int* o) { return ((int (*)(int, char*, int*))f)(a, s, o); }
static int msx_i_pi(void* f, int a, int* o) { return ((int (*)(int, int*))f)(a, o); }
static int msx_ii_pi(void* f, int a, int b, int* o) { return ((int (*)(int, int, int*))f)(a, b, o); }
static int msx_getid(void* f, int a, int b, char* s, int n) { return ((int (*)(int, int, char*, int))f)(a, b, s, n); }
static int msx_i_pd(void* f, int a, double* o) { return ((int (*)(int, double*))f)(a, o); }
static int msx_ii_pd(void* f, int a, int b, double* o) { return ((int (*)(int, int, double*))f)(a, b, o); }
static int msx_iii_pd(void* f, int a, int b, int c, double* o) { return ((int (*)(int, int, int, double*))f)(a, b, c, o); }
static int msx_getsource(void* f, int a, int b, int* t, double* l, int* p) { return ((int (*)(int, int, int*, double*, int*))f)(a, b, t, l, p); }
static int msx_getspecies(void* f, int a, int* t, char* u, double* at, double* rt) { return ((int (*)(int, int*, char*, double*, double*))f)(a, t, u, at, rt); }
static void msx_geterror(void* f, int c, char* s, int n) { ((int (*)(int, char*, int))f)(c, s, n); }
static int msx_i_d(void* f, int a, double v) { return ((int (*)(int, double))f)(a, v); }
static int msx_ii_d(void* f, int a, int b, double v) { return ((int (*)(int, int, double))f)(a, b, v); }
static int msx_iii_d(void* f, int a, int b, int c, double v) { return ((int (*)(int, int, int, double))f)(a, b, c, v); }
static int msx_setsource(void* f, int a, int b, int t, double l, int p) { return ((int (*)(int, int, int, double, int))f)(a, b, t, l, p); }
static int msx_setpattern(void* f, int a, double* m, int n) { return ((int (*)(int, double*, int))f)(a, m, n); }
*/
import "C"

import (
	"context"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/msx-toolkit/errors"
)

// NativeLibrary calls a shared EPANET-MSX build loaded with dlopen.
// It is NOT safe for concurrent use.
type NativeLibrary struct {
	handle unsafe.Pointer
	syms   map[string]unsafe.Pointer
	path   string
}

var _ Library = (*NativeLibrary)(nil)

// OpenNative loads the shared library at path and resolves every engine
// entry point.
func OpenNative(path string) (*NativeLibrary, error) {
	if err := checkText("dlopen", path); err != nil {
		return nil, err
	}
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))

	h := C.msx_dlopen(cs)
	if h == nil {
		return nil, errors.Load("dlopen "+path+": "+C.GoString(C.msx_dlerror()), nil)
	}

	syms := make(map[string]unsafe.Pointer, len(Symbols))
	for _, name := range Symbols {
		p, err := dlsym(h, name)
		if err != nil {
			C.msx_dlclose(h)
			return nil, err
		}
		syms[name] = p
	}

	Logger().Debug("native engine loaded", zap.String("path", path))
	return &NativeLibrary{handle: h, syms: syms, path: path}, nil
}

func dlsym(h unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))

	var cerr *C.char
	p := C.msx_dlsym(h, cs, &cerr)
	if cerr != nil {
		return nil, errors.MissingSymbol(name, errors.Load(C.GoString(cerr), nil))
	}
	if p == nil {
		return nil, errors.MissingSymbol(name, nil)
	}
	return p, nil
}

// Path returns the path the library was loaded from.
func (l *NativeLibrary) Path() string { return l.path }

// Release unloads the shared library.
func (l *NativeLibrary) Release(context.Context) error {
	if l.handle == nil {
		return nil
	}
	rc := C.msx_dlclose(l.handle)
	l.handle = nil
	l.syms = nil
	if rc != 0 {
		return errors.Load("dlclose "+l.path+": "+C.GoString(C.msx_dlerror()), nil)
	}
	return nil
}

func (l *NativeLibrary) sym(name string) (unsafe.Pointer, error) {
	p := l.syms[name]
	if p == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "native engine")
	}
	return p, nil
}

func (l *NativeLibrary) noArgs(name string) (Status, error) {
	f, err := l.sym(name)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_v(f)), nil
}

func (l *NativeLibrary) withString(name, s string) (Status, error) {
	if err := checkText(name, s); err != nil {
		return 0, err
	}
	f, err := l.sym(name)
	if err != nil {
		return 0, err
	}
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return Status(C.msx_s(f, cs)), nil
}

func (l *NativeLibrary) Open(_ context.Context, path string) (Status, error) {
	return l.withString(SymOpen, path)
}

func (l *NativeLibrary) Close(context.Context) (Status, error) {
	return l.noArgs(SymClose)
}

func (l *NativeLibrary) UseHydFile(_ context.Context, path string) (Status, error) {
	return l.withString(SymUseHydFile, path)
}

func (l *NativeLibrary) SolveH(context.Context) (Status, error) {
	return l.noArgs(SymSolveH)
}

func (l *NativeLibrary) Init(_ context.Context, saveFlag int32) (Status, error) {
	f, err := l.sym(SymInit)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_i(f, C.int(saveFlag))), nil
}

func (l *NativeLibrary) SolveQ(context.Context) (Status, error) {
	return l.noArgs(SymSolveQ)
}

func (l *NativeLibrary) Step(context.Context) (int64, int64, Status, error) {
	f, err := l.sym(SymStep)
	if err != nil {
		return 0, 0, 0, err
	}
	var t, tleft C.long
	s := Status(C.msx_step(f, &t, &tleft))
	if s != OK {
		return 0, 0, s, nil
	}
	return int64(t), int64(tleft), s, nil
}

func (l *NativeLibrary) SaveOutFile(_ context.Context, path string) (Status, error) {
	return l.withString(SymSaveOutFile, path)
}

func (l *NativeLibrary) SaveMsxFile(_ context.Context, path string) (Status, error) {
	return l.withString(SymSaveMsxFile, path)
}

func (l *NativeLibrary) Report(context.Context) (Status, error) {
	return l.noArgs(SymReport)
}

func (l *NativeLibrary) GetIndex(_ context.Context, typ int32, name string) (int32, Status, error) {
	if err := checkText(SymGetIndex, name); err != nil {
		return 0, 0, err
	}
	f, err := l.sym(SymGetIndex)
	if err != nil {
		return 0, 0, err
	}
	cs := C.CString(name)
	defer C.free(unsafe.Pointer(cs))
	var out C.int
	s := Status(C.msx_i_s_pi(f, C.int(typ), cs, &out))
	if s != OK {
		return 0, s, nil
	}
	return int32(out), s, nil
}

func (l *NativeLibrary) GetIDLen(_ context.Context, typ, index int32) (int32, Status, error) {
	f, err := l.sym(SymGetIDLen)
	if err != nil {
		return 0, 0, err
	}
	var out C.int
	s := Status(C.msx_ii_pi(f, C.int(typ), C.int(index), &out))
	if s != OK {
		return 0, s, nil
	}
	return int32(out), s, nil
}

func (l *NativeLibrary) GetID(_ context.Context, typ, index, maxLen int32) (string, Status, error) {
	f, err := l.sym(SymGetID)
	if err != nil {
		return "", 0, err
	}
	if maxLen < 0 {
		return "", 0, errors.InvalidInput(errors.PhaseMarshal, SymGetID, "negative buffer length")
	}
	buf := (*C.char)(C.calloc(C.size_t(maxLen)+1, 1))
	defer C.free(unsafe.Pointer(buf))
	s := Status(C.msx_getid(f, C.int(typ), C.int(index), buf, C.int(maxLen)))
	if s != OK {
		return "", s, nil
	}
	return cText(C.GoBytes(unsafe.Pointer(buf), C.int(maxLen)+1)), s, nil
}

func (l *NativeLibrary) quality(name string, typ, index, species int32) (float64, Status, error) {
	f, err := l.sym(name)
	if err != nil {
		return 0, 0, err
	}
	var out C.double
	s := Status(C.msx_iii_pd(f, C.int(typ), C.int(index), C.int(species), &out))
	if s != OK {
		return 0, s, nil
	}
	return float64(out), s, nil
}

func (l *NativeLibrary) GetInitQual(_ context.Context, typ, index, species int32) (float64, Status, error) {
	return l.quality(SymGetInitQual, typ, index, species)
}

func (l *NativeLibrary) GetQual(_ context.Context, typ, index, species int32) (float64, Status, error) {
	return l.quality(SymGetQual, typ, index, species)
}

func (l *NativeLibrary) GetConstant(_ context.Context, index int32) (float64, Status, error) {
	f, err := l.sym(SymGetConstant)
	if err != nil {
		return 0, 0, err
	}
	var out C.double
	s := Status(C.msx_i_pd(f, C.int(index), &out))
	if s != OK {
		return 0, s, nil
	}
	return float64(out), s, nil
}

func (l *NativeLibrary) GetParameter(_ context.Context, typ, index, param int32) (float64, Status, error) {
	return l.quality(SymGetParameter, typ, index, param)
}

func (l *NativeLibrary) GetSource(_ context.Context, node, species int32) (int32, float64, int32, Status, error) {
	f, err := l.sym(SymGetSource)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	var typ, pat C.int
	var level C.double
	s := Status(C.msx_getsource(f, C.int(node), C.int(species), &typ, &level, &pat))
	if s != OK {
		return 0, 0, 0, s, nil
	}
	return int32(typ), float64(level), int32(pat), s, nil
}

func (l *NativeLibrary) GetPatternLen(_ context.Context, pattern int32) (int32, Status, error) {
	f, err := l.sym(SymGetPatternLen)
	if err != nil {
		return 0, 0, err
	}
	var out C.int
	s := Status(C.msx_i_pi(f, C.int(pattern), &out))
	if s != OK {
		return 0, s, nil
	}
	return int32(out), s, nil
}

func (l *NativeLibrary) GetPatternValue(_ context.Context, pattern, period int32) (float64, Status, error) {
	f, err := l.sym(SymGetPatternValue)
	if err != nil {
		return 0, 0, err
	}
	var out C.double
	s := Status(C.msx_ii_pd(f, C.int(pattern), C.int(period), &out))
	if s != OK {
		return 0, s, nil
	}
	return float64(out), s, nil
}

func (l *NativeLibrary) GetCount(_ context.Context, typ int32) (int32, Status, error) {
	f, err := l.sym(SymGetCount)
	if err != nil {
		return 0, 0, err
	}
	var out C.int
	s := Status(C.msx_i_pi(f, C.int(typ), &out))
	if s != OK {
		return 0, s, nil
	}
	return int32(out), s, nil
}

func (l *NativeLibrary) GetSpecies(_ context.Context, species int32) (int32, string, float64, float64, Status, error) {
	f, err := l.sym(SymGetSpecies)
	if err != nil {
		return 0, "", 0, 0, 0, err
	}
	var typ C.int
	var aTol, rTol C.double
	units := (*C.char)(C.calloc(UnitsBufLen, 1))
	defer C.free(unsafe.Pointer(units))
	s := Status(C.msx_getspecies(f, C.int(species), &typ, units, &aTol, &rTol))
	if s != OK {
		return 0, "", 0, 0, s, nil
	}
	return int32(typ), cText(C.GoBytes(unsafe.Pointer(units), UnitsBufLen)), float64(aTol), float64(rTol), s, nil
}

func (l *NativeLibrary) GetError(_ context.Context, code, bufLen int32) (string, error) {
	f, err := l.sym(SymGetError)
	if err != nil {
		return "", err
	}
	if bufLen <= 0 {
		bufLen = ErrorBufLen
	}
	buf := (*C.char)(C.calloc(C.size_t(bufLen), 1))
	defer C.free(unsafe.Pointer(buf))
	C.msx_geterror(f, C.int(code), buf, C.int(bufLen))
	return cText(C.GoBytes(unsafe.Pointer(buf), C.int(bufLen))), nil
}

func (l *NativeLibrary) SetConstant(_ context.Context, index int32, value float64) (Status, error) {
	f, err := l.sym(SymSetConstant)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_i_d(f, C.int(index), C.double(value))), nil
}

func (l *NativeLibrary) SetParameter(_ context.Context, typ, index, param int32, value float64) (Status, error) {
	f, err := l.sym(SymSetParameter)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_iii_d(f, C.int(typ), C.int(index), C.int(param), C.double(value))), nil
}

func (l *NativeLibrary) SetInitQual(_ context.Context, typ, index, species int32, value float64) (Status, error) {
	f, err := l.sym(SymSetInitQual)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_iii_d(f, C.int(typ), C.int(index), C.int(species), C.double(value))), nil
}

func (l *NativeLibrary) SetSource(_ context.Context, node, species, srcType int32, level float64, pattern int32) (Status, error) {
	f, err := l.sym(SymSetSource)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_setsource(f, C.int(node), C.int(species), C.int(srcType), C.double(level), C.int(pattern))), nil
}

func (l *NativeLibrary) SetPattern(_ context.Context, pattern int32, mult []float64, n int32) (Status, error) {
	f, err := l.sym(SymSetPattern)
	if err != nil {
		return 0, err
	}
	var arr *C.double
	if len(mult) > 0 {
		native := make([]C.double, len(mult))
		for i, v := range mult {
			native[i] = C.double(v)
		}
		arr = &native[0]
	}
	return Status(C.msx_setpattern(f, C.int(pattern), arr, C.int(n))), nil
}

func (l *NativeLibrary) SetPatternValue(_ context.Context, pattern, period int32, value float64) (Status, error) {
	f, err := l.sym(SymSetPatternValue)
	if err != nil {
		return 0, err
	}
	return Status(C.msx_ii_d(f, C.int(pattern), C.int(period), C.double(value))), nil
}

func (l *NativeLibrary) AddPattern(_ context.Context, name string) (Status, error) {
	return l.withString(SymAddPattern, name)
}
