package engine

import (
	"context"
	"strings"

	"github.com/wippyai/msx-toolkit/errors"
)

// Status is the integer returned by every engine entry point. Zero means
// success.
type Status int32

// OK is the success status.
const OK Status = 0

// Buffer sizes used by the engine's character outputs.
const (
	// MinIDBufLen is the smallest buffer handed to MSXgetID.
	MinIDBufLen = 32
	// UnitsBufLen is the fixed size of the units buffer filled by MSXgetspecies.
	UnitsBufLen = 15
	// ErrorBufLen is the default message buffer for MSXgeterror.
	ErrorBufLen = 100
	// MinErrorBufLen is the smallest message buffer the engine accepts.
	MinErrorBufLen = 80
	// MaxErrorBufLen bounds the message buffer allocated per lookup.
	MaxErrorBufLen = 1024
)

// Library is the engine call surface. Argument order and widths match the
// exported C functions.
type Library interface {
	Open(ctx context.Context, path string) (Status, error)
	Close(ctx context.Context) (Status, error)
	UseHydFile(ctx context.Context, path string) (Status, error)
	SolveH(ctx context.Context) (Status, error)
	Init(ctx context.Context, saveFlag int32) (Status, error)
	SolveQ(ctx context.Context) (Status, error)
	Step(ctx context.Context) (t, tleft int64, s Status, err error)
	SaveOutFile(ctx context.Context, path string) (Status, error)
	SaveMsxFile(ctx context.Context, path string) (Status, error)
	Report(ctx context.Context) (Status, error)

	GetIndex(ctx context.Context, typ int32, name string) (int32, Status, error)
	GetIDLen(ctx context.Context, typ, index int32) (int32, Status, error)
	// GetID fills a buffer of maxLen+1 bytes and returns its text.
	GetID(ctx context.Context, typ, index, maxLen int32) (string, Status, error)
	GetInitQual(ctx context.Context, typ, index, species int32) (float64, Status, error)
	GetQual(ctx context.Context, typ, index, species int32) (float64, Status, error)
	GetConstant(ctx context.Context, index int32) (float64, Status, error)
	GetParameter(ctx context.Context, typ, index, param int32) (float64, Status, error)
	GetSource(ctx context.Context, node, species int32) (srcType int32, level float64, pattern int32, s Status, err error)
	GetPatternLen(ctx context.Context, pattern int32) (int32, Status, error)
	GetPatternValue(ctx context.Context, pattern, period int32) (float64, Status, error)
	GetCount(ctx context.Context, typ int32) (int32, Status, error)
	GetSpecies(ctx context.Context, species int32) (locType int32, units string, aTol, rTol float64, s Status, err error)
	// GetError has no status; an unknown code yields empty text.
	GetError(ctx context.Context, code, bufLen int32) (string, error)

	SetConstant(ctx context.Context, index int32, value float64) (Status, error)
	SetParameter(ctx context.Context, typ, index, param int32, value float64) (Status, error)
	SetInitQual(ctx context.Context, typ, index, species int32, value float64) (Status, error)
	SetSource(ctx context.Context, node, species, srcType int32, level float64, pattern int32) (Status, error)
	// SetPattern copies mult into a native array of exactly len(mult)
	// elements and passes n alongside it.
	SetPattern(ctx context.Context, pattern int32, mult []float64, n int32) (Status, error)
	SetPatternValue(ctx context.Context, pattern, period int32, value float64) (Status, error)
	AddPattern(ctx context.Context, name string) (Status, error)

	// Release unloads the backend. It does not close an open project.
	Release(ctx context.Context) error
}

// Exported symbol names, in the order the backends resolve them.
const (
	SymOpen            = "MSXopen"
	SymClose           = "MSXclose"
	SymUseHydFile      = "MSXusehydfile"
	SymSolveH          = "MSXsolveH"
	SymInit            = "MSXinit"
	SymSolveQ          = "MSXsolveQ"
	SymStep            = "MSXstep"
	SymSaveOutFile     = "MSXsaveoutfile"
	SymSaveMsxFile     = "MSXsavemsxfile"
	SymReport          = "MSXreport"
	SymGetIndex        = "MSXgetindex"
	SymGetIDLen        = "MSXgetIDlen"
	SymGetID           = "MSXgetID"
	SymGetInitQual     = "MSXgetinitqual"
	SymGetQual         = "MSXgetqual"
	SymGetConstant     = "MSXgetconstant"
	SymGetParameter    = "MSXgetparameter"
	SymGetSource       = "MSXgetsource"
	SymGetPatternLen   = "MSXgetpatternlen"
	SymGetPatternValue = "MSXgetpatternvalue"
	SymGetCount        = "MSXgetcount"
	SymGetSpecies      = "MSXgetspecies"
	SymGetError        = "MSXgeterror"
	SymSetConstant     = "MSXsetconstant"
	SymSetParameter    = "MSXsetparameter"
	SymSetInitQual     = "MSXsetinitqual"
	SymSetSource       = "MSXsetsource"
	SymSetPattern      = "MSXsetpattern"
	SymSetPatternValue = "MSXsetpatternvalue"
	SymAddPattern      = "MSXaddpattern"
)

// Symbols lists every entry point a backend must resolve.
var Symbols = []string{
	SymOpen, SymClose, SymUseHydFile, SymSolveH, SymInit, SymSolveQ,
	SymStep, SymSaveOutFile, SymSaveMsxFile, SymReport,
	SymGetIndex, SymGetIDLen, SymGetID, SymGetInitQual, SymGetQual,
	SymGetConstant, SymGetParameter, SymGetSource, SymGetPatternLen,
	SymGetPatternValue, SymGetCount, SymGetSpecies, SymGetError,
	SymSetConstant, SymSetParameter, SymSetInitQual, SymSetSource,
	SymSetPattern, SymSetPatternValue, SymAddPattern,
}

// checkText rejects a string the engine would read only up to an embedded
// NUL.
func checkText(op, s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Op(op).
			Value(s).
			Detail("string contains NUL at byte %d", i).
			Build()
	}
	return nil
}

// cText returns the bytes of buf up to the first NUL.
func cText(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
