package toolkit

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/msx-toolkit/engine"
	"github.com/wippyai/msx-toolkit/errors"
)

// Toolkit binds an engine.Library to the Go facade.
type Toolkit struct {
	lib       engine.Library
	errBufLen int32
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithErrorBufferLen sets the message buffer passed to the engine's error
// lookup, clamped to [engine.MinErrorBufLen, engine.MaxErrorBufLen].
func WithErrorBufferLen(n int) Option {
	return func(tk *Toolkit) {
		tk.errBufLen = int32(max(min(n, engine.MaxErrorBufLen), engine.MinErrorBufLen))
	}
}

// New returns a Toolkit over lib. The Toolkit does not own lib; releasing
// it stays with the caller.
func New(lib engine.Library, opts ...Option) *Toolkit {
	tk := &Toolkit{lib: lib, errBufLen: engine.ErrorBufLen}
	for _, opt := range opts {
		opt(tk)
	}
	return tk
}

// Open opens an MSX input file. The engine allows one open project at a
// time; opening a second one fails with the engine's already-opened status.
func (tk *Toolkit) Open(ctx context.Context, path string) (*Project, error) {
	s, err := tk.lib.Open(ctx, path)
	if err := tk.check(ctx, engine.SymOpen, s, err); err != nil {
		return nil, err
	}
	Logger().Debug("project opened", zap.String("path", path))
	return &Project{tk: tk, path: path}, nil
}

// WithProject opens path, runs fn, and closes the project on every exit
// path, panics included. A close failure is returned only when fn succeeded.
func (tk *Toolkit) WithProject(ctx context.Context, path string, fn func(*Project) error) (err error) {
	p, err := tk.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := p.Close(ctx)
		if cerr == nil {
			return
		}
		if err == nil {
			err = cerr
			return
		}
		Logger().Warn("close after failed run",
			zap.String("path", path),
			zap.Error(cerr))
	}()
	return fn(p)
}

// ErrorText returns the engine's message for code, or the undocumented-code
// text when the engine has none.
func (tk *Toolkit) ErrorText(ctx context.Context, code int) (string, error) {
	c, err := toInt32("MSXgeterror", "code", code)
	if err != nil {
		return "", err
	}
	msg, err := tk.lib.GetError(ctx, c, tk.errBufLen)
	if err != nil {
		return "", err
	}
	if msg == "" && code != 0 {
		msg = errors.UndocumentedMessage(code)
	}
	return msg, nil
}

// check turns a backend result into the facade's error. A backend error
// (trap, allocation) passes through; a non-zero status becomes an
// EngineError carrying the engine's message for it.
func (tk *Toolkit) check(ctx context.Context, op string, s engine.Status, err error) error {
	if err != nil {
		Logger().Debug("engine call failed", zap.String("op", op), zap.Error(err))
		return err
	}
	Logger().Debug("engine call", zap.String("op", op), zap.Int32("status", int32(s)))
	if s == engine.OK {
		return nil
	}

	msg, lerr := tk.lib.GetError(ctx, int32(s), tk.errBufLen)
	if lerr != nil {
		Logger().Debug("error lookup failed", zap.Int32("code", int32(s)), zap.Error(lerr))
		msg = ""
	}
	ee := errors.Engine(op, int(s), msg)
	if ee.Warning {
		Logger().Warn("engine warning",
			zap.String("op", op),
			zap.Int("code", ee.Code),
			zap.String("message", ee.Message))
	}
	return ee
}

// toInt32 narrows a Go int argument to the engine's C int.
func toInt32(op, name string, v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Op(op).
			Value(v).
			Detail("%s %d does not fit a C int", name, v).
			Build()
	}
	return int32(v), nil
}
