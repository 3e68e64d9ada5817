// Package engine provides the raw call surface of the EPANET-MSX engine.
//
// Library mirrors the engine's exported entry points one to one: the same
// argument order, C int codes as int32, doubles as float64, and the engine's
// integer status returned untouched as a Status. Nothing here interprets a
// status; that is the toolkit package's job.
//
// # Backends
//
// Two implementations are provided:
//
//	NativeLibrary  - dlopen()s a shared build (libepanetmsx.so / .dylib) via cgo
//	WazeroLibrary  - runs an EPANET-MSX build compiled to wasm32-wasi on wazero
//
// Both satisfy Library, so callers choose a backend once and pass it to
// toolkit.New. The enginetest subpackage provides an in-memory fake for tests.
//
// # Error Model
//
// Every Library method returns the engine status and a Go error. The Go
// error is reserved for failures that prevented the engine from producing a
// status at all: a guest trap, a failed guest allocation, an out-of-bounds
// read. A non-zero status with a nil error is an ordinary engine failure.
//
// GetError is the exception: the engine entry point has no status, so it
// returns only the message text.
//
// # Buffers
//
// Text arguments are copied into NUL-terminated buffers immediately before
// the call and released immediately after. Output scalars and character
// buffers are allocated per call and decoded before the method returns; no
// buffer outlives the call that needed it.
//
// In wasm32 the C long used by MSXstep is 32 bits wide; WazeroLibrary widens
// it to int64 for the Go signature.
//
// # Thread Safety
//
// The engine holds process-wide state for the open project. Neither backend
// serializes calls; callers must not interleave project calls from multiple
// goroutines.
package engine
