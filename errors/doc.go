// Package errors provides structured error types for the msx-toolkit library.
//
// Two families of errors cross the public API:
//
//   - *Error is raised by this module itself. It is categorized by Phase
//     (where the error occurred) and Kind (error category). A caller passing an
//     object, location or source type that is neither a known name nor a known
//     code gets KindUnrecognizedType, before any engine call is attempted.
//   - *EngineError wraps a non-zero status returned by the EPANET-MSX engine.
//     It carries the numeric code, the engine's message for it and whether the
//     code is a warning (code < 100) or a fatal condition.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseNormalize, errors.KindUnrecognizedType).
//		Op("GetCount").
//		Value("MSX_PIPE").
//		Detail("not an object type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnrecognizedType("GetCount", "object type", "MSX_PIPE")
//	err := errors.Engine("MSXopen", 503, "could not open MSX input file")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
