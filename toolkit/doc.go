// Package toolkit is the Go facade over an EPANET-MSX engine.
//
// A Toolkit wraps one engine.Library. Opening an input file yields a
// Project, whose methods mirror the engine's entry points with Go types:
// typed enums instead of integer codes, int indices, decoded strings, and
// errors instead of status codes.
//
// Every operation follows the same contract:
//
//   - enum arguments are validated first; an unknown value fails with an
//     errors.KindUnrecognizedType error and the engine is not called
//   - a non-zero engine status becomes an *errors.EngineError whose message
//     comes from the engine's own error lookup
//   - output values are decoded only after a zero status
//
// Codes below 100 are warnings. They are still returned as errors, with
// EngineError.Warning set, so callers decide whether to continue.
//
// The facade keeps no project state of its own. Calling into a closed
// Project reaches the engine, which answers with its not-opened status.
//
// A Project is NOT safe for concurrent use.
package toolkit
