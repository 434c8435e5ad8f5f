// Package parse provides utilities for extracting and converting structured
// data from raw node output. Payloads produced by external analyzers and
// tools are often almost-valid JSON or schema-style envelopes, so this
// package applies a layered recovery strategy of automatic JSON repair and
// schema unwrapping before falling back to a clear error.
//
// The main entry points are the generic [ParseStringAs] function, which
// handles both primitive types (string, bool, int, float) and complex types
// (structs, maps, slices) in a single, uniform API, and [ValueAs], which
// converts values read back out of workflow state.
package parse
