// Package errors provides structured error types for the bridge.
//
// Every failure that crosses the client/worker boundary is represented as an
// *Error carrying a Stage (where in the pipeline it occurred), a Code (the
// contract-level category), and optional detail: the offending handle, the
// property path, a wrapped cause. Errors compare by Stage and Code under
// errors.Is, so callers can match categories without string inspection.
package errors
