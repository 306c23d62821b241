// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (which bridge operation failed) and Kind
// (failure label). Every failure the call protocol can surface has exactly
// one Kind, so hosts can branch on outcomes without string matching:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindAlreadyRunning}) {
//		// retry later
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
