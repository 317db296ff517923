// Package httperr defines the canonical error taxonomy shared by the HTTP
// pipeline, the retry helper and the LLM provider adapters.
//
// Every failure that crosses a package boundary is an *Error carrying one of
// the Kind values below. Kinds implement error themselves so callers can
// branch with errors.Is:
//
//	if errors.Is(err, httperr.KindNotFound) {
//		// ...
//	}
package httperr
