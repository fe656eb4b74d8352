// Package errors provides the structured error taxonomy used by pagefiles.
//
// Every error reported by extraction, validation or layout resolution is an
// *Error carrying a stable code, a human readable message and, when it can be
// attributed to one, the offending source file. Hosts can branch on the code
// and render all errors uniformly:
//
//	var pe *errors.Error
//	if errors.As(err, &pe) {
//	    log.Printf("%s %s (%s)", pe.ErrorCode(), pe.Message, pe.SourceFile())
//	}
//
// # Error Codes
//
//   - UnknownError: an unexpected internal failure, wrapped
//   - InvalidPagefile: a pagefile failed validation; Reasons lists why
//   - UnableToExtractMeta: the sandbox could not produce the file's metadata
//   - MissingLayout: an explicit layout reference resolves to nothing
//   - DuplicateLayoutAtPath: two layouts claim the same path
//   - DuplicateLayoutWithName: two layouts resolve to the same name
//   - LayoutCycle: explicit layout references form a loop
//
// The last four are structural: they cannot be isolated to a single file's
// subtree, so they fail the whole regeneration pass (see Structural).
//
// # Formatting
//
// Format renders an error for the terminal:
//
//	ERROR MissingLayout: Layout "AppLayout" not found
//
//	  src/pages/Privacy.page.tsx
//
//	  Hint: Check the layout's name, or remove the layout reference to infer it from the path
package errors
