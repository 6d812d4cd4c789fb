// Package export coordinates turning a report into a document.
//
// A Coordinator resolves the report source for a request, either a definition
// loaded from its file token or the preview definition cached for the
// caller's session under report.PreviewKey, builds the model, and hands it to
// the producer registered for the requested (format, mode) pair.
//
// The dispatch table is fixed at construction. Excel and Excel97 producers
// must support all three modes, PDF and Word are FULL only, and HTML also
// renders single pages for interactive preview. Asking for a pair with no
// entry fails with report.ErrUnsupported before any output is written.
package export
