// Package report defines the contracts between the console and the report
// engine: formats and output modes, the opaque definition and model types, and
// the loader, builder and producer interfaces that engines implement.
package report
