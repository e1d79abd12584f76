// Package replay drives recorded events through a refinement pipeline.
//
// Events are read from JSON lines (one event per line), processed with
// bounded concurrency, and folded into a Summary holding the cutflow,
// failed events and FSR association samples for the monitor plots.
package replay
