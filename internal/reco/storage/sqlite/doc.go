// Package sqlite contains the SQLite repository for replay runs.
//
// All database reads and writes for run summaries, cutflows and failed
// events belong here rather than in the refinement layers, which stay free
// of I/O.
package sqlite
