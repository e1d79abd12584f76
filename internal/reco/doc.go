// Package reco owns the per-event candidate data model shared by every
// refinement layer.
//
// Responsibilities: candidate and vertex types, immutable collections,
// eta-phi geometry, annotation predicates and the pipeline error kinds.
// Key types: Candidate, Collection, Vertex, VertexCollection.
//
// Dependency rule: reco depends on nothing else in this module. Layer
// packages (l1vertices .. l6cleaning) depend on reco, never on each other.
// No I/O is allowed in this package.
package reco
