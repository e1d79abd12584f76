// Package l1vertices owns Layer 1 (Vertices) of the refinement chain.
//
// Responsibilities: primary vertex quality cleaning.
// Key types: Config.
//
// Dependency rule: L1 depends only on reco and config.
package l1vertices
