// Package l5isolation owns Layer 5 (isolation) of the refinement chain.
//
// Responsibilities: computing pileup-corrected relative isolation for
// electrons and muons, removing the contribution of the lepton's own FSR
// photon, and embedding the decision plus both values as annotations.
// Key types: Config, FlavorConfig, PileupFunc.
//
// Dependency rule: L5 consumes the cross-references written by L4 through
// reco types only; it never imports l4association.
package l5isolation
