// Package l4association owns Layer 4 (FSR association) of the refinement
// chain.
//
// Responsibilities: pairing FSR photons with identified leptons so that
// each lepton receives at most one photon and each photon is claimed by at
// most one lepton, deterministically.
// Key types: Config, Scorer, Match, Result.
//
// The matching is greedy: valid lepton-photon pairs are ranked by score
// and claimed in rank order. It is intentionally not a global optimum.
//
// Dependency rule: L4 consumes L2 photons and L3-annotated leptons through
// reco types only.
package l4association
