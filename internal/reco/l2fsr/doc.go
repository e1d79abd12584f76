// Package l2fsr owns Layer 2 (FSR photons) of the refinement chain.
//
// Responsibilities: building FSR photon candidates from PF photons and
// applying the relative-isolation quality cut.
// Key types: Config.
//
// Dependency rule: L2 depends only on reco and config.
package l2fsr
