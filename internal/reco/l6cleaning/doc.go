// Package l6cleaning owns Layer 6 (jet cleaning) of the refinement chain.
//
// Responsibilities: removing jets that overlap a selected lepton or the FSR
// photon attached to one. Key types: Config.
//
// Dependency rule: L6 reads only the annotations and cross-references
// written by L3-L5, never their packages.
package l6cleaning
