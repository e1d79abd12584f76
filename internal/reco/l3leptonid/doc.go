// Package l3leptonid owns Layer 3 (lepton ID) of the refinement chain.
//
// Responsibilities: evaluating the HZZ loose and tight identification of
// electrons and muons against the nearest good vertex, and embedding the
// decisions as annotations. Candidates are never dropped.
// Key types: ElectronConfig, MuonConfig, VertexParams.
//
// Dependency rule: L3 may depend on L1 outputs (vertices) through reco
// types only, never on L4+.
package l3leptonid
