// Package testutil provides shared test utilities and fixtures.
//
// This package centralises candidate builders used across the refinement
// layer tests so each test only spells out the fields it cares about.
package testutil

import "github.com/banshee-data/hzz.report/internal/reco"

// GoodVertex returns a vertex passing the default quality cuts at z.
func GoodVertex(z float64) reco.Vertex {
	return reco.Vertex{NDOF: 10, Z: z}
}

// Electron builds an electron at the origin with a small impact parameter,
// passing the default loose ID kinematically. bdt is stored under mvaLabel.
func Electron(index int, pt, eta, phi float64, mvaLabel string, bdt float64) *reco.Candidate {
	c := &reco.Candidate{
		Key:     reco.Key{Kind: reco.KindElectron, Index: index},
		Pt:      pt,
		Eta:     eta,
		Phi:     phi,
		Charge:  -1,
		PdgID:   11,
		IP3D:    0.001,
		IP3DErr: 0.001,
	}
	c.SetUserFloat(mvaLabel, bdt)
	return c
}

// Muon builds a global PF muon at the origin passing the default ID.
func Muon(index int, pt, eta, phi float64) *reco.Candidate {
	return &reco.Candidate{
		Key:     reco.Key{Kind: reco.KindMuon, Index: index},
		Pt:      pt,
		Eta:     eta,
		Phi:     phi,
		Charge:  -1,
		PdgID:   13,
		IP3D:    0.001,
		IP3DErr: 0.001,
		Muon: reco.MuonFlags{
			IsGlobal:        true,
			IsTracker:       true,
			IsPF:            true,
			MatchedStations: 2,
		},
	}
}

// Photon builds an FSR photon candidate.
func Photon(index int, pt, eta, phi float64) *reco.Candidate {
	return &reco.Candidate{
		Key:   reco.Key{Kind: reco.KindPhoton, Index: index},
		Pt:    pt,
		Eta:   eta,
		Phi:   phi,
		PdgID: 22,
	}
}

// PFPhoton builds a raw PF photon carrying the two FSR isolation sums.
func PFPhoton(index int, pt, eta, phi, chIso, nhIso float64, chLabel, nhLabel string) *reco.Candidate {
	c := &reco.Candidate{
		Key:   reco.Key{Kind: reco.KindPF, Index: index},
		Pt:    pt,
		Eta:   eta,
		Phi:   phi,
		PdgID: 22,
	}
	c.SetUserFloat(chLabel, chIso)
	c.SetUserFloat(nhLabel, nhIso)
	return c
}

// Jet builds a jet candidate.
func Jet(index int, pt, eta, phi float64) *reco.Candidate {
	return &reco.Candidate{
		Key: reco.Key{Kind: reco.KindJet, Index: index},
		Pt:  pt,
		Eta: eta,
		Phi: phi,
	}
}

// Annotate clones c and sets the given annotations on the clone.
func Annotate(c *reco.Candidate, floats map[string]float64) *reco.Candidate {
	out := c.Clone()
	for k, v := range floats {
		out.SetUserFloat(k, v)
	}
	return out
}
