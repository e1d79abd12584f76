package reco

import "math"

// DeltaPhi returns phi1-phi2 wrapped into [-pi, pi].
func DeltaPhi(phi1, phi2 float64) float64 {
	d := math.Remainder(phi1-phi2, 2*math.Pi)
	return d
}

// DeltaR2 returns the squared eta-phi separation of two candidates.
func DeltaR2(a, b *Candidate) float64 {
	deta := a.Eta - b.Eta
	dphi := DeltaPhi(a.Phi, b.Phi)
	return deta*deta + dphi*dphi
}

// DeltaR returns the eta-phi separation of two candidates.
func DeltaR(a, b *Candidate) float64 {
	return math.Sqrt(DeltaR2(a, b))
}
