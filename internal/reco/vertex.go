package reco

import "math"

// Vertex is a reconstructed primary vertex candidate.
type Vertex struct {
	IsFake bool    `json:"is_fake"`
	NDOF   float64 `json:"ndof"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// Rho returns the transverse distance of the vertex from the beam line.
func (v Vertex) Rho() float64 {
	return math.Hypot(v.X, v.Y)
}
