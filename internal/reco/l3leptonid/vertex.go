package l3leptonid

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/reco"
)

// VertexParams are the impact parameters of a lepton relative to a vertex.
type VertexParams struct {
	Dxy   float64
	Dz    float64
	SIP3D float64
}

// NearestVertex returns the vertex closest in z to the lepton's reference
// point. Ties go to the earlier vertex.
func NearestVertex(c *reco.Candidate, vertices *reco.VertexCollection) (reco.Vertex, error) {
	if vertices == nil || vertices.Len() == 0 {
		return reco.Vertex{}, fmt.Errorf("no good vertex for %s: %w", c.Key, reco.ErrMissingInput)
	}
	best := vertices.At(0)
	bestDist := math.Abs(c.Vz - best.Z)
	for i := 1; i < vertices.Len(); i++ {
		v := vertices.At(i)
		if d := math.Abs(c.Vz - v.Z); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best, nil
}

// ImpactParams computes dxy and dz of c with respect to v using the
// straight-line track approximation, and the 3D impact parameter
// significance from the precomputed IP3D and its error.
func ImpactParams(c *reco.Candidate, v reco.Vertex) VertexParams {
	px, py, pz := c.Px(), c.Py(), c.Pz()
	pt := c.Pt
	dx, dy := c.Vx-v.X, c.Vy-v.Y

	var p VertexParams
	if pt > 0 {
		p.Dxy = (-dx*py + dy*px) / pt
		p.Dz = (c.Vz - v.Z) - (dx*px+dy*py)/pt*(pz/pt)
	}
	switch {
	case c.IP3DErr != 0:
		p.SIP3D = math.Abs(c.IP3D / c.IP3DErr)
	case c.IP3D != 0:
		p.SIP3D = math.Inf(1)
	}
	return p
}

// VertexCuts are the impact parameter requirements shared by both flavours.
type VertexCuts struct {
	DxyMax float64
	DzMax  float64
	SIPMax float64
}

// Pass reports |dxy| < DxyMax, |dz| < DzMax and SIP3D < SIPMax.
func (vc VertexCuts) Pass(p VertexParams) bool {
	return math.Abs(p.Dxy) < vc.DxyMax &&
		math.Abs(p.Dz) < vc.DzMax &&
		p.SIP3D < vc.SIPMax
}

func (vc VertexCuts) validate() error {
	if vc.DxyMax < 0 || vc.DzMax < 0 || vc.SIPMax < 0 {
		return fmt.Errorf("vertex cuts must be non-negative: %w", reco.ErrInvalidConfiguration)
	}
	return nil
}
