package l3leptonid

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// MuonConfig holds the muon ID thresholds.
type MuonConfig struct {
	IDLabel         string
	PtMin           float64
	EtaMax          float64
	HighPtThreshold float64 // above this, the tracker high-pT ID may replace PF
	Vertex          VertexCuts
}

// DefaultMuonConfig returns the reference muon ID.
func DefaultMuonConfig() MuonConfig {
	return MuonConfigFromTuning(config.DefaultTuningConfig())
}

// MuonConfigFromTuning builds a MuonConfig from a TuningConfig.
func MuonConfigFromTuning(cfg *config.TuningConfig) MuonConfig {
	return MuonConfig{
		IDLabel:         cfg.GetIDLabel(),
		PtMin:           cfg.GetMuPtMin(),
		EtaMax:          cfg.GetMuEtaMax(),
		HighPtThreshold: cfg.GetMuHighPtThreshold(),
		Vertex: VertexCuts{
			DxyMax: cfg.GetLeptonDxyMax(),
			DzMax:  cfg.GetLeptonDzMax(),
			SIPMax: cfg.GetLeptonSIPMax(),
		},
	}
}

// TightLabel is the annotation name of the tight decision.
func (c MuonConfig) TightLabel() string { return c.IDLabel + "Tight" }

// Validate checks labels and ranges.
func (c MuonConfig) Validate() error {
	if c.IDLabel == "" {
		return fmt.Errorf("muon id label must be set: %w", reco.ErrInvalidConfiguration)
	}
	if c.PtMin < 0 || c.EtaMax < 0 || c.HighPtThreshold < 0 {
		return fmt.Errorf("muon kinematic cuts must be non-negative: %w", reco.ErrInvalidConfiguration)
	}
	return c.Vertex.validate()
}

// MuonDecision is the evaluated ID of one muon.
type MuonDecision struct {
	Loose bool
	Tight bool
}

// Decide evaluates the ID of m against vertex v.
func (c MuonConfig) Decide(m *reco.Candidate, v reco.Vertex) MuonDecision {
	f := m.Muon
	reconstructed := f.IsGlobal || (f.IsTracker && f.MatchedStations > 0)
	loose := m.Pt > c.PtMin &&
		math.Abs(m.Eta) < c.EtaMax &&
		reconstructed &&
		f.BestTrackType != reco.BestTrackStandAlone &&
		c.Vertex.Pass(ImpactParams(m, v))
	tight := loose && (f.IsPF || (m.Pt > c.HighPtThreshold && f.TrackerHighPt))
	return MuonDecision{Loose: loose, Tight: tight}
}

// EmbedMuons annotates a clone of every muon with the loose and tight
// decisions. Cardinality and order are preserved.
func EmbedMuons(cfg MuonConfig, muons *reco.Collection, vertices *reco.VertexCollection, producer string) (*reco.Collection, error) {
	if muons == nil {
		return nil, fmt.Errorf("muons: %w", reco.ErrMissingInput)
	}
	out := make([]*reco.Candidate, muons.Len())
	for i := 0; i < muons.Len(); i++ {
		m := muons.At(i)
		v, err := NearestVertex(m, vertices)
		if err != nil {
			return nil, err
		}
		d := cfg.Decide(m, v)
		annotated := m.Clone()
		annotated.SetUserFlag(cfg.IDLabel, d.Loose)
		annotated.SetUserFlag(cfg.TightLabel(), d.Tight)
		out[i] = annotated
	}
	return reco.NewCollection(producer, out), nil
}
