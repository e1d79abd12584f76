package l3leptonid

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// Electron |eta| band edges for the discriminant cuts.
const (
	etaBandLowEdge  = 0.8
	etaBandHighEdge = 1.479
)

// ElectronConfig holds the electron ID thresholds.
type ElectronConfig struct {
	IDLabel  string // loose decision; tight is IDLabel+"Tight"
	BDTLabel string // annotation holding the discriminant score

	// BDTCuts[ptBin][etaBin]: ptBin 0 below PtSplit, 1 above; etaBin low,
	// medium, high |eta|. The score must be strictly greater.
	BDTCuts [2][3]float64
	PtSplit float64

	MissingHitsMax int
	PtMin          float64
	EtaMax         float64
	Vertex         VertexCuts
}

// DefaultElectronConfig returns the reference electron ID.
func DefaultElectronConfig() ElectronConfig {
	return ElectronConfigFromTuning(config.DefaultTuningConfig())
}

// ElectronConfigFromTuning builds an ElectronConfig from a TuningConfig.
func ElectronConfigFromTuning(cfg *config.TuningConfig) ElectronConfig {
	return ElectronConfig{
		IDLabel:        cfg.GetIDLabel(),
		BDTLabel:       cfg.GetMVALabel(),
		BDTCuts:        cfg.GetEIDCuts(),
		PtSplit:        cfg.GetEIDPtSplit(),
		MissingHitsMax: cfg.GetEMissingHitsMax(),
		PtMin:          cfg.GetEPtMin(),
		EtaMax:         cfg.GetEEtaMax(),
		Vertex: VertexCuts{
			DxyMax: cfg.GetLeptonDxyMax(),
			DzMax:  cfg.GetLeptonDzMax(),
			SIPMax: cfg.GetLeptonSIPMax(),
		},
	}
}

// TightLabel is the annotation name of the tight decision.
func (c ElectronConfig) TightLabel() string { return c.IDLabel + "Tight" }

// Validate checks labels and ranges.
func (c ElectronConfig) Validate() error {
	if c.IDLabel == "" || c.BDTLabel == "" {
		return fmt.Errorf("electron id and bdt labels must be set: %w", reco.ErrInvalidConfiguration)
	}
	if c.PtMin < 0 || c.EtaMax < 0 || c.PtSplit < 0 || c.MissingHitsMax < 0 {
		return fmt.Errorf("electron kinematic cuts must be non-negative: %w", reco.ErrInvalidConfiguration)
	}
	return c.Vertex.validate()
}

// BDTCut returns the discriminant threshold for the given pT and eta.
func (c ElectronConfig) BDTCut(pt, eta float64) float64 {
	ptBin := 0
	if pt >= c.PtSplit {
		ptBin = 1
	}
	aeta := math.Abs(eta)
	etaBin := 2
	switch {
	case aeta < etaBandLowEdge:
		etaBin = 0
	case aeta < etaBandHighEdge:
		etaBin = 1
	}
	return c.BDTCuts[ptBin][etaBin]
}

// ElectronDecision is the evaluated ID of one electron.
type ElectronDecision struct {
	Loose bool
	Tight bool
}

// Decide evaluates the ID of e against vertex v.
func (c ElectronConfig) Decide(e *reco.Candidate, v reco.Vertex) (ElectronDecision, error) {
	bdt, ok := e.UserFloat(c.BDTLabel)
	if !ok {
		return ElectronDecision{}, fmt.Errorf("electron %s lacks %q: %w", e.Key, c.BDTLabel, reco.ErrMissingInput)
	}
	loose := e.Pt > c.PtMin &&
		math.Abs(e.Eta) < c.EtaMax &&
		e.MissingHits <= c.MissingHitsMax &&
		c.Vertex.Pass(ImpactParams(e, v))
	return ElectronDecision{
		Loose: loose,
		Tight: loose && bdt > c.BDTCut(e.Pt, e.Eta),
	}, nil
}

// EmbedElectrons annotates a clone of every electron with the loose and
// tight decisions. Cardinality and order are preserved.
func EmbedElectrons(cfg ElectronConfig, electrons *reco.Collection, vertices *reco.VertexCollection, producer string) (*reco.Collection, error) {
	if electrons == nil {
		return nil, fmt.Errorf("electrons: %w", reco.ErrMissingInput)
	}
	out := make([]*reco.Candidate, electrons.Len())
	for i := 0; i < electrons.Len(); i++ {
		e := electrons.At(i)
		v, err := NearestVertex(e, vertices)
		if err != nil {
			return nil, err
		}
		d, err := cfg.Decide(e, v)
		if err != nil {
			return nil, err
		}
		annotated := e.Clone()
		annotated.SetUserFlag(cfg.IDLabel, d.Loose)
		annotated.SetUserFlag(cfg.TightLabel(), d.Tight)
		out[i] = annotated
	}
	return reco.NewCollection(producer, out), nil
}
