package l2fsr

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

const photonPdgID = 22

// Config holds the FSR photon selection.
type Config struct {
	PtMin     float64
	EtaMax    float64
	RelIsoMax float64

	// Annotation names of the precomputed isolation sums.
	ChargedIsoLabel string
	NeutralIsoLabel string
}

// DefaultConfig returns the reference FSR photon selection.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		PtMin:           cfg.GetFSRPtMin(),
		EtaMax:          cfg.GetFSREtaMax(),
		RelIsoMax:       cfg.GetFSRRelIsoMax(),
		ChargedIsoLabel: cfg.GetFSRChargedIsoLabel(),
		NeutralIsoLabel: cfg.GetFSRNeutralIsoLabel(),
	}
}

// Validate rejects negative cuts and blank labels.
func (c Config) Validate() error {
	if c.PtMin < 0 || c.EtaMax < 0 || c.RelIsoMax < 0 {
		return fmt.Errorf("fsr cuts must be non-negative (pt %g, eta %g, iso %g): %w",
			c.PtMin, c.EtaMax, c.RelIsoMax, reco.ErrInvalidConfiguration)
	}
	if c.ChargedIsoLabel == "" || c.NeutralIsoLabel == "" {
		return fmt.Errorf("fsr isolation labels must be set: %w", reco.ErrInvalidConfiguration)
	}
	return nil
}

// Build turns the PF photons of pf into FSR photon candidates. Each photon
// keeps the PF index as its key index and carries the PF annotations.
func Build(pf *reco.Collection, producer string) (*reco.Collection, error) {
	if pf == nil {
		return nil, fmt.Errorf("pf candidates: %w", reco.ErrMissingInput)
	}
	out := make([]*reco.Candidate, 0, pf.Len())
	for i := 0; i < pf.Len(); i++ {
		c := pf.At(i)
		if abs(c.PdgID) != photonPdgID {
			continue
		}
		photon := c.Clone()
		photon.Key = reco.Key{Kind: reco.KindPhoton, Index: c.Key.Index}
		out = append(out, photon)
	}
	return reco.NewCollection(producer, out), nil
}

// RelIso returns (chargedIso + neutralIso) / pT for a photon.
func (c Config) RelIso(p *reco.Candidate) (float64, error) {
	ch, ok := p.UserFloat(c.ChargedIsoLabel)
	if !ok {
		return 0, fmt.Errorf("photon %s lacks %q: %w", p.Key, c.ChargedIsoLabel, reco.ErrMissingInput)
	}
	nh, ok := p.UserFloat(c.NeutralIsoLabel)
	if !ok {
		return 0, fmt.Errorf("photon %s lacks %q: %w", p.Key, c.NeutralIsoLabel, reco.ErrMissingInput)
	}
	return (ch + nh) / p.Pt, nil
}

// Select keeps photons with pT > PtMin, |eta| < EtaMax and relative
// isolation below RelIsoMax. Order is preserved.
func Select(cfg Config, photons *reco.Collection, producer string) (*reco.Collection, error) {
	if photons == nil {
		return nil, fmt.Errorf("fsr photons: %w", reco.ErrMissingInput)
	}
	out := make([]*reco.Candidate, 0, photons.Len())
	for i := 0; i < photons.Len(); i++ {
		p := photons.At(i)
		if p.Pt <= cfg.PtMin || math.Abs(p.Eta) >= cfg.EtaMax {
			continue
		}
		iso, err := cfg.RelIso(p)
		if err != nil {
			return nil, err
		}
		if iso < cfg.RelIsoMax {
			out = append(out, p)
		}
	}
	return reco.NewCollection(producer, out), nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
