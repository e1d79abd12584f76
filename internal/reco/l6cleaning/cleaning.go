package l6cleaning

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// Config holds the jet cleaning parameters.
type Config struct {
	FSRLabel string

	// Leptons passing these selections (and their FSR photons) veto jets.
	ElectronSelection reco.Predicate
	MuonSelection     reco.Predicate

	MinDR        float64 // jets within dR <= MinDR are dropped
	CleanLeptons bool    // veto on the lepton itself, not only its photon
}

// DefaultConfig returns the reference cleaning.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a TuningConfig. Leptons are gated
// on the tight ID and the isolation decision.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	gate := reco.Cuts([]reco.AnnotationCut{
		{Name: cfg.GetTightIDLabel(), Min: 0.5},
		{Name: cfg.GetIsoLabel(), Min: 0.5},
	})
	return Config{
		FSRLabel:          cfg.GetFSRLabel(),
		ElectronSelection: gate,
		MuonSelection:     gate,
		MinDR:             cfg.GetJetCleanMinDR(),
		CleanLeptons:      cfg.GetJetCleanLeptons(),
	}
}

// Validate checks the label and the distance.
func (c Config) Validate() error {
	if c.FSRLabel == "" {
		return fmt.Errorf("jet cleaning fsr label must be set: %w", reco.ErrInvalidConfiguration)
	}
	if c.MinDR < 0 || math.IsNaN(c.MinDR) {
		return fmt.Errorf("jet cleaning dR must be non-negative, got %g: %w", c.MinDR, reco.ErrInvalidConfiguration)
	}
	return nil
}

// Vetoes collects the objects jets are cleaned against: selected leptons
// (when CleanLeptons) followed by their FSR photons.
func (c Config) Vetoes(electrons, muons *reco.Collection) []*reco.Candidate {
	var leptons, photons []*reco.Candidate
	for _, src := range []struct {
		coll *reco.Collection
		sel  reco.Predicate
	}{{electrons, c.ElectronSelection}, {muons, c.MuonSelection}} {
		for i := 0; i < src.coll.Len(); i++ {
			l := src.coll.At(i)
			if !src.sel.Accept(l) {
				continue
			}
			if c.CleanLeptons {
				leptons = append(leptons, l)
			}
			if p := l.UserCand(c.FSRLabel); p != nil {
				photons = append(photons, p)
			}
		}
	}
	return append(leptons, photons...)
}

// Clean returns the jets farther than MinDR from every veto object, in
// input order. The output is always a subset of the input by key.
func Clean(cfg Config, jets, electrons, muons *reco.Collection, producer string) (*reco.Collection, error) {
	if jets == nil {
		return nil, fmt.Errorf("jets: %w", reco.ErrMissingInput)
	}
	if electrons == nil || muons == nil {
		return nil, fmt.Errorf("leptons: %w", reco.ErrMissingInput)
	}
	vetoes := cfg.Vetoes(electrons, muons)
	minDR2 := cfg.MinDR * cfg.MinDR

	kept := make([]*reco.Candidate, 0, jets.Len())
	for i := 0; i < jets.Len(); i++ {
		j := jets.At(i)
		if overlaps(j, vetoes, minDR2) {
			continue
		}
		kept = append(kept, j)
	}
	return reco.NewCollection(producer, kept), nil
}

func overlaps(j *reco.Candidate, vetoes []*reco.Candidate, minDR2 float64) bool {
	for _, v := range vetoes {
		if reco.DeltaR2(j, v) <= minDR2 {
			return true
		}
	}
	return false
}
