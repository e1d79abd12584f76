package l5isolation

import (
	"fmt"
	"math"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// PileupFunc returns the pileup estimate subtracted from the neutral
// isolation of lepton l.
type PileupFunc func(l *reco.Candidate, rho float64) (float64, error)

// EffectiveAreaPileup is the electron correction rho * userFloat(label).
func EffectiveAreaPileup(label string) PileupFunc {
	return func(l *reco.Candidate, rho float64) (float64, error) {
		ea, ok := l.UserFloat(label)
		if !ok {
			return 0, fmt.Errorf("electron %s lacks %q: %w", l.Key, label, reco.ErrMissingInput)
		}
		return rho * ea, nil
	}
}

// DeltaBetaPileup is the muon correction 0.5 * PU charged hadron sum.
func DeltaBetaPileup(l *reco.Candidate, _ float64) (float64, error) {
	return 0.5 * l.Iso.PUChargedHadron, nil
}

// FlavorConfig holds the isolation settings of one lepton flavour.
type FlavorConfig struct {
	ConeDR       float64
	Cut          float64 // pass when corrected isolation < Cut
	FSRSelection reco.Predicate
	Pileup       PileupFunc
}

func (f FlavorConfig) validate(flavor string) error {
	if !(f.ConeDR > 0) {
		return fmt.Errorf("%s isolation cone must be positive, got %g: %w", flavor, f.ConeDR, reco.ErrInvalidConfiguration)
	}
	if f.Cut < 0 || math.IsNaN(f.Cut) {
		return fmt.Errorf("%s isolation cut must be non-negative, got %g: %w", flavor, f.Cut, reco.ErrInvalidConfiguration)
	}
	if f.Pileup == nil {
		return fmt.Errorf("%s pileup correction must be set: %w", flavor, reco.ErrInvalidConfiguration)
	}
	return nil
}

// Config holds the isolation labels and per-flavour settings.
type Config struct {
	DecisionLabel string // e.g. HZZ4lIsoPass
	ValueLabel    string // corrected value; raw value goes to ValueLabel+"NoFSR"
	FSRLabel      string // cross-reference written by FSR association

	Electron FlavorConfig
	Muon     FlavorConfig
}

// DefaultConfig returns the reference isolation.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		DecisionLabel: cfg.GetIsoLabel(),
		ValueLabel:    cfg.GetIsoValueLabel(),
		FSRLabel:      cfg.GetFSRLabel(),
		Electron: FlavorConfig{
			ConeDR:       cfg.GetIsoConeDRE(),
			Cut:          cfg.GetIsoCutE(),
			FSRSelection: reco.Cuts(cfg.GetFSRElectronSelection()),
			Pileup:       EffectiveAreaPileup(cfg.GetEALabel()),
		},
		Muon: FlavorConfig{
			ConeDR:       cfg.GetIsoConeDRMu(),
			Cut:          cfg.GetIsoCutMu(),
			FSRSelection: reco.Cuts(cfg.GetFSRMuonSelection()),
			Pileup:       DeltaBetaPileup,
		},
	}
}

// RawValueLabel names the annotation holding isolation without the FSR
// subtraction.
func (c Config) RawValueLabel() string { return c.ValueLabel + "NoFSR" }

// Validate checks labels and both flavours.
func (c Config) Validate() error {
	if c.DecisionLabel == "" || c.ValueLabel == "" || c.FSRLabel == "" {
		return fmt.Errorf("isolation labels must be set: %w", reco.ErrInvalidConfiguration)
	}
	if c.DecisionLabel == c.ValueLabel {
		return fmt.Errorf("isolation decision and value labels collide (%q): %w", c.DecisionLabel, reco.ErrInvalidConfiguration)
	}
	if err := c.Electron.validate("electron"); err != nil {
		return err
	}
	return c.Muon.validate("muon")
}

// Values is the isolation of one lepton.
type Values struct {
	Raw       float64
	Corrected float64
	FSRPt     float64 // photon pT removed from the neutral sum, 0 if none
}

// Compute evaluates the relative isolation of l. A lepton with zero pT is
// reported as infinitely non-isolated.
func Compute(f FlavorConfig, fsrLabel string, l *reco.Candidate, rho float64) (Values, error) {
	pu, err := f.Pileup(l, rho)
	if err != nil {
		return Values{}, err
	}

	var fsrPt float64
	if f.FSRSelection.Accept(l) {
		if p := l.UserCand(fsrLabel); p != nil && reco.DeltaR(l, p) < f.ConeDR {
			fsrPt = p.Pt
		}
	}

	if l.Pt <= 0 {
		return Values{Raw: math.Inf(1), Corrected: math.Inf(1), FSRPt: fsrPt}, nil
	}
	iso := l.Iso
	neutral := iso.NeutralHadron + iso.Photon
	return Values{
		Raw:       (iso.ChargedHadron + math.Max(0, neutral-pu)) / l.Pt,
		Corrected: (iso.ChargedHadron + math.Max(0, neutral-fsrPt-pu)) / l.Pt,
		FSRPt:     fsrPt,
	}, nil
}

// Embed annotates clones of every electron and muon with the decision,
// the corrected value and the raw value. Cardinality and order are
// preserved. Re-running on its own output yields identical annotations.
func Embed(cfg Config, rho float64, electrons, muons *reco.Collection, producer string) (*reco.Collection, *reco.Collection, error) {
	if electrons == nil || muons == nil {
		return nil, nil, fmt.Errorf("leptons: %w", reco.ErrMissingInput)
	}
	outE, err := embed(cfg, cfg.Electron, rho, electrons, producer)
	if err != nil {
		return nil, nil, err
	}
	outMu, err := embed(cfg, cfg.Muon, rho, muons, producer)
	if err != nil {
		return nil, nil, err
	}
	return outE, outMu, nil
}

func embed(cfg Config, f FlavorConfig, rho float64, in *reco.Collection, producer string) (*reco.Collection, error) {
	out := make([]*reco.Candidate, in.Len())
	for i := 0; i < in.Len(); i++ {
		l := in.At(i)
		v, err := Compute(f, cfg.FSRLabel, l, rho)
		if err != nil {
			return nil, err
		}
		annotated := l.Clone()
		annotated.SetUserFlag(cfg.DecisionLabel, v.Corrected < f.Cut)
		annotated.SetUserFloat(cfg.ValueLabel, v.Corrected)
		annotated.SetUserFloat(cfg.RawValueLabel(), v.Raw)
		out[i] = annotated
	}
	return reco.NewCollection(producer, out), nil
}
