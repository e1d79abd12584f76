package l4association

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/hzz.report/internal/config"
	"github.com/banshee-data/hzz.report/internal/reco"
)

// Config holds the association parameters.
type Config struct {
	Label string // cross-reference label set on matched leptons

	ElectronSelection reco.Predicate
	MuonSelection     reco.Predicate
	PhotonSelection   reco.Predicate // nil accepts every photon

	ETPower float64
	MaxDR   float64 // pairs need dR < MaxDR
	Scorer  Scorer  // nil means ETOverDR
}

// DefaultConfig returns the reference association configuration.
func DefaultConfig() Config {
	cfg, err := ConfigFromTuning(config.DefaultTuningConfig())
	if err != nil {
		panic(err)
	}
	return cfg
}

// ConfigFromTuning builds a Config from a TuningConfig. It fails only when
// the configured scorer name is unknown.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	scorer, err := ScorerByName(cfg.GetFSRScorer())
	if err != nil {
		return Config{}, err
	}
	return Config{
		Label:             cfg.GetFSRLabel(),
		ElectronSelection: reco.Cuts(cfg.GetFSRElectronSelection()),
		MuonSelection:     reco.Cuts(cfg.GetFSRMuonSelection()),
		PhotonSelection:   reco.Cuts(cfg.GetFSRPhotonSelection()),
		ETPower:           cfg.GetFSRETPower(),
		MaxDR:             cfg.GetFSRMaxDR(),
		Scorer:            scorer,
	}, nil
}

// Validate rejects a blank label and negative or non-finite parameters.
func (c Config) Validate() error {
	if c.Label == "" {
		return fmt.Errorf("fsr label must be set: %w", reco.ErrInvalidConfiguration)
	}
	if c.MaxDR < 0 || math.IsNaN(c.MaxDR) {
		return fmt.Errorf("fsr max dR must be non-negative, got %g: %w", c.MaxDR, reco.ErrInvalidConfiguration)
	}
	if c.ETPower < 0 || math.IsNaN(c.ETPower) || math.IsInf(c.ETPower, 0) {
		return fmt.Errorf("fsr et power must be finite and non-negative, got %g: %w", c.ETPower, reco.ErrInvalidConfiguration)
	}
	return nil
}

// Match records one lepton-photon claim.
type Match struct {
	Lepton   reco.Key
	Photon   reco.Key
	DR       float64
	Score    float64
	PhotonPt float64
}

// Result carries the re-emitted lepton collections and the claims made.
type Result struct {
	Electrons *reco.Collection
	Muons     *reco.Collection
	Matches   []Match // in claim order
}

// pair is a valid lepton-photon candidate match. lepton indexes the
// combined electron+muon order, photon the photon collection.
type pair struct {
	lepton int
	photon int
	dr     float64
	score  float64
}

// Associate matches photons to electrons and muons. Leptons are ordered
// electrons first, then muons, each in collection order. Valid pairs are
// ranked by score (descending), ties by lepton order then photon index,
// and claimed in a single sweep when neither side is taken yet.
func Associate(cfg Config, electrons, muons, photons *reco.Collection, producer string) (Result, error) {
	if electrons == nil || muons == nil {
		return Result{}, fmt.Errorf("leptons: %w", reco.ErrMissingInput)
	}
	if photons == nil {
		return Result{}, fmt.Errorf("fsr photons: %w", reco.ErrMissingInput)
	}
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = ETOverDR
	}

	leptons := make([]*reco.Candidate, 0, electrons.Len()+muons.Len())
	eligible := make([]bool, 0, cap(leptons))
	for _, src := range []struct {
		coll *reco.Collection
		sel  reco.Predicate
	}{{electrons, cfg.ElectronSelection}, {muons, cfg.MuonSelection}} {
		for i := 0; i < src.coll.Len(); i++ {
			l := src.coll.At(i)
			leptons = append(leptons, l)
			eligible = append(eligible, src.sel.Accept(l))
		}
	}

	var pairs []pair
	for li, l := range leptons {
		if !eligible[li] {
			continue
		}
		for pi := 0; pi < photons.Len(); pi++ {
			p := photons.At(pi)
			if !cfg.PhotonSelection.Accept(p) {
				continue
			}
			dr := reco.DeltaR(l, p)
			if dr >= cfg.MaxDR {
				continue
			}
			score := scorer(dr, p.Et(), cfg.ETPower)
			if math.IsNaN(score) {
				continue
			}
			pairs = append(pairs, pair{lepton: li, photon: pi, dr: dr, score: score})
		}
	}

	slices.SortStableFunc(pairs, func(a, b pair) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.lepton, b.lepton); c != 0 {
			return c
		}
		return cmp.Compare(a.photon, b.photon)
	})

	leptonTaken := make([]bool, len(leptons))
	photonTaken := make([]bool, photons.Len())
	claimed := make(map[int]int) // lepton -> photon
	var matches []Match
	for _, pr := range pairs {
		if leptonTaken[pr.lepton] || photonTaken[pr.photon] {
			continue
		}
		leptonTaken[pr.lepton] = true
		photonTaken[pr.photon] = true
		claimed[pr.lepton] = pr.photon
		matches = append(matches, Match{
			Lepton:   leptons[pr.lepton].Key,
			Photon:   photons.At(pr.photon).Key,
			DR:       pr.dr,
			Score:    pr.score,
			PhotonPt: photons.At(pr.photon).Pt,
		})
	}

	emit := func(offset int, coll *reco.Collection) *reco.Collection {
		out := make([]*reco.Candidate, coll.Len())
		for i := 0; i < coll.Len(); i++ {
			l := coll.At(i).Clone()
			if pi, ok := claimed[offset+i]; ok {
				l.SetUserCand(cfg.Label, photons.At(pi))
			} else {
				l.SetUserCand(cfg.Label, nil)
			}
			out[i] = l
		}
		return reco.NewCollection(producer, out)
	}

	return Result{
		Electrons: emit(0, electrons),
		Muons:     emit(electrons.Len(), muons),
		Matches:   matches,
	}, nil
}
