package l4association

import (
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/hzz.report/internal/reco"
)

// Scorer ranks a lepton-photon pair; a higher score is a better match.
// dr is the eta-phi separation, et the photon transverse energy.
type Scorer func(dr, et, etPower float64) float64

// Scorer names accepted in configuration.
const (
	ScorerETOverDR = "et_over_dr"
	ScorerDROverET = "dr_over_et"
	ScorerNearest  = "nearest"
)

var scorers = map[string]Scorer{
	ScorerETOverDR: ETOverDR,
	ScorerDROverET: DROverET,
	ScorerNearest:  Nearest,
}

// ETOverDR scores Et^p / dR. A photon on top of the lepton scores +Inf.
func ETOverDR(dr, et, etPower float64) float64 {
	num := math.Pow(et, etPower)
	if dr == 0 {
		return math.Inf(1)
	}
	return num / dr
}

// DROverET scores -(dR / Et^p), the DRET convention expressed as
// higher-is-better.
func DROverET(dr, et, etPower float64) float64 {
	return -(dr / math.Pow(et, etPower))
}

// Nearest ignores the photon energy and prefers the smallest dR.
func Nearest(dr, _, _ float64) float64 {
	return -dr
}

// ScorerByName resolves a configured scorer name.
func ScorerByName(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, fmt.Errorf("unknown fsr scorer %q (known: %v): %w", name, ScorerNames(), reco.ErrInvalidConfiguration)
	}
	return s, nil
}

// ScorerNames lists the configurable scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
