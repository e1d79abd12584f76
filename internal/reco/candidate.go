package reco

import (
	"fmt"
	"maps"
	"math"
)

// Kind identifies the physics object type of a candidate.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindElectron
	KindMuon
	KindPhoton
	KindJet
	KindPF // raw particle-flow candidate
)

func (k Kind) String() string {
	switch k {
	case KindElectron:
		return "electron"
	case KindMuon:
		return "muon"
	case KindPhoton:
		return "photon"
	case KindJet:
		return "jet"
	case KindPF:
		return "pf"
	default:
		return "unknown"
	}
}

// Key is the identity of a candidate within one event. Clones keep the
// key of their source, so a key survives every stage that re-emits it.
type Key struct {
	Kind  Kind
	Index int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Kind, k.Index)
}

// IsoSums holds isolation sums computed upstream in a fixed cone (0.3).
type IsoSums struct {
	ChargedHadron   float64 `json:"charged_hadron"`
	NeutralHadron   float64 `json:"neutral_hadron"`
	Photon          float64 `json:"photon"`
	PUChargedHadron float64 `json:"pu_charged_hadron"`
}

// MuonFlags are the reconstruction-level muon properties used by the ID.
type MuonFlags struct {
	IsGlobal        bool `json:"is_global"`
	IsTracker       bool `json:"is_tracker"`
	IsPF            bool `json:"is_pf"`
	TrackerHighPt   bool `json:"tracker_high_pt"`
	MatchedStations int  `json:"matched_stations"`
	BestTrackType   int  `json:"best_track_type"`
}

// BestTrackStandAlone is the BestTrackType value of a standalone muon track.
const BestTrackStandAlone = 2

// Candidate is a reconstructed object for one event: lepton, photon, jet
// or raw PF candidate.
type Candidate struct {
	Key Key

	Pt   float64
	Eta  float64
	Phi  float64
	Mass float64

	Charge int
	PdgID  int

	// Track reference point and 3D impact parameter (w.r.t. the beam spot
	// fit used upstream).
	Vx, Vy, Vz float64
	IP3D       float64
	IP3DErr    float64

	MissingHits int
	Iso         IsoSums
	Muon        MuonFlags

	userFloats map[string]float64
	userCands  map[string]*Candidate
}

// Px returns the x component of the momentum.
func (c *Candidate) Px() float64 { return c.Pt * math.Cos(c.Phi) }

// Py returns the y component of the momentum.
func (c *Candidate) Py() float64 { return c.Pt * math.Sin(c.Phi) }

// Pz returns the longitudinal momentum.
func (c *Candidate) Pz() float64 { return c.Pt * math.Sinh(c.Eta) }

// Et returns the transverse energy.
func (c *Candidate) Et() float64 {
	if c.Mass == 0 {
		return c.Pt
	}
	return math.Sqrt(c.Pt*c.Pt + c.Mass*c.Mass)
}

// UserFloat returns the annotation stored under name.
func (c *Candidate) UserFloat(name string) (float64, bool) {
	v, ok := c.userFloats[name]
	return v, ok
}

// HasUserFloat reports whether an annotation called name is present.
func (c *Candidate) HasUserFloat(name string) bool {
	_, ok := c.userFloats[name]
	return ok
}

// SetUserFloat attaches (or replaces) a named annotation.
// Only call this on a candidate the caller owns (see Clone).
func (c *Candidate) SetUserFloat(name string, v float64) {
	if c.userFloats == nil {
		c.userFloats = make(map[string]float64)
	}
	c.userFloats[name] = v
}

// SetUserFlag stores a boolean annotation as 1 or 0.
func (c *Candidate) SetUserFlag(name string, pass bool) {
	v := 0.0
	if pass {
		v = 1
	}
	c.SetUserFloat(name, v)
}

// UserFloatNames returns the annotation names in unspecified order.
func (c *Candidate) UserFloatNames() []string {
	names := make([]string, 0, len(c.userFloats))
	for name := range c.userFloats {
		names = append(names, name)
	}
	return names
}

// UserCand returns the cross-referenced candidate stored under label, or nil.
func (c *Candidate) UserCand(label string) *Candidate {
	return c.userCands[label]
}

// SetUserCand fills the single cross-reference slot for label.
func (c *Candidate) SetUserCand(label string, ref *Candidate) {
	if ref == nil {
		delete(c.userCands, label)
		return
	}
	if c.userCands == nil {
		c.userCands = make(map[string]*Candidate)
	}
	c.userCands[label] = ref
}

// Clone returns a copy that can be annotated without touching c.
// Cross-referenced candidates are shared, not copied.
func (c *Candidate) Clone() *Candidate {
	out := *c
	out.userFloats = maps.Clone(c.userFloats)
	out.userCands = maps.Clone(c.userCands)
	return &out
}
